package leaderboard

import "shanyrakkit/core"

// Entry represents a ranked shanyrak.
type Entry struct {
	ID     core.ShanyrakID
	Points int64
	Seq    int64
}

// Board abstracts leaderboard ordering operations.
type Board interface {
	Update(id core.ShanyrakID, points, seq int64)
	Remove(id core.ShanyrakID)
	TopN(n int) []Entry
	All() []Entry
	Get(id core.ShanyrakID) (Entry, bool)
	Len() int
}
