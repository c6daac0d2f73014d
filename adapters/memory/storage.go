package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"shanyrakkit/core"
	"shanyrakkit/leaderboard"
)

// Store is a concurrent in-memory Storage implementation. A skip list keeps
// the ranked ordering so ListByPoints does not re-sort on every read.
type Store struct {
	mu     sync.RWMutex
	rows   map[core.ShanyrakID]*core.Shanyrak
	byName map[string]core.ShanyrakID
	order  []core.ShanyrakID // insertion order
	seq    int64
	board  *leaderboard.SkipList
}

func New() *Store {
	return &Store{
		rows:   map[core.ShanyrakID]*core.Shanyrak{},
		byName: map[string]core.ShanyrakID{},
		board:  leaderboard.NewSkipList(),
	}
}

func (s *Store) Insert(_ context.Context, name, color string) (core.Shanyrak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[name]; exists {
		return core.Shanyrak{}, core.Conflictf("shanyrak %q already exists", name)
	}
	s.seq++
	now := time.Now().UTC()
	row := &core.Shanyrak{
		ID:      core.ShanyrakID(uuid.NewString()),
		Name:    name,
		Color:   color,
		Seq:     s.seq,
		Created: now,
		Updated: now,
	}
	s.rows[row.ID] = row
	s.byName[name] = row.ID
	s.order = append(s.order, row.ID)
	s.board.Update(row.ID, row.Points, row.Seq)
	return *row, nil
}

func (s *Store) Get(_ context.Context, id core.ShanyrakID) (core.Shanyrak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok {
		return core.Shanyrak{}, core.NotFoundf("shanyrak %s not found", id)
	}
	return *row, nil
}

func (s *Store) List(_ context.Context) ([]core.Shanyrak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Shanyrak, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.rows[id])
	}
	return out, nil
}

func (s *Store) ListByPoints(_ context.Context) ([]core.Shanyrak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.board.All()
	out := make([]core.Shanyrak, 0, len(entries))
	for _, e := range entries {
		if row, ok := s.rows[e.ID]; ok {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *Store) AddPoints(_ context.Context, id core.ShanyrakID, delta int64) (core.Shanyrak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return core.Shanyrak{}, core.NotFoundf("shanyrak %s not found", id)
	}
	next, err := core.AddSafe(row.Points, delta)
	if err != nil {
		return core.Shanyrak{}, err
	}
	row.Points = next
	row.Updated = time.Now().UTC()
	s.board.Update(row.ID, row.Points, row.Seq)
	return *row, nil
}

func (s *Store) AdjustMembers(_ context.Context, id core.ShanyrakID, delta int64) (core.Shanyrak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return core.Shanyrak{}, core.NotFoundf("shanyrak %s not found", id)
	}
	next, err := core.AddSafe(row.Members, delta)
	if err != nil {
		return core.Shanyrak{}, err
	}
	if next < 0 {
		return core.Shanyrak{}, core.Invalidf("members cannot go below 0 (current %d, delta %d)", row.Members, delta)
	}
	row.Members = next
	row.Updated = time.Now().UTC()
	return *row, nil
}

// RebuildRanks rebuilds the skip list index from row state. Idempotent.
func (s *Store) RebuildRanks(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	board := leaderboard.NewSkipList()
	for _, row := range s.rows {
		board.Update(row.ID, row.Points, row.Seq)
	}
	s.board = board
	return nil
}
