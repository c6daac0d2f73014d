package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shanyrakkit/core"
)

// Store persists the entire ledger to a single JSON file.
// Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory cache for speed
	rows   map[core.ShanyrakID]core.Shanyrak
	byName map[string]core.ShanyrakID
	seq    int64
}

type document struct {
	Seq  int64          `json:"seq"`
	Rows []persistedRow `json:"rows"`
}

// persistedRow re-exposes the creation sequence, which the entity keeps out
// of its API responses.
type persistedRow struct {
	core.Shanyrak
	RowSeq int64 `json:"seq"`
}

func New(path string) (*Store, error) {
	s := &Store{
		path:   path,
		rows:   map[core.ShanyrakID]core.Shanyrak{},
		byName: map[string]core.ShanyrakID{},
	}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	s.seq = doc.Seq
	for _, p := range doc.Rows {
		row := p.Shanyrak
		row.Seq = p.RowSeq
		s.rows[row.ID] = row
		s.byName[row.Name] = row.ID
	}
	return nil
}

func (s *Store) persist() error {
	doc := document{Seq: s.seq, Rows: make([]persistedRow, 0, len(s.rows))}
	for _, v := range s.rows {
		doc.Rows = append(doc.Rows, persistedRow{Shanyrak: v, RowSeq: v.Seq})
	}
	sort.Slice(doc.Rows, func(i, j int) bool { return doc.Rows[i].RowSeq < doc.Rows[j].RowSeq })
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) Insert(_ context.Context, name, color string) (core.Shanyrak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[name]; exists {
		return core.Shanyrak{}, core.Conflictf("shanyrak %q already exists", name)
	}
	s.seq++
	now := time.Now().UTC()
	row := core.Shanyrak{
		ID:      core.ShanyrakID(uuid.NewString()),
		Name:    name,
		Color:   color,
		Seq:     s.seq,
		Created: now,
		Updated: now,
	}
	s.rows[row.ID] = row
	s.byName[name] = row.ID
	if err := s.persist(); err != nil {
		delete(s.rows, row.ID)
		delete(s.byName, name)
		return core.Shanyrak{}, core.Internal("failed to persist", err)
	}
	return row, nil
}

func (s *Store) Get(_ context.Context, id core.ShanyrakID) (core.Shanyrak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return core.Shanyrak{}, core.NotFoundf("shanyrak %s not found", id)
	}
	return row, nil
}

func (s *Store) List(_ context.Context) ([]core.Shanyrak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(a, b core.Shanyrak) bool { return a.Seq < b.Seq }), nil
}

func (s *Store) ListByPoints(_ context.Context) ([]core.Shanyrak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(a, b core.Shanyrak) bool {
		if a.Points == b.Points {
			return a.Seq < b.Seq
		}
		return a.Points > b.Points
	}), nil
}

func (s *Store) sorted(less func(a, b core.Shanyrak) bool) []core.Shanyrak {
	out := make([]core.Shanyrak, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
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
	prev := row
	row.Points = next
	row.Updated = time.Now().UTC()
	s.rows[id] = row
	if err := s.persist(); err != nil {
		s.rows[id] = prev
		return core.Shanyrak{}, core.Internal("failed to persist", err)
	}
	return row, nil
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
	prev := row
	row.Members = next
	row.Updated = time.Now().UTC()
	s.rows[id] = row
	if err := s.persist(); err != nil {
		s.rows[id] = prev
		return core.Shanyrak{}, core.Internal("failed to persist", err)
	}
	return row, nil
}
