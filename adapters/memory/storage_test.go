package memory

import (
	"context"
	"sync"
	"testing"

	"shanyrakkit/core"
)

func TestInsertAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()
	created, err := s.Insert(ctx, "Red", "#F00")
	if err != nil {
		t.Fatal(err)
	}
	if created.Points != 0 || created.Members != 0 {
		t.Fatalf("new shanyrak must start at zero: %+v", created)
	}
	got, err := s.Get(ctx, created.ID)
	if err != nil || got.Name != "Red" {
		t.Fatalf("get: %+v %v", got, err)
	}
}

func TestInsertDuplicateName(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.Insert(ctx, "Red", "#F00"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(ctx, "Red", "#A00"); !core.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	rows, _ := s.List(ctx)
	if len(rows) != 1 {
		t.Fatalf("store must retain only the first row, got %d", len(rows))
	}
}

func TestListByPointsOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()
	a, _ := s.Insert(ctx, "A", "#111")
	b, _ := s.Insert(ctx, "B", "#222")
	c, _ := s.Insert(ctx, "C", "#333")
	_, _ = s.AddPoints(ctx, a.ID, 10)
	_, _ = s.AddPoints(ctx, b.ID, 30)
	_, _ = s.AddPoints(ctx, c.ID, 20)

	ranked, err := s.ListByPoints(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ranked[0].Name != "B" || ranked[1].Name != "C" || ranked[2].Name != "A" {
		t.Fatalf("unexpected order: %v %v %v", ranked[0].Name, ranked[1].Name, ranked[2].Name)
	}
}

func TestAdjustMembersRejectsNegative(t *testing.T) {
	s := New()
	ctx := context.Background()
	row, _ := s.Insert(ctx, "Red", "#F00")
	if _, err := s.AdjustMembers(ctx, row.ID, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AdjustMembers(ctx, row.ID, -5); !core.IsInvalid(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, _ := s.Get(ctx, row.ID)
	if got.Members != 2 {
		t.Fatalf("rejected delta must leave members unchanged, got %d", got.Members)
	}
	if _, err := s.AdjustMembers(ctx, row.ID, -2); err != nil {
		t.Fatalf("delta to exactly zero must succeed: %v", err)
	}
}

func TestConcurrentAddPoints(t *testing.T) {
	s := New()
	ctx := context.Background()
	row, _ := s.Insert(ctx, "Red", "#F00")

	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := s.AddPoints(ctx, row.ID, 1); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.Get(ctx, row.ID)
	if got.Points != n {
		t.Fatalf("lost updates: expected %d points, got %d", n, got.Points)
	}
}

func TestRebuildRanksIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	a, _ := s.Insert(ctx, "A", "#111")
	b, _ := s.Insert(ctx, "B", "#222")
	_, _ = s.AddPoints(ctx, a.ID, 5)
	_, _ = s.AddPoints(ctx, b.ID, 9)

	before, _ := s.ListByPoints(ctx)
	for i := 0; i < 3; i++ {
		if err := s.RebuildRanks(ctx); err != nil {
			t.Fatal(err)
		}
	}
	after, _ := s.ListByPoints(ctx)
	if len(before) != len(after) {
		t.Fatalf("rebuild changed row count: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("rebuild changed readable state at %d: %+v vs %+v", i, before[i], after[i])
		}
	}
}
