package transcript

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestSaveTurnFillsDefaults(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.SaveTurn(ctx, TurnRecord{SessionID: "s-1", Role: "user", Content: "pronto"}); err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}

	turns, err := s.RecentTurns(ctx, "s-1", 0)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if turns[0].ID == "" {
		t.Fatal("saved turn has no generated id")
	}
	if turns[0].CreatedAt.IsZero() {
		t.Fatal("saved turn has no timestamp")
	}
}

func TestRecentTurnsWindowing(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		err := s.SaveTurn(ctx, TurnRecord{SessionID: "s-1", Role: "user", Content: fmt.Sprintf("turno %d", i)})
		if err != nil {
			t.Fatal(err)
		}
	}

	turns, err := s.RecentTurns(ctx, "s-1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].Content != "turno 5" || turns[1].Content != "turno 6" {
		t.Fatalf("window = [%q %q], want the two newest turns", turns[0].Content, turns[1].Content)
	}

	all, err := s.RecentTurns(ctx, "s-1", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 6 {
		t.Fatalf("oversized limit returned %d turns, want 6", len(all))
	}

	none, err := s.RecentTurns(ctx, "missing", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Fatalf("unknown session returned %d turns", len(none))
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.SaveTurn(ctx, TurnRecord{SessionID: "a", Role: "user", Content: "ciao"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveTurn(ctx, TurnRecord{SessionID: "b", Role: "user", Content: "salve"}); err != nil {
		t.Fatal(err)
	}

	turns, err := s.RecentTurns(ctx, "a", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 1 || turns[0].Content != "ciao" {
		t.Fatalf("session a sees %+v", turns)
	}
}

func TestConcurrentSaves(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_ = s.SaveTurn(ctx, TurnRecord{SessionID: "shared", Role: "user", Content: fmt.Sprintf("%d-%d", g, i)})
			}
		}(g)
	}
	wg.Wait()

	turns, err := s.RecentTurns(ctx, "shared", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 200 {
		t.Fatalf("got %d turns, want 200", len(turns))
	}
}
