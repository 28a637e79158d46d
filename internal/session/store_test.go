package session

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func levelByTurns(turns int) int {
	if turns < 1 {
		return 1
	}
	if turns > 5 {
		return 5
	}
	return turns
}

func TestGetOrCreateDefaults(t *testing.T) {
	s := NewStore(time.Hour, levelByTurns)
	sess := s.GetOrCreate("s1")

	if sess.ID != "s1" {
		t.Fatalf("ID = %q, want s1", sess.ID)
	}
	if sess.MessageCount != 0 {
		t.Fatalf("MessageCount = %d, want 0", sess.MessageCount)
	}
	if len(sess.Messages) != 0 {
		t.Fatalf("Messages length = %d, want 0", len(sess.Messages))
	}
	if sess.FrustrationLevel != 1 {
		t.Fatalf("FrustrationLevel = %d, want 1", sess.FrustrationLevel)
	}
	if sess.LastAccessAt < sess.CreatedAt {
		t.Fatalf("LastAccessAt %d before CreatedAt %d", sess.LastAccessAt, sess.CreatedAt)
	}
}

func TestGetOrCreateRefreshesExisting(t *testing.T) {
	s := NewStore(time.Hour, levelByTurns)

	now := time.Unix(1_000_000, 0)
	s.SetClock(func() time.Time { return now })
	first := s.GetOrCreate("s1")

	now = now.Add(30 * time.Second)
	second := s.GetOrCreate("s1")

	if second.CreatedAt != first.CreatedAt {
		t.Fatalf("CreatedAt changed on existing session")
	}
	if second.LastAccessAt != first.LastAccessAt+30 {
		t.Fatalf("LastAccessAt = %d, want %d", second.LastAccessAt, first.LastAccessAt+30)
	}
}

func TestAppendUnknownSession(t *testing.T) {
	s := NewStore(time.Hour, levelByTurns)
	if err := s.Append("ghost", RoleUser, "ciao"); err != ErrNotFound {
		t.Fatalf("Append() error = %v, want ErrNotFound", err)
	}
	if s.Count() != 0 {
		t.Fatalf("append on unknown id created a session")
	}
}

func TestAppendSingleMessage(t *testing.T) {
	s := NewStore(time.Hour, levelByTurns)
	s.GetOrCreate("s1")

	if err := s.Append("s1", RoleUser, "Hello"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	sess, err := s.Get("s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(sess.Messages) != 1 {
		t.Fatalf("Messages length = %d, want 1", len(sess.Messages))
	}
	if sess.Messages[0].Role != RoleUser || sess.Messages[0].Content != "Hello" {
		t.Fatalf("unexpected message: %+v", sess.Messages[0])
	}
	if sess.MessageCount != 1 {
		t.Fatalf("MessageCount = %d, want 1", sess.MessageCount)
	}
}

func TestAppendCapsHistoryAtFifty(t *testing.T) {
	s := NewStore(time.Hour, levelByTurns)
	s.GetOrCreate("s1")

	for i := 1; i <= 60; i++ {
		if err := s.Append("s1", RoleUser, fmt.Sprintf("msg-%d", i)); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}

	sess, err := s.Get("s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(sess.Messages) != 50 {
		t.Fatalf("Messages length = %d, want 50", len(sess.Messages))
	}
	// Retained messages must be exactly 11..60 in original order.
	for i, m := range sess.Messages {
		want := fmt.Sprintf("msg-%d", i+11)
		if m.Content != want {
			t.Fatalf("Messages[%d] = %q, want %q", i, m.Content, want)
		}
	}
	if sess.MessageCount != 60 {
		t.Fatalf("MessageCount = %d, want 60", sess.MessageCount)
	}
}

func TestFrustrationLevelStaysInRange(t *testing.T) {
	s := NewStore(time.Hour, levelByTurns)
	s.GetOrCreate("s1")

	for i := 0; i < 12; i++ {
		if err := s.Append("s1", RoleUser, "ancora tu"); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		sess, err := s.Get("s1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if sess.FrustrationLevel < 1 || sess.FrustrationLevel > 5 {
			t.Fatalf("FrustrationLevel = %d, out of range after %d turns", sess.FrustrationLevel, i+1)
		}
	}

	sess, _ := s.Get("s1")
	if sess.FrustrationLevel != 5 {
		t.Fatalf("FrustrationLevel = %d, want saturation at 5", sess.FrustrationLevel)
	}
}

func TestAssistantTurnsDoNotEscalate(t *testing.T) {
	s := NewStore(time.Hour, levelByTurns)
	s.GetOrCreate("s1")

	_ = s.Append("s1", RoleUser, "pronto?")
	_ = s.Append("s1", RoleAssistant, "La comprendo perfettamente, ma...")
	_ = s.Append("s1", RoleAssistant, "Attenda in linea.")

	sess, _ := s.Get("s1")
	if sess.FrustrationLevel != 1 {
		t.Fatalf("FrustrationLevel = %d, want 1 after a single user turn", sess.FrustrationLevel)
	}
}

func TestRecentHistoryWindow(t *testing.T) {
	s := NewStore(time.Hour, levelByTurns)
	s.GetOrCreate("s1")
	for i := 1; i <= 30; i++ {
		_ = s.Append("s1", RoleUser, fmt.Sprintf("msg-%d", i))
	}

	got := s.RecentHistory("s1", 0)
	if len(got) != 20 {
		t.Fatalf("default window length = %d, want 20", len(got))
	}
	if got[0].Content != "msg-11" || got[19].Content != "msg-30" {
		t.Fatalf("window = %q..%q, want msg-11..msg-30", got[0].Content, got[19].Content)
	}

	if got := s.RecentHistory("s1", 5); len(got) != 5 || got[0].Content != "msg-26" {
		t.Fatalf("RecentHistory(5) returned wrong suffix")
	}
	if got := s.RecentHistory("ghost", 0); len(got) != 0 {
		t.Fatalf("RecentHistory on unknown id = %d entries, want 0", len(got))
	}
}

func TestDeleteIdempotence(t *testing.T) {
	s := NewStore(time.Hour, levelByTurns)
	s.GetOrCreate("s1")

	if !s.Delete("s1") {
		t.Fatalf("first Delete() = false, want true")
	}
	if s.Delete("s1") {
		t.Fatalf("second Delete() = true, want false")
	}
	if _, err := s.Get("s1"); err != ErrNotFound {
		t.Fatalf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestSweepExpired(t *testing.T) {
	s := NewStore(time.Hour, levelByTurns)

	now := time.Unix(2_000_000, 0)
	s.SetClock(func() time.Time { return now })
	s.GetOrCreate("old")

	now = now.Add(3501 * time.Second)
	s.GetOrCreate("fresh")

	now = now.Add(100 * time.Second)
	removed := s.SweepExpired()
	if removed != 1 {
		t.Fatalf("SweepExpired() = %d, want 1", removed)
	}
	if _, err := s.Get("old"); err != ErrNotFound {
		t.Fatalf("expired session still present")
	}
	if _, err := s.Get("fresh"); err != nil {
		t.Fatalf("fresh session swept: %v", err)
	}
}

func TestConcurrentAppendsKeepInvariant(t *testing.T) {
	s := NewStore(time.Hour, levelByTurns)
	s.GetOrCreate("s1")

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_ = s.Append("s1", RoleUser, fmt.Sprintf("g%d-%d", g, i))
			}
		}(g)
	}
	wg.Wait()

	sess, err := s.Get("s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(sess.Messages) != 50 {
		t.Fatalf("Messages length = %d, want 50", len(sess.Messages))
	}
	if sess.MessageCount != 160 {
		t.Fatalf("MessageCount = %d, want 160", sess.MessageCount)
	}
}

func TestAllSnapshot(t *testing.T) {
	s := NewStore(time.Hour, levelByTurns)
	s.GetOrCreate("a")
	s.GetOrCreate("b")

	overview := s.All()
	if overview.TotalSessions != 2 || len(overview.Sessions) != 2 {
		t.Fatalf("unexpected overview: %+v", overview)
	}
	if _, ok := overview.Details["a"]; !ok {
		t.Fatalf("overview missing session a")
	}

	// Mutating the snapshot must not touch the store.
	overview.Details["a"].Messages = append(overview.Details["a"].Messages, Message{Role: RoleUser, Content: "x"})
	got, _ := s.Get("a")
	if len(got.Messages) != 0 {
		t.Fatalf("snapshot mutation leaked into store")
	}
}
