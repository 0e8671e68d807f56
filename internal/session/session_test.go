package session_test

import (
	"sync"
	"testing"

	"github.com/datasage/datasage/internal/session"
)

func TestAppendEvictsOldest(t *testing.T) {
	s := session.New(4)
	for i := 0; i < 6; i++ {
		s.Append(session.Turn{Role: session.RoleUser, Text: string(rune('a' + i))})
	}
	got := s.Recent(0)
	if len(got) != 4 {
		t.Fatalf("retained %d turns, want 4", len(got))
	}
	if got[0].Text != "c" || got[3].Text != "f" {
		t.Errorf("wrong turns retained: first %q last %q", got[0].Text, got[3].Text)
	}
}

func TestRecentWindow(t *testing.T) {
	s := session.New(50)
	s.Append(
		session.Turn{Role: session.RoleUser, Text: "one"},
		session.Turn{Role: session.RoleAssistant, Text: "two"},
		session.Turn{Role: session.RoleUser, Text: "three"},
	)

	got := s.Recent(2)
	if len(got) != 2 {
		t.Fatalf("Recent(2) = %d turns", len(got))
	}
	if got[0].Text != "two" || got[1].Text != "three" {
		t.Errorf("Recent(2) = %q %q", got[0].Text, got[1].Text)
	}
}

func TestRecentReturnsCopy(t *testing.T) {
	s := session.New(50)
	s.Append(session.Turn{Role: session.RoleUser, Text: "original"})

	got := s.Recent(0)
	got[0].Text = "mutated"

	if s.Recent(0)[0].Text != "original" {
		t.Error("Recent must return a copy, not the backing slice")
	}
}

func TestConcurrentAppends(t *testing.T) {
	s := session.New(0)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.Lock()
			defer unlock()
			s.Append(
				session.Turn{Role: session.RoleUser, Text: "q"},
				session.Turn{Role: session.RoleAssistant, Text: "a"},
			)
		}()
	}
	wg.Wait()

	turns := s.Recent(0)
	if len(turns) != 40 {
		t.Fatalf("retained %d turns, want 40", len(turns))
	}
	// The inflight lock keeps each question/answer pair adjacent.
	for i := 0; i < len(turns); i += 2 {
		if turns[i].Role != session.RoleUser || turns[i+1].Role != session.RoleAssistant {
			t.Fatalf("turn pair %d out of order: %q %q", i, turns[i].Role, turns[i+1].Role)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := session.NewRegistry(50)
	s := r.Create()

	got, ok := r.Get(s.ID)
	if !ok || got != s {
		t.Fatal("Get should return the created session")
	}

	r.Drop(s.ID)
	if _, ok := r.Get(s.ID); ok {
		t.Error("dropped session should be gone")
	}

	if _, ok := r.Get(""); ok {
		t.Error("empty ID should not resolve")
	}
}
