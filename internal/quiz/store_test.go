package quiz

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "quiz.db"), ttl, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateLookup_RoundTrip(t *testing.T) {
	s := newTestStore(t, time.Minute)
	ctx := context.Background()

	token, err := s.Create(ctx, "user1", "2")
	if err != nil {
		t.Fatal(err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	sess, err := s.Lookup(ctx, token)
	if err != nil {
		t.Fatal(err)
	}
	if sess == nil {
		t.Fatal("expected session, got nil")
	}
	if sess.Answer != "2" || sess.RecipientID != "user1" {
		t.Errorf("unexpected session: %+v", sess)
	}
}

func TestLookup_UnknownToken(t *testing.T) {
	s := newTestStore(t, time.Minute)
	sess, err := s.Lookup(context.Background(), "no-such-token")
	if err != nil {
		t.Fatal(err)
	}
	if sess != nil {
		t.Errorf("expected nil for unknown token, got %+v", sess)
	}
}

func TestLookup_Expired(t *testing.T) {
	s := newTestStore(t, time.Nanosecond)
	ctx := context.Background()

	token, err := s.Create(ctx, "user1", "3")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)

	sess, err := s.Lookup(ctx, token)
	if err != nil {
		t.Fatal(err)
	}
	if sess != nil {
		t.Errorf("expected expired session to be gone, got %+v", sess)
	}
}

func TestCreate_UniqueTokens(t *testing.T) {
	s := newTestStore(t, time.Minute)
	ctx := context.Background()

	a, err := s.Create(ctx, "user1", "1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Create(ctx, "user1", "1")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("tokens must be unique per session")
	}
}
