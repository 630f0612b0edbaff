package session

import (
	"context"
	"testing"
	"time"

	"github.com/pavelanni/survey/internal/model"
	"github.com/pavelanni/survey/internal/store"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(t *testing.T) (*Manager, *fakeClock) {
	t.Helper()
	reg, err := store.New(store.MemoryDSN)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { reg.Close() })

	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(reg, time.Hour, 10*time.Minute)
	m.now = clock.now
	return m, clock
}

func mustOpen(t *testing.T, m *Manager, id string) (*Session, bool) {
	t.Helper()
	sess, created, err := m.Open(id)
	if err != nil {
		t.Fatalf("Open(%q): %v", id, err)
	}
	return sess, created
}

func TestOpenCreatesAndResumes(t *testing.T) {
	m, clock := newTestManager(t)

	sess, created := mustOpen(t, m, "")
	if !created {
		t.Fatal("empty id should create a session")
	}
	if sess.ID == "" || sess.Responses == nil {
		t.Fatalf("new session incomplete: %+v", sess)
	}
	sess.Responses.Append(model.Response{Name: "Kim"})

	clock.advance(30 * time.Minute)
	again, created := mustOpen(t, m, sess.ID)
	if created {
		t.Fatal("known id should resume the session")
	}
	if again.Responses != sess.Responses {
		t.Error("resumed session should share the same response store")
	}
	if again.Responses.Len() != 1 {
		t.Errorf("resumed store has %d records", again.Responses.Len())
	}
	if !again.LastSeen.Equal(clock.t) {
		t.Errorf("LastSeen = %v, want %v", again.LastSeen, clock.t)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	m, _ := newTestManager(t)
	a, _ := mustOpen(t, m, "")
	b, _ := mustOpen(t, m, "")
	if a.ID == b.ID {
		t.Fatal("sessions should get distinct ids")
	}
	a.Responses.Append(model.Response{Name: "only in a"})
	if b.Responses.Len() != 0 {
		t.Error("responses leaked across sessions")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestOpenUnknownOrExpired(t *testing.T) {
	m, clock := newTestManager(t)

	if _, created := mustOpen(t, m, "no-such-session"); !created {
		t.Error("unknown id should create a fresh session")
	}

	sess, _ := mustOpen(t, m, "")
	sess.Responses.Append(model.Response{Name: "Kim"})
	clock.advance(2 * time.Hour)

	fresh, created := mustOpen(t, m, sess.ID)
	if !created {
		t.Fatal("expired session should be replaced")
	}
	if fresh.ID == sess.ID {
		t.Error("replacement should have a new id")
	}
	if fresh.Responses.Len() != 0 {
		t.Error("replacement should start with an empty store")
	}
}

func TestAdminGrant(t *testing.T) {
	m, clock := newTestManager(t)
	sess, _ := mustOpen(t, m, "")

	if m.IsAdmin(sess) {
		t.Fatal("new session should not be admin")
	}
	if err := m.GrantAdmin(sess); err != nil {
		t.Fatalf("GrantAdmin: %v", err)
	}
	if !m.IsAdmin(sess) {
		t.Fatal("granted session should be admin")
	}

	// The grant is read back from the registry on the next request.
	clock.advance(5 * time.Minute)
	again, _ := mustOpen(t, m, sess.ID)
	if !m.IsAdmin(again) {
		t.Error("grant should survive a reopen")
	}

	clock.advance(6 * time.Minute)
	again, _ = mustOpen(t, m, sess.ID)
	if m.IsAdmin(again) {
		t.Error("grant should lapse after the admin TTL")
	}

	if err := m.GrantAdmin(again); err != nil {
		t.Fatalf("GrantAdmin: %v", err)
	}
	if err := m.RevokeAdmin(again); err != nil {
		t.Fatalf("RevokeAdmin: %v", err)
	}
	again, _ = mustOpen(t, m, sess.ID)
	if m.IsAdmin(again) {
		t.Error("revoked grant should not be admin")
	}
}

func TestSweep(t *testing.T) {
	m, clock := newTestManager(t)
	old, _ := mustOpen(t, m, "")
	clock.advance(50 * time.Minute)
	recent, _ := mustOpen(t, m, "")
	clock.advance(20 * time.Minute)

	n, err := m.Sweep()
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("Sweep removed %d sessions, want 1", n)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
	if _, created := mustOpen(t, m, old.ID); !created {
		t.Error("swept session should not resume")
	}
	if _, created := mustOpen(t, m, recent.ID); created {
		t.Error("recent session should survive the sweep")
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Error("empty context should carry no session")
	}
	sess := &Session{Session: model.Session{ID: "x"}}
	if got := FromContext(WithSession(context.Background(), sess)); got != sess {
		t.Errorf("FromContext = %v, want %v", got, sess)
	}
}
