package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(MemoryDSN)
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestSession(t *testing.T, s *Store, id string, at time.Time) {
	t.Helper()
	if err := s.CreateSession(id, at); err != nil {
		t.Fatalf("CreateSession(%s): %v", id, err)
	}
}

func TestSessionCRUD(t *testing.T) {
	s := newTestStore(t)

	// Empty registry.
	count, err := s.SessionCount()
	if err != nil {
		t.Fatalf("SessionCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 sessions, got %d", count)
	}

	// Not found.
	sess, err := s.GetSession("missing")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected nil for missing session, got %+v", sess)
	}

	createTestSession(t, s, "a", t0)
	sess, err = s.GetSession("a")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session a")
	}
	if !sess.CreatedAt.Equal(t0) || !sess.LastSeen.Equal(t0) {
		t.Errorf("times = %v / %v, want %v", sess.CreatedAt, sess.LastSeen, t0)
	}
	if sess.AdminUntil != nil {
		t.Errorf("new session should have no admin grant, got %v", sess.AdminUntil)
	}

	// Duplicate id.
	if err := s.CreateSession("a", t0); err == nil {
		t.Error("expected error creating duplicate session")
	}

	// Touch.
	later := t0.Add(5 * time.Minute)
	if err := s.TouchSession("a", later); err != nil {
		t.Fatalf("TouchSession: %v", err)
	}
	sess, _ = s.GetSession("a")
	if !sess.LastSeen.Equal(later) {
		t.Errorf("LastSeen = %v, want %v", sess.LastSeen, later)
	}
	if !sess.CreatedAt.Equal(t0) {
		t.Errorf("CreatedAt changed to %v", sess.CreatedAt)
	}

	// Delete.
	if err := s.DeleteSession("a"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	sess, _ = s.GetSession("a")
	if sess != nil {
		t.Error("expected session to be deleted")
	}
}

func TestAdminGrant(t *testing.T) {
	s := newTestStore(t)
	createTestSession(t, s, "a", t0)

	until := t0.Add(30 * time.Minute)
	if err := s.SetAdminUntil("a", &until); err != nil {
		t.Fatalf("SetAdminUntil: %v", err)
	}
	sess, _ := s.GetSession("a")
	if sess.AdminUntil == nil || !sess.AdminUntil.Equal(until) {
		t.Fatalf("AdminUntil = %v, want %v", sess.AdminUntil, until)
	}
	if !sess.AdminActive(t0) {
		t.Error("grant should be active before it expires")
	}
	if sess.AdminActive(until.Add(time.Second)) {
		t.Error("grant should lapse after it expires")
	}

	if err := s.SetAdminUntil("a", nil); err != nil {
		t.Fatalf("SetAdminUntil(nil): %v", err)
	}
	sess, _ = s.GetSession("a")
	if sess.AdminUntil != nil {
		t.Errorf("revoked grant still set: %v", sess.AdminUntil)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	s := newTestStore(t)
	createTestSession(t, s, "old-1", t0)
	createTestSession(t, s, "old-2", t0.Add(time.Minute))
	createTestSession(t, s, "fresh", t0.Add(time.Hour))

	ids, err := s.DeleteExpiredSessions(t0.Add(30 * time.Minute))
	if err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if diff := cmp.Diff([]string{"old-1", "old-2"}, ids); diff != "" {
		t.Errorf("expired ids mismatch (-want +got):\n%s", diff)
	}

	count, _ := s.SessionCount()
	if count != 1 {
		t.Errorf("expected 1 session left, got %d", count)
	}

	ids, err = s.DeleteExpiredSessions(t0.Add(30 * time.Minute))
	if err != nil {
		t.Fatalf("DeleteExpiredSessions (again): %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("second sweep removed %v", ids)
	}
}

func TestFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New(%s): %v", path, err)
	}
	createTestSession(t, s, "a", t0)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	count, err := s.SessionCount()
	if err != nil {
		t.Fatalf("SessionCount: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 session after reopen, got %d", count)
	}
}
