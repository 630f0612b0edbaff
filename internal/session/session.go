// Package session owns the response store of every interactive session.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/survey/internal/model"
	"github.com/pavelanni/survey/internal/store"
	"github.com/pavelanni/survey/internal/survey"
)

// Session is one interactive session and the responses collected in it.
type Session struct {
	model.Session
	Responses *survey.Store
}

// Manager creates, finds and expires sessions. Registry metadata lives in
// the SQLite store; response stores live only in memory.
type Manager struct {
	registry *store.Store
	ttl      time.Duration
	adminTTL time.Duration
	now      func() time.Time

	mu     sync.Mutex
	stores map[string]*survey.Store
}

// NewManager creates a manager. Sessions idle for longer than ttl are
// dropped; admin grants last adminTTL.
func NewManager(registry *store.Store, ttl, adminTTL time.Duration) *Manager {
	return &Manager{
		registry: registry,
		ttl:      ttl,
		adminTTL: adminTTL,
		now:      time.Now,
		stores:   make(map[string]*survey.Store),
	}
}

// Open returns the live session with the given id, or a new empty one when
// id is unknown, expired or empty. created reports the latter.
func (m *Manager) Open(id string) (sess *Session, created bool, err error) {
	now := m.now()

	if id != "" {
		rec, err := m.registry.GetSession(id)
		if err != nil {
			return nil, false, fmt.Errorf("get session: %w", err)
		}
		m.mu.Lock()
		responses, ok := m.stores[id]
		m.mu.Unlock()

		switch {
		case rec != nil && ok && now.Sub(rec.LastSeen) <= m.ttl:
			if err := m.registry.TouchSession(id, now); err != nil {
				return nil, false, fmt.Errorf("touch session: %w", err)
			}
			rec.LastSeen = now
			return &Session{Session: *rec, Responses: responses}, false, nil
		case rec != nil:
			// Expired, or registered before a restart lost its responses.
			m.drop(id)
		}
	}

	return m.create(now)
}

func (m *Manager) create(now time.Time) (*Session, bool, error) {
	id := uuid.New().String()
	if err := m.registry.CreateSession(id, now); err != nil {
		return nil, false, fmt.Errorf("create session: %w", err)
	}
	responses := survey.NewStore()
	m.mu.Lock()
	m.stores[id] = responses
	m.mu.Unlock()

	slog.Debug("session started", "session", id)
	return &Session{
		Session:   model.Session{ID: id, CreatedAt: now, LastSeen: now},
		Responses: responses,
	}, true, nil
}

func (m *Manager) drop(id string) {
	m.mu.Lock()
	delete(m.stores, id)
	m.mu.Unlock()
	if err := m.registry.DeleteSession(id); err != nil {
		slog.Warn("failed to delete session", "session", id, "error", err)
	}
}

// GrantAdmin gives the session admin access for the manager's admin TTL.
func (m *Manager) GrantAdmin(sess *Session) error {
	until := m.now().Add(m.adminTTL)
	if err := m.registry.SetAdminUntil(sess.ID, &until); err != nil {
		return fmt.Errorf("grant admin: %w", err)
	}
	sess.AdminUntil = &until
	return nil
}

// RevokeAdmin drops the session's admin access.
func (m *Manager) RevokeAdmin(sess *Session) error {
	if err := m.registry.SetAdminUntil(sess.ID, nil); err != nil {
		return fmt.Errorf("revoke admin: %w", err)
	}
	sess.AdminUntil = nil
	return nil
}

// IsAdmin reports whether the session currently holds an admin grant.
func (m *Manager) IsAdmin(sess *Session) bool {
	return sess.AdminActive(m.now())
}

// Sweep discards every session idle for longer than the TTL and returns how
// many were removed.
func (m *Manager) Sweep() (int, error) {
	ids, err := m.registry.DeleteExpiredSessions(m.now().Add(-m.ttl))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	m.mu.Lock()
	for _, id := range ids {
		delete(m.stores, id)
	}
	m.mu.Unlock()
	if len(ids) > 0 {
		registered, err := m.registry.SessionCount()
		if err != nil {
			slog.Warn("failed to count sessions", "error", err)
		}
		slog.Info("expired sessions removed", "count", len(ids), "live", m.Len(), "registered", registered)
	}
	return len(ids), nil
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(); err != nil {
				slog.Error("session sweep failed", "error", err)
			}
		}
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

type ctxKey struct{}

// WithSession stores the session in the context.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext retrieves the session from context, or nil.
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(ctxKey{}).(*Session)
	return sess
}
