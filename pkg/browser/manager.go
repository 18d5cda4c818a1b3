package browser

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionExists is returned when a session id is already registered.
var ErrSessionExists = errors.New("browser session already exists")

// Manager owns the sessions opened on one runtime. Closing the manager
// closes every session and then the runtime.
type Manager struct {
	rt      Runtime
	metrics *Metrics

	mu      sync.Mutex
	open    map[string]Session
	pending map[string]struct{}
}

// NewManager creates a Manager backed by rt. metrics may be nil.
func NewManager(rt Runtime, metrics *Metrics) *Manager {
	return &Manager{
		rt:      rt,
		metrics: metrics,
		open:    make(map[string]Session),
		pending: make(map[string]struct{}),
	}
}

// CreateSession opens a session. An empty session id is replaced with a
// random one. The id is reserved while the runtime is starting the session,
// so concurrent calls with the same id cannot both succeed.
func (m *Manager) CreateSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	if m == nil || m.rt == nil {
		return nil, ErrUnavailable
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if err := m.reserve(cfg.SessionID); err != nil {
		return nil, err
	}

	sess, err := m.rt.NewSession(ctx, cfg)

	m.mu.Lock()
	delete(m.pending, cfg.SessionID)
	if err == nil {
		m.open[cfg.SessionID] = sess
	}
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", cfg.SessionID, err)
	}
	m.metrics.RecordSessionCreated(cfg.SessionID)
	return sess, nil
}

func (m *Manager) reserve(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, live := m.open[id]
	_, starting := m.pending[id]
	if live || starting {
		return fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	m.pending[id] = struct{}{}
	return nil
}

// GetSession returns an open session.
func (m *Manager) GetSession(sessionID string) (Session, bool) {
	if m == nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.open[sessionID]
	return sess, ok
}

// Sessions lists open session ids in sorted order.
func (m *Manager) Sessions() []string {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	ids := make([]string, 0, len(m.open))
	for id := range m.open {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	slices.Sort(ids)
	return ids
}

// CloseSession closes and forgets one session. Unknown ids report
// ErrSessionClosed.
func (m *Manager) CloseSession(sessionID string) error {
	if m == nil {
		return ErrUnavailable
	}
	m.mu.Lock()
	sess, ok := m.open[sessionID]
	delete(m.open, sessionID)
	m.mu.Unlock()
	if !ok {
		return ErrSessionClosed
	}
	m.metrics.RecordSessionClosed(sessionID)
	return sess.Close()
}

// Close closes every session, then the runtime. All failures are joined.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, id := range m.Sessions() {
		if err := m.CloseSession(id); err != nil && !errors.Is(err, ErrSessionClosed) {
			errs = append(errs, fmt.Errorf("close session %s: %w", id, err))
		}
	}
	if m.rt != nil {
		if err := m.rt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close runtime: %w", err))
		}
	}
	return errors.Join(errs...)
}
