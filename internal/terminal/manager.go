package terminal

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	ferrors "github.com/p-blackswan/flowcore/internal/errors"
	"github.com/p-blackswan/flowcore/internal/machine"
	"github.com/p-blackswan/flowcore/internal/metrics"
)

const machineName = "terminal"

// Snapshot is a read-only view of one terminal's lifecycle.
type Snapshot struct {
	ID      string        `json:"id"`
	State   machine.State `json:"state"`
	Context Context       `json:"context"`
}

// Manager owns all terminal lifecycle machines and serializes event
// delivery per terminal.
type Manager struct {
	mu        sync.RWMutex
	terminals map[string]*managed
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

type managed struct {
	mu sync.Mutex
	lc *Lifecycle
}

// NewManager creates an empty terminal manager.
func NewManager(logger zerolog.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		terminals: make(map[string]*managed),
		logger:    logger.With().Str("component", "terminal-manager").Logger(),
		metrics:   m,
	}
}

// Open creates a new terminal in the idle state and returns its snapshot.
func (m *Manager) Open() Snapshot {
	id := uuid.New().String()
	mt := &managed{lc: New()}

	m.mu.Lock()
	m.terminals[id] = mt
	m.mu.Unlock()

	m.logger.Info().Str("terminal_id", id).Msg("terminal opened")
	return Snapshot{ID: id, State: mt.lc.State(), Context: mt.lc.Context()}
}

// Dispatch delivers one event to a terminal's machine. Events the machine
// does not accept in its current state are dropped, not errors.
func (m *Manager) Dispatch(id string, ev machine.Event) (Snapshot, error) {
	m.mu.RLock()
	mt, ok := m.terminals[id]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}, ferrors.ErrNotFound
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	from := mt.lc.State()
	fired := mt.lc.Send(ev)
	to := mt.lc.State()

	if fired {
		m.metrics.RecordTransition(machineName, string(from), string(ev.Kind()))
		m.logger.Debug().
			Str("terminal_id", id).
			Str("event", string(ev.Kind())).
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("terminal transition")
	} else {
		m.metrics.RecordIgnored(machineName, string(ev.Kind()))
		m.logger.Debug().
			Str("terminal_id", id).
			Str("event", string(ev.Kind())).
			Str("state", string(from)).
			Msg("terminal event ignored")
	}

	return Snapshot{ID: id, State: to, Context: mt.lc.Context()}, nil
}

// Get returns a terminal's current snapshot.
func (m *Manager) Get(id string) (Snapshot, error) {
	m.mu.RLock()
	mt, ok := m.terminals[id]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}, ferrors.ErrNotFound
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()
	return Snapshot{ID: id, State: mt.lc.State(), Context: mt.lc.Context()}, nil
}

// List returns snapshots of all terminals, ordered by id.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	ids := make([]string, 0, len(m.terminals))
	for id := range m.terminals {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)

	snapshots := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		if snap, err := m.Get(id); err == nil {
			snapshots = append(snapshots, snap)
		}
	}
	return snapshots
}

// Close removes a terminal from the manager.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.terminals[id]; !ok {
		return ferrors.ErrNotFound
	}
	delete(m.terminals, id)
	m.logger.Info().Str("terminal_id", id).Msg("terminal closed")
	return nil
}
