package roadmap

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	ferrors "github.com/p-blackswan/flowcore/internal/errors"
	"github.com/p-blackswan/flowcore/internal/machine"
	"github.com/p-blackswan/flowcore/internal/metrics"
	"github.com/p-blackswan/flowcore/internal/store"
)

const machineName = "roadmap"

// FeatureStore persists feature snapshots across restarts.
type FeatureStore interface {
	SaveFeature(f *store.Feature) error
	ListFeatures() ([]*store.Feature, error)
	DeleteFeature(id string) error
}

// Snapshot is a read-only view of one feature's machine.
type Snapshot struct {
	ID      string        `json:"id"`
	State   machine.State `json:"state"`
	Context Context       `json:"context"`
}

// Board owns all roadmap feature machines and writes every accepted
// transition through to the store.
type Board struct {
	mu       sync.Mutex
	features map[string]*Lifecycle
	store    FeatureStore
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewBoard creates an empty board.
func NewBoard(fs FeatureStore, m *metrics.Metrics, logger zerolog.Logger) *Board {
	return &Board{
		features: make(map[string]*Lifecycle),
		store:    fs,
		metrics:  m,
		logger:   logger.With().Str("component", "roadmap-board").Logger(),
	}
}

// Load rehydrates all persisted features. Call once at startup.
func (b *Board) Load() error {
	persisted, err := b.store.ListFeatures()
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, f := range persisted {
		b.features[f.ID] = Restore(machine.State(f.State), Context{
			LinkedSpecID:   f.LinkedSpecID,
			TaskOutcome:    Outcome(f.TaskOutcome),
			PreviousStatus: machine.State(f.PreviousStatus),
		})
	}

	b.logger.Info().Int("features", len(persisted)).Msg("roadmap features loaded")
	return nil
}

// Create adds a new feature in the under_review state and persists it.
func (b *Board) Create() (Snapshot, error) {
	id := uuid.New().String()
	lc := New()

	if err := b.persist(id, lc); err != nil {
		return Snapshot{}, err
	}

	b.mu.Lock()
	b.features[id] = lc
	b.mu.Unlock()

	b.logger.Info().Str("feature_id", id).Msg("feature created")
	return snapshot(id, lc), nil
}

// Apply delivers one event to a feature's machine. Accepted transitions are
// persisted before the new snapshot is returned; invalid events are dropped,
// not errors.
func (b *Board) Apply(id string, ev machine.Event) (Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lc, ok := b.features[id]
	if !ok {
		return Snapshot{}, ferrors.ErrNotFound
	}

	from := lc.State()
	prev := lc.Context()
	fired := lc.Send(ev)

	if !fired {
		b.metrics.RecordIgnored(machineName, string(ev.Kind()))
		return snapshot(id, lc), nil
	}

	b.metrics.RecordTransition(machineName, string(from), string(ev.Kind()))
	b.logger.Debug().
		Str("feature_id", id).
		Str("event", string(ev.Kind())).
		Str("from", string(from)).
		Str("to", string(lc.State())).
		Msg("feature transition")

	if err := b.persist(id, lc); err != nil {
		// The store is the source of truth across restarts; roll the machine
		// back so memory never runs ahead of it.
		b.features[id] = Restore(from, prev)
		return Snapshot{}, err
	}
	return snapshot(id, lc), nil
}

// Get returns a feature's current snapshot.
func (b *Board) Get(id string) (Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lc, ok := b.features[id]
	if !ok {
		return Snapshot{}, ferrors.ErrNotFound
	}
	return snapshot(id, lc), nil
}

// List returns snapshots of all features, ordered by id.
func (b *Board) List() []Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.features))
	for id := range b.features {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	snapshots := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		snapshots = append(snapshots, snapshot(id, b.features[id]))
	}
	return snapshots
}

// Delete removes a feature from the board and the store.
func (b *Board) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.features[id]; !ok {
		return ferrors.ErrNotFound
	}
	if err := b.store.DeleteFeature(id); err != nil {
		return err
	}
	delete(b.features, id)
	b.logger.Info().Str("feature_id", id).Msg("feature deleted")
	return nil
}

func (b *Board) persist(id string, lc *Lifecycle) error {
	c := lc.Context()
	return b.store.SaveFeature(&store.Feature{
		ID:             id,
		State:          string(lc.State()),
		LinkedSpecID:   c.LinkedSpecID,
		TaskOutcome:    string(c.TaskOutcome),
		PreviousStatus: string(c.PreviousStatus),
	})
}

func snapshot(id string, lc *Lifecycle) Snapshot {
	return Snapshot{ID: id, State: lc.State(), Context: lc.Context()}
}
