// Package machine provides a small synchronous state-machine runtime: a
// transition table keyed by (state, event kind) with guard and action dispatch.
// Machines built on it are pure event reducers — they perform no I/O and hold
// no locks; serializing event delivery is the owner's job.
package machine

// State identifies a machine state.
type State string

// Kind identifies an event type.
type Kind string

// Event is anything a machine can consume. Payload-carrying events are plain
// structs that report their kind.
type Event interface {
	Kind() Kind
}

// Transition is one entry in a transition table.
type Transition[C any] struct {
	// Guard, when set, must return true for the transition to fire.
	// A false guard means the event is silently ignored.
	Guard func(c *C, ev Event) bool

	// Target is the state after the transition. Empty means a self-transition.
	Target State

	// Pick, when set, chooses the target dynamically. It takes precedence
	// over Target and observes the context as it was before Action ran.
	Pick func(c *C, ev Event) State

	// Action mutates the context when the transition fires.
	Action func(c *C, ev Event)
}

// Table maps (state, event kind) to a transition. Events with no entry for
// the current state are ignored.
type Table[C any] map[State]map[Kind]Transition[C]

// Machine is a synchronous, single-owner event reducer over a context of
// type C. It is not safe for concurrent use.
type Machine[C any] struct {
	table  Table[C]
	global map[Kind]Transition[C]
	state  State
	ctx    C
}

// New creates a machine in the given initial state with a zero context.
func New[C any](initial State, table Table[C]) *Machine[C] {
	return &Machine[C]{
		table: table,
		state: initial,
	}
}

// Restore creates a machine at a previously captured state and context,
// for rehydrating persisted machines.
func Restore[C any](state State, ctx C, table Table[C]) *Machine[C] {
	return &Machine[C]{
		table: table,
		state: state,
		ctx:   ctx,
	}
}

// Global registers a transition that fires from every state. A state-specific
// entry for the same kind takes precedence.
func (m *Machine[C]) Global(kind Kind, t Transition[C]) {
	if m.global == nil {
		m.global = make(map[Kind]Transition[C])
	}
	m.global[kind] = t
}

// State returns the current state.
func (m *Machine[C]) State() State {
	return m.state
}

// Context returns a copy of the current context.
func (m *Machine[C]) Context() C {
	return m.ctx
}

// Send processes one event to completion: guard evaluation, action, state
// update. It reports whether a transition fired. Unknown events and failed
// guards are no-ops, not errors — callers that care compare snapshots.
func (m *Machine[C]) Send(ev Event) bool {
	t, ok := m.lookup(ev.Kind())
	if !ok {
		return false
	}
	if t.Guard != nil && !t.Guard(&m.ctx, ev) {
		return false
	}
	target := t.Target
	if t.Pick != nil {
		target = t.Pick(&m.ctx, ev)
	}
	if t.Action != nil {
		t.Action(&m.ctx, ev)
	}
	if target != "" {
		m.state = target
	}
	return true
}

func (m *Machine[C]) lookup(kind Kind) (Transition[C], bool) {
	if row, ok := m.table[m.state]; ok {
		if t, ok := row[kind]; ok {
			return t, true
		}
	}
	if t, ok := m.global[kind]; ok {
		return t, true
	}
	var zero Transition[C]
	return zero, false
}
