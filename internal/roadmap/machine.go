// Package roadmap tracks a single roadmap feature's planning status:
// under_review → planned → in_progress → done, with a revert path back to
// the status the feature held before it was completed.
package roadmap

import "github.com/p-blackswan/flowcore/internal/machine"

// Lifecycle states. These double as the feature's user-visible status.
const (
	StateUnderReview machine.State = "under_review"
	StatePlanned     machine.State = "planned"
	StateInProgress  machine.State = "in_progress"
	StateDone        machine.State = "done"
)

// Outcome records how a feature's linked task concluded.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeDeleted   Outcome = "deleted"
	OutcomeArchived  Outcome = "archived"
)

// Context is the data attached to one feature's machine.
type Context struct {
	// LinkedSpecID identifies a generated specification/task linked to this
	// feature; correlation is by opaque id only.
	LinkedSpecID string `json:"linked_spec_id,omitempty"`

	// TaskOutcome is how the linked task concluded. Defined only in done.
	TaskOutcome Outcome `json:"task_outcome,omitempty"`

	// PreviousStatus is the status held immediately before entering done,
	// kept to support REVERT. Defined only in done.
	PreviousStatus machine.State `json:"previous_status,omitempty"`
}

// Event kinds supplied by the kanban board and task-status webhooks.
const (
	KindPlan          machine.Kind = "PLAN"
	KindStartProgress machine.Kind = "START_PROGRESS"
	KindLinkSpec      machine.Kind = "LINK_SPEC"
	KindMarkDone      machine.Kind = "MARK_DONE"
	KindTaskCompleted machine.Kind = "TASK_COMPLETED"
	KindTaskDeleted   machine.Kind = "TASK_DELETED"
	KindTaskArchived  machine.Kind = "TASK_ARCHIVED"
	KindMoveToReview  machine.Kind = "MOVE_TO_REVIEW"
	KindRevert        machine.Kind = "REVERT"
)

// Plan moves the feature to planned.
type Plan struct{}

func (Plan) Kind() machine.Kind { return KindPlan }

// StartProgress moves the feature to in_progress.
type StartProgress struct{}

func (StartProgress) Kind() machine.Kind { return KindStartProgress }

// LinkSpec attaches a generated spec/task and moves the feature to in_progress.
type LinkSpec struct {
	SpecID string
}

func (LinkSpec) Kind() machine.Kind { return KindLinkSpec }

// MarkDone completes the feature without a task outcome.
type MarkDone struct{}

func (MarkDone) Kind() machine.Kind { return KindMarkDone }

// TaskCompleted reports the linked task finished successfully.
type TaskCompleted struct{}

func (TaskCompleted) Kind() machine.Kind { return KindTaskCompleted }

// TaskDeleted reports the linked task was deleted.
type TaskDeleted struct{}

func (TaskDeleted) Kind() machine.Kind { return KindTaskDeleted }

// TaskArchived reports the linked task was archived.
type TaskArchived struct{}

func (TaskArchived) Kind() machine.Kind { return KindTaskArchived }

// MoveToReview returns the feature to under_review.
type MoveToReview struct{}

func (MoveToReview) Kind() machine.Kind { return KindMoveToReview }

// Revert undoes completion, returning to the status held before done.
type Revert struct{}

func (Revert) Kind() machine.Kind { return KindRevert }

// Lifecycle is one feature's state machine. Not safe for concurrent use;
// the owning board serializes event delivery.
type Lifecycle struct {
	m *machine.Machine[Context]
}

// New creates a feature machine in the under_review state.
func New() *Lifecycle {
	return &Lifecycle{m: machine.New(StateUnderReview, table())}
}

// Restore rehydrates a feature machine from a persisted snapshot.
func Restore(state machine.State, c Context) *Lifecycle {
	return &Lifecycle{m: machine.Restore(state, c, table())}
}

// State returns the current state.
func (l *Lifecycle) State() machine.State { return l.m.State() }

// Context returns a snapshot of the machine context.
func (l *Lifecycle) Context() Context { return l.m.Context() }

// Send delivers one event and reports whether a transition fired. Events
// invalid for the current state are ignored, never errors.
func (l *Lifecycle) Send(ev machine.Event) bool { return l.m.Send(ev) }

func table() machine.Table[Context] {
	markDoneFrom := func(prev machine.State) machine.Transition[Context] {
		return machine.Transition[Context]{
			Target: StateDone,
			Action: func(c *Context, _ machine.Event) {
				c.PreviousStatus = prev
				c.TaskOutcome = ""
			},
		}
	}
	taskOutcomeDone := func(outcome Outcome) machine.Transition[Context] {
		return machine.Transition[Context]{
			Target: StateDone,
			Action: func(c *Context, _ machine.Event) {
				c.PreviousStatus = StateInProgress
				c.TaskOutcome = outcome
			},
		}
	}
	linkSpec := func(target machine.State) machine.Transition[Context] {
		return machine.Transition[Context]{
			Target: target,
			Action: func(c *Context, ev machine.Event) {
				c.LinkedSpecID = ev.(LinkSpec).SpecID
			},
		}
	}

	return machine.Table[Context]{
		StateUnderReview: {
			KindPlan:          {Target: StatePlanned},
			KindStartProgress: {Target: StateInProgress},
			KindLinkSpec:      linkSpec(StateInProgress),
			KindMarkDone:      markDoneFrom(StateUnderReview),
		},
		StatePlanned: {
			KindStartProgress: {Target: StateInProgress},
			KindLinkSpec:      linkSpec(StateInProgress),
			KindMarkDone:      markDoneFrom(StatePlanned),
			KindMoveToReview:  {Target: StateUnderReview},
		},
		StateInProgress: {
			KindTaskCompleted: taskOutcomeDone(OutcomeCompleted),
			KindTaskDeleted:   taskOutcomeDone(OutcomeDeleted),
			KindTaskArchived:  taskOutcomeDone(OutcomeArchived),
			KindMarkDone:      markDoneFrom(StateInProgress),
			// The clears below are defensive; these fields are normally
			// unset outside done.
			KindMoveToReview: {Target: StateUnderReview, Action: clearDoneFields},
			KindPlan:         {Target: StatePlanned, Action: clearDoneFields},
			KindLinkSpec:     linkSpec(""), // self: update the linked spec in place
		},
		StateDone: {
			KindRevert: {
				// An unset or unrecognized previous status falls back to the
				// earliest state rather than erroring.
				Pick: func(c *Context, _ machine.Event) machine.State {
					switch c.PreviousStatus {
					case StateInProgress:
						return StateInProgress
					case StatePlanned:
						return StatePlanned
					default:
						return StateUnderReview
					}
				},
				Action: clearDoneFields,
			},
			KindMoveToReview:  {Target: StateUnderReview, Action: clearDoneFields},
			KindPlan:          {Target: StatePlanned, Action: clearDoneFields},
			KindStartProgress: {Target: StateInProgress, Action: clearDoneFields},
		},
	}
}

func clearDoneFields(c *Context, _ machine.Event) {
	c.PreviousStatus = ""
	c.TaskOutcome = ""
}
