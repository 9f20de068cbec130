// Package review tracks one pull request's autonomous review cycle:
// idle → reviewing → (external-review detour) → completed/error, with
// follow-up runs that thread the previous result forward.
package review

import (
	"time"

	"github.com/p-blackswan/flowcore/internal/machine"
)

// Lifecycle states.
const (
	StateIdle           machine.State = "idle"
	StateReviewing      machine.State = "reviewing"
	StateExternalReview machine.State = "external_review"
	StateCompleted      machine.State = "completed"
	StateError          machine.State = "error"
)

// CancelledMessage is the fixed error recorded when a user cancels a review.
// Callers distinguish cancellation from failure by this message.
const CancelledMessage = "Review cancelled by user"

// Progress is transient reviewer progress, present only during an active run.
type Progress struct {
	Phase        string `json:"phase,omitempty"`
	ChecksTotal  int    `json:"checks_total"`
	ChecksPassed int    `json:"checks_passed"`
	ChecksFailed int    `json:"checks_failed"`
	Message      string `json:"message,omitempty"`
}

// Finding is a single review finding.
type Finding struct {
	ID       string `json:"id,omitempty"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Severity string `json:"severity,omitempty"`
	Message  string `json:"message"`
}

// Result is a completed review run's output.
type Result struct {
	Summary     string    `json:"summary,omitempty"`
	Findings    []Finding `json:"findings,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Context is the data attached to one PR's review machine. It is transient:
// nothing here survives a process restart.
type Context struct {
	PRNumber         int        `json:"pr_number,omitempty"`
	ProjectID        string     `json:"project_id,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	IsFollowup       bool       `json:"is_followup"`
	Progress         *Progress  `json:"progress,omitempty"`
	Result           *Result    `json:"result,omitempty"`
	PreviousResult   *Result    `json:"previous_result,omitempty"`
	Error            string     `json:"error,omitempty"`
	IsExternalReview bool       `json:"is_external_review"`
}

// Lifecycle is one PR's review state machine. Not safe for concurrent use;
// the orchestrator serializes event delivery.
type Lifecycle struct {
	m *machine.Machine[Context]
}

// New creates a review machine in the idle state.
func New() *Lifecycle {
	return &Lifecycle{m: machine.New(StateIdle, table())}
}

// State returns the current state.
func (l *Lifecycle) State() machine.State { return l.m.State() }

// Context returns a snapshot of the machine context.
func (l *Lifecycle) Context() Context { return l.m.Context() }

// Send delivers one event and reports whether a transition fired. A rejected
// START_REVIEW while reviewing returns false with the context untouched.
func (l *Lifecycle) Send(ev machine.Event) bool { return l.m.Send(ev) }

// Active reports whether a review run is currently in flight.
func (l *Lifecycle) Active() bool {
	s := l.m.State()
	return s == StateReviewing || s == StateExternalReview
}

func table() machine.Table[Context] {
	startRow := map[machine.Kind]machine.Transition[Context]{
		KindStartReview: {
			Target: StateReviewing,
			Action: startReview,
		},
		KindStartFollowupReview: {
			Target: StateReviewing,
			Action: startFollowup,
		},
	}

	finishRow := map[machine.Kind]machine.Transition[Context]{
		KindReviewComplete: {
			Target: StateCompleted,
			Action: func(c *Context, ev machine.Event) {
				c.Result = ev.(ReviewComplete).Result
				c.Progress = nil
			},
		},
		KindReviewError: {
			Target: StateError,
			Action: func(c *Context, ev machine.Event) {
				c.Error = ev.(ReviewError).Err
				c.Progress = nil
			},
		},
		KindCancelReview: {
			Target: StateError,
			Action: func(c *Context, _ machine.Event) {
				c.Error = CancelledMessage
				c.Progress = nil
			},
		},
		KindClearReview: {
			Target: StateIdle,
			Action: func(c *Context, _ machine.Event) { *c = Context{} },
		},
	}

	reviewing := map[machine.Kind]machine.Transition[Context]{
		KindSetProgress: {
			Action: func(c *Context, ev machine.Event) {
				p := ev.(SetProgress).Progress
				c.Progress = &p
			},
		},
		KindDetectExternalReview: {
			Target: StateExternalReview,
			Action: func(c *Context, _ machine.Event) {
				c.IsExternalReview = true
				c.Progress = nil
			},
		},
	}
	for k, t := range finishRow {
		reviewing[k] = t
	}

	// Progress reporting from the internal reviewer is meaningless once an
	// external reviewer has taken over, so SET_PROGRESS is not wired here.
	external := map[machine.Kind]machine.Transition[Context]{}
	for k, t := range finishRow {
		external[k] = t
	}

	completed := map[machine.Kind]machine.Transition[Context]{
		// A late-arriving completion updates the stored result in place.
		KindReviewComplete: {
			Action: func(c *Context, ev machine.Event) {
				c.Result = ev.(ReviewComplete).Result
			},
		},
		KindClearReview: finishRow[KindClearReview],
	}
	for k, t := range startRow {
		completed[k] = t
	}

	idle := map[machine.Kind]machine.Transition[Context]{}
	for k, t := range startRow {
		idle[k] = t
	}

	errRow := map[machine.Kind]machine.Transition[Context]{}
	for k, t := range startRow {
		errRow[k] = t
	}

	return machine.Table[Context]{
		StateIdle:           idle,
		StateReviewing:      reviewing,
		StateExternalReview: external,
		StateCompleted:      completed,
		StateError:          errRow,
	}
}

func startReview(c *Context, ev machine.Event) {
	e := ev.(StartReview)
	now := time.Now().UTC()
	*c = Context{
		PRNumber:  e.PRNumber,
		ProjectID: e.ProjectID,
		StartedAt: &now,
	}
}

func startFollowup(c *Context, ev machine.Event) {
	e := ev.(StartFollowupReview)
	now := time.Now().UTC()
	*c = Context{
		PRNumber:       e.PRNumber,
		ProjectID:      e.ProjectID,
		StartedAt:      &now,
		IsFollowup:     true,
		PreviousResult: e.Previous,
	}
}
