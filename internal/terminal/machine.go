// Package terminal tracks the lifecycle of one interactive terminal: shell
// readiness, assistant-session activation, the busy flag, and the four-phase
// profile-swap sub-protocol.
package terminal

import "github.com/p-blackswan/flowcore/internal/machine"

// Lifecycle states.
const (
	StateIdle           machine.State = "idle"
	StateShellReady     machine.State = "shell_ready"
	StateClaudeStarting machine.State = "claude_starting"
	StateClaudeActive   machine.State = "claude_active"
	StateSwapping       machine.State = "swapping"
	StatePendingResume  machine.State = "pending_resume"
	StateExited         machine.State = "exited"
)

// SwapPhase is the sub-step of an in-flight profile swap. Empty outside the
// swapping state.
type SwapPhase string

const (
	SwapCapturing  SwapPhase = "capturing"
	SwapMigrating  SwapPhase = "migrating"
	SwapRecreating SwapPhase = "recreating"
	SwapResuming   SwapPhase = "resuming"
)

// Context is the data attached to one terminal's lifecycle machine.
type Context struct {
	// ClaudeSessionID identifies the active assistant session, empty when
	// no session is attached.
	ClaudeSessionID string `json:"claude_session_id,omitempty"`

	// ProfileID is the configuration profile driving the session.
	ProfileID string `json:"profile_id,omitempty"`

	// SwapTargetProfileID is set only while a swap is in flight.
	SwapTargetProfileID string `json:"swap_target_profile_id,omitempty"`

	// SwapPhase is defined if and only if the machine is in swapping.
	SwapPhase SwapPhase `json:"swap_phase,omitempty"`

	// IsBusy reports whether the assistant is currently processing.
	IsBusy bool `json:"is_busy"`

	// Error is the last error message shown to the user.
	Error string `json:"error,omitempty"`
}

// Lifecycle is one terminal's state machine. Not safe for concurrent use;
// the owning manager serializes event delivery.
type Lifecycle struct {
	m *machine.Machine[Context]
}

// New creates a lifecycle machine in the idle state.
func New() *Lifecycle {
	m := machine.New(StateIdle, table())
	m.Global(KindReset, machine.Transition[Context]{
		Target: StateIdle,
		Action: func(c *Context, _ machine.Event) { *c = Context{} },
	})
	return &Lifecycle{m: m}
}

// State returns the current state.
func (l *Lifecycle) State() machine.State { return l.m.State() }

// Context returns a snapshot of the machine context.
func (l *Lifecycle) Context() Context { return l.m.Context() }

// Send delivers one event and reports whether a transition fired.
func (l *Lifecycle) Send(ev machine.Event) bool { return l.m.Send(ev) }

func table() machine.Table[Context] {
	return machine.Table[Context]{
		StateIdle: {
			KindShellReady: {Target: StateShellReady},
		},
		StateShellReady: {
			KindClaudeStart: {
				Target: StateClaudeStarting,
				Action: func(c *Context, ev machine.Event) {
					c.ProfileID = ev.(ClaudeStart).ProfileID
					c.Error = ""
				},
			},
			// Direct-active path: assistant attached without an explicit
			// starting event.
			KindClaudeActive: {
				Target: StateClaudeActive,
				Action: becomeActive,
			},
			KindResumeRequested: {Target: StatePendingResume},
			KindShellExited:     {Target: StateExited, Action: clearSession},
		},
		StateClaudeStarting: {
			KindClaudeActive: {Target: StateClaudeActive, Action: becomeActive},
			KindClaudeExited: {Target: StateShellReady, Action: claudeExited},
			KindShellExited:  {Target: StateExited, Action: clearSession},
		},
		StateClaudeActive: {
			// Self-transition: late-arriving session-id events update the
			// session in place without changing state.
			KindClaudeActive: {Action: becomeActive},
			KindClaudeBusy: {
				Action: func(c *Context, ev machine.Event) {
					c.IsBusy = ev.(ClaudeBusy).Busy
				},
			},
			KindClaudeExited: {Target: StateShellReady, Action: claudeExited},
			KindSwapInitiated: {
				// Nothing to swap without an active session.
				Guard: func(c *Context, _ machine.Event) bool {
					return c.ClaudeSessionID != ""
				},
				Target: StateSwapping,
				Action: func(c *Context, ev machine.Event) {
					c.SwapTargetProfileID = ev.(SwapInitiated).TargetProfileID
					c.SwapPhase = SwapCapturing
				},
			},
			KindResumeRequested: {Target: StatePendingResume},
			KindShellExited:     {Target: StateExited, Action: clearSession},
		},
		StateSwapping: {
			KindSwapSessionCaptured: {
				Action: func(c *Context, ev machine.Event) {
					c.ClaudeSessionID = ev.(SwapSessionCaptured).SessionID
					c.SwapPhase = SwapMigrating
				},
			},
			KindSwapMigrated: {
				Action: func(c *Context, _ machine.Event) { c.SwapPhase = SwapRecreating },
			},
			KindSwapTerminalRecreated: {
				Action: func(c *Context, _ machine.Event) { c.SwapPhase = SwapResuming },
			},
			KindSwapResumeComplete: {
				Target: StateClaudeActive,
				Action: func(c *Context, ev machine.Event) {
					e := ev.(SwapResumeComplete)
					if e.SessionID != "" {
						c.ClaudeSessionID = e.SessionID
					}
					c.ProfileID = e.ProfileID
					c.SwapTargetProfileID = ""
					c.SwapPhase = ""
					c.IsBusy = false
					c.Error = ""
				},
			},
			KindSwapFailed: {
				// The pre-swap session id is deliberately left intact so the
				// user falls back to the original session.
				Target: StateShellReady,
				Action: func(c *Context, ev machine.Event) {
					c.Error = ev.(SwapFailed).Err
					c.SwapTargetProfileID = ""
					c.SwapPhase = ""
				},
			},
			KindShellExited: {
				Target: StateExited,
				Action: func(c *Context, _ machine.Event) {
					c.ClaudeSessionID = ""
					c.SwapTargetProfileID = ""
					c.SwapPhase = ""
					c.IsBusy = false
				},
			},
		},
		StatePendingResume: {
			// Race path: an independent session-active signal can land
			// before the resume explicitly completes. Both converge here.
			KindClaudeActive: {Target: StateClaudeActive, Action: becomeActive},
			KindResumeComplete: {
				Target: StateClaudeActive,
				Action: func(c *Context, ev machine.Event) {
					if id := ev.(ResumeComplete).SessionID; id != "" {
						c.ClaudeSessionID = id
					}
					c.Error = ""
				},
			},
			KindResumeFailed: {
				Target: StateShellReady,
				Action: func(c *Context, ev machine.Event) {
					c.Error = ev.(ResumeFailed).Err
					c.ClaudeSessionID = ""
					c.IsBusy = false
				},
			},
			KindShellExited: {Target: StateExited, Action: clearSession},
		},
		StateExited: {
			KindShellReady: {
				Target: StateShellReady,
				Action: func(c *Context, _ machine.Event) { c.Error = "" },
			},
		},
	}
}

func becomeActive(c *Context, ev machine.Event) {
	if id := ev.(ClaudeActive).SessionID; id != "" {
		c.ClaudeSessionID = id
	}
	c.Error = ""
}

func claudeExited(c *Context, ev machine.Event) {
	if e := ev.(ClaudeExited).Err; e != "" {
		c.Error = e
	}
	c.ClaudeSessionID = ""
	c.IsBusy = false
}

func clearSession(c *Context, _ machine.Event) {
	c.ClaudeSessionID = ""
	c.IsBusy = false
}
