package terminal

import "github.com/p-blackswan/flowcore/internal/machine"

// Event kinds emitted by the terminal process manager.
const (
	KindShellReady            machine.Kind = "SHELL_READY"
	KindShellExited           machine.Kind = "SHELL_EXITED"
	KindClaudeStart           machine.Kind = "CLAUDE_START"
	KindClaudeActive          machine.Kind = "CLAUDE_ACTIVE"
	KindClaudeBusy            machine.Kind = "CLAUDE_BUSY"
	KindClaudeExited          machine.Kind = "CLAUDE_EXITED"
	KindSwapInitiated         machine.Kind = "SWAP_INITIATED"
	KindSwapSessionCaptured   machine.Kind = "SWAP_SESSION_CAPTURED"
	KindSwapMigrated          machine.Kind = "SWAP_MIGRATED"
	KindSwapTerminalRecreated machine.Kind = "SWAP_TERMINAL_RECREATED"
	KindSwapResumeComplete    machine.Kind = "SWAP_RESUME_COMPLETE"
	KindSwapFailed            machine.Kind = "SWAP_FAILED"
	KindResumeRequested       machine.Kind = "RESUME_REQUESTED"
	KindResumeComplete        machine.Kind = "RESUME_COMPLETE"
	KindResumeFailed          machine.Kind = "RESUME_FAILED"
	KindReset                 machine.Kind = "RESET"
)

// ShellReady signals the shell process finished initializing.
type ShellReady struct{}

func (ShellReady) Kind() machine.Kind { return KindShellReady }

// ShellExited signals the shell process terminated.
type ShellExited struct{}

func (ShellExited) Kind() machine.Kind { return KindShellExited }

// ClaudeStart requests an assistant session with the given profile.
type ClaudeStart struct {
	ProfileID string
}

func (ClaudeStart) Kind() machine.Kind { return KindClaudeStart }

// ClaudeActive signals the assistant session is attached. SessionID may be
// empty when the id arrives in a later event.
type ClaudeActive struct {
	SessionID string
}

func (ClaudeActive) Kind() machine.Kind { return KindClaudeActive }

// ClaudeBusy toggles the assistant busy flag.
type ClaudeBusy struct {
	Busy bool
}

func (ClaudeBusy) Kind() machine.Kind { return KindClaudeBusy }

// ClaudeExited signals the assistant process ended, optionally with an error.
type ClaudeExited struct {
	Err string
}

func (ClaudeExited) Kind() machine.Kind { return KindClaudeExited }

// SwapInitiated starts a profile swap toward the given profile.
type SwapInitiated struct {
	TargetProfileID string
}

func (SwapInitiated) Kind() machine.Kind { return KindSwapInitiated }

// SwapSessionCaptured reports the pre-swap session snapshot is taken.
type SwapSessionCaptured struct {
	SessionID string
}

func (SwapSessionCaptured) Kind() machine.Kind { return KindSwapSessionCaptured }

// SwapMigrated reports the captured session state has been persisted.
type SwapMigrated struct{}

func (SwapMigrated) Kind() machine.Kind { return KindSwapMigrated }

// SwapTerminalRecreated reports the terminal process was torn down and
// recreated under the new profile.
type SwapTerminalRecreated struct{}

func (SwapTerminalRecreated) Kind() machine.Kind { return KindSwapTerminalRecreated }

// SwapResumeComplete commits the swap: the session is reattached under the
// target profile. SessionID may be empty when the resumed session keeps its id.
type SwapResumeComplete struct {
	SessionID string
	ProfileID string
}

func (SwapResumeComplete) Kind() machine.Kind { return KindSwapResumeComplete }

// SwapFailed aborts an in-flight swap.
type SwapFailed struct {
	Err string
}

func (SwapFailed) Kind() machine.Kind { return KindSwapFailed }

// ResumeRequested asks to reattach a previously saved session.
type ResumeRequested struct {
	SessionID string
}

func (ResumeRequested) Kind() machine.Kind { return KindResumeRequested }

// ResumeComplete reports the resume finished.
type ResumeComplete struct {
	SessionID string
}

func (ResumeComplete) Kind() machine.Kind { return KindResumeComplete }

// ResumeFailed reports the resume could not complete.
type ResumeFailed struct {
	Err string
}

func (ResumeFailed) Kind() machine.Kind { return KindResumeFailed }

// Reset returns the machine to idle with a cleared context. Used when a
// terminal is recycled for reuse rather than destroyed.
type Reset struct{}

func (Reset) Kind() machine.Kind { return KindReset }
