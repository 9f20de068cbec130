package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/p-blackswan/flowcore/internal/machine"
)

func activeLifecycle(t *testing.T, profileID, sessionID string) *Lifecycle {
	t.Helper()
	l := New()
	l.Send(ShellReady{})
	l.Send(ClaudeStart{ProfileID: profileID})
	l.Send(ClaudeActive{SessionID: sessionID})
	assert.Equal(t, StateClaudeActive, l.State())
	return l
}

func TestReset_FromEveryState(t *testing.T) {
	builders := map[string]func() *Lifecycle{
		"idle":        func() *Lifecycle { return New() },
		"shell_ready": func() *Lifecycle { l := New(); l.Send(ShellReady{}); return l },
		"claude_starting": func() *Lifecycle {
			l := New()
			l.Send(ShellReady{})
			l.Send(ClaudeStart{ProfileID: "p1"})
			return l
		},
		"claude_active": func() *Lifecycle { return activeLifecycle(t, "p1", "s1") },
		"swapping": func() *Lifecycle {
			l := activeLifecycle(t, "p1", "s1")
			l.Send(SwapInitiated{TargetProfileID: "p2"})
			return l
		},
		"pending_resume": func() *Lifecycle {
			l := New()
			l.Send(ShellReady{})
			l.Send(ResumeRequested{SessionID: "s1"})
			return l
		},
		"exited": func() *Lifecycle {
			l := New()
			l.Send(ShellReady{})
			l.Send(ShellExited{})
			return l
		},
	}

	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			l := build()
			assert.True(t, l.Send(Reset{}))
			assert.Equal(t, StateIdle, l.State())
			assert.Equal(t, Context{}, l.Context())
		})
	}
}

func TestSwapInitiated_RequiresSession(t *testing.T) {
	l := New()
	l.Send(ShellReady{})
	l.Send(ClaudeActive{}) // active without a session id yet

	assert.False(t, l.Send(SwapInitiated{TargetProfileID: "p2"}))
	assert.Equal(t, StateClaudeActive, l.State())
	assert.Empty(t, l.Context().SwapTargetProfileID)
	assert.Empty(t, l.Context().SwapPhase)
}

func TestSwap_HappyPath(t *testing.T) {
	l := activeLifecycle(t, "p1", "s1")

	assert.True(t, l.Send(SwapInitiated{TargetProfileID: "p2"}))
	assert.Equal(t, StateSwapping, l.State())
	assert.Equal(t, SwapCapturing, l.Context().SwapPhase)
	assert.Equal(t, "p2", l.Context().SwapTargetProfileID)

	l.Send(SwapSessionCaptured{SessionID: "s-cap"})
	assert.Equal(t, SwapMigrating, l.Context().SwapPhase)
	assert.Equal(t, "s-cap", l.Context().ClaudeSessionID)

	l.Send(SwapMigrated{})
	assert.Equal(t, SwapRecreating, l.Context().SwapPhase)

	l.Send(SwapTerminalRecreated{})
	assert.Equal(t, SwapResuming, l.Context().SwapPhase)

	l.Send(SwapResumeComplete{SessionID: "s-new", ProfileID: "p2"})
	assert.Equal(t, StateClaudeActive, l.State())

	ctx := l.Context()
	assert.Equal(t, "s-new", ctx.ClaudeSessionID)
	assert.Equal(t, "p2", ctx.ProfileID)
	assert.Empty(t, ctx.SwapTargetProfileID)
	assert.Empty(t, ctx.SwapPhase)
	assert.False(t, ctx.IsBusy)
	assert.Empty(t, ctx.Error)
}

func TestSwap_FailureKeepsSession(t *testing.T) {
	l := activeLifecycle(t, "p1", "s1")
	l.Send(SwapInitiated{TargetProfileID: "p2"})

	l.Send(SwapFailed{Err: "boom"})
	assert.Equal(t, StateShellReady, l.State())

	ctx := l.Context()
	assert.Equal(t, "boom", ctx.Error)
	assert.Empty(t, ctx.SwapTargetProfileID)
	assert.Empty(t, ctx.SwapPhase)
	// The pre-swap session survives so the user can fall back to it.
	assert.Equal(t, "s1", ctx.ClaudeSessionID)
}

func TestSwap_ShellExitClearsEverything(t *testing.T) {
	l := activeLifecycle(t, "p1", "s1")
	l.Send(SwapInitiated{TargetProfileID: "p2"})
	l.Send(ClaudeBusy{Busy: true}) // ignored in swapping

	l.Send(ShellExited{})
	assert.Equal(t, StateExited, l.State())

	ctx := l.Context()
	assert.Empty(t, ctx.ClaudeSessionID)
	assert.Empty(t, ctx.SwapTargetProfileID)
	assert.Empty(t, ctx.SwapPhase)
	assert.False(t, ctx.IsBusy)
}

func TestPendingResume_RaceConvergence(t *testing.T) {
	build := func() *Lifecycle {
		l := activeLifecycle(t, "p1", "old")
		l.Send(ResumeRequested{SessionID: "old"})
		assert.Equal(t, StatePendingResume, l.State())
		return l
	}

	viaActive := build()
	viaActive.Send(ClaudeActive{SessionID: "race"})

	viaResume := build()
	viaResume.Send(ResumeComplete{SessionID: "race"})

	assert.Equal(t, StateClaudeActive, viaActive.State())
	assert.Equal(t, viaActive.State(), viaResume.State())
	assert.Equal(t, "race", viaActive.Context().ClaudeSessionID)
	assert.Equal(t, viaActive.Context().ClaudeSessionID, viaResume.Context().ClaudeSessionID)
}

func TestPendingResume_Failure(t *testing.T) {
	l := New()
	l.Send(ShellReady{})
	l.Send(ResumeRequested{SessionID: "s1"})

	l.Send(ResumeFailed{Err: "resume timed out"})
	assert.Equal(t, StateShellReady, l.State())
	assert.Equal(t, "resume timed out", l.Context().Error)
	assert.Empty(t, l.Context().ClaudeSessionID)
}

func TestClaudeActive_UpdatesSessionInPlace(t *testing.T) {
	l := activeLifecycle(t, "p1", "")

	// Late-arriving session id: state unchanged, id updated.
	l.Send(ClaudeActive{SessionID: "late"})
	assert.Equal(t, StateClaudeActive, l.State())
	assert.Equal(t, "late", l.Context().ClaudeSessionID)

	// Empty id does not erase a known one.
	l.Send(ClaudeActive{})
	assert.Equal(t, "late", l.Context().ClaudeSessionID)
}

func TestClaudeBusy_TracksFlag(t *testing.T) {
	l := activeLifecycle(t, "p1", "s1")

	l.Send(ClaudeBusy{Busy: true})
	assert.True(t, l.Context().IsBusy)

	l.Send(ClaudeBusy{Busy: false})
	assert.False(t, l.Context().IsBusy)
}

func TestClaudeExited_RecordsErrorAndClearsSession(t *testing.T) {
	l := activeLifecycle(t, "p1", "s1")
	l.Send(ClaudeBusy{Busy: true})

	l.Send(ClaudeExited{Err: "exit status 1"})
	assert.Equal(t, StateShellReady, l.State())

	ctx := l.Context()
	assert.Equal(t, "exit status 1", ctx.Error)
	assert.Empty(t, ctx.ClaudeSessionID)
	assert.False(t, ctx.IsBusy)
}

func TestExited_ShellRelaunch(t *testing.T) {
	l := activeLifecycle(t, "p1", "s1")
	l.Send(ClaudeExited{Err: "crashed"})
	l.Send(ShellExited{})
	assert.Equal(t, StateExited, l.State())

	assert.True(t, l.Send(ShellReady{}))
	assert.Equal(t, StateShellReady, l.State())
	assert.Empty(t, l.Context().Error)
}

func TestClaudeStart_ClearsPreviousError(t *testing.T) {
	l := New()
	l.Send(ShellReady{})
	l.Send(ClaudeStart{ProfileID: "p1"})
	l.Send(ClaudeExited{Err: "spawn failed"})
	assert.Equal(t, "spawn failed", l.Context().Error)

	l.Send(ClaudeStart{ProfileID: "p1"})
	assert.Equal(t, StateClaudeStarting, l.State())
	assert.Empty(t, l.Context().Error)
	assert.Equal(t, "p1", l.Context().ProfileID)
}

func TestSwapPhase_OnlyDefinedWhileSwapping(t *testing.T) {
	l := activeLifecycle(t, "p1", "s1")
	states := []machine.State{l.State()}

	l.Send(SwapInitiated{TargetProfileID: "p2"})
	assert.NotEmpty(t, l.Context().SwapPhase)

	l.Send(SwapFailed{Err: "boom"})
	states = append(states, l.State())
	assert.Empty(t, l.Context().SwapPhase)

	for _, s := range states {
		assert.NotEqual(t, StateSwapping, s)
	}
}
