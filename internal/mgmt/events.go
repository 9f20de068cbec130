package mgmt

import (
	"fmt"

	"github.com/p-blackswan/flowcore/internal/machine"
	"github.com/p-blackswan/flowcore/internal/review"
	"github.com/p-blackswan/flowcore/internal/roadmap"
	"github.com/p-blackswan/flowcore/internal/terminal"
)

// terminalEvent maps an API event request onto a terminal machine event.
func terminalEvent(req TerminalEventRequest) (machine.Event, error) {
	switch machine.Kind(req.Type) {
	case terminal.KindShellReady:
		return terminal.ShellReady{}, nil
	case terminal.KindShellExited:
		return terminal.ShellExited{}, nil
	case terminal.KindClaudeStart:
		return terminal.ClaudeStart{ProfileID: req.ProfileID}, nil
	case terminal.KindClaudeActive:
		return terminal.ClaudeActive{SessionID: req.SessionID}, nil
	case terminal.KindClaudeBusy:
		return terminal.ClaudeBusy{Busy: req.Busy}, nil
	case terminal.KindClaudeExited:
		return terminal.ClaudeExited{Err: req.Error}, nil
	case terminal.KindSwapInitiated:
		return terminal.SwapInitiated{TargetProfileID: req.TargetProfileID}, nil
	case terminal.KindSwapSessionCaptured:
		return terminal.SwapSessionCaptured{SessionID: req.SessionID}, nil
	case terminal.KindSwapMigrated:
		return terminal.SwapMigrated{}, nil
	case terminal.KindSwapTerminalRecreated:
		return terminal.SwapTerminalRecreated{}, nil
	case terminal.KindSwapResumeComplete:
		return terminal.SwapResumeComplete{SessionID: req.SessionID, ProfileID: req.ProfileID}, nil
	case terminal.KindSwapFailed:
		return terminal.SwapFailed{Err: req.Error}, nil
	case terminal.KindResumeRequested:
		return terminal.ResumeRequested{SessionID: req.SessionID}, nil
	case terminal.KindResumeComplete:
		return terminal.ResumeComplete{SessionID: req.SessionID}, nil
	case terminal.KindResumeFailed:
		return terminal.ResumeFailed{Err: req.Error}, nil
	case terminal.KindReset:
		return terminal.Reset{}, nil
	default:
		return nil, fmt.Errorf("unknown terminal event type %q", req.Type)
	}
}

// reviewEvent maps an API event request onto a review machine event. The
// start events go through the orchestrator's Start instead.
func reviewEvent(req ReviewEventRequest) (machine.Event, error) {
	switch machine.Kind(req.Type) {
	case review.KindSetProgress:
		if req.Progress == nil {
			return nil, fmt.Errorf("progress payload is required")
		}
		return review.SetProgress{Progress: *req.Progress}, nil
	case review.KindReviewComplete:
		if req.Result == nil {
			return nil, fmt.Errorf("result payload is required")
		}
		return review.ReviewComplete{Result: req.Result}, nil
	case review.KindReviewError:
		return review.ReviewError{Err: req.Error}, nil
	case review.KindDetectExternalReview:
		return review.DetectExternalReview{}, nil
	case review.KindClearReview:
		return review.ClearReview{}, nil
	default:
		return nil, fmt.Errorf("unknown review event type %q", req.Type)
	}
}

// featureEvent maps an API event request onto a roadmap machine event.
func featureEvent(req FeatureEventRequest) (machine.Event, error) {
	switch machine.Kind(req.Type) {
	case roadmap.KindPlan:
		return roadmap.Plan{}, nil
	case roadmap.KindStartProgress:
		return roadmap.StartProgress{}, nil
	case roadmap.KindLinkSpec:
		if req.SpecID == "" {
			return nil, fmt.Errorf("spec_id is required")
		}
		return roadmap.LinkSpec{SpecID: req.SpecID}, nil
	case roadmap.KindMarkDone:
		return roadmap.MarkDone{}, nil
	case roadmap.KindTaskCompleted:
		return roadmap.TaskCompleted{}, nil
	case roadmap.KindTaskDeleted:
		return roadmap.TaskDeleted{}, nil
	case roadmap.KindTaskArchived:
		return roadmap.TaskArchived{}, nil
	case roadmap.KindMoveToReview:
		return roadmap.MoveToReview{}, nil
	case roadmap.KindRevert:
		return roadmap.Revert{}, nil
	default:
		return nil, fmt.Errorf("unknown feature event type %q", req.Type)
	}
}
