package review

import "github.com/p-blackswan/flowcore/internal/machine"

// Event kinds emitted by the review orchestrator and the API surface.
const (
	KindStartReview          machine.Kind = "START_REVIEW"
	KindStartFollowupReview  machine.Kind = "START_FOLLOWUP_REVIEW"
	KindSetProgress          machine.Kind = "SET_PROGRESS"
	KindReviewComplete       machine.Kind = "REVIEW_COMPLETE"
	KindReviewError          machine.Kind = "REVIEW_ERROR"
	KindCancelReview         machine.Kind = "CANCEL_REVIEW"
	KindDetectExternalReview machine.Kind = "DETECT_EXTERNAL_REVIEW"
	KindClearReview          machine.Kind = "CLEAR_REVIEW"
)

// StartReview begins a fresh review run for a PR.
type StartReview struct {
	PRNumber  int
	ProjectID string
}

func (StartReview) Kind() machine.Kind { return KindStartReview }

// StartFollowupReview begins a review run that threads the previous run's
// result forward so findings can be diffed between rounds.
type StartFollowupReview struct {
	PRNumber  int
	ProjectID string
	Previous  *Result
}

func (StartFollowupReview) Kind() machine.Kind { return KindStartFollowupReview }

// SetProgress reports intermediate reviewer progress. Stale progress events
// arriving outside an active review window are dropped.
type SetProgress struct {
	Progress Progress
}

func (SetProgress) Kind() machine.Kind { return KindSetProgress }

// ReviewComplete delivers the final review result.
type ReviewComplete struct {
	Result *Result
}

func (ReviewComplete) Kind() machine.Kind { return KindReviewComplete }

// ReviewError reports the review failed or timed out.
type ReviewError struct {
	Err string
}

func (ReviewError) Kind() machine.Kind { return KindReviewError }

// CancelReview aborts the in-flight review on user request.
type CancelReview struct{}

func (CancelReview) Kind() machine.Kind { return KindCancelReview }

// DetectExternalReview signals an external reviewer or bot has taken over.
type DetectExternalReview struct{}

func (DetectExternalReview) Kind() machine.Kind { return KindDetectExternalReview }

// ClearReview resets the machine to idle with a cleared context.
type ClearReview struct{}

func (ClearReview) Kind() machine.Kind { return KindClearReview }
