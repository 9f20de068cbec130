package mgmt

import (
	"github.com/p-blackswan/flowcore/internal/review"
	"github.com/p-blackswan/flowcore/internal/roadmap"
	"github.com/p-blackswan/flowcore/internal/terminal"
)

// ProblemDetail is an RFC 7807 problem details error body.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// TerminalEventRequest is the body of POST /terminals/:id/events. Type is
// the event kind; the remaining fields are the union of event payloads.
type TerminalEventRequest struct {
	Type            string `json:"type"`
	ProfileID       string `json:"profile_id,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
	TargetProfileID string `json:"target_profile_id,omitempty"`
	Busy            bool   `json:"busy,omitempty"`
	Error           string `json:"error,omitempty"`
}

// TerminalListResponse is the body of GET /terminals.
type TerminalListResponse struct {
	Terminals []terminal.Snapshot `json:"terminals"`
	Total     int                 `json:"total"`
}

// ReviewStartRequest is the body of POST /reviews. Either PRNumber or PRURL
// identifies the pull request.
type ReviewStartRequest struct {
	ProjectID string `json:"project_id"`
	PRNumber  int    `json:"pr_number,omitempty"`
	PRURL     string `json:"pr_url,omitempty"`
	Followup  bool   `json:"followup,omitempty"`
}

// ReviewEventRequest is the body of POST /reviews/:project/:pr/events.
type ReviewEventRequest struct {
	Type     string           `json:"type"`
	Progress *review.Progress `json:"progress,omitempty"`
	Result   *review.Result   `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// ReviewListResponse is the body of GET /reviews.
type ReviewListResponse struct {
	Reviews []review.Snapshot `json:"reviews"`
	Total   int               `json:"total"`
}

// FeatureEventRequest is the body of POST /features/:id/events.
type FeatureEventRequest struct {
	Type   string `json:"type"`
	SpecID string `json:"spec_id,omitempty"`
}

// FeatureListResponse is the body of GET /features.
type FeatureListResponse struct {
	Features []roadmap.Snapshot `json:"features"`
	Total    int                `json:"total"`
}

// HealthDetailResponse is the body of GET /api/v1/health.
type HealthDetailResponse struct {
	Status       string            `json:"status"`
	Integrations map[string]string `json:"integrations"`
	Uptime       string            `json:"uptime"`
	Version      string            `json:"version"`
}
