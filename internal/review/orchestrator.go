package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/flowcore/internal/config"
	ferrors "github.com/p-blackswan/flowcore/internal/errors"
	"github.com/p-blackswan/flowcore/internal/github"
	"github.com/p-blackswan/flowcore/internal/machine"
	"github.com/p-blackswan/flowcore/internal/metrics"
	"github.com/p-blackswan/flowcore/internal/retry"
	"github.com/p-blackswan/flowcore/internal/store"
)

const machineName = "review"

// StatusFetcher reads a PR's CI and review activity. Satisfied by the
// GitHub App client.
type StatusFetcher interface {
	FetchPRStatus(ctx context.Context, owner, repo string, prNumber int) (*github.PRStatus, error)
}

// CommentPoster writes a completed review's summary back onto the PR.
// The GitHub App client satisfies it; fetchers that do not are skipped.
type CommentPoster interface {
	PostReviewComment(ctx context.Context, owner, repo string, prNumber int, body string) error
}

// Notifier receives review outcome notifications. Satisfied by the Slack
// notifier; nil disables notifications.
type Notifier interface {
	ReviewCompleted(projectID string, prNumber int, result Result, isFollowup bool)
	ReviewFailed(projectID string, prNumber int, errMsg string)
}

// RunStore persists finished review runs.
type RunStore interface {
	SaveReviewRun(r *store.ReviewRun) error
	LatestReviewRun(projectID string, prNumber int) (*store.ReviewRun, error)
}

// Snapshot is a read-only view of one PR's review machine.
type Snapshot struct {
	ProjectID string        `json:"project_id"`
	PRNumber  int           `json:"pr_number"`
	State     machine.State `json:"state"`
	Context   Context       `json:"context"`
}

// OrchestratorConfig carries the orchestrator's tunables.
type OrchestratorConfig struct {
	PollInterval  time.Duration
	ReviewTimeout time.Duration
	Retry         retry.Config
}

// Orchestrator owns all review machines, drives them from GitHub polling,
// and persists finished runs.
type Orchestrator struct {
	cfg      OrchestratorConfig
	projects map[string]config.Project
	fetcher  StatusFetcher
	runs     RunStore
	notifier Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	mu       sync.Mutex
	machines map[string]*run
}

// run binds a lifecycle to its PR identity, which must survive CLEAR_REVIEW
// zeroing the machine context.
type run struct {
	projectID string
	prNumber  int
	lc        *Lifecycle
}

// NewOrchestrator creates an orchestrator for the given watched projects.
// fetcher may be nil when GitHub credentials are absent; reviews are then
// driven only by API-delivered events.
func NewOrchestrator(
	cfg OrchestratorConfig,
	projects []config.Project,
	fetcher StatusFetcher,
	runs RunStore,
	notifier Notifier,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Orchestrator {
	byID := make(map[string]config.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}
	return &Orchestrator{
		cfg:      cfg,
		projects: byID,
		fetcher:  fetcher,
		runs:     runs,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With().Str("component", "review-orchestrator").Logger(),
		machines: make(map[string]*run),
	}
}

func runKey(projectID string, prNumber int) string {
	return fmt.Sprintf("%s#%d", projectID, prNumber)
}

// Start begins a review run for a PR. A follow-up threads the newest
// persisted result forward so findings can be diffed between rounds.
func (o *Orchestrator) Start(projectID string, prNumber int, followup bool) (Snapshot, error) {
	if _, ok := o.projects[projectID]; !ok {
		return Snapshot{}, fmt.Errorf("project %s: %w", projectID, ferrors.ErrNotFound)
	}
	if prNumber <= 0 {
		return Snapshot{}, fmt.Errorf("pr number must be positive: %w", ferrors.ErrInvalidInput)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	r := o.ensure(projectID, prNumber)
	if r.lc.Active() {
		return o.snapshotLocked(r), ferrors.ErrReviewInFlight
	}

	var ev machine.Event
	if followup {
		ev = StartFollowupReview{
			PRNumber:  prNumber,
			ProjectID: projectID,
			Previous:  o.previousResult(r),
		}
	} else {
		ev = StartReview{PRNumber: prNumber, ProjectID: projectID}
	}

	o.sendLocked(r, ev)
	return o.snapshotLocked(r), nil
}

// previousResult prefers the in-memory result of the last run, falling back
// to the newest persisted run.
func (o *Orchestrator) previousResult(r *run) *Result {
	if res := r.lc.Context().Result; res != nil {
		return res
	}
	rec, err := o.runs.LatestReviewRun(r.projectID, r.prNumber)
	if err != nil || rec == nil || rec.Result == "" {
		return nil
	}
	var res Result
	if err := json.Unmarshal([]byte(rec.Result), &res); err != nil {
		o.logger.Warn().Err(err).Str("run_id", rec.ID).Msg("corrupt persisted review result")
		return nil
	}
	return &res
}

// Cancel aborts the in-flight review for a PR. The cancelled run is
// persisted and notified like any other terminal outcome.
func (o *Orchestrator) Cancel(projectID string, prNumber int) (Snapshot, error) {
	o.mu.Lock()
	r, ok := o.machines[runKey(projectID, prNumber)]
	if !ok {
		o.mu.Unlock()
		return Snapshot{}, ferrors.ErrNotFound
	}
	fired := o.sendLocked(r, CancelReview{})
	snap := o.snapshotLocked(r)
	o.mu.Unlock()

	if fired {
		o.persistAndNotify(snap)
	}
	return snap, nil
}

// Dispatch delivers one event to a PR's review machine. Events the machine
// does not accept in its current state are dropped, not errors.
func (o *Orchestrator) Dispatch(projectID string, prNumber int, ev machine.Event) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	r, ok := o.machines[runKey(projectID, prNumber)]
	if !ok {
		return Snapshot{}, ferrors.ErrNotFound
	}
	o.sendLocked(r, ev)
	return o.snapshotLocked(r), nil
}

// Get returns a PR's review snapshot.
func (o *Orchestrator) Get(projectID string, prNumber int) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	r, ok := o.machines[runKey(projectID, prNumber)]
	if !ok {
		return Snapshot{}, ferrors.ErrNotFound
	}
	return o.snapshotLocked(r), nil
}

// List returns snapshots of all known review machines.
func (o *Orchestrator) List() []Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snapshots := make([]Snapshot, 0, len(o.machines))
	for _, r := range o.machines {
		snapshots = append(snapshots, o.snapshotLocked(r))
	}
	return snapshots
}

// Diff compares the current follow-up result against the previous round.
func (o *Orchestrator) Diff(projectID string, prNumber int) (FindingsDiff, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	r, ok := o.machines[runKey(projectID, prNumber)]
	if !ok {
		return FindingsDiff{}, ferrors.ErrNotFound
	}
	c := r.lc.Context()
	if c.Result == nil {
		return FindingsDiff{}, fmt.Errorf("no completed result to diff: %w", ferrors.ErrInvalidInput)
	}
	return DiffFindings(c.PreviousResult, c.Result), nil
}

// Run polls GitHub on the configured interval until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	if o.fetcher == nil {
		o.logger.Info().Msg("github polling disabled, reviews driven by API events only")
		<-ctx.Done()
		return
	}

	o.logger.Info().
		Dur("interval", o.cfg.PollInterval).
		Int("projects", len(o.projects)).
		Msg("review orchestrator started")

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info().Msg("review orchestrator stopped")
			return
		case <-ticker.C:
			o.pollAll(ctx)
		}
	}
}

func (o *Orchestrator) pollAll(ctx context.Context) {
	for _, snap := range o.List() {
		if snap.State != StateReviewing && snap.State != StateExternalReview {
			continue
		}
		o.pollOne(ctx, snap)
	}
}

func (o *Orchestrator) pollOne(ctx context.Context, snap Snapshot) {
	project, ok := o.projects[snap.ProjectID]
	if !ok {
		return
	}

	if snap.Context.StartedAt != nil && time.Since(*snap.Context.StartedAt) > o.cfg.ReviewTimeout {
		o.finish(snap.ProjectID, snap.PRNumber, ReviewError{Err: "review timed out"})
		return
	}

	started := time.Now()
	var status *github.PRStatus
	err := retry.Do(ctx, o.cfg.Retry, func(ctx context.Context) error {
		var err error
		status, err = o.fetcher.FetchPRStatus(ctx, project.Owner, project.Repo, snap.PRNumber)
		return err
	})
	o.metrics.ObservePoll(project.ID, time.Since(started).Seconds())
	if err != nil {
		// Transient poll failures leave the run in flight; the timeout is
		// the backstop.
		o.logger.Warn().Err(err).
			Str("project", project.ID).
			Int("pr", snap.PRNumber).
			Msg("poll failed")
		return
	}

	o.apply(project, snap, status)
}

// apply maps one poll's PR status onto machine events.
func (o *Orchestrator) apply(project config.Project, snap Snapshot, status *github.PRStatus) {
	if snap.State == StateReviewing {
		if externalReviewSubmitted(project, snap.Context.StartedAt, status.Reviews) {
			_, _ = o.Dispatch(project.ID, snap.PRNumber, DetectExternalReview{})
		} else {
			_, _ = o.Dispatch(project.ID, snap.PRNumber, SetProgress{Progress: Progress{
				Phase:        "checks",
				ChecksTotal:  status.Checks.Total,
				ChecksPassed: status.Checks.Passed,
				ChecksFailed: status.Checks.Failed,
				Message:      status.Title,
			}})
		}
	}

	if status.Checks.Done() {
		o.finish(project.ID, snap.PRNumber, ReviewComplete{Result: resultFromChecks(status)})
	}
}

// finish delivers a terminal event, then persists and notifies if the
// machine actually finished.
func (o *Orchestrator) finish(projectID string, prNumber int, ev machine.Event) {
	o.mu.Lock()
	r, ok := o.machines[runKey(projectID, prNumber)]
	if !ok {
		o.mu.Unlock()
		return
	}
	fired := o.sendLocked(r, ev)
	snap := o.snapshotLocked(r)
	o.mu.Unlock()

	if fired {
		o.persistAndNotify(snap)
	}
}

func (o *Orchestrator) persistAndNotify(snap Snapshot) {
	switch snap.State {
	case StateCompleted:
		o.persist(snap)
		o.postSummary(snap)
		if o.notifier != nil && snap.Context.Result != nil {
			o.notifier.ReviewCompleted(snap.ProjectID, snap.PRNumber, *snap.Context.Result, snap.Context.IsFollowup)
		}
	case StateError:
		o.persist(snap)
		if o.notifier != nil {
			o.notifier.ReviewFailed(snap.ProjectID, snap.PRNumber, snap.Context.Error)
		}
	}
}

func (o *Orchestrator) persist(snap Snapshot) {
	rec := &store.ReviewRun{
		ID:          uuid.New().String(),
		ProjectID:   snap.ProjectID,
		PRNumber:    snap.PRNumber,
		State:       string(snap.State),
		IsFollowup:  snap.Context.IsFollowup,
		IsExternal:  snap.Context.IsExternalReview,
		Error:       snap.Context.Error,
		CompletedAt: time.Now().UnixMilli(),
	}
	if snap.Context.StartedAt != nil {
		rec.StartedAt = snap.Context.StartedAt.UnixMilli()
	}
	if snap.Context.Result != nil {
		if data, err := json.Marshal(snap.Context.Result); err == nil {
			rec.Result = string(data)
		}
	}

	if err := o.runs.SaveReviewRun(rec); err != nil {
		o.logger.Error().Err(err).
			Str("project", snap.ProjectID).
			Int("pr", snap.PRNumber).
			Msg("failed to persist review run")
	}
}

// postSummary mirrors the completed result onto the PR as a review comment.
func (o *Orchestrator) postSummary(snap Snapshot) {
	poster, ok := o.fetcher.(CommentPoster)
	if !ok || snap.Context.Result == nil {
		return
	}
	project, ok := o.projects[snap.ProjectID]
	if !ok {
		return
	}

	body := summaryComment(snap.Context.Result)
	if err := poster.PostReviewComment(context.Background(), project.Owner, project.Repo, snap.PRNumber, body); err != nil {
		o.logger.Warn().Err(err).
			Str("project", snap.ProjectID).
			Int("pr", snap.PRNumber).
			Msg("failed to post review comment")
	}
}

func summaryComment(res *Result) string {
	var b strings.Builder
	b.WriteString("### Review result\n\n")
	b.WriteString(res.Summary)
	for _, f := range res.Findings {
		fmt.Fprintf(&b, "\n- **%s** (%s): %s", f.ID, f.Severity, f.Message)
	}
	return b.String()
}

func externalReviewSubmitted(project config.Project, startedAt *time.Time, reviews []github.ReviewInfo) bool {
	if startedAt == nil {
		return false
	}
	external := make(map[string]bool, len(project.ExternalReviewers))
	for _, login := range project.ExternalReviewers {
		external[login] = true
	}
	for _, r := range reviews {
		if external[r.Login] && r.SubmittedAt.After(*startedAt) {
			return true
		}
	}
	return false
}

func resultFromChecks(status *github.PRStatus) *Result {
	res := &Result{
		Summary:     fmt.Sprintf("%d/%d checks passed", status.Checks.Passed, status.Checks.Total),
		CompletedAt: time.Now().UTC(),
	}
	for _, name := range status.Checks.FailedChecks {
		res.Findings = append(res.Findings, Finding{
			ID:       name,
			Severity: "error",
			Message:  fmt.Sprintf("check %q failed on %s", name, status.HeadSHA),
		})
	}
	return res
}

// ensure returns the machine entry for a PR, creating it on first use.
// Caller holds o.mu.
func (o *Orchestrator) ensure(projectID string, prNumber int) *run {
	key := runKey(projectID, prNumber)
	r, ok := o.machines[key]
	if !ok {
		r = &run{projectID: projectID, prNumber: prNumber, lc: New()}
		o.machines[key] = r
	}
	return r
}

// sendLocked delivers an event with transition logging and metrics.
// Caller holds o.mu.
func (o *Orchestrator) sendLocked(r *run, ev machine.Event) bool {
	from := r.lc.State()
	fired := r.lc.Send(ev)
	if fired {
		o.metrics.RecordTransition(machineName, string(from), string(ev.Kind()))
		o.logger.Debug().
			Str("project", r.projectID).
			Int("pr", r.prNumber).
			Str("event", string(ev.Kind())).
			Str("from", string(from)).
			Str("to", string(r.lc.State())).
			Msg("review transition")
	} else {
		o.metrics.RecordIgnored(machineName, string(ev.Kind()))
	}
	o.metrics.SetActiveReviews(float64(o.activeLocked()))
	return fired
}

func (o *Orchestrator) activeLocked() int {
	n := 0
	for _, r := range o.machines {
		if r.lc.Active() {
			n++
		}
	}
	return n
}

func (o *Orchestrator) snapshotLocked(r *run) Snapshot {
	return Snapshot{
		ProjectID: r.projectID,
		PRNumber:  r.prNumber,
		State:     r.lc.State(),
		Context:   r.lc.Context(),
	}
}
