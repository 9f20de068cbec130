package review

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/flowcore/internal/config"
	ferrors "github.com/p-blackswan/flowcore/internal/errors"
	"github.com/p-blackswan/flowcore/internal/github"
	"github.com/p-blackswan/flowcore/internal/metrics"
	"github.com/p-blackswan/flowcore/internal/retry"
	"github.com/p-blackswan/flowcore/internal/store"
)

type fakeFetcher struct {
	status *github.PRStatus
	err    error
	calls  int
}

func (f *fakeFetcher) FetchPRStatus(_ context.Context, _, _ string, _ int) (*github.PRStatus, error) {
	f.calls++
	return f.status, f.err
}

type postingFetcher struct {
	fakeFetcher
	posted []string
}

func (p *postingFetcher) PostReviewComment(_ context.Context, _, _ string, _ int, body string) error {
	p.posted = append(p.posted, body)
	return nil
}

type fakeRunStore struct {
	saved  []*store.ReviewRun
	latest *store.ReviewRun
}

func (f *fakeRunStore) SaveReviewRun(r *store.ReviewRun) error { f.saved = append(f.saved, r); return nil }
func (f *fakeRunStore) LatestReviewRun(string, int) (*store.ReviewRun, error) {
	return f.latest, nil
}

type fakeNotifier struct {
	completed []Result
	failed    []string
}

func (f *fakeNotifier) ReviewCompleted(_ string, _ int, result Result, _ bool) {
	f.completed = append(f.completed, result)
}

func (f *fakeNotifier) ReviewFailed(_ string, _ int, errMsg string) {
	f.failed = append(f.failed, errMsg)
}

func testProjects() []config.Project {
	return []config.Project{{
		ID: "flowcore", Owner: "p-blackswan", Repo: "flowcore",
		ExternalReviewers: []string{"review-bot"},
	}}
}

func newTestOrchestrator(fetcher StatusFetcher, runs RunStore, notifier Notifier) *Orchestrator {
	cfg := OrchestratorConfig{
		PollInterval:  time.Second,
		ReviewTimeout: 30 * time.Minute,
		Retry:         retry.Config{MaxAttempts: 1},
	}
	return NewOrchestrator(cfg, testProjects(), fetcher, runs, notifier, metrics.New(), zerolog.Nop())
}

func TestOrchestrator_Start(t *testing.T) {
	o := newTestOrchestrator(nil, &fakeRunStore{}, nil)

	snap, err := o.Start("flowcore", 42, false)
	require.NoError(t, err)
	assert.Equal(t, StateReviewing, snap.State)
	assert.Equal(t, 42, snap.Context.PRNumber)

	// A second start while in flight is rejected.
	_, err = o.Start("flowcore", 42, false)
	assert.ErrorIs(t, err, ferrors.ErrReviewInFlight)

	// Other PRs are independent.
	_, err = o.Start("flowcore", 43, false)
	require.NoError(t, err)
}

func TestOrchestrator_StartValidation(t *testing.T) {
	o := newTestOrchestrator(nil, &fakeRunStore{}, nil)

	_, err := o.Start("unknown", 1, false)
	assert.ErrorIs(t, err, ferrors.ErrNotFound)

	_, err = o.Start("flowcore", 0, false)
	assert.ErrorIs(t, err, ferrors.ErrInvalidInput)
}

func TestOrchestrator_FollowupThreadsPersistedResult(t *testing.T) {
	runs := &fakeRunStore{latest: &store.ReviewRun{
		ID: "run-1", State: "completed",
		Result: `{"summary":"2 findings","findings":[{"message":"old"}]}`,
	}}
	o := newTestOrchestrator(nil, runs, nil)

	snap, err := o.Start("flowcore", 42, true)
	require.NoError(t, err)
	assert.True(t, snap.Context.IsFollowup)
	require.NotNil(t, snap.Context.PreviousResult)
	assert.Equal(t, "2 findings", snap.Context.PreviousResult.Summary)
}

func TestOrchestrator_PollCompletesWhenChecksDone(t *testing.T) {
	fetcher := &fakeFetcher{status: &github.PRStatus{
		Number: 42, State: "open", HeadSHA: "abc",
		Checks: github.CheckSummary{Total: 3, Passed: 2, Failed: 1, FailedChecks: []string{"lint"}},
	}}
	runs := &fakeRunStore{}
	notifier := &fakeNotifier{}
	o := newTestOrchestrator(fetcher, runs, notifier)

	_, err := o.Start("flowcore", 42, false)
	require.NoError(t, err)

	o.pollAll(context.Background())

	snap, err := o.Get("flowcore", 42)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, snap.State)
	require.NotNil(t, snap.Context.Result)
	assert.Equal(t, "2/3 checks passed", snap.Context.Result.Summary)
	require.Len(t, snap.Context.Result.Findings, 1)
	assert.Equal(t, "lint", snap.Context.Result.Findings[0].ID)

	require.Len(t, runs.saved, 1)
	assert.Equal(t, "completed", runs.saved[0].State)
	require.Len(t, notifier.completed, 1)
}

func TestOrchestrator_PostsSummaryCommentOnCompletion(t *testing.T) {
	fetcher := &postingFetcher{fakeFetcher: fakeFetcher{status: &github.PRStatus{
		Number: 42, State: "open", HeadSHA: "abc",
		Checks: github.CheckSummary{Total: 3, Passed: 2, Failed: 1, FailedChecks: []string{"lint"}},
	}}}
	o := newTestOrchestrator(fetcher, &fakeRunStore{}, nil)

	_, err := o.Start("flowcore", 42, false)
	require.NoError(t, err)

	o.pollAll(context.Background())

	require.Len(t, fetcher.posted, 1)
	assert.Contains(t, fetcher.posted[0], "2/3 checks passed")
	assert.Contains(t, fetcher.posted[0], "lint")
}

func TestOrchestrator_CancelPostsNoComment(t *testing.T) {
	fetcher := &postingFetcher{}
	o := newTestOrchestrator(fetcher, &fakeRunStore{}, &fakeNotifier{})

	_, err := o.Start("flowcore", 42, false)
	require.NoError(t, err)
	_, err = o.Cancel("flowcore", 42)
	require.NoError(t, err)

	assert.Empty(t, fetcher.posted)
}

func TestOrchestrator_PollReportsProgressWhilePending(t *testing.T) {
	fetcher := &fakeFetcher{status: &github.PRStatus{
		Number: 42, State: "open",
		Checks: github.CheckSummary{Total: 3, Passed: 1, Pending: 2},
	}}
	o := newTestOrchestrator(fetcher, &fakeRunStore{}, nil)

	_, err := o.Start("flowcore", 42, false)
	require.NoError(t, err)

	o.pollAll(context.Background())

	snap, err := o.Get("flowcore", 42)
	require.NoError(t, err)
	assert.Equal(t, StateReviewing, snap.State)
	require.NotNil(t, snap.Context.Progress)
	assert.Equal(t, 3, snap.Context.Progress.ChecksTotal)
	assert.Equal(t, 1, snap.Context.Progress.ChecksPassed)
}

func TestOrchestrator_ExternalReviewerDetected(t *testing.T) {
	fetcher := &fakeFetcher{status: &github.PRStatus{
		Number: 42, State: "open",
		Checks: github.CheckSummary{Total: 1, Pending: 1},
		Reviews: []github.ReviewInfo{
			{Login: "review-bot", State: "COMMENTED", SubmittedAt: time.Now().Add(time.Minute)},
		},
	}}
	o := newTestOrchestrator(fetcher, &fakeRunStore{}, nil)

	_, err := o.Start("flowcore", 42, false)
	require.NoError(t, err)

	o.pollAll(context.Background())

	snap, err := o.Get("flowcore", 42)
	require.NoError(t, err)
	assert.Equal(t, StateExternalReview, snap.State)
	assert.True(t, snap.Context.IsExternalReview)
	assert.Nil(t, snap.Context.Progress)
}

func TestOrchestrator_ExternalReviewBeforeStartIgnored(t *testing.T) {
	fetcher := &fakeFetcher{status: &github.PRStatus{
		Number: 42, State: "open",
		Checks: github.CheckSummary{Total: 1, Pending: 1},
		Reviews: []github.ReviewInfo{
			{Login: "review-bot", State: "COMMENTED", SubmittedAt: time.Now().Add(-time.Hour)},
		},
	}}
	o := newTestOrchestrator(fetcher, &fakeRunStore{}, nil)

	_, err := o.Start("flowcore", 42, false)
	require.NoError(t, err)

	o.pollAll(context.Background())

	snap, err := o.Get("flowcore", 42)
	require.NoError(t, err)
	assert.Equal(t, StateReviewing, snap.State)
}

func TestOrchestrator_Timeout(t *testing.T) {
	fetcher := &fakeFetcher{status: &github.PRStatus{Number: 42}}
	runs := &fakeRunStore{}
	notifier := &fakeNotifier{}
	o := newTestOrchestrator(fetcher, runs, notifier)
	o.cfg.ReviewTimeout = time.Nanosecond

	_, err := o.Start("flowcore", 42, false)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	o.pollAll(context.Background())

	snap, err := o.Get("flowcore", 42)
	require.NoError(t, err)
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, "review timed out", snap.Context.Error)
	assert.Zero(t, fetcher.calls)

	require.Len(t, runs.saved, 1)
	assert.Equal(t, "error", runs.saved[0].State)
	require.Len(t, notifier.failed, 1)
}

func TestOrchestrator_PollFailureKeepsReviewing(t *testing.T) {
	fetcher := &fakeFetcher{err: ferrors.NewAPIError("github", 500, "boom")}
	o := newTestOrchestrator(fetcher, &fakeRunStore{}, nil)

	_, err := o.Start("flowcore", 42, false)
	require.NoError(t, err)

	o.pollAll(context.Background())

	snap, err := o.Get("flowcore", 42)
	require.NoError(t, err)
	assert.Equal(t, StateReviewing, snap.State)
}

func TestOrchestrator_Cancel(t *testing.T) {
	runs := &fakeRunStore{}
	notifier := &fakeNotifier{}
	o := newTestOrchestrator(nil, runs, notifier)

	_, err := o.Start("flowcore", 42, false)
	require.NoError(t, err)

	snap, err := o.Cancel("flowcore", 42)
	require.NoError(t, err)
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, CancelledMessage, snap.Context.Error)
	require.Len(t, notifier.failed, 1)
	assert.Equal(t, CancelledMessage, notifier.failed[0])

	// A second cancel fires nothing and persists nothing new.
	_, err = o.Cancel("flowcore", 42)
	require.NoError(t, err)
	assert.Len(t, runs.saved, 1)

	_, err = o.Cancel("flowcore", 99)
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
}

func TestOrchestrator_Diff(t *testing.T) {
	o := newTestOrchestrator(nil, &fakeRunStore{}, nil)

	_, err := o.Start("flowcore", 42, false)
	require.NoError(t, err)

	_, err = o.Diff("flowcore", 42)
	assert.ErrorIs(t, err, ferrors.ErrInvalidInput)

	_, err = o.Dispatch("flowcore", 42, ReviewComplete{Result: &Result{
		Findings: []Finding{{ID: "a"}, {ID: "b"}},
	}})
	require.NoError(t, err)

	_, err = o.Start("flowcore", 42, true)
	require.NoError(t, err)
	_, err = o.Dispatch("flowcore", 42, ReviewComplete{Result: &Result{
		Findings: []Finding{{ID: "b"}, {ID: "c"}},
	}})
	require.NoError(t, err)

	diff, err := o.Diff("flowcore", 42)
	require.NoError(t, err)
	assert.Len(t, diff.Resolved, 1)
	assert.Len(t, diff.StillOpen, 1)
	assert.Len(t, diff.New, 1)
}
