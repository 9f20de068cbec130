// Package notify delivers review outcome notifications to Slack.
package notify

import (
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/p-blackswan/flowcore/internal/metrics"
	"github.com/p-blackswan/flowcore/internal/review"
)

// Poster abstracts the Slack API client for testing.
type Poster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts review completion and failure messages to a single
// configured channel.
type SlackNotifier struct {
	api     Poster
	channel string
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewSlackNotifier creates a notifier using a bot token.
func NewSlackNotifier(botToken, channel string, logger zerolog.Logger, m *metrics.Metrics) *SlackNotifier {
	return newSlackNotifier(slack.New(botToken), channel, logger, m)
}

func newSlackNotifier(api Poster, channel string, logger zerolog.Logger, m *metrics.Metrics) *SlackNotifier {
	return &SlackNotifier{
		api:     api,
		channel: channel,
		logger:  logger.With().Str("component", "notify").Logger(),
		metrics: m,
	}
}

// ReviewCompleted posts a summary of a finished review run.
func (n *SlackNotifier) ReviewCompleted(projectID string, prNumber int, result review.Result, isFollowup bool) {
	blocks := reviewCompletedBlocks(projectID, prNumber, result, isFollowup)
	n.post("completed", projectID, prNumber, blocks)
}

// ReviewFailed posts a failure notice for a review run.
func (n *SlackNotifier) ReviewFailed(projectID string, prNumber int, errMsg string) {
	blocks := reviewFailedBlocks(projectID, prNumber, errMsg)
	n.post("failed", projectID, prNumber, blocks)
}

func (n *SlackNotifier) post(outcome, projectID string, prNumber int, blocks []slack.Block) {
	_, _, err := n.api.PostMessage(n.channel, slack.MsgOptionBlocks(blocks...))
	if err != nil {
		n.metrics.RecordNotification(outcome, "error")
		n.logger.Error().Err(err).
			Str("project", projectID).
			Int("pr", prNumber).
			Msg("failed to post review notification")
		return
	}

	n.metrics.RecordNotification(outcome, "ok")
	n.logger.Info().
		Str("project", projectID).
		Int("pr", prNumber).
		Str("outcome", outcome).
		Msg("posted review notification")
}
