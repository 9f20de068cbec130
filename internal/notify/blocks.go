package notify

import (
	"fmt"

	"github.com/slack-go/slack"

	"github.com/p-blackswan/flowcore/internal/review"
)

// maxFindingsShown caps the per-message finding list.
const maxFindingsShown = 10

func reviewCompletedBlocks(projectID string, prNumber int, result review.Result, isFollowup bool) []slack.Block {
	title := fmt.Sprintf("✅ Review complete: %s#%d", projectID, prNumber)
	if isFollowup {
		title = fmt.Sprintf("✅ Follow-up review complete: %s#%d", projectID, prNumber)
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject("plain_text", title, false, false),
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn",
				fmt.Sprintf("*Summary:* %s\n*Findings:* %d", result.Summary, len(result.Findings)),
				false, false),
			nil, nil,
		),
	}

	if len(result.Findings) == 0 {
		return blocks
	}

	blocks = append(blocks, slack.NewDividerBlock())

	limit := maxFindingsShown
	if len(result.Findings) < limit {
		limit = len(result.Findings)
	}
	for _, f := range result.Findings[:limit] {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn",
				fmt.Sprintf("• [%s] `%s:%d` — %s", f.Severity, f.File, f.Line, f.Message),
				false, false),
			nil, nil,
		))
	}

	if len(result.Findings) > maxFindingsShown {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn",
				fmt.Sprintf("_...and %d more findings_", len(result.Findings)-maxFindingsShown),
				false, false),
			nil, nil,
		))
	}

	return blocks
}

func reviewFailedBlocks(projectID string, prNumber int, errMsg string) []slack.Block {
	return []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject("plain_text",
				fmt.Sprintf("❌ Review failed: %s#%d", projectID, prNumber), false, false),
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("```\n%s\n```", errMsg), false, false),
			nil, nil,
		),
	}
}
