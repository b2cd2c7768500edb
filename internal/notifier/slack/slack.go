package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/slack-go/slack"
	"github.com/tkvist/courtkeeper/internal/entry"
	"github.com/tkvist/courtkeeper/internal/match"
	"github.com/tkvist/courtkeeper/internal/metrics"
	"github.com/tkvist/courtkeeper/internal/rating"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ match.Notifier = &Notifier{}

// Notifier posts session announcements to the club's Slack channel.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
	dryRun    bool
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics, dryRun bool) *Notifier {
	api := slack.New(token)
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
		dryRun:    dryRun,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(message slack.Message) (string, string, error) {
	if s.dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-ts", "dry-run-thread-ts", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

// SendLineup announces who plays where and who sits out this round.
func (s *Notifier) SendLineup(view *match.View) error {
	msg := s.formatLineup(view)
	_, _, err := s.sendMessage(msg)
	return err
}

// SendResults announces the per-court scores and new ratings.
func (s *Notifier) SendResults(results []match.Result, updates map[string]rating.Rating) error {
	msg := s.formatResults(results, updates)
	_, _, err := s.sendMessage(msg)
	return err
}

// formatLineup creates the Slack message for a freshly started round using Block Kit.
func (s *Notifier) formatLineup(view *match.View) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🎾 Courts are set! 🎾", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	for _, court := range view.Courts {
		courtText := fmt.Sprintf("Court %d\n%s\nvs\n%s",
			court.Number,
			teamLine(court.TeamA),
			teamLine(court.TeamB),
		)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", courtText, true, false), nil, nil))
	}

	if len(view.Resting) > 0 {
		var names []string
		for _, e := range view.Resting {
			names = append(names, e.Name)
		}
		restText := fmt.Sprintf("😴 Resting this round: %s", strings.Join(names, ", "))
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("plain_text", restText, true, false)))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatResults creates the Slack message for a finished round using Block Kit.
func (s *Notifier) formatResults(results []match.Result, updates map[string]rating.Rating) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🏁 Round finished! 🏁", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	for _, res := range results {
		winners, losers := res.TeamA, res.TeamB
		winScore, loseScore := res.ScoreA, res.ScoreB
		if res.Winner == entry.TeamB {
			winners, losers = res.TeamB, res.TeamA
			winScore, loseScore = res.ScoreB, res.ScoreA
		}
		courtText := fmt.Sprintf("Court %d: %s beat %s %d-%d 🏆",
			res.CourtNumber,
			snapshotLine(winners),
			snapshotLine(losers),
			winScore,
			loseScore,
		)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", courtText, true, false), nil, nil))
	}

	if len(updates) > 0 {
		ratingText := fmt.Sprintf("Ratings updated for %d players.", len(updates))
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("plain_text", ratingText, true, false)))
	}

	return slack.NewBlockMessage(blocks...)
}

func teamLine(team []entry.Entry) string {
	var names []string
	for _, e := range team {
		names = append(names, e.Name)
	}
	return strings.Join(names, " & ")
}

func snapshotLine(team []match.PlayerSnapshot) string {
	var names []string
	for _, p := range team {
		names = append(names, p.Name)
	}
	return strings.Join(names, " & ")
}
