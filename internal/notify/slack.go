package notify

import (
	"fmt"
	"log"

	"github.com/slack-go/slack"
	"gorm.io/gorm"

	"github.com/opsimate/opsimate/internal/database"
)

// SlackNotifier posts alert notifications to a configured Slack channel.
// Settings are read from the database on every send so channel or token
// changes take effect without a restart. Send failures are logged and
// swallowed: notification is best-effort and must never block ingestion.
type SlackNotifier struct {
	db *gorm.DB

	// newClient is swappable in tests
	newClient func(token string) slackClient
}

// slackClient is the subset of the Slack API the notifier uses
type slackClient interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// NewSlackNotifier creates a new Slack notifier
func NewSlackNotifier(db *gorm.DB) *SlackNotifier {
	return &SlackNotifier{
		db: db,
		newClient: func(token string) slackClient {
			return slack.New(token)
		},
	}
}

// NotifyNewAlert posts a message about a newly ingested firing alert.
// No-op when Slack is disabled or not fully configured.
func (n *SlackNotifier) NotifyNewAlert(alert *database.Alert) {
	settings, err := database.GetSlackSettings(n.db)
	if err != nil {
		log.Printf("Slack notify: could not load settings: %v", err)
		return
	}
	if !settings.IsActive() {
		return
	}

	client := n.newClient(settings.BotToken)

	text := fmt.Sprintf(":rotating_light: *%s*", alert.AlertName)
	if alert.Summary != "" {
		text += "\n" + alert.Summary
	}

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Status:*\n%s", alert.Status), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Source:*\n%s", alert.SourceType), false, false),
	}
	if alert.Tag != "" {
		fields = append(fields,
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Tag:*\n%s", alert.Tag), false, false))
	}
	if alert.AlertURL != "" {
		fields = append(fields,
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Link:*\n<%s|open in source>", alert.AlertURL), false, false))
	}

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil),
		slack.NewSectionBlock(nil, fields, nil),
	}

	_, _, err = client.PostMessage(settings.AlertsChannel,
		slack.MsgOptionText(fmt.Sprintf("New alert: %s", alert.AlertName), false),
		slack.MsgOptionBlocks(blocks...))
	if err != nil {
		log.Printf("Slack notify: failed to post alert %s: %v", alert.ID, err)
		return
	}

	log.Printf("Slack notify: posted alert %s to %s", alert.ID, settings.AlertsChannel)
}
