package notify

import (
	"errors"
	"testing"

	"github.com/slack-go/slack"

	"github.com/opsimate/opsimate/internal/database"
	"github.com/opsimate/opsimate/internal/testhelpers"
)

type fakeSlackClient struct {
	channel   string
	postCalls int
	err       error
}

func (f *fakeSlackClient) PostMessage(channelID string, options ...slack.MsgOption) (string, string, error) {
	f.postCalls++
	f.channel = channelID
	return channelID, "ts", f.err
}

func notifierFixture(t *testing.T, enabled bool) (*SlackNotifier, *fakeSlackClient) {
	t.Helper()
	db := testhelpers.NewTestDB(t)
	if err := database.InitializeDefaults(db); err != nil {
		t.Fatalf("InitializeDefaults failed: %v", err)
	}

	if enabled {
		settings, err := database.GetSlackSettings(db)
		if err != nil {
			t.Fatalf("GetSlackSettings failed: %v", err)
		}
		settings.Enabled = true
		settings.BotToken = "xoxb-test"
		settings.AlertsChannel = "#alerts"
		if err := database.UpdateSlackSettings(db, settings); err != nil {
			t.Fatalf("UpdateSlackSettings failed: %v", err)
		}
	}

	fake := &fakeSlackClient{}
	notifier := NewSlackNotifier(db)
	notifier.newClient = func(token string) slackClient { return fake }
	return notifier, fake
}

func TestNotifyNewAlert_Posts(t *testing.T) {
	notifier, fake := notifierFixture(t, true)

	alert := testhelpers.NewAlertBuilder("a-1").WithTag("payments").Build()
	notifier.NotifyNewAlert(&alert)

	if fake.postCalls != 1 {
		t.Fatalf("postCalls = %d, want 1", fake.postCalls)
	}
	if fake.channel != "#alerts" {
		t.Errorf("channel = %q, want #alerts", fake.channel)
	}
}

func TestNotifyNewAlert_DisabledIsNoop(t *testing.T) {
	notifier, fake := notifierFixture(t, false)

	alert := testhelpers.NewAlertBuilder("a-1").Build()
	notifier.NotifyNewAlert(&alert)

	if fake.postCalls != 0 {
		t.Errorf("postCalls = %d, want 0 when Slack is disabled", fake.postCalls)
	}
}

func TestNotifyNewAlert_PostFailureSwallowed(t *testing.T) {
	notifier, fake := notifierFixture(t, true)
	fake.err = errors.New("channel_not_found")

	alert := testhelpers.NewAlertBuilder("a-1").Build()
	// Must not panic or surface the error; notification is best-effort
	notifier.NotifyNewAlert(&alert)

	if fake.postCalls != 1 {
		t.Errorf("postCalls = %d, want 1", fake.postCalls)
	}
}
