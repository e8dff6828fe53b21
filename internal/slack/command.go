// Package slack models Slack slash commands, the responses posted back to
// them and messages sent through incoming webhooks.
package slack

import (
	"crypto/subtle"
	"net/url"
	"strings"

	"golang.org/x/xerrors"

	"relay/internal/config"
)

const (
	KeyVerificationToken = "SLACK_VERIFICATION_TOKEN"
	KeyWebhookURL        = "SLACK_WEBHOOK_URL"
)

// SlashCommand is the form Slack posts when a user invokes a command.
type SlashCommand struct {
	Token       string
	TeamID      string
	TeamDomain  string
	ChannelID   string
	ChannelName string
	UserID      string
	UserName    string
	Command     string
	Text        string
	ResponseURL string
	TriggerID   string
}

func (SlashCommand) ConfigKeys() config.KeySet { return config.Keys(KeyVerificationToken) }

// CallbackURL returns the response_url Slack accepts delayed answers on.
func (c SlashCommand) CallbackURL() (string, bool) {
	return c.ResponseURL, c.ResponseURL != ""
}

// ParseSlashCommand reads a SlashCommand from a decoded form body.
func ParseSlashCommand(form url.Values) (SlashCommand, error) {
	cmd := SlashCommand{
		Token:       form.Get("token"),
		TeamID:      form.Get("team_id"),
		TeamDomain:  form.Get("team_domain"),
		ChannelID:   form.Get("channel_id"),
		ChannelName: form.Get("channel_name"),
		UserID:      form.Get("user_id"),
		UserName:    form.Get("user_name"),
		Command:     form.Get("command"),
		Text:        strings.TrimSpace(form.Get("text")),
		ResponseURL: form.Get("response_url"),
		TriggerID:   form.Get("trigger_id"),
	}
	if cmd.Command == "" {
		return SlashCommand{}, xerrors.New("slack: missing command")
	}
	return cmd, nil
}

// Name is the command without its leading slash.
func (c SlashCommand) Name() string {
	return strings.TrimPrefix(c.Command, "/")
}

// Args splits the command text on whitespace.
func (c SlashCommand) Args() []string {
	return strings.Fields(c.Text)
}

// Verify reports whether the command carries the verification token from
// reg.
func (c SlashCommand) Verify(reg config.Registry) bool {
	want, ok := reg.Get(KeyVerificationToken)
	if !ok || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Token), []byte(want)) == 1
}
