package slack

import (
	"strings"

	"golang.org/x/xerrors"

	"relay/internal/config"
	"relay/internal/transport"
)

// Message is posted to a channel through an incoming webhook.
type Message struct {
	Channel     string       `json:"channel,omitempty"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

func (Message) ConfigKeys() config.KeySet { return config.Keys(KeyWebhookURL) }

// Request builds the webhook POST for m.
func (m Message) Request(reg config.Registry) (transport.Request, error) {
	addr, ok := reg.Get(KeyWebhookURL)
	if !ok || addr == "" {
		return transport.Request{}, xerrors.Errorf("slack: %s is not set", KeyWebhookURL)
	}
	return transport.NewPost(addr, m)
}

// Ack is the incoming webhook's answer. Slack replies with a plain "ok".
type Ack struct {
	Status int
	Body   string
}

// DecodeAck checks the webhook result.
func DecodeAck(_ Message, res transport.Result) (Ack, error) {
	if err := res.ExpectOK(); err != nil {
		return Ack{}, err
	}
	return Ack{Status: res.Status, Body: strings.TrimSpace(string(res.Body))}, nil
}
