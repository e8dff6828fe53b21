package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"golang.org/x/xerrors"

	"relay/internal/config"
	"relay/internal/webhook"
)

const (
	KeyWebhookSecret = "GITHUB_WEBHOOK_SECRET"
	SignatureHeader  = "X-Hub-Signature-256"

	EventPush = "push"
	EventPing = "ping"
)

// PushDelivery is a webhook delivery sent by GitHub.
type PushDelivery struct {
	webhook.Delivery
}

func (PushDelivery) ConfigKeys() config.KeySet { return config.Keys(KeyWebhookSecret) }

// CallbackURL reports no callback: GitHub does not accept delayed answers.
func (PushDelivery) CallbackURL() (string, bool) { return "", false }

// Verify checks the delivery signature against the secret in reg.
func (d PushDelivery) Verify(reg config.Registry) error {
	secret, ok := reg.Get(KeyWebhookSecret)
	if !ok || secret == "" {
		return xerrors.Errorf("github: %s is not set", KeyWebhookSecret)
	}
	return VerifySignature([]byte(secret), d.Body, d.Header.Get(SignatureHeader))
}

// VerifySignature checks a "sha256=<hex>" HMAC signature of body.
func VerifySignature(secret, body []byte, signature string) error {
	hexSum, ok := strings.CutPrefix(signature, "sha256=")
	if !ok {
		return xerrors.New("github: missing or malformed signature")
	}
	got, err := hex.DecodeString(hexSum)
	if err != nil {
		return xerrors.Errorf("github: malformed signature: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return xerrors.New("github: signature mismatch")
	}
	return nil
}

// Sign returns the signature header value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

type PushEvent struct {
	Ref        string     `json:"ref"`
	Before     string     `json:"before"`
	After      string     `json:"after"`
	Compare    string     `json:"compare"`
	Deleted    bool       `json:"deleted"`
	Repository Repository `json:"repository"`
	Pusher     Pusher     `json:"pusher"`
	Commits    []Commit   `json:"commits"`
}

type Repository struct {
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}

type Pusher struct {
	Name string `json:"name"`
}

type Commit struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	URL     string `json:"url"`
	Author  Author `json:"author"`
}

type Author struct {
	Name string `json:"name"`
}

// DecodePush reads a push event body.
func DecodePush(body []byte) (PushEvent, error) {
	var ev PushEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return PushEvent{}, xerrors.Errorf("github: decoding push event: %w", err)
	}
	if ev.Ref == "" {
		return PushEvent{}, xerrors.New("github: push event has no ref")
	}
	return ev, nil
}

// Branch returns the pushed branch, or "" for tag pushes.
func (ev PushEvent) Branch() string {
	b, ok := strings.CutPrefix(ev.Ref, "refs/heads/")
	if !ok {
		return ""
	}
	return b
}

// Short is the first line of the commit message.
func (c Commit) Short() string {
	line, _, _ := strings.Cut(c.Message, "\n")
	return line
}
