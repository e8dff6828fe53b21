// Package webhook models generic inbound HTTP hook deliveries and the JSON
// replies sent back for them.
package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"golang.org/x/xerrors"

	"relay/internal/config"
)

const (
	// KeySharedSecret holds the token callers must present in TokenHeader.
	KeySharedSecret = "HOOK_SHARED_SECRET"

	TokenHeader    = "X-Hook-Token"
	EventHeader    = "X-Hook-Event"
	CallbackHeader = "X-Callback-Url"
	CallbackParam  = "callback_url"

	// DefaultMaxBody caps how much of a request body FromRequest reads.
	DefaultMaxBody = 1 << 20
)

// Delivery is one inbound hook request.
type Delivery struct {
	Name     string
	Event    string
	Header   http.Header
	Body     []byte
	Callback string
}

func (Delivery) ConfigKeys() config.KeySet { return config.Keys(KeySharedSecret) }

func (d Delivery) CallbackURL() (string, bool) { return d.Callback, d.Callback != "" }

// FromRequest reads a Delivery for hook name from r. At most maxBody bytes
// of the body are read; a larger body is an error.
func FromRequest(name string, r *http.Request, maxBody int64) (Delivery, error) {
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}

	var body []byte
	if r.Body != nil {
		defer r.Body.Close()
		data, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
		if err != nil {
			return Delivery{}, xerrors.Errorf("reading hook body: %w", err)
		}
		if int64(len(data)) > maxBody {
			return Delivery{}, xerrors.Errorf("hook body exceeds %d bytes", maxBody)
		}
		body = data
	}

	event := r.Header.Get(EventHeader)
	if event == "" {
		event = r.Header.Get("X-GitHub-Event")
	}

	callback := r.Header.Get(CallbackHeader)
	if callback == "" {
		callback = r.URL.Query().Get(CallbackParam)
	}

	return Delivery{
		Name:     name,
		Event:    event,
		Header:   r.Header.Clone(),
		Body:     body,
		Callback: callback,
	}, nil
}

// Authorized reports whether d carries the shared secret from reg.
func (d Delivery) Authorized(reg config.Registry) bool {
	want, ok := reg.Get(KeySharedSecret)
	if !ok || want == "" {
		return false
	}
	got := d.Header.Get(TokenHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// Decode unmarshals the JSON body of d into a T.
func Decode[T any](d Delivery) (T, error) {
	var out T
	if len(strings.TrimSpace(string(d.Body))) == 0 {
		return out, xerrors.New("empty body")
	}
	if err := json.Unmarshal(d.Body, &out); err != nil {
		return out, xerrors.Errorf("invalid JSON body: %w", err)
	}
	return out, nil
}
