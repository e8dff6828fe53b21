package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/xerrors"
)

// Result captures the outcome of one downstream call. Err is set when no
// response could be obtained at all.
type Result struct {
	Status   int
	Header   http.Header
	Body     []byte
	Duration time.Duration
	Err      error
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

const maxErrorBody = 256

// ExpectOK returns the transport error, if any, or a *StatusError when the
// response status is not 2xx.
func (r Result) ExpectOK() error {
	if r.Err != nil {
		return r.Err
	}
	if r.Status < 200 || r.Status > 299 {
		body := string(r.Body)
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody] + "..."
		}
		return &StatusError{Status: r.Status, Body: body}
	}
	return nil
}

// DecodeJSON checks r with ExpectOK and decodes its body into a T.
func DecodeJSON[T any](r Result) (T, error) {
	var out T
	if err := r.ExpectOK(); err != nil {
		return out, err
	}
	if err := json.Unmarshal(r.Body, &out); err != nil {
		return out, xerrors.Errorf("decoding response body: %w", err)
	}
	return out, nil
}
