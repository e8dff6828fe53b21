package webhook

import (
	"fmt"
	"net/http"
	"strings"
)

const (
	StatusOK      = "ok"
	StatusIgnored = "ignored"
	StatusError   = "error"
)

// Reply is the JSON answer to a Delivery. Code is the HTTP status the
// server responds with and is not part of the body.
type Reply struct {
	Status string   `json:"status"`
	Text   string   `json:"text,omitempty"`
	Items  []string `json:"items,omitempty"`
	Code   int      `json:"-"`
}

func OK(format string, args ...any) Reply {
	return Reply{Status: StatusOK, Text: fmt.Sprintf(format, args...), Code: http.StatusOK}
}

func Ignored(format string, args ...any) Reply {
	return Reply{Status: StatusIgnored, Text: fmt.Sprintf(format, args...), Code: http.StatusAccepted}
}

func Failed(code int, format string, args ...any) Reply {
	return Reply{Status: StatusError, Text: fmt.Sprintf(format, args...), Code: code}
}

// HTTPStatus returns r.Code, or 200 when it is unset.
func (r Reply) HTTPStatus() int {
	if r.Code == 0 {
		return http.StatusOK
	}
	return r.Code
}

// Concat merges two replies. Texts are joined by a newline, items are
// appended, the worse status wins and the higher code is kept.
func Concat(a, b Reply) Reply {
	out := Reply{
		Status: worse(a.Status, b.Status),
		Text:   joinNonEmpty(a.Text, b.Text),
		Code:   max(a.Code, b.Code),
	}
	out.Items = append(append(out.Items, a.Items...), b.Items...)
	return out
}

func rank(status string) int {
	switch status {
	case StatusError:
		return 2
	case StatusIgnored:
		return 1
	default:
		return 0
	}
}

func worse(a, b string) string {
	if rank(b) > rank(a) {
		return b
	}
	if a == "" {
		return b
	}
	return a
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return strings.Join([]string{a, b}, "\n")
}
