// Package youtrack queries issues through the YouTrack REST API.
package youtrack

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/xerrors"

	"relay/internal/config"
	"relay/internal/transport"
)

const (
	KeyHost  = "YOUTRACK_HOST"
	KeyToken = "YOUTRACK_TOKEN"

	DefaultTop = 10

	issueFields = "idReadable,summary,resolved,reporter(login)"
)

var issueID = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*-\d+$`)

// Search runs a YouTrack query.
type Search struct {
	Host  string
	Query string
	Top   int
}

func (Search) ConfigKeys() config.KeySet { return config.Keys(KeyHost, KeyToken) }

// IssueRef fetches a single issue by its readable id, e.g. "ABC-123".
type IssueRef struct {
	Host string
	ID   string
}

func (IssueRef) ConfigKeys() config.KeySet { return config.Keys(KeyHost, KeyToken) }

// ParseIssueRef validates id and pairs it with host.
func ParseIssueRef(host, id string) (IssueRef, error) {
	id = strings.TrimSpace(id)
	if !issueID.MatchString(id) {
		return IssueRef{}, xerrors.Errorf("invalid issue id %q, want e.g. ABC-123", id)
	}
	return IssueRef{Host: host, ID: strings.ToUpper(id)}, nil
}

func request(reg config.Registry, host, path string, query url.Values) (transport.Request, error) {
	token, ok := reg.Get(KeyToken)
	if !ok || token == "" {
		return transport.Request{}, xerrors.Errorf("youtrack: %s is not set", KeyToken)
	}
	if host == "" {
		return transport.Request{}, xerrors.Errorf("youtrack: %s is not set", KeyHost)
	}
	return transport.Request{
		Host:   host,
		Path:   path,
		Method: http.MethodGet,
		Header: http.Header{"Accept": {"application/json"}},
		Query:  query,
		Token:  &oauth2.Token{AccessToken: token, TokenType: "Bearer"},
	}, nil
}

// Request builds the search call.
func (s Search) Request(reg config.Registry) (transport.Request, error) {
	top := s.Top
	if top <= 0 {
		top = DefaultTop
	}
	return request(reg, s.Host, "/api/issues", url.Values{
		"query":  {s.Query},
		"fields": {issueFields},
		"$top":   {strconv.Itoa(top)},
	})
}

// Request builds the single issue call.
func (r IssueRef) Request(reg config.Registry) (transport.Request, error) {
	return request(reg, r.Host, "/api/issues/"+url.PathEscape(r.ID), url.Values{
		"fields": {issueFields},
	})
}

type Issue struct {
	ID       string `json:"idReadable"`
	Summary  string `json:"summary"`
	Resolved *int64 `json:"resolved"`
	Reporter *struct {
		Login string `json:"login"`
	} `json:"reporter,omitempty"`
}

// IsResolved reports whether the issue has a resolution timestamp.
func (i Issue) IsResolved() bool { return i.Resolved != nil }

// Issues is a set of issues together with the host they were read from, so
// they can be linked.
type Issues struct {
	Host  string
	Items []Issue
}

// URL links to issue in the YouTrack web UI.
func (is Issues) URL(i Issue) string {
	host := is.Host
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return strings.TrimSuffix(host, "/") + "/issue/" + i.ID
}

// DecodeSearch reads a search result.
func DecodeSearch(s Search, res transport.Result) (Issues, error) {
	items, err := transport.DecodeJSON[[]Issue](res)
	if err != nil {
		return Issues{}, err
	}
	return Issues{Host: s.Host, Items: items}, nil
}

// DecodeIssue reads a single issue.
func DecodeIssue(r IssueRef, res transport.Result) (Issues, error) {
	item, err := transport.DecodeJSON[Issue](res)
	if err != nil {
		return Issues{}, err
	}
	return Issues{Host: r.Host, Items: []Issue{item}}, nil
}
