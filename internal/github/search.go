// Package github searches issues through the GitHub REST API and reads
// push deliveries sent by repository webhooks.
package github

import (
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/xerrors"

	"relay/internal/config"
	"relay/internal/transport"
)

const (
	KeyToken = "GITHUB_TOKEN"

	// KeyAPIHost optionally overrides DefaultAPIHost, e.g. for GitHub
	// Enterprise. It is not part of the required key set.
	KeyAPIHost     = "GITHUB_API_HOST"
	DefaultAPIHost = "api.github.com"

	DefaultPerPage = 10
)

// Search is an issue and pull request search.
type Search struct {
	Query   string
	PerPage int
}

func (Search) ConfigKeys() config.KeySet { return config.Keys(KeyToken) }

// Request builds the search call.
func (s Search) Request(reg config.Registry) (transport.Request, error) {
	token, ok := reg.Get(KeyToken)
	if !ok || token == "" {
		return transport.Request{}, xerrors.Errorf("github: %s is not set", KeyToken)
	}
	if s.Query == "" {
		return transport.Request{}, xerrors.New("github: empty search query")
	}

	host := DefaultAPIHost
	if h, ok := reg.Get(KeyAPIHost); ok && h != "" {
		host = h
	}
	perPage := s.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	return transport.Request{
		Host:   host,
		Path:   "/search/issues",
		Method: http.MethodGet,
		Header: http.Header{
			"Accept":               {"application/vnd.github+json"},
			"X-Github-Api-Version": {"2022-11-28"},
		},
		Query: url.Values{
			"q":        {s.Query},
			"per_page": {strconv.Itoa(perPage)},
		},
		Token: &oauth2.Token{AccessToken: token, TokenType: "Bearer"},
	}, nil
}

type SearchResult struct {
	TotalCount int         `json:"total_count"`
	Incomplete bool        `json:"incomplete_results"`
	Items      []IssueItem `json:"items"`
}

type IssueItem struct {
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	State       string    `json:"state"`
	HTMLURL     string    `json:"html_url"`
	User        User      `json:"user"`
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

type User struct {
	Login string `json:"login"`
}

// IsPullRequest reports whether the item is a pull request rather than an
// issue.
func (i IssueItem) IsPullRequest() bool { return i.PullRequest != nil }

// DecodeSearch reads a search result.
func DecodeSearch(_ Search, res transport.Result) (SearchResult, error) {
	return transport.DecodeJSON[SearchResult](res)
}
