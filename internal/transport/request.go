package transport

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/xerrors"
)

// Request describes one downstream HTTP interaction.
type Request struct {
	// Host is either a bare host name ("api.github.com"), which is reached
	// over https, or a base URL carrying its own scheme.
	Host   string
	Path   string
	Method string
	Header http.Header
	Query  url.Values
	Body   []byte

	// Token, when set, is sent as an Authorization header.
	Token *oauth2.Token
}

// URL renders the absolute request URL.
func (r Request) URL() (string, error) {
	if r.Host == "" {
		return "", xerrors.New("transport: request has no host")
	}

	base := r.Host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", xerrors.Errorf("transport: invalid host %q: %w", r.Host, err)
	}

	if r.Path != "" {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(r.Path, "/")
	}
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}
	return u.String(), nil
}

// WithJSON returns a copy of r carrying v encoded as a JSON body.
func (r Request) WithJSON(v any) (Request, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return r, xerrors.Errorf("transport: encoding body: %w", err)
	}

	header := r.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set("Content-Type", "application/json")

	r.Header = header
	r.Body = data
	return r, nil
}

// NewPost builds a JSON POST to an absolute URL, as used for callback
// addresses supplied by callers.
func NewPost(rawURL string, v any) (Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Request{}, xerrors.Errorf("transport: invalid url %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Request{}, xerrors.Errorf("transport: url %q is not absolute", rawURL)
	}

	// the parsed address is the base, so nothing in it is re-encoded
	u.Fragment = ""
	req := Request{
		Host:   u.String(),
		Method: http.MethodPost,
	}
	return req.WithJSON(v)
}
