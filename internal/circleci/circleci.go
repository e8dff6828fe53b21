// Package circleci triggers CircleCI pipelines through the v2 API.
package circleci

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/xerrors"

	"relay/internal/config"
	"relay/internal/transport"
)

const (
	KeyToken = "CIRCLECI_TOKEN"

	// KeyHost optionally overrides DefaultHost. It is not part of the
	// required key set.
	KeyHost     = "CIRCLECI_HOST"
	DefaultHost = "circleci.com"
	AppHost     = "app.circleci.com"
)

var vcsNames = map[string]string{
	"gh":       "github",
	"github":   "github",
	"bb":       "bitbucket",
	"circleci": "circleci",
}

// Trigger requests a new pipeline for a project.
type Trigger struct {
	// Project is a project slug such as "gh/org/repo".
	Project    string         `json:"-"`
	Branch     string         `json:"branch,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

func (Trigger) ConfigKeys() config.KeySet { return config.Keys(KeyToken) }

// ParseTrigger reads a Trigger from command arguments of the form
//
//	<org/repo | vcs/org/repo> [branch] [name=value ...]
//
// Parameter values "true" and "false" become booleans and integers become
// numbers; everything else is kept as a string.
func ParseTrigger(args []string) (Trigger, error) {
	if len(args) == 0 {
		return Trigger{}, xerrors.New("missing project")
	}

	project, err := Slug(args[0])
	if err != nil {
		return Trigger{}, err
	}
	t := Trigger{Project: project}

	rest := args[1:]
	if len(rest) > 0 && !strings.Contains(rest[0], "=") {
		t.Branch = rest[0]
		rest = rest[1:]
	}

	for _, arg := range rest {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return Trigger{}, xerrors.Errorf("invalid parameter %q, want name=value", arg)
		}
		if t.Parameters == nil {
			t.Parameters = make(map[string]any)
		}
		t.Parameters[name] = parseValue(value)
	}
	return t, nil
}

func parseValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return b
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

// Slug normalizes a project reference. "org/repo" is taken to be a GitHub
// project.
func Slug(project string) (string, error) {
	parts := strings.Split(strings.Trim(project, "/"), "/")
	for _, p := range parts {
		if p == "" {
			return "", xerrors.Errorf("invalid project %q", project)
		}
	}
	switch len(parts) {
	case 2:
		return "gh/" + parts[0] + "/" + parts[1], nil
	case 3:
		if _, ok := vcsNames[parts[0]]; !ok {
			return "", xerrors.Errorf("invalid project %q: unknown vcs %q", project, parts[0])
		}
		return strings.Join(parts, "/"), nil
	}
	return "", xerrors.Errorf("invalid project %q, want org/repo", project)
}

// Request builds the pipeline trigger call.
func (t Trigger) Request(reg config.Registry) (transport.Request, error) {
	token, ok := reg.Get(KeyToken)
	if !ok || token == "" {
		return transport.Request{}, xerrors.Errorf("circleci: %s is not set", KeyToken)
	}
	if t.Project == "" {
		return transport.Request{}, xerrors.New("circleci: trigger has no project")
	}

	host := DefaultHost
	if h, ok := reg.Get(KeyHost); ok && h != "" {
		host = h
	}

	req := transport.Request{
		Host:   host,
		Path:   "/api/v2/project/" + t.Project + "/pipeline",
		Method: http.MethodPost,
		Header: http.Header{
			"Circle-Token": {token},
			"Accept":       {"application/json"},
		},
	}
	return req.WithJSON(t)
}

// Pipeline is CircleCI's answer to a trigger.
type Pipeline struct {
	ID        string    `json:"id"`
	Number    int       `json:"number"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`

	// Project is copied from the trigger by Decode.
	Project string `json:"-"`
}

// Decode reads the pipeline created for t.
func Decode(t Trigger, res transport.Result) (Pipeline, error) {
	p, err := transport.DecodeJSON[Pipeline](res)
	if err != nil {
		return Pipeline{}, err
	}
	p.Project = t.Project
	return p, nil
}

// URL links to the pipeline in the CircleCI web app.
func (p Pipeline) URL() string {
	parts := strings.SplitN(p.Project, "/", 2)
	if len(parts) != 2 {
		return ""
	}
	vcs, ok := vcsNames[parts[0]]
	if !ok {
		vcs = parts[0]
	}
	return "https://" + AppHost + "/pipelines/" + vcs + "/" + parts[1] + "/" + strconv.Itoa(p.Number)
}
