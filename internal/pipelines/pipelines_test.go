package pipelines

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"relay/internal/async"
	"relay/internal/circleci"
	"relay/internal/config"
	"relay/internal/connector"
	"relay/internal/github"
	"relay/internal/slack"
	"relay/internal/types"
	"relay/internal/webhook"
	"relay/internal/youtrack"
)

// fake serves every downstream API the pipelines talk to and records what
// was posted to the Slack webhook and to callbacks.
type fake struct {
	*httptest.Server

	mu        sync.Mutex
	posted    []string
	callbacks []string
}

func (f *fake) record(list *[]string, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	*list = append(*list, string(data))
}

func (f *fake) Posted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.posted...)
}

func (f *fake) Callbacks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.callbacks...)
}

func newFake(t *testing.T) *fake {
	t.Helper()
	f := &fake{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/project/gh/org/repo/pipeline", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Circle-Token") != "cci" {
			http.Error(w, `{"message":"Permission denied"}`, http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":"p-1","number":42,"state":"created","created_at":"2024-05-01T10:00:00Z"}`)
	})
	mux.HandleFunc("/api/v2/project/gh/org/broken/pipeline", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Project not found"}`, http.StatusNotFound)
	})
	mux.HandleFunc("/api/issues", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"idReadable":"ABC-1","summary":"Login fails","resolved":null}]`)
	})
	mux.HandleFunc("/api/issues/ABC-7", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"idReadable":"ABC-7","summary":"Done already","resolved":1714557600000}`)
	})
	mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"total_count":1,"items":[{"number":9,"title":"Flaky test","state":"open","html_url":"https://github.com/org/repo/issues/9"}]}`)
	})
	mux.HandleFunc("/slack/webhook", func(w http.ResponseWriter, r *http.Request) {
		f.record(&f.posted, r)
		io.WriteString(w, "ok")
	})
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		f.record(&f.callbacks, r)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fake) registry() *config.Map {
	return config.NewMap(map[string]string{
		slack.KeyVerificationToken: "slack-tok",
		slack.KeyWebhookURL:        f.URL + "/slack/webhook",
		circleci.KeyToken:          "cci",
		circleci.KeyHost:           f.URL,
		youtrack.KeyHost:           f.URL,
		youtrack.KeyToken:          "perm:yt",
		github.KeyToken:            "ghp",
		github.KeyAPIHost:          f.URL,
		github.KeyWebhookSecret:    "gh-secret",
		webhook.KeySharedSecret:    "hook-secret",
	})
}

func allRoutes() *types.RouteFile {
	return &types.RouteFile{
		Commands: []types.CommandRoute{
			{Command: "/deploy", Pipelines: []string{Deploy}},
			{Command: "/youtrack", Pipelines: []string{YouTrackFind}},
			{Command: "/issue", Pipelines: []string{Issue}},
			{Command: "/github", Pipelines: []string{GitHubFind}},
			{Command: "/find", Pipelines: []string{YouTrackFind, GitHubFind}},
		},
		Hooks: []types.HookRoute{
			{Name: "deploy", Pipeline: DeployHook},
			{Name: "github", Pipeline: GitHubPush},
		},
	}
}

func setup(t *testing.T) (*fake, *Catalog, *connector.Runtime, *async.Group) {
	t.Helper()
	f := newFake(t)
	reg := f.registry()
	cat, err := Build(reg, allRoutes())
	require.NoError(t, err)

	g := &async.Group{}
	return f, cat, &connector.Runtime{Env: reg, Scheduler: g}, g
}

func slash(command, text string) slack.SlashCommand {
	return slack.SlashCommand{Token: "slack-tok", Command: command, Text: text, UserName: "ada"}
}

func runCommand(t *testing.T, cat *Catalog, rt *connector.Runtime, sc slack.SlashCommand) slack.Response {
	t.Helper()
	cmd, ok := cat.Command(sc.Name())
	require.True(t, ok, "command %s", sc.Command)
	return cmd.Run(context.Background(), rt, sc).Get()
}

func TestDeploy(t *testing.T) {
	_, cat, rt, g := setup(t)
	defer g.Wait()

	resp := runCommand(t, cat, rt, slash("/deploy", "org/repo main env=prod"))
	require.Equal(t, slack.ResponseInChannel, resp.ResponseType)
	require.Equal(t, "Pipeline #42 for gh/org/repo is created.", resp.Text)
	require.Equal(t, "https://app.circleci.com/pipelines/github/org/repo/42", resp.Attachments[0].TitleLink)

	resp = runCommand(t, cat, rt, slash("/deploy", ""))
	require.Equal(t, "Usage: `/deploy <org/repo> [branch] [name=value ...]`", resp.Text)

	resp = runCommand(t, cat, rt, slash("/deploy", "repo"))
	require.Contains(t, resp.Text, `invalid project "repo"`)

	resp = runCommand(t, cat, rt, slash("/deploy", "org/broken"))
	require.Equal(t, slack.ResponseEphemeral, resp.ResponseType)
	require.Contains(t, resp.Text, "CircleCI request failed: unexpected status 404")

	bad := slash("/deploy", "org/repo")
	bad.Token = "forged"
	resp = runCommand(t, cat, rt, bad)
	require.Equal(t, "Sorry, this request could not be verified.", resp.Text)
}

func TestDeployDeferred(t *testing.T) {
	f, cat, rt, g := setup(t)

	sc := slash("/deploy", "org/repo")
	sc.ResponseURL = f.URL + "/callback"

	resp := runCommand(t, cat, rt, sc)
	require.Equal(t, "Working on `/deploy org/repo`...", resp.Text)

	g.Wait()
	callbacks := f.Callbacks()
	require.Len(t, callbacks, 1)

	var delivered slack.Response
	require.NoError(t, json.Unmarshal([]byte(callbacks[0]), &delivered))
	require.Equal(t, "Pipeline #42 for gh/org/repo is created.", delivered.Text)
}

func TestYouTrackAndIssue(t *testing.T) {
	f, cat, rt, g := setup(t)
	defer g.Wait()

	resp := runCommand(t, cat, rt, slash("/youtrack", "login"))
	require.Equal(t, "Found 1 issue.", resp.Text)
	require.Equal(t, "ABC-1 Login fails", resp.Attachments[0].Title)
	require.Equal(t, f.URL+"/issue/ABC-1", resp.Attachments[0].TitleLink)

	resp = runCommand(t, cat, rt, slash("/issue", "abc-7"))
	require.Equal(t, "resolved", resp.Attachments[0].Text)

	resp = runCommand(t, cat, rt, slash("/issue", "two words"))
	require.Equal(t, "Usage: `/issue <ID-123>`", resp.Text)
}

func TestFindFansOut(t *testing.T) {
	_, cat, rt, g := setup(t)
	defer g.Wait()

	resp := runCommand(t, cat, rt, slash("/find", "flaky"))
	require.Equal(t, "Found 1 issue.\nShowing 1 of 1 result.", resp.Text)
	require.Len(t, resp.Attachments, 2)
	require.Equal(t, "ABC-1 Login fails", resp.Attachments[0].Title)
	require.Equal(t, "#9 Flaky test", resp.Attachments[1].Title)

	resp = runCommand(t, cat, rt, slash("/find", ""))
	require.Equal(t, "Usage: `/youtrack <query>`\nUsage: `/github <search query>`", resp.Text)
}

func TestDeployHook(t *testing.T) {
	_, cat, rt, g := setup(t)
	defer g.Wait()

	h, ok := cat.Hook("deploy")
	require.True(t, ok)

	d := webhook.Delivery{
		Name:   "deploy",
		Header: http.Header{webhook.TokenHeader: {"hook-secret"}},
		Body:   []byte(`{"project":"org/repo","branch":"main"}`),
	}
	reply := h.Handle(context.Background(), rt, d).Get()
	require.Equal(t, webhook.StatusOK, reply.Status)
	require.Equal(t, "pipeline #42 created for gh/org/repo", reply.Text)

	d.Body = []byte(`{"project":"org/broken"}`)
	reply = h.Handle(context.Background(), rt, d).Get()
	require.Equal(t, http.StatusBadGateway, reply.HTTPStatus())
	require.Contains(t, reply.Text, "CircleCI request failed")

	d.Body = []byte(`not json`)
	reply = h.Handle(context.Background(), rt, d).Get()
	require.Equal(t, http.StatusBadRequest, reply.HTTPStatus())

	d.Header = http.Header{}
	reply = h.Handle(context.Background(), rt, d).Get()
	require.Equal(t, http.StatusUnauthorized, reply.HTTPStatus())
}

func TestGitHubPush(t *testing.T) {
	f, cat, rt, g := setup(t)
	defer g.Wait()

	h, ok := cat.Hook("github")
	require.True(t, ok)

	deliver := func(event, body string) webhook.Reply {
		d := webhook.Delivery{
			Name:  "github",
			Event: event,
			Header: http.Header{
				github.SignatureHeader: {github.Sign([]byte("gh-secret"), []byte(body))},
			},
			Body: []byte(body),
		}
		return h.Handle(context.Background(), rt, d).Get()
	}

	push := `{"ref":"refs/heads/main","compare":"https://github.com/org/repo/compare/a...b",
		"repository":{"full_name":"org/repo"},"pusher":{"name":"ada"},
		"commits":[{"id":"0123456789abcdef","message":"Fix build\n\ndetails","url":"https://github.com/org/repo/commit/0123456","author":{"name":"Ada"}}]}`

	reply := deliver(github.EventPush, push)
	require.Equal(t, webhook.OK("posted to Slack"), reply)

	posted := f.Posted()
	require.Len(t, posted, 1)
	require.Contains(t, posted[0], "*ada* pushed 1 commit to `main`")
	require.Contains(t, posted[0], "0123456")

	require.Equal(t, "pong", deliver(github.EventPing, `{}`).Text)
	require.Equal(t, webhook.StatusIgnored, deliver("issues", `{}`).Status)
	require.Equal(t, webhook.StatusIgnored, deliver(github.EventPush, `{"ref":"refs/tags/v1"}`).Status)

	forged := webhook.Delivery{Event: github.EventPush, Header: http.Header{}, Body: []byte(push)}
	reply = h.Handle(context.Background(), rt, forged).Get()
	require.Equal(t, http.StatusUnauthorized, reply.HTTPStatus())
	require.Len(t, f.Posted(), 1)
}

func TestBuildReportsEveryProblem(t *testing.T) {
	reg := config.NewMap(map[string]string{slack.KeyVerificationToken: "x"})
	routes := &types.RouteFile{
		Commands: []types.CommandRoute{
			{Command: "/deploy", Pipelines: []string{Deploy}},
			{Command: "/mystery", Pipelines: []string{"nope"}},
			{Command: "/push", Pipelines: []string{GitHubPush}},
		},
		Hooks: []types.HookRoute{
			{Name: "github", Pipeline: GitHubPush},
		},
	}

	_, err := Build(reg, routes)
	require.Error(t, err)
	msg := err.Error()
	require.Contains(t, msg, circleci.KeyToken)
	require.Contains(t, msg, `unknown pipeline "nope"`)
	require.Contains(t, msg, `pipeline "github-push" is a hook, not a command`)
	require.Contains(t, msg, github.KeyWebhookSecret)
	require.Contains(t, msg, slack.KeyWebhookURL)

	var missing *config.ToMissingError
	require.ErrorAs(t, err, &missing)
}

func TestBuildSharesBaseConnectors(t *testing.T) {
	f := newFake(t)
	cat, err := Build(f.registry(), &types.RouteFile{
		Commands: []types.CommandRoute{
			{Command: "/deploy", Pipelines: []string{Deploy}},
			{Command: "/ship", Pipelines: []string{Deploy}},
		},
	})
	require.NoError(t, err)

	a, _ := cat.Command("deploy")
	b, _ := cat.Command("ship")
	require.Same(t, a, b)
	require.Equal(t, []string{"deploy", "ship"}, cat.Commands.List())
	require.NoError(t, cat.CheckConfigs(f.registry()))
	require.Error(t, cat.CheckConfigs(config.NewMap(nil)))
}

func TestRunCommand(t *testing.T) {
	_, cat, rt, g := setup(t)
	defer g.Wait()

	resp, err := cat.RunCommand(context.Background(), rt, "/youtrack", "cli", " login ")
	require.NoError(t, err)
	require.Equal(t, "Found 1 issue.", resp.Text)

	_, err = cat.RunCommand(context.Background(), rt, "unknown", "cli", "")
	require.Error(t, err)
}

func TestDefinitions(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 6)

	d, ok := Lookup(Issue)
	require.True(t, ok)
	require.Equal(t, config.Keys(slack.KeyVerificationToken, youtrack.KeyHost, youtrack.KeyToken), d.RequiredKeys())

	d, ok = Lookup(DeployHook)
	require.True(t, ok)
	require.Equal(t, config.Keys(webhook.KeySharedSecret, circleci.KeyToken, slack.KeyVerificationToken), d.RequiredKeys())

	_, ok = Lookup("nope")
	require.False(t, ok)

	for _, d := range defs {
		require.True(t, strings.HasPrefix(d.Usage, "/") == (d.Kind == KindCommand), d.Name)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry[int]("thing")
	require.NoError(t, r.Register("b", 2))
	require.NoError(t, r.Register("a", 1))
	require.ErrorContains(t, r.Register("a", 3), `thing "a" already registered`)
	require.Error(t, r.Register("", 0))

	v, ok := r.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.True(t, r.Has("b"))
	require.False(t, r.Has("c"))
	require.Equal(t, []string{"a", "b"}, r.List())
}
