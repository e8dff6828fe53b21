package pipelines

import (
	"fmt"
	"strconv"

	"relay/internal/config"
	"relay/internal/connector"
	"relay/internal/either"
	"relay/internal/slack"
	"relay/internal/transport"
	"relay/internal/youtrack"
)

type (
	YouTrackFindConnector = connector.Connector[slack.SlashCommand, slack.Response, youtrack.Search, youtrack.Issues]
	IssueConnector        = connector.Connector[slack.SlashCommand, slack.Response, youtrack.IssueRef, youtrack.Issues]
)

// NewYouTrackFind builds the YouTrack search command.
func NewYouTrackFind(reg config.Registry) (*YouTrackFindConnector, error) {
	return connector.New(reg, connector.Slots[slack.SlashCommand, slack.Response, youtrack.Search, youtrack.Issues]{
		Name:  YouTrackFind,
		Check: verifySlack,
		Request: connector.SyncRequest(func(rt *connector.Runtime, cmd slack.SlashCommand) either.Either[slack.Response, youtrack.Search] {
			if cmd.Text == "" || cmd.Text == "help" {
				return either.Left[slack.Response, youtrack.Search](usage(YouTrackFind))
			}
			host, _ := rt.Env.Get(youtrack.KeyHost)
			return either.Right[slack.Response](youtrack.Search{Host: host, Query: cmd.Text})
		}),
		Call: connector.HTTPCall(
			func(rt *connector.Runtime, s youtrack.Search) (transport.Request, error) { return s.Request(rt.Env) },
			youtrack.DecodeSearch,
			failSlack("YouTrack"),
		),
		Response: renderIssues,
		Instant:  ackSlack,
	})
}

// NewIssue reuses find's origin handling to fetch a single issue.
func NewIssue(reg config.Registry, find *YouTrackFindConnector) (*IssueConnector, error) {
	return connector.TransformTo(reg, find, connector.Tail[slack.SlashCommand, slack.Response, youtrack.IssueRef, youtrack.Issues]{
		Name: Issue,
		Request: connector.SyncRequest(func(rt *connector.Runtime, cmd slack.SlashCommand) either.Either[slack.Response, youtrack.IssueRef] {
			args := cmd.Args()
			if len(args) != 1 || args[0] == "help" {
				return either.Left[slack.Response, youtrack.IssueRef](usage(Issue))
			}
			host, _ := rt.Env.Get(youtrack.KeyHost)
			ref, err := youtrack.ParseIssueRef(host, args[0])
			if err != nil {
				return either.Left[slack.Response, youtrack.IssueRef](slack.Ephemeral("%v", err))
			}
			return either.Right[slack.Response](ref)
		}),
		Call: connector.HTTPCall(
			func(rt *connector.Runtime, r youtrack.IssueRef) (transport.Request, error) { return r.Request(rt.Env) },
			youtrack.DecodeIssue,
			failSlack("YouTrack"),
		),
		Response: renderIssues,
	})
}

func renderIssues(is youtrack.Issues) slack.Response {
	if len(is.Items) == 0 {
		return slack.Ephemeral("No issues found.")
	}

	resp := slack.InChannel("Found %d %s.", len(is.Items), plural(len(is.Items), "issue"))
	for _, i := range is.Items {
		color, state := "warning", "open"
		if i.IsResolved() {
			color, state = "good", "resolved"
		}
		resp.Attachments = append(resp.Attachments, slack.Attachment{
			Fallback:  i.ID + " " + i.Summary,
			Color:     color,
			Title:     fmt.Sprintf("%s %s", i.ID, i.Summary),
			TitleLink: is.URL(i),
			Text:      state,
		})
	}
	return resp
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func itoa(n int) string { return strconv.Itoa(n) }
