package pipelines

import (
	"fmt"
	"net/http"

	"relay/internal/config"
	"relay/internal/connector"
	"relay/internal/either"
	"relay/internal/github"
	"relay/internal/slack"
	"relay/internal/transport"
	"relay/internal/webhook"
)

type (
	GitHubFindConnector = connector.Connector[slack.SlashCommand, slack.Response, github.Search, github.SearchResult]
	GitHubPushConnector = connector.Connector[github.PushDelivery, webhook.Reply, slack.Message, slack.Ack]
)

// NewGitHubFind builds the GitHub issue search command.
func NewGitHubFind(reg config.Registry) (*GitHubFindConnector, error) {
	return connector.New(reg, connector.Slots[slack.SlashCommand, slack.Response, github.Search, github.SearchResult]{
		Name:  GitHubFind,
		Check: verifySlack,
		Request: connector.SyncRequest(func(_ *connector.Runtime, cmd slack.SlashCommand) either.Either[slack.Response, github.Search] {
			if cmd.Text == "" || cmd.Text == "help" {
				return either.Left[slack.Response, github.Search](usage(GitHubFind))
			}
			return either.Right[slack.Response](github.Search{Query: cmd.Text})
		}),
		Call: connector.HTTPCall(
			func(rt *connector.Runtime, s github.Search) (transport.Request, error) { return s.Request(rt.Env) },
			github.DecodeSearch,
			failSlack("GitHub"),
		),
		Response: renderSearch,
		Instant:  ackSlack,
	})
}

func renderSearch(res github.SearchResult) slack.Response {
	if len(res.Items) == 0 {
		return slack.Ephemeral("Nothing found.")
	}

	resp := slack.InChannel("Showing %d of %d %s.", len(res.Items), res.TotalCount, plural(res.TotalCount, "result"))
	for _, item := range res.Items {
		kind := "issue"
		if item.IsPullRequest() {
			kind = "pull request"
		}
		color := "good"
		if item.State == "closed" {
			color = "#cccccc"
		}
		resp.Attachments = append(resp.Attachments, slack.Attachment{
			Fallback:  item.HTMLURL,
			Color:     color,
			Title:     fmt.Sprintf("#%d %s", item.Number, item.Title),
			TitleLink: item.HTMLURL,
			Text:      fmt.Sprintf("%s, %s", kind, item.State),
		})
	}
	return resp
}

// NewGitHubPush builds the push hook: verified GitHub pushes are announced
// through a Slack incoming webhook.
func NewGitHubPush(reg config.Registry) (*GitHubPushConnector, error) {
	return connector.New(reg, connector.Slots[github.PushDelivery, webhook.Reply, slack.Message, slack.Ack]{
		Name:  GitHubPush,
		Check: checkPush,
		Request: connector.SyncRequest(func(_ *connector.Runtime, d github.PushDelivery) either.Either[webhook.Reply, slack.Message] {
			ev, err := github.DecodePush(d.Body)
			if err != nil {
				return either.Left[webhook.Reply, slack.Message](webhook.Failed(http.StatusBadRequest, "%v", err))
			}
			if ev.Deleted || ev.Branch() == "" {
				return either.Left[webhook.Reply, slack.Message](webhook.Ignored("%s is not a branch update", ev.Ref))
			}
			return either.Right[webhook.Reply](pushMessage(ev))
		}),
		Call: connector.HTTPCall(
			func(rt *connector.Runtime, m slack.Message) (transport.Request, error) { return m.Request(rt.Env) },
			slack.DecodeAck,
			func(err error) webhook.Reply {
				return webhook.Failed(http.StatusBadGateway, "posting to Slack: %v", err)
			},
		),
		Response: func(slack.Ack) webhook.Reply { return webhook.OK("posted to Slack") },
	})
}

func checkPush(rt *connector.Runtime, d github.PushDelivery) (webhook.Reply, bool) {
	if err := d.Verify(rt.Env); err != nil {
		return webhook.Failed(http.StatusUnauthorized, "%v", err), true
	}
	switch d.Event {
	case github.EventPush:
		return webhook.Reply{}, false
	case github.EventPing:
		return webhook.OK("pong"), true
	}
	return webhook.Ignored("event %q is not handled", d.Event), true
}

func pushMessage(ev github.PushEvent) slack.Message {
	msg := slack.Message{
		Text: fmt.Sprintf("*%s* pushed %d %s to `%s` on <%s|%s>",
			ev.Pusher.Name, len(ev.Commits), plural(len(ev.Commits), "commit"),
			ev.Branch(), ev.Compare, ev.Repository.FullName),
	}
	for _, c := range ev.Commits {
		id := c.ID
		if len(id) > 7 {
			id = id[:7]
		}
		msg.Attachments = append(msg.Attachments, slack.Attachment{
			Fallback: c.Short(),
			Text:     fmt.Sprintf("<%s|%s> %s (%s)", c.URL, id, c.Short(), c.Author.Name),
		})
	}
	return msg
}
