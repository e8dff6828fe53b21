package pipelines

import (
	"context"
	"net/http"

	"relay/internal/circleci"
	"relay/internal/config"
	"relay/internal/connector"
	"relay/internal/either"
	"relay/internal/slack"
	"relay/internal/transport"
	"relay/internal/webhook"
)

type (
	DeployConnector     = connector.Connector[slack.SlashCommand, slack.Response, circleci.Trigger, circleci.Pipeline]
	DeployHookConnector = connector.Connector[webhook.Delivery, webhook.Reply, circleci.Trigger, circleci.Pipeline]
)

// NewDeploy builds the deploy command: a slash command triggers a CircleCI
// pipeline.
func NewDeploy(reg config.Registry) (*DeployConnector, error) {
	return connector.New(reg, connector.Slots[slack.SlashCommand, slack.Response, circleci.Trigger, circleci.Pipeline]{
		Name:  Deploy,
		Check: verifySlack,
		Request: connector.SyncRequest(func(_ *connector.Runtime, cmd slack.SlashCommand) either.Either[slack.Response, circleci.Trigger] {
			args := cmd.Args()
			if len(args) == 0 || args[0] == "help" {
				return either.Left[slack.Response, circleci.Trigger](usage(Deploy))
			}
			t, err := circleci.ParseTrigger(args)
			if err != nil {
				d, _ := Lookup(Deploy)
				return either.Left[slack.Response, circleci.Trigger](slack.Ephemeral("%v. Usage: `%s`", err, d.Usage))
			}
			return either.Right[slack.Response](t)
		}),
		Call:     connector.HTTPCall(triggerRequest, circleci.Decode, failSlack("CircleCI")),
		Response: deployResponse,
		Instant:  ackSlack,
	})
}

func triggerRequest(rt *connector.Runtime, t circleci.Trigger) (transport.Request, error) {
	return t.Request(rt.Env)
}

func deployResponse(p circleci.Pipeline) slack.Response {
	resp := slack.InChannel("Pipeline #%d for %s is %s.", p.Number, p.Project, p.State)
	resp.Attachments = []slack.Attachment{{
		Fallback:  p.URL(),
		Color:     "good",
		Title:     p.Project,
		TitleLink: p.URL(),
		Fields: []slack.Field{
			{Title: "Number", Value: itoa(p.Number), Short: true},
			{Title: "ID", Value: p.ID, Short: true},
		},
	}}
	return resp
}

type deployHookBody struct {
	Project    string         `json:"project"`
	Branch     string         `json:"branch"`
	Parameters map[string]any `json:"parameters"`
}

// NewDeployHook puts an authenticated HTTP hook in front of deploy's
// CircleCI call.
func NewDeployHook(reg config.Registry, deploy *DeployConnector) (*DeployHookConnector, error) {
	return connector.TransformFrom(reg, deploy,
		connector.Head[webhook.Delivery, webhook.Reply, circleci.Trigger]{
			Name:  DeployHook,
			Check: authorizeHook,
			Request: connector.SyncRequest(func(_ *connector.Runtime, d webhook.Delivery) either.Either[webhook.Reply, circleci.Trigger] {
				body, err := webhook.Decode[deployHookBody](d)
				if err != nil {
					return either.Left[webhook.Reply, circleci.Trigger](webhook.Failed(http.StatusBadRequest, "%v", err))
				}
				slug, err := circleci.Slug(body.Project)
				if err != nil {
					return either.Left[webhook.Reply, circleci.Trigger](webhook.Failed(http.StatusBadRequest, "%v", err))
				}
				return either.Right[webhook.Reply](circleci.Trigger{
					Project:    slug,
					Branch:     body.Branch,
					Parameters: body.Parameters,
				})
			}),
			Instant: acceptHook,
		},
		func(p circleci.Pipeline) webhook.Reply {
			r := webhook.OK("pipeline #%d created for %s", p.Number, p.Project)
			r.Items = []string{p.URL()}
			return r
		},
		func(r slack.Response) webhook.Reply {
			return webhook.Failed(http.StatusBadGateway, "%s", r.Text)
		},
	)
}

func authorizeHook(rt *connector.Runtime, d webhook.Delivery) (webhook.Reply, bool) {
	if d.Authorized(rt.Env) {
		return webhook.Reply{}, false
	}
	return webhook.Failed(http.StatusUnauthorized, "unauthorized"), true
}

func acceptHook(context.Context, *connector.Runtime, webhook.Delivery) webhook.Reply {
	return webhook.Reply{Status: webhook.StatusOK, Text: "accepted", Code: http.StatusAccepted}
}
