package pipelines

import (
	"context"

	"relay/internal/connector"
	"relay/internal/slack"
)

func verifySlack(rt *connector.Runtime, cmd slack.SlashCommand) (slack.Response, bool) {
	if cmd.Verify(rt.Env) {
		return slack.Response{}, false
	}
	return slack.Ephemeral("Sorry, this request could not be verified."), true
}

func ackSlack(_ context.Context, _ *connector.Runtime, cmd slack.SlashCommand) slack.Response {
	return slack.Ephemeral("Working on `%s %s`...", cmd.Command, cmd.Text)
}

func failSlack(service string) func(error) slack.Response {
	return func(err error) slack.Response {
		return slack.Ephemeral("%s request failed: %v", service, err)
	}
}

func usage(name string) slack.Response {
	d, _ := Lookup(name)
	return slack.Ephemeral("Usage: `%s`", d.Usage)
}
