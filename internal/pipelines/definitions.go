// Package pipelines wires the concrete connectors relay ships with and
// assembles them into the command and hook catalog the server dispatches
// to.
package pipelines

import (
	"relay/internal/circleci"
	"relay/internal/config"
	"relay/internal/connector"
	"relay/internal/github"
	"relay/internal/slack"
	"relay/internal/webhook"
	"relay/internal/youtrack"
)

const (
	KindCommand = "command"
	KindHook    = "hook"
)

const (
	Deploy       = "deploy"
	DeployHook   = "deploy-hook"
	YouTrackFind = "youtrack-find"
	Issue        = "issue"
	GitHubFind   = "github-find"
	GitHubPush   = "github-push"
)

// Definition describes a pipeline without building it.
type Definition struct {
	Name        string        `json:"name"`
	Kind        string        `json:"kind"`
	Usage       string        `json:"usage"`
	Description string        `json:"description"`
	From        config.KeySet `json:"from_keys"`
	To          config.KeySet `json:"to_keys"`

	// Base names the pipeline this one is derived from. It is built too.
	Base string `json:"base,omitempty"`
}

var definitions = []Definition{
	{
		Name:        Deploy,
		Kind:        KindCommand,
		Usage:       "/deploy <org/repo> [branch] [name=value ...]",
		Description: "Trigger a CircleCI pipeline from Slack.",
		From:        connector.KeysOf[slack.SlashCommand](),
		To:          connector.KeysOf[circleci.Trigger](),
	},
	{
		Name:        DeployHook,
		Kind:        KindHook,
		Usage:       `POST {"project": "org/repo", "branch": "main", "parameters": {}}`,
		Description: "Trigger a CircleCI pipeline from an authenticated HTTP hook.",
		From:        connector.KeysOf[webhook.Delivery](),
		To:          connector.KeysOf[circleci.Trigger](),
		Base:        Deploy,
	},
	{
		Name:        YouTrackFind,
		Kind:        KindCommand,
		Usage:       "/youtrack <query>",
		Description: "Search YouTrack issues.",
		From:        connector.KeysOf[slack.SlashCommand](),
		To:          connector.KeysOf[youtrack.Search](),
	},
	{
		Name:        Issue,
		Kind:        KindCommand,
		Usage:       "/issue <ID-123>",
		Description: "Show a single YouTrack issue.",
		From:        connector.KeysOf[slack.SlashCommand](),
		To:          connector.KeysOf[youtrack.IssueRef](),
		Base:        YouTrackFind,
	},
	{
		Name:        GitHubFind,
		Kind:        KindCommand,
		Usage:       "/github <search query>",
		Description: "Search GitHub issues and pull requests.",
		From:        connector.KeysOf[slack.SlashCommand](),
		To:          connector.KeysOf[github.Search](),
	},
	{
		Name:        GitHubPush,
		Kind:        KindHook,
		Usage:       "GitHub push webhook (content type application/json)",
		Description: "Announce GitHub pushes in a Slack channel.",
		From:        connector.KeysOf[github.PushDelivery](),
		To:          connector.KeysOf[slack.Message](),
	},
}

// Definitions returns every known pipeline.
func Definitions() []Definition {
	return append([]Definition(nil), definitions...)
}

// Lookup returns the definition named name.
func Lookup(name string) (Definition, bool) {
	for _, d := range definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// RequiredKeys is every configuration key the pipeline needs to build,
// including those of its base.
func (d Definition) RequiredKeys() config.KeySet {
	keys := append(append(config.KeySet{}, d.From...), d.To...)
	if base, ok := Lookup(d.Base); ok && d.Base != "" {
		keys = append(keys, base.RequiredKeys()...)
	}
	return config.Keys(keys...)
}
