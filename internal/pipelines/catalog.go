package pipelines

import (
	"context"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/xerrors"

	"relay/internal/async"
	"relay/internal/config"
	"relay/internal/connector"
	"relay/internal/github"
	"relay/internal/slack"
	"relay/internal/types"
	"relay/internal/webhook"
)

// Command answers slash commands. Both single connectors and fan-out
// bundles are Commands.
type Command = connector.Pipeline[slack.SlashCommand, slack.Response]

// Hook answers inbound hook deliveries.
type Hook interface {
	Name() string
	Handle(ctx context.Context, rt *connector.Runtime, d webhook.Delivery) *async.Value[webhook.Reply]
	CheckConfigs(reg config.Registry) error
}

type hook[From any] struct {
	pipeline connector.Pipeline[From, webhook.Reply]
	convert  func(webhook.Delivery) From
}

func (h hook[From]) Name() string { return h.pipeline.Name() }

func (h hook[From]) Handle(ctx context.Context, rt *connector.Runtime, d webhook.Delivery) *async.Value[webhook.Reply] {
	return h.pipeline.Run(ctx, rt, h.convert(d))
}

func (h hook[From]) CheckConfigs(reg config.Registry) error { return h.pipeline.CheckConfigs(reg) }

// AsHook exposes a pipeline whose origin can be read from a raw delivery.
func AsHook[From any](p connector.Pipeline[From, webhook.Reply], convert func(webhook.Delivery) From) Hook {
	return hook[From]{pipeline: p, convert: convert}
}

// Catalog holds every routed command and hook.
type Catalog struct {
	Commands *Registry[Command]
	Hooks    *Registry[Hook]
	Routes   types.RouteFile
}

// Command returns the command routed under name, without its slash.
func (c *Catalog) Command(name string) (Command, bool) { return c.Commands.Get(name) }

// Hook returns the hook routed under name.
func (c *Catalog) Hook(name string) (Hook, bool) { return c.Hooks.Get(name) }

// CheckConfigs re-validates every routed pipeline against reg.
func (c *Catalog) CheckConfigs(reg config.Registry) error {
	var err error
	for _, name := range c.Commands.List() {
		cmd, _ := c.Commands.Get(name)
		if cErr := cmd.CheckConfigs(reg); cErr != nil {
			err = multierror.Append(err, xerrors.Errorf("command %q: %w", name, cErr))
		}
	}
	for _, name := range c.Hooks.List() {
		h, _ := c.Hooks.Get(name)
		if hErr := h.CheckConfigs(reg); hErr != nil {
			err = multierror.Append(err, xerrors.Errorf("hook %q: %w", name, hErr))
		}
	}
	return err
}

// Build constructs every pipeline routes refers to. Command routes naming
// several pipelines become fan-out bundles. All construction problems are
// reported together.
func Build(reg config.Registry, routes *types.RouteFile) (*Catalog, error) {
	if routes == nil {
		routes = &types.RouteFile{}
	}
	b := &builder{reg: reg}
	cat := &Catalog{
		Commands: NewRegistry[Command](KindCommand),
		Hooks:    NewRegistry[Hook](KindHook),
		Routes:   *routes,
	}

	var errs error
	for _, route := range routes.Commands {
		cmd, err := b.commandRoute(route)
		if err == nil {
			err = cat.Commands.Register(route.Name(), cmd)
		}
		if err != nil {
			errs = multierror.Append(errs, xerrors.Errorf("command %q: %w", route.Command, err))
		}
	}
	for _, route := range routes.Hooks {
		h, err := b.hook(route.Pipeline)
		if err == nil {
			err = cat.Hooks.Register(route.Name, h)
		}
		if err != nil {
			errs = multierror.Append(errs, xerrors.Errorf("hook %q: %w", route.Name, err))
		}
	}
	if errs != nil {
		return nil, errs
	}
	return cat, nil
}

type lazy[T any] struct {
	done bool
	v    T
	err  error
}

func (l *lazy[T]) get(build func() (T, error)) (T, error) {
	if !l.done {
		l.v, l.err = build()
		l.done = true
	}
	return l.v, l.err
}

// builder constructs each pipeline at most once so that derived pipelines
// and several routes share one connector.
type builder struct {
	reg config.Registry

	deploy     lazy[*DeployConnector]
	deployHook lazy[*DeployHookConnector]
	find       lazy[*YouTrackFindConnector]
	issue      lazy[*IssueConnector]
	githubFind lazy[*GitHubFindConnector]
	githubPush lazy[*GitHubPushConnector]
}

func (b *builder) buildDeploy() (*DeployConnector, error) {
	return b.deploy.get(func() (*DeployConnector, error) { return NewDeploy(b.reg) })
}

func (b *builder) buildFind() (*YouTrackFindConnector, error) {
	return b.find.get(func() (*YouTrackFindConnector, error) { return NewYouTrackFind(b.reg) })
}

func (b *builder) command(name string) (Command, error) {
	switch name {
	case Deploy:
		c, err := b.buildDeploy()
		if err != nil {
			return nil, err
		}
		return c, nil
	case YouTrackFind:
		c, err := b.buildFind()
		if err != nil {
			return nil, err
		}
		return c, nil
	case Issue:
		c, err := b.issue.get(func() (*IssueConnector, error) {
			find, err := b.buildFind()
			if err != nil {
				return nil, xerrors.Errorf("base %q: %w", YouTrackFind, err)
			}
			return NewIssue(b.reg, find)
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case GitHubFind:
		c, err := b.githubFind.get(func() (*GitHubFindConnector, error) { return NewGitHubFind(b.reg) })
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, unknown(name, KindCommand)
}

func (b *builder) commandRoute(route types.CommandRoute) (Command, error) {
	if len(route.Pipelines) == 0 {
		return nil, xerrors.New("no pipelines")
	}

	var (
		members []Command
		errs    error
	)
	for _, name := range route.Pipelines {
		c, err := b.command(name)
		if err != nil {
			errs = multierror.Append(errs, xerrors.Errorf("pipeline %q: %w", name, err))
			continue
		}
		members = append(members, c)
	}
	if errs != nil {
		return nil, errs
	}
	if len(members) == 1 {
		return members[0], nil
	}

	bundle, err := connector.NewBundle(connector.BundleSlots[slack.SlashCommand, slack.Response]{
		Name:    route.Name(),
		Concat:  slack.Concat,
		Instant: ackSlack,
	}, members...)
	if err != nil {
		return nil, err
	}
	return bundle, nil
}

func (b *builder) hook(name string) (Hook, error) {
	switch name {
	case DeployHook:
		c, err := b.deployHook.get(func() (*DeployHookConnector, error) {
			deploy, err := b.buildDeploy()
			if err != nil {
				return nil, xerrors.Errorf("base %q: %w", Deploy, err)
			}
			return NewDeployHook(b.reg, deploy)
		})
		if err != nil {
			return nil, err
		}
		return AsHook[webhook.Delivery](c, func(d webhook.Delivery) webhook.Delivery { return d }), nil
	case GitHubPush:
		c, err := b.githubPush.get(func() (*GitHubPushConnector, error) { return NewGitHubPush(b.reg) })
		if err != nil {
			return nil, err
		}
		return AsHook[github.PushDelivery](c, func(d webhook.Delivery) github.PushDelivery {
			return github.PushDelivery{Delivery: d}
		}), nil
	}
	return nil, unknown(name, KindHook)
}

func unknown(name, kind string) error {
	if d, ok := Lookup(name); ok {
		return xerrors.Errorf("pipeline %q is a %s, not a %s", name, d.Kind, kind)
	}
	return xerrors.Errorf("unknown pipeline %q", name)
}

// RunCommand runs the command routed under name locally and waits for its
// answer. The payload carries the configured verification token and no
// response_url, so the answer is never deferred.
func (c *Catalog) RunCommand(ctx context.Context, rt *connector.Runtime, name, user, text string) (slack.Response, error) {
	name = strings.TrimPrefix(name, "/")
	cmd, ok := c.Command(name)
	if !ok {
		return slack.Response{}, xerrors.Errorf("no command routed as /%s", name)
	}

	env := config.Environment
	if rt != nil && rt.Env != nil {
		env = rt.Env
	}
	token, _ := env.Get(slack.KeyVerificationToken)

	return cmd.Run(ctx, rt, slack.SlashCommand{
		Token:    token,
		Command:  "/" + name,
		Text:     strings.TrimSpace(text),
		UserName: user,
	}).Await(ctx)
}
