package msgbox

import (
	"fmt"

	"github.com/goliatone/go-command/runner"

	"github.com/goliatone/go-msgbox/adapters/gocommand"
	msgboxcommand "github.com/goliatone/go-msgbox/command"
	"github.com/goliatone/go-msgbox/core"
	msgboxquery "github.com/goliatone/go-msgbox/query"
)

type CommandQueryService interface {
	msgboxcommand.MutatingService
	msgboxquery.StatsReader
}

type Commands struct {
	Put   *msgboxcommand.PutCommand
	Get   *msgboxcommand.GetCommand
	Drain *msgboxcommand.DrainCommand
}

type Queries struct {
	Stats *msgboxquery.StatsQuery
}

type Facade struct {
	service    CommandQueryService
	commands   Commands
	queries    Queries
	runnerOpts []runner.Option
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	runnerOpts []runner.Option
}

// WithRunnerOptions is applied to every handler subscribed by Register.
func WithRunnerOptions(opts ...runner.Option) FacadeOption {
	return func(options *facadeOptions) {
		options.runnerOpts = append(options.runnerOpts, opts...)
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("msgbox: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	facade := &Facade{service: service, runnerOpts: cfg.runnerOpts}
	facade.commands = Commands{
		Put:   msgboxcommand.NewPutCommand(service),
		Get:   msgboxcommand.NewGetCommand(service),
		Drain: msgboxcommand.NewDrainCommand(service),
	}
	facade.queries = Queries{
		Stats: msgboxquery.NewStatsQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// Register adds every handler to the adapter's registry and subscribes it to
// the go-command dispatcher. On failure the handlers subscribed so far are
// unsubscribed again.
func (f *Facade) Register(adapter *gocommand.RegistryAdapter) (gocommand.Subscriptions, error) {
	if f == nil {
		return nil, fmt.Errorf("msgbox: facade is required")
	}
	var subs gocommand.Subscriptions
	steps := []func() error{
		func() error {
			sub, err := gocommand.RegisterAndSubscribe[msgboxcommand.PutMessage](adapter, f.commands.Put, f.runnerOpts...)
			subs = append(subs, sub)
			return err
		},
		func() error {
			sub, err := gocommand.RegisterAndSubscribe[msgboxcommand.GetMessage](adapter, f.commands.Get, f.runnerOpts...)
			subs = append(subs, sub)
			return err
		},
		func() error {
			sub, err := gocommand.RegisterAndSubscribe[msgboxcommand.DrainMessage](adapter, f.commands.Drain, f.runnerOpts...)
			subs = append(subs, sub)
			return err
		},
		func() error {
			sub, err := gocommand.RegisterAndSubscribeQuery[msgboxquery.StatsMessage, core.Stats](adapter, f.queries.Stats, f.runnerOpts...)
			subs = append(subs, sub)
			return err
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			subs.Unsubscribe()
			return nil, err
		}
	}
	return subs, nil
}
