package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-msgbox/core"
)

type MutatingService interface {
	Put(ctx context.Context, req core.PutRequest) (core.PutResult, error)
	Get(ctx context.Context, req core.GetRequest) (core.GetResult, error)
	Drain(ctx context.Context) (core.DrainResult, error)
}

type PutCommand struct {
	service MutatingService
}

func NewPutCommand(service MutatingService) *PutCommand {
	return &PutCommand{service: service}
}

func (c *PutCommand) Execute(ctx context.Context, msg PutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: put service is required")
	}
	out, err := c.service.Put(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type GetCommand struct {
	service MutatingService
}

func NewGetCommand(service MutatingService) *GetCommand {
	return &GetCommand{service: service}
}

// Execute delivers the newest message into msg.Request.Destination and stores
// the core.GetResult in the context result collector, when one is present.
func (c *GetCommand) Execute(ctx context.Context, msg GetMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: get service is required")
	}
	out, err := c.service.Get(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DrainCommand struct {
	service MutatingService
}

func NewDrainCommand(service MutatingService) *DrainCommand {
	return &DrainCommand{service: service}
}

func (c *DrainCommand) Execute(ctx context.Context, _ DrainMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: drain service is required")
	}
	out, err := c.service.Drain(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
