package command

import (
	"github.com/goliatone/go-msgbox/boundary"
	"github.com/goliatone/go-msgbox/core"
)

const (
	TypePut   = "msgbox.command.put"
	TypeGet   = "msgbox.command.get"
	TypeDrain = "msgbox.command.drain"
)

type PutMessage struct {
	Request core.PutRequest
}

func (PutMessage) Type() string { return TypePut }

func (m PutMessage) Validate() error {
	if boundary.IsNull(m.Request.Source) {
		return commandValidationError("source", "source buffer is required")
	}
	if m.Request.Length < 0 || m.Request.Length > core.MaxMessageSize {
		return commandValidationError("length", "length must be between 0 and 128")
	}
	return nil
}

// GetMessage pops the newest message. It is a command rather than a query
// because it removes the message even when delivery fails.
type GetMessage struct {
	Request core.GetRequest
}

func (GetMessage) Type() string { return TypeGet }

func (m GetMessage) Validate() error {
	if boundary.IsNull(m.Request.Destination) {
		return commandValidationError("destination", "destination buffer is required")
	}
	if m.Request.Capacity < 0 || m.Request.Capacity > core.MaxMessageSize {
		return commandValidationError("capacity", "capacity must be between 0 and 128")
	}
	return nil
}

type DrainMessage struct{}

func (DrainMessage) Type() string { return TypeDrain }
