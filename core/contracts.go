package core

import (
	"context"

	"github.com/google/uuid"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// IDGenerator produces the correlation ID attached to each queued message.
type IDGenerator func() uuid.UUID

// AllocationCounter is implemented by allocators that can report outstanding
// blocks. mailbox.HeapAllocator satisfies it.
type AllocationCounter interface {
	Live() int64
}

type MailboxService interface {
	Put(ctx context.Context, req PutRequest) (PutResult, error)
	Get(ctx context.Context, req GetRequest) (GetResult, error)
	Drain(ctx context.Context) (DrainResult, error)
	Stats(ctx context.Context) (Stats, error)
}
