package msgbox

import (
	"github.com/goliatone/go-msgbox/core"
	"github.com/goliatone/go-msgbox/mailbox"
)

const MaxMessageSize = core.MaxMessageSize

type Config = core.Config

type ObservabilityConfig = core.ObservabilityConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type MetricsRecorder = core.MetricsRecorder

type PutRequest = core.PutRequest
type PutResult = core.PutResult
type GetRequest = core.GetRequest
type GetResult = core.GetResult
type DrainResult = core.DrainResult
type Stats = core.Stats

type Kind = mailbox.Kind

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithErrorFactory    = core.WithErrorFactory
	WithErrorMapper     = core.WithErrorMapper
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithAllocator       = core.WithAllocator
	WithIDGenerator     = core.WithIDGenerator
)

var (
	NewPutRequest = core.NewPutRequest
	NewGetRequest = core.NewGetRequest
	KindOf        = core.KindOf
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
