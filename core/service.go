package core

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-msgbox/mailbox"
)

// Service owns the process-wide mailbox. Construct it once at startup with
// NewService, share it by reference, and call Close at shutdown to release any
// messages still queued.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	allocator       mailbox.Allocator
	idGenerator     IDGenerator
	mailbox         *mailbox.Mailbox
	closed          atomic.Bool
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorFactory    ErrorFactory
	ErrorMapper     ErrorMapper
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	Allocator       mailbox.Allocator
	IDGenerator     IDGenerator
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve(loggerName, builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger(loggerName); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.allocator == nil {
		builder.allocator = mailbox.NewHeapAllocator()
	}
	if builder.idGenerator == nil {
		builder.idGenerator = uuid.New
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	return &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		allocator:       builder.allocator,
		idGenerator:     builder.idGenerator,
		mailbox:         mailbox.New(mailbox.WithAllocator(builder.allocator)),
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ErrorFactory:    s.errorFactory,
		ErrorMapper:     s.errorMapper,
		ConfigProvider:  s.configProvider,
		OptionsResolver: s.optionsResolver,
		Allocator:       s.allocator,
		IDGenerator:     s.idGenerator,
	}
}

// Put enqueues a copy of req.Length bytes read from req.Source.
func (s *Service) Put(ctx context.Context, req PutRequest) (result PutResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"length": req.Length}
	defer func() {
		s.observeOperation(ctx, startedAt, "put", err, fields)
	}()

	if err = s.ready(); err != nil {
		return PutResult{}, err
	}

	id := s.idGenerator()
	fields["message_id"] = id.String()
	if err = s.mailbox.PutTagged(req.Source, req.Length, mailbox.Tag(id)); err != nil {
		err = s.mapError(err)
		return PutResult{}, err
	}
	// Close may have drained between ready and the push above. Either this
	// load observes the flag or Close drains after the push.
	if s.closed.Load() {
		s.mailbox.Drain()
		err = s.mapError(ErrServiceClosed)
		return PutResult{}, err
	}

	depth := s.mailbox.Depth()
	fields["depth"] = depth
	return PutResult{MessageID: id.String(), Length: req.Length, Depth: depth}, nil
}

// Get removes the most recently put message and copies it into
// req.Destination. A message whose delivery fails with an insufficient
// capacity or bad address error is discarded, not requeued.
func (s *Service) Get(ctx context.Context, req GetRequest) (result GetResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"capacity": req.Capacity}
	defer func() {
		s.observeOperation(ctx, startedAt, "get", err, fields)
	}()

	if err = s.ready(); err != nil {
		return GetResult{}, err
	}

	receipt, getErr := s.mailbox.Receive(req.Destination, req.Capacity)
	depth := s.mailbox.Depth()
	fields["depth"] = depth
	if receipt.Removed {
		messageID := tagString(receipt.Tag)
		fields["message_id"] = messageID
		fields["length"] = receipt.Length
		result = GetResult{MessageID: messageID, Length: receipt.Length, Depth: depth}
	}
	if getErr != nil {
		if receipt.Removed {
			s.recordDiscard(ctx, getErr)
		}
		err = s.mapError(getErr)
		return GetResult{}, err
	}
	return result, nil
}

// Drain releases every queued message.
func (s *Service) Drain(ctx context.Context) (result DrainResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "drain", err, fields)
	}()

	if s == nil || s.mailbox == nil {
		err = serviceDependencyError("core: mailbox is not configured")
		return DrainResult{}, err
	}
	released := s.mailbox.Drain()
	fields["released"] = released
	return DrainResult{Released: released}, nil
}

func (s *Service) Stats(context.Context) (Stats, error) {
	if s == nil || s.mailbox == nil {
		return Stats{}, serviceDependencyError("core: mailbox is not configured")
	}
	stats := Stats{Depth: s.mailbox.Depth()}
	if counter, ok := s.allocator.(AllocationCounter); ok {
		stats.LiveAllocations = counter.Live()
		stats.AllocationsKnown = true
	}
	return stats, nil
}

// Close rejects further Put and Get calls and releases queued messages. It is
// safe to call more than once.
func (s *Service) Close(ctx context.Context) error {
	if s == nil || s.mailbox == nil {
		return nil
	}
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	_, err := s.Drain(ctx)
	return err
}

func (s *Service) ready() error {
	if s == nil || s.mailbox == nil {
		return serviceDependencyError("core: mailbox is not configured")
	}
	if s.closed.Load() {
		return s.mapError(ErrServiceClosed)
	}
	return nil
}

func (s *Service) recordDiscard(ctx context.Context, err error) {
	reason := discardReason(mailbox.KindOf(err))
	if reason == "" {
		return
	}
	s.recordCounter(ctx, metricDiscarded, 1, map[string]string{"reason": reason})
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func serviceDependencyError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ServiceErrorInternal)
}

func tagString(tag mailbox.Tag) string {
	if tag == (mailbox.Tag{}) {
		return ""
	}
	return uuid.UUID(tag).String()
}
