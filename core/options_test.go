package core

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-msgbox/mailbox"
)

type fixedConfigProvider struct {
	cfg Config
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

type fixedOptionsResolver struct {
	cfg Config
}

func (r *fixedOptionsResolver) Resolve(Config, Config, Config) (Config, error) {
	return r.cfg, nil
}

func TestNewService_DefaultDependencies(t *testing.T) {
	svc, err := NewService(Config{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	deps := svc.Dependencies()
	if deps.Logger == nil {
		t.Fatalf("expected default logger")
	}
	if deps.LoggerProvider == nil {
		t.Fatalf("expected default logger provider")
	}
	if deps.ErrorFactory == nil || deps.ErrorMapper == nil {
		t.Fatalf("expected default error factory and mapper")
	}
	if deps.ConfigProvider == nil || deps.OptionsResolver == nil {
		t.Fatalf("expected default config provider and options resolver")
	}
	if _, ok := deps.Allocator.(*mailbox.HeapAllocator); !ok {
		t.Fatalf("expected heap allocator default, got %T", deps.Allocator)
	}
	if deps.IDGenerator == nil {
		t.Fatalf("expected default id generator")
	}
	if got := svc.Config().ServiceName; got != "msgbox" {
		t.Fatalf("expected default config service_name=msgbox, got %q", got)
	}
}

func TestNewService_WithXOverrides(t *testing.T) {
	customLogger := stubLogger{}
	customProvider := stubLoggerProvider{logger: customLogger}
	sentinel := errors.New("sentinel")
	customMapper := func(error) *goerrors.Error {
		return goerrors.Wrap(sentinel, goerrors.CategoryOperation, "mapped")
	}
	allocator := mailbox.NewHeapAllocator()
	configProvider := &fixedConfigProvider{cfg: Config{ServiceName: "from-provider"}}
	optionsResolver := &fixedOptionsResolver{cfg: Config{ServiceName: "resolved"}}

	svc, err := NewService(Config{ServiceName: "runtime"},
		WithLogger(customLogger),
		WithLoggerProvider(customProvider),
		WithErrorMapper(customMapper),
		WithConfigProvider(configProvider),
		WithOptionsResolver(optionsResolver),
		WithAllocator(allocator),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if got := svc.Config().ServiceName; got != "resolved" {
		t.Fatalf("expected options resolver result, got %q", got)
	}
	deps := svc.Dependencies()
	if deps.Allocator != allocator {
		t.Fatalf("expected custom allocator")
	}
	if deps.ConfigProvider != configProvider {
		t.Fatalf("expected custom config provider")
	}

	_, err = svc.Get(context.Background(), NewGetRequest(make([]byte, 1)))
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected custom error mapper to be applied, got %v", err)
	}
}

func TestNewService_ConfigLayeringPrecedence(t *testing.T) {
	provider := NewCfgxConfigProvider(mapRawLoader{values: map[string]any{
		"service_name": "from-config",
		"observability": map[string]any{
			"quiet_success": true,
		},
	}})

	svc, err := NewService(Config{ServiceName: "from-runtime"}, WithConfigProvider(provider))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	cfg := svc.Config()
	if cfg.ServiceName != "from-runtime" {
		t.Fatalf("expected runtime value to override config/default, got %q", cfg.ServiceName)
	}
	if !cfg.Observability.QuietSuccess {
		t.Fatalf("expected config layer value for observability.quiet_success")
	}
}

func TestConfig_ValidateRequiresServiceName(t *testing.T) {
	if err := (Config{}).Validate(); err == nil {
		t.Fatalf("expected validation error for empty service name")
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("expected default config to validate: %v", err)
	}
}
