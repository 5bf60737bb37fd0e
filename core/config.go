package core

import (
	"fmt"
	"strings"
)

type ObservabilityConfig struct {
	// QuietSuccess demotes successful operation logs from info to debug.
	QuietSuccess bool `koanf:"quiet_success" mapstructure:"quiet_success"`
}

type Config struct {
	ServiceName   string              `koanf:"service_name" mapstructure:"service_name"`
	Observability ObservabilityConfig `koanf:"observability" mapstructure:"observability"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:   "msgbox",
		Observability: ObservabilityConfig{},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	return nil
}
