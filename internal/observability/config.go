package observability

import (
	"strings"

	"github.com/smallbiznis/invoicepadi/internal/config"
)

// Config is the observability view of the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	Mode        string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "invoicepadi"
	}

	protocol := cfg.Telemetry.OtelProtocol
	if protocol != "http" {
		protocol = "grpc"
	}

	ratio := cfg.Telemetry.SamplingRatio
	switch {
	case ratio < 0:
		ratio = 0
	case ratio > 1:
		ratio = 1
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		Mode:                 cfg.Mode,
		LogLevel:             cfg.Telemetry.LogLevel,
		LogFormat:            cfg.Telemetry.LogFormat,
		OtelEnabled:          cfg.Telemetry.OtelEnabled,
		OtelExporterEndpoint: strings.TrimSpace(cfg.OTLPEndpoint),
		OtelExporterProtocol: protocol,
		OtelSamplingRatio:    ratio,
	}
}

// Debug enables verbose request logging and gin debug mode. Production
// never runs in debug regardless of LOG_LEVEL.
func (c Config) Debug() bool {
	switch strings.ToLower(c.Environment) {
	case "production":
		return false
	case "dev", "development", "local", "test":
		return true
	}
	return strings.EqualFold(c.LogLevel, "debug")
}
