package logger

import (
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/brakit/pkg/shared/config"
)

// NewLogger builds a named logger writing to stderr, keeping stdout for reports.
func NewLogger(cfg *config.Config, name string) hclog.Logger {
	var logLevel hclog.Level

	// the env variable overrides the config file
	if levelEnv := os.Getenv("BRAKIT_LOG_LEVEL"); levelEnv != "" {
		logLevel = getLogLevel(strings.ToUpper(levelEnv))
	} else if cfg != nil && cfg.Logger.Level != "" {
		logLevel = getLogLevel(strings.ToUpper(cfg.Logger.Level))
	} else {
		logLevel = hclog.Info
	}

	var loggerCfg *config.Logger
	if cfg != nil {
		loggerCfg = &cfg.Logger
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:            name,
		Level:           logLevel,
		Output:          os.Stderr,
		JSONFormat:      config.GetBoolValue(loggerCfg, "JSONFormat", false),
		DisableTime:     config.GetBoolValue(loggerCfg, "DisableTime", true),
		IncludeLocation: config.GetBoolValue(loggerCfg, "IncludeLocation", false),
	})
}

func getLogLevel(levelStr string) hclog.Level {
	switch levelStr {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "INFO":
		return hclog.Info
	case "WARN":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	default:
		return hclog.Info
	}
}
