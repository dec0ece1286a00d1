package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"

	"github.com/stylebridge/cssync"
)

var k = koanf.New(".")

// loadConfig loads configuration with precedence: flags > env > file >
// defaults. It must be called after cobra parses flags (in PreRunE or RunE).
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = ".cssync.yaml"
	}

	if err := loadConfigFromPath(configPath); err != nil {
		return err
	}

	// CLI flags (highest precedence; only flags that were explicitly set)
	if err := k.Load(posflag.Provider(cmd.Flags(), ".", k), nil); err != nil {
		return fmt.Errorf("loading command flags: %w", err)
	}
	return nil
}

// loadConfigFromPath loads configuration from a file and environment
// variables. Separated from loadConfig to allow testing without a cobra
// command.
func loadConfigFromPath(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	// Environment variables (CSSYNC_* prefix):
	// CSSYNC_ROOT -> root, CSSYNC_SERVE_ADDR -> serve.addr
	if err := k.Load(env.Provider("CSSYNC_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "CSSYNC_")),
			"_", ".",
		)
	}), nil); err != nil {
		return fmt.Errorf("loading environment variables: %w", err)
	}
	return nil
}

// buildServiceConfig constructs the library's Config struct from koanf state.
func buildServiceConfig() cssync.Config {
	matcher := cssync.DefaultMatcherConfig()
	// The threshold flag uses 0 as "keep default", so an unset flag must not
	// shadow a value from the config file.
	if v := k.Int("threshold"); v > 0 {
		matcher.Threshold = v
	} else if v := k.Int("match.threshold"); v > 0 {
		matcher.Threshold = v
	}

	return cssync.Config{
		RootPath:       getStringWithFallback("root", "root", "."),
		DomainMappings: k.StringMap("domains"),
		Matcher:        matcher,
		QueueDelay: time.Duration(
			getIntWithFallback("queue-delay-ms", "serve.queue-delay-ms", 50),
		) * time.Millisecond,
	}
}

// newLogger builds the process logger honoring --verbose and --quiet.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if getBoolWithFallback("verbose", "verbose", false) {
		level = slog.LevelDebug
	}
	if getBoolWithFallback("quiet", "quiet", false) {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// getStringWithFallback checks the flag key first, then the config file key,
// then returns the default.
func getStringWithFallback(flagKey, configKey, defaultVal string) string {
	if v := k.String(flagKey); v != "" {
		return v
	}
	if v := k.String(configKey); v != "" {
		return v
	}
	return defaultVal
}

// getBoolWithFallback checks the flag key first, then the config file key,
// then returns the default.
func getBoolWithFallback(flagKey, configKey string, defaultVal bool) bool {
	if k.Exists(flagKey) {
		return k.Bool(flagKey)
	}
	if k.Exists(configKey) {
		return k.Bool(configKey)
	}
	return defaultVal
}

// getIntWithFallback checks the flag key first, then the config file key,
// then returns the default.
func getIntWithFallback(flagKey, configKey string, defaultVal int) int {
	if k.Exists(flagKey) {
		return k.Int(flagKey)
	}
	if k.Exists(configKey) {
		return k.Int(configKey)
	}
	return defaultVal
}
