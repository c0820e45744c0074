package main

import (
	"os"
	"path/filepath"

	"github.com/iotaledger/hive.go/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/daios-ai/lox"
)

const defaultConfigFile = ".loxrc.yaml"

// Config is the CLI configuration. Every field has a usable default; a
// missing config file is not an error.
type Config struct {
	Prompt       string `yaml:"prompt"`
	Continuation string `yaml:"continuation"`
	HistoryFile  string `yaml:"history_file"`
	LogLevel     string `yaml:"log_level"`
	Scoping      string `yaml:"scoping"`
	Stats        bool   `yaml:"stats"`
	Color        *bool  `yaml:"color"`
}

func defaultConfig() Config {
	return Config{
		Prompt:       "> ",
		Continuation: "... ",
		HistoryFile:  ".lox_history",
		LogLevel:     "warn",
		Scoping:      "lexical",
	}
}

// defaultConfigPath is $HOME/.loxrc.yaml, or "" when HOME is unknown.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, defaultConfigFile)
}

// loadConfig reads path over the defaults. When explicit is false a missing
// file silently yields the defaults.
func loadConfig(path string, explicit bool) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if _, err := cfg.scoping(); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return cfg, errors.Wrapf(err, "config %s: log_level", path)
	}
	return cfg, nil
}

func (c Config) scoping() (lox.Scoping, error) { return lox.ParseScoping(c.Scoping) }

// historyPath resolves a relative history file against the home directory.
func (c Config) historyPath() string {
	if c.HistoryFile == "" || filepath.IsAbs(c.HistoryFile) {
		return c.HistoryFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return c.HistoryFile
	}
	return filepath.Join(home, c.HistoryFile)
}

func (c Config) colorEnabled() bool {
	if c.Color != nil {
		return *c.Color
	}
	fi, err := os.Stderr.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// newRootLogger builds the console logger all subsystems derive from.
func newRootLogger(level string) (*logger.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	zcfg.DisableStacktrace = true
	zcfg.DisableCaller = true
	z, err := zcfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return z.Sugar(), nil
}
