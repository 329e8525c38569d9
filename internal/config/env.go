// Package config loads runtime settings from TASKMEM_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env       string `envconfig:"ENV" default:"local"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	HTTPHost  string `envconfig:"HTTP_HOST" default:""`
	HTTPPort  string `envconfig:"HTTP_PORT" default:"3100"`
	ProjectID string `envconfig:"PROJECT_ID" default:"default"`
	Operator  string `envconfig:"OPERATOR" default:"mcp_tool"`
}

type StoreEnv struct {
	// DataDir holds taskmem.db. Empty means ~/.taskmem.
	DataDir          string `envconfig:"DATA_DIR"`
	MaxListLimit     int    `envconfig:"MAX_LIST_LIMIT" default:"1000"`
	MaxSearchResults int    `envconfig:"MAX_SEARCH_RESULTS" default:"100"`
}

type Env struct {
	BaseEnv
	StoreEnv
}

const namespace = "TASKMEM"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if env.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		env.DataDir = filepath.Join(home, ".taskmem")
	}
	if env.MaxListLimit <= 0 {
		env.MaxListLimit = 1000
	}
	if env.MaxSearchResults <= 0 {
		env.MaxSearchResults = 100
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
