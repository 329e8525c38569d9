package main

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/HendryAvila/taskmem/internal/clog"
	"github.com/HendryAvila/taskmem/internal/config"
	"github.com/HendryAvila/taskmem/internal/memory"
	"github.com/HendryAvila/taskmem/internal/storage"
	"github.com/HendryAvila/taskmem/internal/tasks"
)

// app holds what every command needs: configuration and open stores.
type app struct {
	env      *config.Env
	db       *sql.DB
	tasks    *tasks.Store
	memories *memory.Store
}

// newApp loads the environment, installs the logger on logOut and opens
// the stores.
func newApp(logOut io.Writer) (*app, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	clog.Setup(env.SlogLevel(), env.LogFormat, logOut)

	db, err := storage.Open(env.DataDir)
	if err != nil {
		return nil, err
	}

	taskCfg := tasks.DefaultConfig()
	taskCfg.MaxListLimit = env.MaxListLimit
	taskStore, err := tasks.New(db, taskCfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating task store: %w", err)
	}

	memStore, err := memory.New(db, memory.Config{
		DefaultListLimit: env.MaxSearchResults,
		MaxListLimit:     env.MaxListLimit,
	}, taskStore)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating memory store: %w", err)
	}

	return &app{env: env, db: db, tasks: taskStore, memories: memStore}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
