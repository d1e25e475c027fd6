package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/JaimeStill/kontrib/internal/api"
	"github.com/JaimeStill/kontrib/internal/assignment"
	"github.com/JaimeStill/kontrib/internal/config"
	"github.com/JaimeStill/kontrib/internal/directory"
	"github.com/JaimeStill/kontrib/internal/infrastructure"
)

// session holds the systems a command runs against.
type session struct {
	Assignment assignment.System
	Directory  directory.System
	Logger     *slog.Logger
}

// sessionLoader builds a session from a config path. An empty path uses the
// default config lookup.
type sessionLoader func(path string, debug bool, stderr io.Writer) (*session, error)

func loadSession(path string, debug bool, stderr io.Writer) (*session, error) {
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFrom(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	infra, err := infrastructure.NewWithWriter(cfg, stderr)
	if err != nil {
		return nil, err
	}

	domain := api.NewDomain(api.NewRuntime(cfg, infra))
	return &session{
		Assignment: domain.Assignment,
		Directory:  domain.Directory,
		Logger:     infra.Logger.With("module", "cli"),
	}, nil
}
