// Package infrastructure provides core service initialization for application startup.
// It assembles the dependencies (logging, CMS client) that domain systems require.
package infrastructure

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JaimeStill/kontrib/internal/config"
	"github.com/JaimeStill/kontrib/internal/kontent"
	"github.com/JaimeStill/kontrib/pkg/lifecycle"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, and the CMS management client.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Kontent   *kontent.Client
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is New with an explicit log destination.
func NewWithWriter(cfg *config.Config, w io.Writer) (*Infrastructure, error) {
	if cfg == nil {
		return nil, fmt.Errorf("infrastructure init failed: nil config")
	}

	lc := lifecycle.New()
	logger := NewLogger(&cfg.Logging, w)

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Kontent:   kontent.New(&cfg.Kontent, logger),
	}, nil
}

// NewLogger builds the service logger from the logging config.
func NewLogger(cfg *config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// The CMS client registers a startup connectivity probe.
func (i *Infrastructure) Start() error {
	if err := i.Kontent.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("kontent start failed: %w", err)
	}
	return nil
}
