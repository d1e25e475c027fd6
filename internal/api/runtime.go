package api

import (
	"time"

	"github.com/JaimeStill/kontrib/internal/assignment"
	"github.com/JaimeStill/kontrib/internal/config"
	"github.com/JaimeStill/kontrib/internal/infrastructure"
	"github.com/JaimeStill/kontrib/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination   pagination.Config
	Assignment   assignment.Options
	BatchTimeout time.Duration
	Steps        assignment.StepFallback
	Workflow     string
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Kontent:   infra.Kontent,
		},
		Pagination:   cfg.API.Pagination,
		Assignment:   cfg.AssignmentOptions(),
		BatchTimeout: cfg.Assignment.BatchTimeoutDuration(),
		Steps:        cfg.StepFallback(),
		Workflow:     cfg.Kontent.DefaultWorkflow,
	}
}
