// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/JaimeStill/kontrib/internal/config"
	"github.com/JaimeStill/kontrib/internal/infrastructure"
	"github.com/JaimeStill/kontrib/pkg/middleware"
	"github.com/JaimeStill/kontrib/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// The returned Domain is shared with the other surfaces (MCP, CLI) so that
// they observe the same latest batch.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, *Domain, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.FrameAncestors(cfg.API.FrameAncestors))
	m.Use(middleware.Logger(runtime.Logger))

	return m, domain, nil
}
