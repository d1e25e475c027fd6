package main

import (
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/kontrib/internal/api"
	"github.com/JaimeStill/kontrib/internal/config"
	"github.com/JaimeStill/kontrib/internal/infrastructure"
	"github.com/JaimeStill/kontrib/internal/mcp"
	"github.com/JaimeStill/kontrib/pkg/middleware"
	"github.com/JaimeStill/kontrib/pkg/module"
)

type Modules struct {
	API *module.Module
	MCP *mcp.Server
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, domain, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	modules := &Modules{API: apiModule}
	if cfg.MCP.Enabled {
		modules.MCP = mcp.NewServer(
			cfg.Version,
			domain.Assignment,
			domain.Directory,
			infra.Logger,
		)
	}
	return modules, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
	if m.MCP != nil {
		for pattern, handler := range m.MCP.Routes() {
			router.HandleNative(pattern, handler)
		}
	}
}

func buildRouter(infra *infrastructure.Infrastructure, cfg *config.Config) *module.Router {
	router := module.NewRouter()
	router.Use(middleware.CORS(&cfg.API.CORS))
	router.Use(middleware.Logger(infra.Logger))

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		checks := infra.Lifecycle.Status()
		if !infra.Lifecycle.Ready() {
			writeStatus(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not ready",
				"checks": checks,
			})
			return
		}
		writeStatus(w, http.StatusOK, map[string]any{
			"status": "ready",
			"checks": checks,
		})
	})

	return router
}

func writeStatus(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
