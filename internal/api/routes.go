package api

import (
	"net/http"

	"github.com/JaimeStill/kontrib/internal/config"
	"github.com/JaimeStill/kontrib/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) {
	routes.Register(
		mux,
		domain.Assignment.Handler(cfg.API.MaxBodySizeBytes()).Routes(),
	)
	routes.Register(
		mux,
		domain.Directory.Handler().Routes()...,
	)
}
