// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/klauselwerk/klausel/internal/config"
	"github.com/klauselwerk/klausel/internal/infrastructure"
	"github.com/klauselwerk/klausel/pkg/middleware"
	"github.com/klauselwerk/klausel/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}
