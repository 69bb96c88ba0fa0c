package api

import (
	"net/http"

	"github.com/klauselwerk/klausel/internal/config"
	"github.com/klauselwerk/klausel/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	routes.Register(
		mux,
		domain.Documents.Handler(cfg.API.MaxUploadBytes()).Routes(),
		domain.Jobs.Handler(domain.Launcher).Routes(),
		newStorageHandler(runtime.Storage, runtime.Logger).routes(),
	)
}
