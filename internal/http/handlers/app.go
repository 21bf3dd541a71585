package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"atelier/internal/domain"
	"atelier/internal/infra"
	"atelier/internal/middleware"
	"atelier/internal/quality"
	"atelier/internal/storage"
	"atelier/internal/studio"
)

// App bundles the services the HTTP handlers dispatch into.
type App struct {
	Cfg          *infra.Config
	Logger       zerolog.Logger
	SQL          infra.SQLExecutor
	Analyzer     *quality.Analyzer
	Orchestrator *studio.Orchestrator
	Controller   *studio.Controller
	Store        storage.ObjectStore
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]string{"error": slug, "message": message})
}

// domainError maps an error through the generation taxonomy to its
// HTTP status.
func (a *App) domainError(w http.ResponseWriter, r *http.Request, err error) {
	if err == domain.ErrNotFound {
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	kind := domain.KindOf(err)
	a.Logger.Warn().
		Err(err).
		Str("kind", string(kind)).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Msg("request failed")
	a.error(w, kind.HTTPStatus(), string(kind), err.Error())
}
