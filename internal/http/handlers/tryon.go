package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"atelier/internal/domain"
)

// TryOnCreate creates a job and submits it to the provider. A cache hit
// or a synchronous provider completes the job in this call; an
// asynchronous vendor leaves it running and the client polls TryOnGet.
func (a *App) TryOnCreate(w http.ResponseWriter, r *http.Request) {
	var params domain.TryOnParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	job, err := a.Orchestrator.CreateJob(r.Context(), params, "")
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	job, err = a.Orchestrator.Submit(r.Context(), job.ID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, job)
}

// TryOnGet drives one poll tick and returns the current job state.
// Repeat calls are safe: terminal jobs are returned as-is and a failed
// fetch-and-persist leaves the job running for the next tick.
func (a *App) TryOnGet(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, err := a.Orchestrator.PollTick(r.Context(), jobID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, job)
}
