package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"atelier/internal/domain"
	"atelier/pkg/zip"
)

type previewRequest struct {
	ModelImage       string `json:"model_image"`
	GarmentImage     string `json:"garment_image"`
	Category         string `json:"category"`
	NumSamples       int    `json:"num_samples"`
	GarmentPhotoType string `json:"garment_photo_type"`
	SegmentationFree bool   `json:"segmentation_free"`
}

type finalizeRequest struct {
	SelectedIndex int `json:"selected_index"`
}

// StudioPreview opens a session and renders the candidate gallery.
func (a *App) StudioPreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	params := domain.TryOnParams{
		ModelImage:       req.ModelImage,
		GarmentImage:     req.GarmentImage,
		Category:         req.Category,
		NumSamples:       req.NumSamples,
		GarmentPhotoType: req.GarmentPhotoType,
		SegmentationFree: req.SegmentationFree,
	}
	session, err := a.Controller.StartPreview(r.Context(), params, "")
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, session)
}

// StudioSession returns the current session state.
func (a *App) StudioSession(w http.ResponseWriter, r *http.Request) {
	session, err := a.Controller.Session(chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, session)
}

// StudioFinalize re-renders the selected candidate with its locked seed.
func (a *App) StudioFinalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	session, err := a.Controller.Finalize(r.Context(), chi.URLParam(r, "id"), req.SelectedIndex)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, session)
}

// StudioReroll discards the gallery and renders a fresh preview.
func (a *App) StudioReroll(w http.ResponseWriter, r *http.Request) {
	session, err := a.Controller.Reroll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, session)
}

// StudioRecreate repeats the finalize render for the selected candidate.
func (a *App) StudioRecreate(w http.ResponseWriter, r *http.Request) {
	session, err := a.Controller.Recreate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, session)
}

// StudioExport streams the session gallery as a zip archive.
func (a *App) StudioExport(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	session, err := a.Controller.Session(sessionID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}

	var assets []zip.Asset
	appendResult := func(name string, result domain.TryOnResult) {
		key, ok := storageKeyFromResult(result)
		if !ok {
			return
		}
		data, err := a.Store.Read(r.Context(), key)
		if err != nil {
			a.Logger.Warn().Err(err).Str("key", key).Msg("export: skipping unreadable result")
			return
		}
		assets = append(assets, zip.Asset{Filename: name, MIME: "image/png", Data: data})
	}
	for i, result := range session.PreviewResults {
		appendResult(fmt.Sprintf("preview-%d.png", i), result)
	}
	if session.FinalResult != nil {
		appendResult("final.png", *session.FinalResult)
	}
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "session has no exportable results")
		return
	}

	archive := zip.ArchiveAssets(assets)
	if archive == nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "studio-"+sessionID+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// storageKeyFromResult recovers the object key from a stored result URL.
// Orchestrator-written results live under jobs/{request_id}/{n}.png.
func storageKeyFromResult(result domain.TryOnResult) (string, bool) {
	if result.RequestID == "" {
		return "", false
	}
	idx := 0
	if result.Params.Seed != nil {
		idx = int(result.Seed - *result.Params.Seed)
	}
	if idx < 0 {
		return "", false
	}
	return fmt.Sprintf("jobs/%s/%d.png", result.RequestID, idx), true
}
