package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"atelier/internal/domain"
	"atelier/internal/imgproc"
)

// UploadPhoto normalizes an uploaded catalog photo into the
// vendor-compatible form and stores it. The response carries the stored
// URL callers later pass as model_image or garment_image.
func (a *App) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "image file is required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxAnalyzeBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read image")
		return
	}

	normalized, err := imgproc.ProcessForUpload(raw, imgproc.Options{})
	if err != nil {
		if errors.Is(err, domain.ErrUndersizable) {
			a.error(w, http.StatusUnprocessableEntity, "undersizable", "image cannot be shrunk under the size ceiling")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported image format")
		return
	}

	key, err := a.Store.Write(r.Context(), fmt.Sprintf("uploads/%s.png", uuid.NewString()), normalized)
	if err != nil {
		a.Logger.Error().Err(err).Msg("upload store failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store image")
		return
	}
	url, err := a.Store.URL(r.Context(), key)
	if err != nil {
		a.Logger.Error().Err(err).Msg("upload url resolution failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to resolve image url")
		return
	}

	a.json(w, http.StatusCreated, map[string]any{
		"key":      key,
		"url":      url,
		"bytes":    len(normalized),
		"filename": header.Filename,
	})
}
