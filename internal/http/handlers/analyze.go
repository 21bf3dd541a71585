package handlers

import (
	"bytes"
	"io"
	"net/http"

	"github.com/disintegration/imaging"

	"atelier/internal/domain"
	"atelier/internal/quality"
)

const maxAnalyzeBytes = 16 << 20

// PhotosAnalyze runs the full quality gate over an uploaded photo: the
// quick statistics, the refined server pass, and the combined scored
// report. Analysis failures degrade inside the analyzer; this handler
// only rejects unreadable requests.
func (a *App) PhotosAnalyze(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r.FormValue("kind"))
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "kind must be actor or garment")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "image file is required")
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(io.LimitReader(file, maxAnalyzeBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read image")
		return
	}

	img, err := imaging.Decode(bytes.NewReader(payload), imaging.AutoOrientation(true))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported image format")
		return
	}

	clientPartial := quality.QuickCheck(img, kind)
	serverPartial := a.Analyzer.Analyze(r.Context(), payload, kind)
	result := quality.Combine(kind, clientPartial, &serverPartial)
	a.json(w, http.StatusOK, result)
}

func parseKind(raw string) (domain.PhotoKind, bool) {
	switch raw {
	case string(domain.PhotoKindActor):
		return domain.PhotoKindActor, true
	case string(domain.PhotoKindGarment):
		return domain.PhotoKindGarment, true
	}
	return "", false
}
