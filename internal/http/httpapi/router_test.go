package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"atelier/internal/adapter/repo"
	"atelier/internal/domain"
	"atelier/internal/http/handlers"
	"atelier/internal/providers/tryon"
	"atelier/internal/quality"
	"atelier/internal/storage"
	"atelier/internal/studio"
)

func newTestServer(t *testing.T) (*httptest.Server, *httptest.Server) {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	t.Cleanup(images.Close)

	store, err := storage.NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	orc := studio.NewOrchestrator(studio.OrchestratorOptions{
		Provider: tryon.NewStub(),
		Repo:     repo.NewJobRepositoryMemory(),
		Store:    store,
		Logger:   zerolog.Nop(),
	})
	app := &handlers.App{
		Logger:       zerolog.Nop(),
		Analyzer:     quality.NewAnalyzer(zerolog.Nop()),
		Orchestrator: orc,
		Controller: studio.NewController(studio.ControllerOptions{
			Orchestrator: orc,
			Logger:       zerolog.Nop(),
		}),
		Store: store,
	}
	api := httptest.NewServer(NewRouter(app))
	t.Cleanup(api.Close)
	return api, images
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	api, _ := newTestServer(t)
	resp, err := http.Get(api.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestTryOnEndToEnd(t *testing.T) {
	api, images := newTestServer(t)

	resp := postJSON(t, api.URL+"/v1/tryon/", map[string]any{
		"model_image":   images.URL + "/actor.png",
		"garment_image": images.URL + "/garment.png",
		"category":      "tops",
		"num_samples":   2,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var job domain.TryOnJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.Status != domain.JobStatusSucceeded || len(job.Results) != 2 {
		t.Fatalf("stub job should complete synchronously: %+v", job)
	}

	statusResp, err := http.Get(api.URL + "/v1/tryon/" + job.ID)
	if err != nil {
		t.Fatalf("GET job: %v", err)
	}
	defer statusResp.Body.Close()
	if statusResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", statusResp.StatusCode)
	}
}

func TestTryOnMissingImagesMapsTo400(t *testing.T) {
	api, _ := newTestServer(t)
	resp := postJSON(t, api.URL+"/v1/tryon/", map[string]any{"category": "tops"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if payload["error"] != string(domain.KindMissingImages) {
		t.Fatalf("expected MISSING_IMAGES slug, got %q", payload["error"])
	}
}

func TestTryOnUnknownJobIs404(t *testing.T) {
	api, _ := newTestServer(t)
	resp, err := http.Get(api.URL + "/v1/tryon/no-such-job")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestStudioPreviewFinalizeExport(t *testing.T) {
	api, images := newTestServer(t)

	resp := postJSON(t, api.URL+"/v1/studio/preview", map[string]any{
		"model_image":   images.URL + "/actor.png",
		"garment_image": images.URL + "/garment.png",
		"category":      "tops",
		"num_samples":   3,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var session domain.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if len(session.PreviewResults) != 3 || len(session.Seeds) != 3 {
		t.Fatalf("expected 3 preview candidates, got %+v", session)
	}

	finResp := postJSON(t, fmt.Sprintf("%s/v1/studio/sessions/%s/finalize", api.URL, session.ID), map[string]any{
		"selected_index": 1,
	})
	defer finResp.Body.Close()
	if finResp.StatusCode != http.StatusOK {
		t.Fatalf("finalize: expected 200, got %d", finResp.StatusCode)
	}
	var finalized domain.Session
	if err := json.NewDecoder(finResp.Body).Decode(&finalized); err != nil {
		t.Fatalf("decode finalized session: %v", err)
	}
	if finalized.FinalResult == nil || finalized.FinalResult.Seed != session.Seeds[1] {
		t.Fatalf("finalize must lock the selected seed: %+v", finalized.FinalResult)
	}

	exportResp, err := http.Get(fmt.Sprintf("%s/v1/studio/sessions/%s/export", api.URL, session.ID))
	if err != nil {
		t.Fatalf("GET export: %v", err)
	}
	defer exportResp.Body.Close()
	if exportResp.StatusCode != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", exportResp.StatusCode)
	}
	if got := exportResp.Header.Get("Content-Type"); !strings.Contains(got, "zip") {
		t.Fatalf("export content type: %q", got)
	}
}

func TestStudioSessionNotFound(t *testing.T) {
	api, _ := newTestServer(t)
	resp, err := http.Get(api.URL + "/v1/studio/sessions/missing/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
