package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"atelier/internal/sqlinline"
)

// JobsRecent lists recent jobs in a given state, newest first. The
// catalog UI uses it as the generation history.
func (a *App) JobsRecent(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = "succeeded"
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := a.SQL.Query(r.Context(), sqlinline.QSelectRecentJobsByStatus, status, limit)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load jobs")
		return
	}
	defer rows.Close()

	var items []map[string]any
	for rows.Next() {
		var (
			id, jobStatus, provider, providerJobID, errMsg, errKind, createdBy string
			settingsRaw, resultsRaw                                            []byte
			createdAt, updatedAt                                               time.Time
		)
		if err := rows.Scan(&id, &jobStatus, &provider, &providerJobID, &settingsRaw, &resultsRaw, &errMsg, &errKind, &createdBy, &createdAt, &updatedAt); err != nil {
			continue
		}
		item := map[string]any{
			"id":         id,
			"status":     jobStatus,
			"provider":   provider,
			"created_at": createdAt,
			"updated_at": updatedAt,
		}
		if errMsg != "" {
			item["error_message"] = errMsg
		}
		if errKind != "" {
			item["error_kind"] = errKind
		}
		if len(resultsRaw) > 0 {
			item["results"] = json.RawMessage(resultsRaw)
		}
		items = append(items, item)
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// JobsStats reports job counts per lifecycle state.
func (a *App) JobsStats(w http.ResponseWriter, r *http.Request) {
	rows, err := a.SQL.Query(r.Context(), sqlinline.QCountJobsByStatus)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			continue
		}
		counts[status] = count
	}
	a.json(w, http.StatusOK, counts)
}
