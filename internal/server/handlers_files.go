package server

import (
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/overseerhq/overseer/internal/model"
)

// HandleGetConfig handles GET /api/config: a passthrough read of the
// operator's JSON config document. A missing file is the "fresh install"
// state and reads as an empty document.
func (h *Handlers) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(h.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusOK, map[string]any{})
			return
		}
		h.logger.Error("config read failed", "path", h.configPath, "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeIOFailure, "failed to read config")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandlePutConfig handles PUT /api/config: a passthrough write. The only
// validation is that the body parses as JSON; the document's meaning
// belongs to the UI and the supervisor, not to this server.
func (h *Handlers) HandlePutConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxRequestBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "failed to read request body")
		return
	}
	if !json.Valid(body) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "body is not valid JSON")
		return
	}

	if err := os.WriteFile(h.configPath, body, 0o600); err != nil {
		h.logger.Error("config write failed", "path", h.configPath, "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeIOFailure, "failed to write config")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleGetInsights handles GET /api/insights: a passthrough read of the
// plain-text notes file. Absence reads as an empty document.
func (h *Handlers) HandleGetInsights(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(h.insightsPath)
	if err != nil && !os.IsNotExist(err) {
		h.logger.Error("insights read failed", "path", h.insightsPath, "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeIOFailure, "failed to read insights")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
