package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/overseerhq/overseer/internal/model"
	"github.com/overseerhq/overseer/internal/storage"
)

// HandleListLogs handles GET /api/logs.
// All filters are optional and AND-composed; malformed numeric parameters
// fall back to their defaults rather than failing the request.
func (h *Handlers) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := model.EventFilter{
		Limit:   clampLimit(queryInt(r, "limit", model.DefaultLogLimit), model.DefaultLogLimit),
		Offset:  max(queryInt(r, "offset", 0), 0),
		Verdict: model.Verdict(q.Get("verdict")),
		Tier:    queryTier(r),
		Search:  q.Get("search"),
		Since:   q.Get("since"),
	}

	events, total, err := h.store.QueryEvents(r.Context(), filter)
	if err != nil {
		h.writeInternalError(w, r, "failed to query action log", err)
		return
	}
	if events == nil {
		events = []model.ActionEvent{}
	}

	writeJSON(w, http.StatusOK, model.LogsResponse{Actions: events, Total: total})
}

// HandleLogStats handles GET /api/logs/stats.
// Stats are recomputed from the full event history on every call; the
// singleflight group merely deduplicates simultaneous recomputations from
// pollers that fire on the same tick.
func (h *Handlers) HandleLogStats(w http.ResponseWriter, r *http.Request) {
	// The shared computation must survive any single poller navigating
	// away, so it runs detached from the request's cancellation.
	ctx := context.WithoutCancel(r.Context())

	v, err, _ := h.statsGroup.Do("session-stats", func() (any, error) {
		return h.store.SessionStats(ctx, time.Now().UTC())
	})
	if err != nil {
		h.writeInternalError(w, r, "failed to compute session stats", err)
		return
	}

	stats := v.(model.SessionStats)
	writeJSON(w, http.StatusOK, model.StatsResponse{
		SessionStats:   stats,
		SessionActions: stats.TotalActions,
	})
}

// HandleAppendLog handles POST /api/logs: the supervisor's write path for
// a single observed action.
func (h *Handlers) HandleAppendLog(w http.ResponseWriter, r *http.Request) {
	var ev model.ActionEvent
	if err := decodeJSON(w, r, &ev, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}

	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if err := ev.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	id, err := h.store.AppendEvent(r.Context(), ev)
	if err != nil {
		if errors.Is(err, storage.ErrNotInitialized) {
			writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeStoreNotInitialized, "store not initialized")
			return
		}
		h.writeInternalError(w, r, "failed to append action event", err)
		return
	}

	writeJSON(w, http.StatusCreated, model.AppendResponse{ID: id})
}

// HandleGetLog handles GET /api/logs/{id}: the detail view for one event.
func (h *Handlers) HandleGetLog(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "id must be an integer")
		return
	}

	ev, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "action event not found")
			return
		}
		h.writeInternalError(w, r, "failed to load action event", err)
		return
	}

	writeJSON(w, http.StatusOK, ev)
}

// HandleCleanupLogs handles POST /api/logs/cleanup: a manual trigger for
// the retention sweep. The days parameter defaults to the configured
// retention window.
func (h *Handlers) HandleCleanupLogs(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", h.retentionDays)
	if days <= 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "days must be a positive integer")
		return
	}

	deleted, err := h.store.CleanupEvents(r.Context(), days)
	if err != nil {
		if errors.Is(err, storage.ErrNotInitialized) {
			writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeStoreNotInitialized, "store not initialized")
			return
		}
		h.writeInternalError(w, r, "failed to run retention cleanup", err)
		return
	}

	h.logger.Info("retention cleanup via api", "days", days, "deleted", deleted)
	writeJSON(w, http.StatusOK, model.CleanupResponse{Deleted: deleted})
}
