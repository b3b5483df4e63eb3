package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/overseerhq/overseer/internal/model"
	"github.com/overseerhq/overseer/internal/storage"
	"github.com/overseerhq/overseer/internal/trend"
)

// defaultTrendDays is the review window when the caller omits ?days.
const defaultTrendDays = 30

// HandleListReviews handles GET /api/reviews.
func (h *Handlers) HandleListReviews(w http.ResponseWriter, r *http.Request) {
	limit := clampLimit(queryInt(r, "limit", model.DefaultReviewLimit), model.DefaultReviewLimit)
	offset := max(queryInt(r, "offset", 0), 0)

	reviews, total, err := h.store.ListReviews(r.Context(), limit, offset)
	if err != nil {
		h.writeInternalError(w, r, "failed to list reviews", err)
		return
	}
	if reviews == nil {
		reviews = []model.ReviewRecord{}
	}

	writeJSON(w, http.StatusOK, model.ReviewsResponse{Reviews: reviews, Total: total})
}

// HandleReviewTrends handles GET /api/reviews/trends.
// An empty window (including a store that has never been written) yields
// the zeroed summary, never an error.
func (h *Handlers) HandleReviewTrends(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", defaultTrendDays)
	if days <= 0 {
		days = defaultTrendDays
	}

	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -days).Format(time.RFC3339)

	reviews, err := h.store.ReviewsSince(r.Context(), cutoff)
	if err != nil {
		h.writeInternalError(w, r, "failed to load reviews for trend analysis", err)
		return
	}

	writeJSON(w, http.StatusOK, trend.Analyze(reviews, now))
}

// HandleAppendReview handles POST /api/reviews: the supervisor's write
// path for one completed-session review.
func (h *Handlers) HandleAppendReview(w http.ResponseWriter, r *http.Request) {
	var rec model.ReviewRecord
	if err := decodeJSON(w, r, &rec, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}

	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if err := rec.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	id, err := h.store.AppendReview(r.Context(), rec)
	if err != nil {
		if errors.Is(err, storage.ErrNotInitialized) {
			writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeStoreNotInitialized, "store not initialized")
			return
		}
		h.writeInternalError(w, r, "failed to append review", err)
		return
	}

	writeJSON(w, http.StatusCreated, model.AppendResponse{ID: id})
}
