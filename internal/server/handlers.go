package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/overseerhq/overseer/internal/model"
	"github.com/overseerhq/overseer/internal/storage"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	store     *storage.Store
	logger    *slog.Logger
	startedAt time.Time
	version   string

	configPath   string
	insightsPath string

	maxRequestBodyBytes int64
	retentionDays       int

	// statsGroup collapses concurrent stat recomputations: several
	// dashboard panes poll /api/logs/stats on the same interval, and one
	// aggregate scan serves them all.
	statsGroup singleflight.Group
}

// HandlersDeps holds all dependencies for constructing Handlers.
type HandlersDeps struct {
	Store               *storage.Store
	Logger              *slog.Logger
	Version             string
	ConfigPath          string
	InsightsPath        string
	MaxRequestBodyBytes int64
	RetentionDays       int
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		store:               d.Store,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		configPath:          d.ConfigPath,
		insightsPath:        d.InsightsPath,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
		retentionDays:       d.RetentionDays,
	}
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	})
}

func (h *Handlers) writeInternalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.logger.Error(message, "error", err, "request_id", RequestIDFromContext(r.Context()))
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternal, message)
}

// maxQueryLimit is the maximum allowed value for limit query parameters.
const maxQueryLimit = 1000

// queryInt parses an integer query parameter, falling back to the default
// when the parameter is absent or malformed. Garbled pagination input is a
// recoverable condition, not a request failure.
func queryInt(r *http.Request, key string, defaultVal int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

// clampLimit forces limit into [1, maxQueryLimit], substituting the
// default for non-positive values.
func clampLimit(limit, defaultVal int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit > maxQueryLimit {
		return maxQueryLimit
	}
	return limit
}

// queryTier parses the tier filter. Absent or malformed values mean "no
// tier constraint"; out-of-range values are treated the same way so a
// stray tier=7 never turns into a 400 on a read path.
func queryTier(r *http.Request) *model.Tier {
	v := r.URL.Query().Get("tier")
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	t := model.Tier(n)
	if model.ValidateTier(t) != nil {
		return nil
	}
	return &t
}
