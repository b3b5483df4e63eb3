package model

// Error codes returned in the JSON error envelope.
const (
	ErrCodeInvalidInput        = "invalid_input"
	ErrCodeNotFound            = "not_found"
	ErrCodeStoreNotInitialized = "store_not_initialized"
	ErrCodeInternal            = "internal_error"
	ErrCodeIOFailure           = "io_failure"
)

// ErrorDetail carries a machine-readable code and a human-readable message.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// APIError is the JSON error envelope for every non-2xx response.
type APIError struct {
	Error ErrorDetail `json:"error"`
}

// LogsResponse is the payload of GET /api/logs.
type LogsResponse struct {
	Actions []ActionEvent `json:"actions"`
	Total   int           `json:"total"`
}

// ReviewsResponse is the payload of GET /api/reviews.
type ReviewsResponse struct {
	Reviews []ReviewRecord `json:"reviews"`
	Total   int            `json:"total"`
}

// StatsResponse is the payload of GET /api/logs/stats. SessionActions
// mirrors TotalActions; the alias is part of the dashboard contract.
type StatsResponse struct {
	SessionStats
	SessionActions int64 `json:"sessionActions"`
}

// CleanupResponse is the payload of POST /api/logs/cleanup.
type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}

// AppendResponse acknowledges a single-row ingestion write.
type AppendResponse struct {
	ID int64 `json:"id"`
}

// HealthResponse is the payload of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
