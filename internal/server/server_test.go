package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overseerhq/overseer/internal/model"
	"github.com/overseerhq/overseer/internal/ratelimit"
	"github.com/overseerhq/overseer/internal/server"
	"github.com/overseerhq/overseer/internal/storage"
)

type testEnv struct {
	handler      http.Handler
	store        *storage.Store
	configPath   string
	insightsPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, true)
}

// newTestEnvWith builds a full server stack backed by a temp-file store.
// initialized=false leaves the schema uncreated to exercise the
// empty-state read paths and the write gate.
func newTestEnvWith(t *testing.T, initialized bool) *testEnv {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := storage.Open(filepath.Join(dir, "overseer.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	if initialized {
		require.NoError(t, store.Initialize(context.Background()))
	}

	srv := server.New(server.ServerConfig{
		Store:               store,
		Logger:              logger,
		Limiter:             ratelimit.NoopLimiter{},
		ConfigPath:          filepath.Join(dir, "config.json"),
		InsightsPath:        filepath.Join(dir, "insights.txt"),
		Port:                0,
		Version:             "test",
		MaxRequestBodyBytes: 1 << 20,
		RetentionDays:       30,
	})

	return &testEnv{
		handler:      srv.Handler(),
		store:        store,
		configPath:   filepath.Join(dir, "config.json"),
		insightsPath: filepath.Join(dir, "insights.txt"),
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func seedEvent(t *testing.T, e *testEnv, ev model.ActionEvent) int64 {
	t.Helper()
	if ev.Timestamp == "" {
		ev.Timestamp = "2026-08-20T10:00:00Z"
	}
	if ev.ActionType == "" {
		ev.ActionType = model.ActionSendEmail
	}
	if ev.Verdict == "" {
		ev.Verdict = model.VerdictPass
	}
	id, err := e.store.AppendEvent(context.Background(), ev)
	require.NoError(t, err)
	return id
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	health := decodeBody[model.HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
}

func TestRequestIDHeader(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// A caller-supplied ID is echoed back.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	rec2 := httptest.NewRecorder()
	e.handler.ServeHTTP(rec2, req)
	assert.Equal(t, "req-abc", rec2.Header().Get("X-Request-ID"))
}

func TestListLogsEmpty(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[model.LogsResponse](t, rec)
	assert.NotNil(t, resp.Actions)
	assert.Empty(t, resp.Actions)
	assert.Zero(t, resp.Total)
}

func TestListLogsEmptyStateBeforeFirstWrite(t *testing.T) {
	e := newTestEnvWith(t, false)

	rec := e.do(t, http.MethodGet, "/api/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[model.LogsResponse](t, rec)
	assert.Empty(t, resp.Actions)
	assert.Zero(t, resp.Total)
}

func TestAppendAndListLogs(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/logs", model.ActionEvent{
		Timestamp:   "2026-08-20T10:00:00Z",
		SessionID:   "sess-1",
		ActionType:  model.ActionShellCommand,
		Target:      "git push origin main",
		Description: "deploy step",
		Verdict:     model.VerdictWarn,
		Reason:      "pushes to a protected branch",
		KeyWasValid: true,
		Tier:        model.Tier2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decodeBody[model.AppendResponse](t, rec)
	assert.Positive(t, created.ID)

	list := e.do(t, http.MethodGet, "/api/logs", nil)
	require.Equal(t, http.StatusOK, list.Code)

	resp := decodeBody[model.LogsResponse](t, list)
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, created.ID, resp.Actions[0].ID)
	assert.Equal(t, model.ActionShellCommand, resp.Actions[0].ActionType)
	assert.Equal(t, model.VerdictWarn, resp.Actions[0].Verdict)
}

func TestGetLogByID(t *testing.T) {
	e := newTestEnv(t)
	id := seedEvent(t, e, model.ActionEvent{Target: "billing@corp.com"})

	rec := e.do(t, http.MethodGet, "/api/logs/"+strconv.FormatInt(id, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	ev := decodeBody[model.ActionEvent](t, rec)
	assert.Equal(t, id, ev.ID)
	assert.Equal(t, "billing@corp.com", ev.Target)

	t.Run("unknown id", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/api/logs/999999", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		apiErr := decodeBody[model.APIError](t, rec)
		assert.Equal(t, model.ErrCodeNotFound, apiErr.Error.Code)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/api/logs/abc", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAppendLogValidation(t *testing.T) {
	e := newTestEnv(t)

	cases := []struct {
		name string
		ev   model.ActionEvent
	}{
		{"missing action type", model.ActionEvent{Verdict: model.VerdictPass}},
		{"invalid verdict", model.ActionEvent{ActionType: model.ActionSendEmail, Verdict: "maybe"}},
		{"invalid tier", model.ActionEvent{ActionType: model.ActionSendEmail, Verdict: model.VerdictPass, Tier: 7}},
		{"negative amount", model.ActionEvent{ActionType: model.ActionSendEmail, Verdict: model.VerdictPass, Amount: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/api/logs", tc.ev)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			apiErr := decodeBody[model.APIError](t, rec)
			assert.Equal(t, model.ErrCodeInvalidInput, apiErr.Error.Code)
		})
	}
}

func TestAppendLogMalformedBody(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/logs", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeBody[model.APIError](t, rec)
	assert.Equal(t, model.ErrCodeInvalidInput, apiErr.Error.Code)
}

func TestAppendLogUninitializedStore(t *testing.T) {
	e := newTestEnvWith(t, false)

	rec := e.do(t, http.MethodPost, "/api/logs", model.ActionEvent{
		ActionType: model.ActionSendEmail,
		Verdict:    model.VerdictPass,
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	apiErr := decodeBody[model.APIError](t, rec)
	assert.Equal(t, model.ErrCodeStoreNotInitialized, apiErr.Error.Code)
}

func TestListLogsFilters(t *testing.T) {
	e := newTestEnv(t)

	seedEvent(t, e, model.ActionEvent{Timestamp: "2026-08-19T10:00:00Z", ActionType: model.ActionDeleteFile, Target: "/var/log/app.log", Verdict: model.VerdictBlock, Tier: 1})
	seedEvent(t, e, model.ActionEvent{Timestamp: "2026-08-20T10:00:00Z", ActionType: model.ActionSendEmail, Target: "team@corp.com", Verdict: model.VerdictPass, Tier: 3, KeyWasValid: true})
	seedEvent(t, e, model.ActionEvent{Timestamp: "2026-08-21T10:00:00Z", ActionType: model.ActionBrowseWeb, Target: "https://docs.example.com", Verdict: model.VerdictPass, Tier: 3, KeyWasValid: true})

	t.Run("verdict", func(t *testing.T) {
		resp := decodeBody[model.LogsResponse](t, e.do(t, http.MethodGet, "/api/logs?verdict=block", nil))
		assert.Equal(t, 1, resp.Total)
		require.Len(t, resp.Actions, 1)
		assert.Equal(t, model.ActionDeleteFile, resp.Actions[0].ActionType)
	})

	t.Run("tier", func(t *testing.T) {
		resp := decodeBody[model.LogsResponse](t, e.do(t, http.MethodGet, "/api/logs?tier=3", nil))
		assert.Equal(t, 2, resp.Total)
	})

	t.Run("out of range tier ignored", func(t *testing.T) {
		resp := decodeBody[model.LogsResponse](t, e.do(t, http.MethodGet, "/api/logs?tier=9", nil))
		assert.Equal(t, 3, resp.Total)
	})

	t.Run("search", func(t *testing.T) {
		resp := decodeBody[model.LogsResponse](t, e.do(t, http.MethodGet, "/api/logs?search=CORP", nil))
		assert.Equal(t, 1, resp.Total)
	})

	t.Run("since", func(t *testing.T) {
		resp := decodeBody[model.LogsResponse](t, e.do(t, http.MethodGet, "/api/logs?since=2026-08-20T00:00:00Z", nil))
		assert.Equal(t, 2, resp.Total)
	})

	t.Run("combined", func(t *testing.T) {
		resp := decodeBody[model.LogsResponse](t, e.do(t, http.MethodGet, "/api/logs?verdict=pass&tier=3&since=2026-08-21T00:00:00Z", nil))
		assert.Equal(t, 1, resp.Total)
		require.Len(t, resp.Actions, 1)
		assert.Equal(t, model.ActionBrowseWeb, resp.Actions[0].ActionType)
	})
}

func TestListLogsPaginationAndMalformedParams(t *testing.T) {
	e := newTestEnv(t)
	for i := 0; i < 5; i++ {
		seedEvent(t, e, model.ActionEvent{})
	}

	t.Run("limit and offset", func(t *testing.T) {
		resp := decodeBody[model.LogsResponse](t, e.do(t, http.MethodGet, "/api/logs?limit=2&offset=4", nil))
		assert.Equal(t, 5, resp.Total)
		assert.Len(t, resp.Actions, 1)
	})

	t.Run("malformed limit falls back to default", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/api/logs?limit=abc&offset=-3", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[model.LogsResponse](t, rec)
		assert.Len(t, resp.Actions, 5)
	})

	t.Run("oversized limit clamped", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/api/logs?limit=999999", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestLogStats(t *testing.T) {
	e := newTestEnv(t)

	seedEvent(t, e, model.ActionEvent{Verdict: model.VerdictBlock, Tier: 1})
	seedEvent(t, e, model.ActionEvent{Verdict: model.VerdictPass, Tier: 2, KeyWasValid: true})

	rec := e.do(t, http.MethodGet, "/api/logs/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 2, body["totalActions"])
	assert.EqualValues(t, 2, body["sessionActions"])
	assert.EqualValues(t, 1, body["verifiedCount"])
	assert.EqualValues(t, 1, body["unverifiedCount"])
	assert.EqualValues(t, 1, body["blockedCount"])
	assert.EqualValues(t, 1, body["unverifiedTier1Count"])
	require.Contains(t, body, "tierBreakdown")
	require.Contains(t, body, "dailySpend")
}

func TestLogStatsEmptyState(t *testing.T) {
	e := newTestEnvWith(t, false)

	rec := e.do(t, http.MethodGet, "/api/logs/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 0, body["totalActions"])
	assert.EqualValues(t, 0, body["sessionActions"])
}

func TestCleanupLogs(t *testing.T) {
	e := newTestEnv(t)

	now := time.Now().UTC()
	seedEvent(t, e, model.ActionEvent{Timestamp: now.AddDate(-2, 0, 0).Format(time.RFC3339)})
	seedEvent(t, e, model.ActionEvent{Timestamp: now.Format(time.RFC3339)})

	rec := e.do(t, http.MethodPost, "/api/logs/cleanup?days=365", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[model.CleanupResponse](t, rec)
	assert.EqualValues(t, 1, resp.Deleted)
}

func TestCleanupLogsRejectsNonPositiveDays(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/logs/cleanup?days=0", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeBody[model.APIError](t, rec)
	assert.Equal(t, model.ErrCodeInvalidInput, apiErr.Error.Code)
}

func TestAppendAndListReviews(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/reviews", model.ReviewRecord{
		Timestamp:    "2026-08-20T18:00:00Z",
		SessionID:    "sess-1",
		OverallGrade: "A-",
		OverallScore: 91,
		Insights:     []string{"concise tool use"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	list := e.do(t, http.MethodGet, "/api/reviews", nil)
	require.Equal(t, http.StatusOK, list.Code)

	resp := decodeBody[model.ReviewsResponse](t, list)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Reviews, 1)
	assert.Equal(t, "A-", resp.Reviews[0].OverallGrade)
	assert.Equal(t, []string{"concise tool use"}, resp.Reviews[0].Insights)
}

func TestAppendReviewValidation(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/reviews", model.ReviewRecord{OverallScore: 140})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeBody[model.APIError](t, rec)
	assert.Equal(t, model.ErrCodeInvalidInput, apiErr.Error.Code)
}

func TestListReviewsEmpty(t *testing.T) {
	e := newTestEnvWith(t, false)

	rec := e.do(t, http.MethodGet, "/api/reviews", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[model.ReviewsResponse](t, rec)
	assert.NotNil(t, resp.Reviews)
	assert.Empty(t, resp.Reviews)
	assert.Zero(t, resp.Total)
}

func TestReviewTrendsEmptyWindow(t *testing.T) {
	e := newTestEnvWith(t, false)

	rec := e.do(t, http.MethodGet, "/api/reviews/trends", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	summary := decodeBody[model.TrendSummary](t, rec)
	assert.Empty(t, summary.DailyScores)
	assert.Equal(t, model.TrendStable, summary.TrendDirection)
	assert.Nil(t, summary.BestDay)
	assert.Nil(t, summary.WorstDay)
}

func TestReviewTrendsWithData(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.store.AppendReview(context.Background(), model.ReviewRecord{
		Timestamp:    "2026-08-20T10:00:00Z",
		OverallScore: 85,
	})
	require.NoError(t, err)

	rec := e.do(t, http.MethodGet, "/api/reviews/trends?days=365000", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	summary := decodeBody[model.TrendSummary](t, rec)
	require.Len(t, summary.DailyScores, 1)
	assert.Equal(t, "2026-08-20", summary.DailyScores[0].Date)
	assert.Equal(t, 85.0, summary.Averages.Overall)
}

func TestConfigPassthrough(t *testing.T) {
	e := newTestEnv(t)

	t.Run("missing file reads as empty object", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/api/config", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{}`, rec.Body.String())
	})

	t.Run("put then get roundtrips", func(t *testing.T) {
		doc := `{"monitor":{"paused":false},"budgets":{"daily_usd":25}}`
		req := httptest.NewRequest(http.MethodPut, "/api/config", bytes.NewReader([]byte(doc)))
		rec := httptest.NewRecorder()
		e.handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		got := e.do(t, http.MethodGet, "/api/config", nil)
		require.Equal(t, http.StatusOK, got.Code)
		assert.JSONEq(t, doc, got.Body.String())

		// The document lands on disk verbatim.
		onDisk, err := os.ReadFile(e.configPath)
		require.NoError(t, err)
		assert.JSONEq(t, doc, string(onDisk))
	})

	t.Run("rejects invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/config", bytes.NewReader([]byte("{broken")))
		rec := httptest.NewRecorder()
		e.handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		apiErr := decodeBody[model.APIError](t, rec)
		assert.Equal(t, model.ErrCodeInvalidInput, apiErr.Error.Code)
	})
}

func TestInsightsPassthrough(t *testing.T) {
	e := newTestEnv(t)

	t.Run("missing file reads as empty document", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/api/insights", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	})

	t.Run("serves file contents", func(t *testing.T) {
		content := "agent tends to over-fetch before acting\n"
		require.NoError(t, os.WriteFile(e.insightsPath, []byte(content), 0o600))

		rec := e.do(t, http.MethodGet, "/api/insights", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, content, rec.Body.String())
	})
}

func TestMethodNotAllowed(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodDelete, "/api/logs", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
