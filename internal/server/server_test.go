package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/job-assistant/internal/config"
	"github.com/jonathan/job-assistant/internal/pipeline"
	"github.com/jonathan/job-assistant/internal/pipeline/steps"
	"github.com/jonathan/job-assistant/internal/server/ratelimit"
	"github.com/jonathan/job-assistant/internal/storage"
	"github.com/jonathan/job-assistant/internal/types"
)

// scriptedRunner yields a fixed stage sequence and records the run id it saw.
type scriptedRunner struct {
	stages  []string
	failAt  string
	seenRun string
	inputs  []types.ApplicationState
}

func (r *scriptedRunner) Stream(ctx context.Context, initial types.ApplicationState) iter.Seq2[string, types.ApplicationState] {
	r.seenRun = steps.RunIDFromContext(ctx)
	r.inputs = append(r.inputs, initial)
	return func(yield func(string, types.ApplicationState) bool) {
		state := initial
		for _, stage := range r.stages {
			if stage == r.failAt {
				state.Error = stage + " failed: boom"
			}
			if stage == steps.StagePersist {
				state.DBID = 1
			}
			if !yield(stage, state) {
				return
			}
		}
	}
}

func (r *scriptedRunner) Run(ctx context.Context, initial types.ApplicationState, onProgress pipeline.ProgressCallback) types.ApplicationState {
	var final types.ApplicationState
	for stage, state := range r.Stream(ctx, initial) {
		final = state
		if onProgress != nil {
			onProgress(pipeline.ProgressEvent{Stage: stage, State: state})
		}
	}
	return final
}

func allStages() []string {
	return []string{steps.StageValidate, steps.StageAnalyze, steps.StageMatch, steps.StageWrite, steps.StageAdvise, steps.StagePersist}
}

type testServer struct {
	*Server
	runner  *scriptedRunner
	store   *storage.Store
	indexed []bool
	logs    *observer.ObservedLogs
}

func newTestServer(t *testing.T, mutate func(*Options)) *testServer {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	core, logs := observer.New(zapcore.InfoLevel)
	ts := &testServer{runner: &scriptedRunner{stages: allStages()}, store: store, logs: logs}
	opts := Options{
		Runner: ts.runner,
		Store:  store,
		Indexer: IndexerFunc(func(_ context.Context, force bool) (int, error) {
			ts.indexed = append(ts.indexed, force)
			return 3, nil
		}),
		RateLimit: &ratelimit.Config{Enabled: false},
		Logger:    zap.New(core),
	}
	if mutate != nil {
		mutate(&opts)
	}
	ts.Server = New(opts)
	t.Cleanup(ts.rateLimiter.Stop)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func (ts *testServer) saveApplication(t *testing.T, company string) int64 {
	t.Helper()
	rec := types.NewApplicationRecord("run", types.ApplicationState{
		JobAnalysis: &types.JobAnalysis{Title: "SRE", Company: company, Summary: "s"},
	})
	id, err := ts.store.Save(context.Background(), rec)
	require.NoError(t, err)
	return id
}

type sseEvent struct {
	name string
	data string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var current sseEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if current.name != "" {
				events = append(events, current)
			}
			current = sseEvent{}
		}
	}
	return events
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRun_ReturnsFinalState(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/run", `{"job_text":"Senior Go engineer"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, resp.RunID, ts.runner.seenRun, "run id is passed to the pipeline")
	assert.Equal(t, int64(1), resp.State.DBID)
	assert.Equal(t, "Senior Go engineer", ts.runner.inputs[0].JobText)
}

func TestRun_BadRequests(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"bad url", `{"job_url":"ftp://example.com/job"}`},
		{"not a url", `{"job_url":"example"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/run", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, ts.runner.inputs)
}

func TestRun_EmptyInputStillRuns(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/run", `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, ts.runner.inputs, 1)
}

func TestRunStream_Events(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.runner.stages = []string{steps.StageValidate, steps.StageAnalyze, steps.StagePersist}
	ts.runner.failAt = steps.StageAnalyze

	w := ts.do(t, http.MethodPost, "/run/stream", `{"job_url":"https://example.com/job"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := parseSSE(t, w.Body.String())
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.name)
	}
	assert.Equal(t, []string{EventStage, EventStage, EventError, EventStage, EventComplete}, names)

	var stage StageEvent
	require.NoError(t, json.Unmarshal([]byte(events[1].data), &stage))
	assert.Equal(t, steps.StageAnalyze, stage.Stage)
	assert.Equal(t, ts.runner.seenRun, stage.RunID)

	var errEvent ErrorEvent
	require.NoError(t, json.Unmarshal([]byte(events[2].data), &errEvent))
	assert.Equal(t, "analyze failed: boom", errEvent.Error)

	var done CompleteEvent
	require.NoError(t, json.Unmarshal([]byte(events[4].data), &done))
	assert.Equal(t, "failed", done.Status)
	assert.Equal(t, int64(1), done.State.DBID)
}

func TestRunStream_Completed(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/run/stream", `{"job_text":"x"}`)
	events := parseSSE(t, w.Body.String())
	require.Len(t, events, len(allStages())+1)

	var done CompleteEvent
	require.NoError(t, json.Unmarshal([]byte(events[len(events)-1].data), &done))
	assert.Equal(t, "completed", done.Status)
}

func TestIndex(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/index", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"chunks":3}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/index", `{"force":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []bool{false, true}, ts.indexed)

	w = ts.do(t, http.MethodPost, "/index", `{"force":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIndex_Failure(t *testing.T) {
	ts := newTestServer(t, func(o *Options) {
		o.Indexer = IndexerFunc(func(context.Context, bool) (int, error) {
			return 0, errors.New("embedding quota exceeded")
		})
	})

	w := ts.do(t, http.MethodPost, "/index", `{}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "embedding quota exceeded")
}

func TestApplications(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/applications", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	first := ts.saveApplication(t, "Acme")
	second := ts.saveApplication(t, "Globex")

	w = ts.do(t, http.MethodGet, "/applications?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []types.ApplicationSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, "Globex", list[0].Company)

	w = ts.do(t, http.MethodGet, "/applications/"+itoa(first), "")
	require.Equal(t, http.StatusOK, w.Code)
	var rec types.ApplicationRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "Acme", rec.JobAnalysis.Company)
	assert.Equal(t, types.StatusGenerated, rec.Status)
}

func TestApplications_Errors(t *testing.T) {
	ts := newTestServer(t, nil)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/applications?limit=zero", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/applications/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/applications/999", "").Code)
}

func TestUpdateStatus(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.saveApplication(t, "Acme")

	w := ts.do(t, http.MethodPatch, "/applications/"+itoa(id)+"/status", `{"status":"applied","notes":"sent via referral"}`)
	require.Equal(t, http.StatusOK, w.Code)

	rec, err := ts.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusApplied, rec.Status)
	assert.Equal(t, "sent via referral", rec.Notes)

	w = ts.do(t, http.MethodPatch, "/applications/"+itoa(id)+"/status", `{"status":"ghosted"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPatch, "/applications/999/status", `{"status":"applied"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuth(t *testing.T) {
	jwtService := NewJWTService(&config.JWTConfig{Secret: testSecret, ExpirationHours: 1})
	ts := newTestServer(t, func(o *Options) { o.JWT = jwtService })

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/applications", "").Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/run", `{}`).Code)
	assert.Empty(t, ts.runner.inputs)

	token, err := jwtService.GenerateToken("cli", 0)
	require.NoError(t, err)
	w := ts.do(t, http.MethodGet, "/applications", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(o *Options) {
		o.RateLimit = &ratelimit.Config{
			Enabled:       true,
			DefaultLimit:  100,
			DefaultWindow: time.Minute,
			EndpointConfigs: []ratelimit.EndpointConfig{
				{Path: "/run", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1},
			},
		}
	})

	w := ts.do(t, http.MethodPost, "/run", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = ts.do(t, http.MethodPost, "/run", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodOptions, "/run", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Empty(t, ts.runner.inputs)
}

func TestRequestLogging(t *testing.T) {
	ts := newTestServer(t, nil)

	ts.do(t, http.MethodGet, "/applications/999", "")

	entries := ts.logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/applications/999", fields["path"])
	assert.EqualValues(t, http.StatusNotFound, fields["status"])
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(&ErrValidation{Field: "status", Message: "bad"}))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(storage.ErrInvalidStatus))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(storage.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(&storage.PersistenceError{Op: "x", Cause: errors.New("disk")}))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
