package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/job-assistant/internal/pipeline/steps"
	"github.com/jonathan/job-assistant/internal/storage"
	"github.com/jonathan/job-assistant/internal/types"
)

// maxRequestBody bounds JSON request bodies, which may carry a pasted posting.
const maxRequestBody = 1 << 20

var validate = validator.New()

// RunRequest represents the request body for /run and /run/stream.
// An empty request still runs and reports "no job URL or text provided".
type RunRequest struct {
	JobURL  string `json:"job_url,omitempty" validate:"omitempty,http_url"`
	JobText string `json:"job_text,omitempty"`
}

// RunResponse is the final state of a synchronous run.
type RunResponse struct {
	RunID string                 `json:"run_id"`
	State types.ApplicationState `json:"state"`
}

// StageEvent is the payload of a "stage" SSE event.
type StageEvent struct {
	RunID string                 `json:"run_id"`
	Stage string                 `json:"stage"`
	State types.ApplicationState `json:"state"`
}

// ErrorEvent is sent once, when a run first records an error.
type ErrorEvent struct {
	RunID string `json:"run_id"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// CompleteEvent closes a stream.
type CompleteEvent struct {
	RunID  string                 `json:"run_id"`
	Status string                 `json:"status"`
	State  types.ApplicationState `json:"state"`
}

// IndexRequest is the optional body of POST /index.
type IndexRequest struct {
	Force bool `json:"force"`
}

// IndexResponse reports the number of indexed chunks.
type IndexResponse struct {
	Chunks int `json:"chunks"`
}

func (s *Server) decodeRunRequest(w http.ResponseWriter, r *http.Request) (RunRequest, bool) {
	var req RunRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return req, false
	}
	if err := validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "job_url must be an http(s) URL")
		return req, false
	}
	return req, true
}

// handleRun runs the pipeline and returns the final state.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRunRequest(w, r)
	if !ok {
		return
	}

	// A dropped connection must not abort the run before it persists.
	runID := uuid.NewString()
	ctx := steps.WithRunID(context.WithoutCancel(r.Context()), runID)
	final := s.runner.Run(ctx, types.ApplicationState{JobURL: req.JobURL, JobText: req.JobText}, nil)

	s.jsonResponse(w, http.StatusOK, RunResponse{RunID: runID, State: final})
}

// handleRunStream runs the pipeline and streams every stage via SSE.
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRunRequest(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	runID := uuid.NewString()
	ctx := steps.WithRunID(context.WithoutCancel(r.Context()), runID)
	log := s.logger.With(zap.String("run_id", runID))

	var final types.ApplicationState
	errorSent := false
	connected := true
	send := func(event string, data any) {
		if !connected {
			return
		}
		if err := sse.WriteEvent(event, data); err != nil {
			// Keep draining so the run still persists.
			log.Warn("stream client disconnected", zap.Error(err))
			connected = false
		}
	}

	for stage, state := range s.runner.Stream(ctx, types.ApplicationState{JobURL: req.JobURL, JobText: req.JobText}) {
		final = state
		send(EventStage, StageEvent{RunID: runID, Stage: stage, State: state})
		if state.Failed() && !errorSent {
			errorSent = true
			send(EventError, ErrorEvent{RunID: runID, Stage: stage, Error: state.Error})
		}
	}

	status := "completed"
	if final.Failed() {
		status = "failed"
	}
	send(EventComplete, CompleteEvent{RunID: runID, Status: status, State: final})
}

// handleIndex rebuilds the knowledge index.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	count, err := s.indexer.Index(r.Context(), req.Force)
	if err != nil {
		s.logger.Error("indexing failed", zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), "indexing failed: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, IndexResponse{Chunks: count})
}

// handleListApplications returns the newest applications first.
func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	limit := storage.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	apps, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if apps == nil {
		apps = []types.ApplicationSummary{}
	}
	s.jsonResponse(w, http.StatusOK, apps)
}

// handleGetApplication returns one stored application.
func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleUpdateStatus changes the tracking status of an application.
func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var update types.StatusUpdate
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&update); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := update.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid status: "+update.Status)
		return
	}

	if err := s.store.UpdateStatus(r.Context(), id, update.Status, update.Notes); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"id": id, "status": update.Status})
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.errorResponse(w, http.StatusBadRequest, "Invalid application ID")
		return 0, false
	}
	return id, true
}
