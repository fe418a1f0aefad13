package workflow

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/annoflow/annoflow/internal/task"
	"github.com/annoflow/annoflow/pkg/cerr"
)

type Server struct {
	engine *Engine
}

func NewServer(engine *Engine) *Server {
	return &Server{engine: engine}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/tasks/{taskID}/assign", s.assignTask)
	r.Post("/tasks/{taskID}/begin", s.beginWork)
	r.Post("/tasks/{taskID}/submit", s.submitTask)
	r.Post("/tasks/{taskID}/reopen", s.reopenTask)
}

type assignTaskRequest struct {
	AnnotatorIDs []string `json:"annotatorIds"`
}

type submitTaskRequest struct {
	CompletedCount int `json:"completedCount"`
}

type taskResponse struct {
	Task *task.Task `json:"task"`
}

func (s *Server) assignTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req assignTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}

	t, err := s.engine.Assign(ctx, chi.URLParam(r, "taskID"), req.AnnotatorIDs)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, taskResponse{Task: t})
}

func (s *Server) beginWork(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, err := s.engine.Begin(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, taskResponse{Task: t})
}

func (s *Server) submitTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}

	t, err := s.engine.Submit(ctx, chi.URLParam(r, "taskID"), req.CompletedCount)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, taskResponse{Task: t})
}

func (s *Server) reopenTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, err := s.engine.Reopen(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, taskResponse{Task: t})
}
