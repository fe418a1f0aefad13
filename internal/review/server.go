package review

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/annoflow/annoflow/internal/task"
	"github.com/annoflow/annoflow/pkg/cerr"
)

type Server struct {
	coordinator *Coordinator
}

func NewServer(coordinator *Coordinator) *Server {
	return &Server{coordinator: coordinator}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/tasks/{taskID}/review/start", s.startReview)
	r.Post("/tasks/{taskID}/review/decide", s.decide)
	r.Get("/tasks/{taskID}/reviews", s.listRecords)
	r.Post("/reviews/batch-decide", s.batchDecide)
}

type startReviewRequest struct {
	ReviewerID string `json:"reviewerId"`
}

type decideRequest struct {
	ReviewerID string   `json:"reviewerId"`
	Decision   Decision `json:"decision"`
	Comment    string   `json:"comment"`
	Score      int      `json:"score"`
}

type batchDecideRequest struct {
	TaskIDs    []string `json:"taskIds"`
	ReviewerID string   `json:"reviewerId"`
	Decision   Decision `json:"decision"`
	Comment    string   `json:"comment"`
	Score      int      `json:"score"`
}

type taskResponse struct {
	Task *task.Task `json:"task"`
}

type decideResponse struct {
	Task   *task.Task `json:"task"`
	Record *Record    `json:"record"`
}

type listRecordsResponse struct {
	Records []*Record `json:"records"`
}

func (s *Server) startReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req startReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}

	t, err := s.coordinator.StartReview(ctx, chi.URLParam(r, "taskID"), req.ReviewerID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, taskResponse{Task: t})
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}

	t, rec, err := s.coordinator.Decide(ctx, chi.URLParam(r, "taskID"), req.ReviewerID, req.Decision, req.Comment, req.Score)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, decideResponse{Task: t, Record: rec})
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := s.coordinator.ListRecords(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, listRecordsResponse{Records: records})
}

func (s *Server) batchDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req batchDecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if len(req.TaskIDs) == 0 {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "at least one task id is required", nil)
		return
	}

	result, err := s.coordinator.BatchDecide(ctx, req.TaskIDs, req.ReviewerID, req.Decision, req.Comment, req.Score)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, result)
}
