package allocator

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/annoflow/annoflow/internal/annotator"
	"github.com/annoflow/annoflow/internal/task"
	"github.com/annoflow/annoflow/pkg/cerr"
)

type Server struct {
	recommender *Recommender
	tasks       task.Repository
	registry    *annotator.Registry
}

func NewServer(recommender *Recommender, tasks task.Repository, registry *annotator.Registry) *Server {
	return &Server{
		recommender: recommender,
		tasks:       tasks,
		registry:    registry,
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/assignments/recommend", s.recommend)
}

type recommendRequest struct {
	TaskIDs []string `json:"taskIds"`
}

// recommend computes a proposal over a fresh snapshot. Nothing is
// reserved; the caller commits accepted proposals through the assign
// endpoint, which re-validates against live state.
func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if len(req.TaskIDs) == 0 {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "at least one task id is required", nil)
		return
	}

	tasks := make([]*task.Task, 0, len(req.TaskIDs))
	for _, id := range req.TaskIDs {
		t, err := s.tasks.Get(ctx, id)
		if err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		tasks = append(tasks, t)
	}

	// An empty kind returns every annotator that is not offline; the
	// recommender applies the skill gate per task.
	candidates, err := s.registry.GetCandidates(ctx, "")
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	cerr.SetJSONResponse(ctx, s.recommender.Recommend(tasks, candidates))
}
