package task

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/annoflow/annoflow/internal/eventbus"
	"github.com/annoflow/annoflow/pkg/cerr"
)

type Server struct {
	repo     Repository
	eventBus *eventbus.Bus
}

func NewServer(repo Repository, eventBus *eventbus.Bus) *Server {
	return &Server{
		repo:     repo,
		eventBus: eventBus,
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/tasks", s.createTask)
	r.Get("/tasks", s.listTasks)
	r.Get("/tasks/{taskID}", s.getTask)
}

type createTaskRequest struct {
	Kind            string     `json:"kind"`
	Title           string     `json:"title"`
	Priority        Priority   `json:"priority"`
	Difficulty      Difficulty `json:"difficulty"`
	ItemCount       int        `json:"itemCount"`
	Deadline        time.Time  `json:"deadline"`
	EstimatedEffort string     `json:"estimatedEffort"`
	MaxAssignees    int        `json:"maxAssignees"`
}

type taskResponse struct {
	Task *Task `json:"task"`
}

type listTasksResponse struct {
	Tasks []*Task `json:"tasks"`
	Total int     `json:"total"`
}

// createTask is the intake endpoint; tasks always start in Pending with no
// assignees.
func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Kind == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "kind is required", nil)
		return
	}
	if req.ItemCount <= 0 {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "item count must be positive", nil)
		return
	}
	if req.Priority == "" {
		req.Priority = PriorityMedium
	}
	if req.Priority.Rank() == 0 {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, fmt.Sprintf("unknown priority %q", req.Priority), nil)
		return
	}
	if req.Difficulty == "" {
		req.Difficulty = DifficultyMedium
	}
	var effort time.Duration
	if req.EstimatedEffort != "" {
		var err error
		effort, err = time.ParseDuration(req.EstimatedEffort)
		if err != nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid estimated effort", err)
			return
		}
	}

	now := time.Now()
	t := &Task{
		ID:              ulid.Make().String(),
		Kind:            req.Kind,
		Title:           req.Title,
		Priority:        req.Priority,
		Difficulty:      req.Difficulty,
		ItemCount:       req.ItemCount,
		Deadline:        req.Deadline,
		EstimatedEffort: effort,
		MaxAssignees:    req.MaxAssignees,
		Status:          StatusPending,
		Generation:      1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.eventBus.PublishNew(eventbus.EventTypeTaskCreated, t.ID, "", map[string]string{
		"kind": t.Kind,
	})

	cerr.SetJSONResponse(ctx, taskResponse{Task: t})
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := r.URL.Query()
	limit, offset := 50, 0
	if v := q.Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	if v := q.Get("offset"); v != "" {
		fmt.Sscanf(v, "%d", &offset)
	}

	tasks, total, err := s.repo.List(ctx, q.Get("kind"), Status(q.Get("status")), limit, offset)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, listTasksResponse{Tasks: tasks, Total: total})
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, err := s.repo.Get(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, taskResponse{Task: t})
}
