package annotator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/annoflow/annoflow/pkg/cerr"
)

type Server struct {
	repo     Repository
	registry *Registry
}

func NewServer(repo Repository, registry *Registry) *Server {
	return &Server{
		repo:     repo,
		registry: registry,
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/annotators", s.createAnnotator)
	r.Get("/annotators", s.listAnnotators)
	r.Get("/annotators/{annotatorID}", s.getAnnotator)
	r.Put("/annotators/{annotatorID}", s.updateAnnotator)
}

type createAnnotatorRequest struct {
	Name     string   `json:"name"`
	Skills   []string `json:"skills"`
	Level    Level    `json:"level"`
	Capacity int      `json:"capacity"`
}

type updateAnnotatorRequest struct {
	Name         *string      `json:"name"`
	Skills       []string     `json:"skills"`
	Level        Level        `json:"level"`
	Capacity     *int         `json:"capacity"`
	Availability Availability `json:"availability"`
}

type annotatorResponse struct {
	Annotator *Annotator `json:"annotator"`
}

type listAnnotatorsResponse struct {
	Annotators []*Annotator `json:"annotators"`
	Total      int          `json:"total"`
}

func (s *Server) createAnnotator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createAnnotatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if len(req.Skills) == 0 {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "at least one skill is required", nil)
		return
	}
	if req.Capacity <= 0 {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "capacity must be positive", nil)
		return
	}
	if req.Level == "" {
		req.Level = LevelJunior
	}
	if req.Level.Rank() == 0 {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, fmt.Sprintf("unknown level %q", req.Level), nil)
		return
	}

	now := time.Now()
	a := &Annotator{
		ID:           ulid.Make().String(),
		Name:         req.Name,
		Skills:       req.Skills,
		Level:        req.Level,
		Capacity:     req.Capacity,
		Availability: AvailabilityOnline,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, annotatorResponse{Annotator: a})
}

func (s *Server) listAnnotators(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := r.URL.Query()
	limit, offset := 50, 0
	if v := q.Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	if v := q.Get("offset"); v != "" {
		fmt.Sscanf(v, "%d", &offset)
	}

	annotators, total, err := s.repo.List(ctx, q.Get("skill"), limit, offset)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, listAnnotatorsResponse{Annotators: annotators, Total: total})
}

func (s *Server) getAnnotator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	a, err := s.repo.Get(ctx, chi.URLParam(r, "annotatorID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, annotatorResponse{Annotator: a})
}

// updateAnnotator accepts profile changes only. CurrentLoad cannot be set
// here: capacity counters move exclusively through the registry.
func (s *Server) updateAnnotator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateAnnotatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}

	id := chi.URLParam(r, "annotatorID")
	err := s.registry.UpdateProfile(ctx, id, func(a *Annotator) error {
		if req.Name != nil {
			a.Name = *req.Name
		}
		if req.Skills != nil {
			a.Skills = req.Skills
		}
		if req.Level != "" {
			if req.Level.Rank() == 0 {
				return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown level %q", req.Level), nil)
			}
			a.Level = req.Level
		}
		if req.Capacity != nil {
			if *req.Capacity < a.CurrentLoad {
				return cerr.NewError(cerr.FailedPrecondition,
					fmt.Sprintf("capacity %d is below current load %d", *req.Capacity, a.CurrentLoad), nil)
			}
			a.Capacity = *req.Capacity
		}
		if req.Availability != "" {
			switch req.Availability {
			case AvailabilityOnline, AvailabilityBusy, AvailabilityOffline:
				a.Availability = req.Availability
			default:
				return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown availability %q", req.Availability), nil)
			}
		}
		return nil
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	a, err := s.repo.Get(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, annotatorResponse{Annotator: a})
}
