package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/annoflow/annoflow/internal/annotator"
	"github.com/annoflow/annoflow/pkg/cerr"
	"github.com/annoflow/annoflow/pkg/storage"
)

const annotatorsPrefix = "annotators"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", annotatorsPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, a *annotator.Annotator) error {
	exists, err := r.storage.Exists(ctx, path(a.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("annotator", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "annotator already exists", nil)
	}
	data, err := yaml.Marshal(a)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal annotator: %w", err))
	}
	if err := r.storage.Write(ctx, path(a.ID), data); err != nil {
		return cerr.WrapStorageWriteError("annotator", err)
	}
	return nil
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*annotator.Annotator, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("annotator", err)
	}
	var a annotator.Annotator
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal annotator: %w", err))
	}
	return &a, nil
}

func (r *YAMLRepository) List(ctx context.Context, skill string, limit, offset int) ([]*annotator.Annotator, int, error) {
	paths, err := r.storage.List(ctx, annotatorsPrefix)
	if err != nil {
		return nil, 0, cerr.WrapStorageReadError("annotators", err)
	}

	sort.Strings(paths)

	var all []*annotator.Annotator
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var a annotator.Annotator
		if err := yaml.Unmarshal(data, &a); err != nil {
			continue
		}
		if skill != "" && !a.HasSkill(skill) {
			continue
		}
		all = append(all, &a)
	}

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *YAMLRepository) Update(ctx context.Context, a *annotator.Annotator) error {
	exists, err := r.storage.Exists(ctx, path(a.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("annotator", err)
	}
	if !exists {
		return cerr.NewError(cerr.NotFound, "annotator not found", nil)
	}
	data, err := yaml.Marshal(a)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal annotator: %w", err))
	}
	if err := r.storage.Write(ctx, path(a.ID), data); err != nil {
		return cerr.WrapStorageWriteError("annotator", err)
	}
	return nil
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	if err := r.storage.Delete(ctx, path(id)); err != nil {
		return cerr.WrapStorageDeleteError("annotator", err)
	}
	return nil
}
