package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/annoflow/annoflow/internal/review"
	"github.com/annoflow/annoflow/pkg/cerr"
	"github.com/annoflow/annoflow/pkg/storage"
)

const reviewsPrefix = "reviews"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(taskID string, cycle int) string {
	return fmt.Sprintf("%s/%s/%04d.yaml", reviewsPrefix, taskID, cycle)
}

// Append stores the record for its (task, cycle) key. A record that already
// exists for the key is never overwritten.
func (r *YAMLRepository) Append(ctx context.Context, rec *review.Record) error {
	exists, err := r.storage.Exists(ctx, path(rec.TaskID, rec.Cycle))
	if err != nil {
		return cerr.WrapStorageWriteError("review record", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists,
			fmt.Sprintf("review record for task %s cycle %d already exists", rec.TaskID, rec.Cycle), nil)
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal review record: %w", err))
	}
	if err := r.storage.Write(ctx, path(rec.TaskID, rec.Cycle), data); err != nil {
		return cerr.WrapStorageWriteError("review record", err)
	}
	return nil
}

func (r *YAMLRepository) ListByTask(ctx context.Context, taskID string) ([]*review.Record, error) {
	paths, err := r.storage.List(ctx, fmt.Sprintf("%s/%s", reviewsPrefix, taskID))
	if err != nil {
		return nil, cerr.WrapStorageReadError("review records", err)
	}

	sort.Strings(paths)

	records := make([]*review.Record, 0, len(paths))
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var rec review.Record
		if err := yaml.Unmarshal(data, &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}
	return records, nil
}
