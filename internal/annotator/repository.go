package annotator

import "context"

type Repository interface {
	Create(ctx context.Context, a *Annotator) error
	Get(ctx context.Context, id string) (*Annotator, error)
	List(ctx context.Context, skill string, limit, offset int) ([]*Annotator, int, error)
	Update(ctx context.Context, a *Annotator) error
	Delete(ctx context.Context, id string) error
}
