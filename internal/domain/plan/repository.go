package plan

import (
	"context"
)

// Repository defines the interface for plan persistence
type Repository interface {
	// Create fails with ierr.ErrAlreadyExists when the name is taken
	Create(ctx context.Context, plan *Plan) error
	Get(ctx context.Context, id string) (*Plan, error)
	GetByName(ctx context.Context, name string) (*Plan, error)
	List(ctx context.Context, activeOnly bool) ([]*Plan, error)
}
