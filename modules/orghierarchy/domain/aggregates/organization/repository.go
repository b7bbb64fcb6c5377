package organization

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("organization not found")

type Repository interface {
	GetByID(ctx context.Context, id string) (Organization, error)
	// GetByOrigin matches originID case-insensitively; the stored record
	// keeps its original casing.
	GetByOrigin(ctx context.Context, dataSourceID, originID string) (Organization, error)
	Create(ctx context.Context, org Organization) (Organization, error)
	Update(ctx context.Context, org Organization) (Organization, error)
	// Children returns direct children of parentID ordered by sort order.
	// An empty parentID selects root organizations.
	Children(ctx context.Context, parentID string) ([]Organization, error)
	// Reorder assigns sort order 0..n-1 to the given ids under parentID.
	Reorder(ctx context.Context, parentID string, orderedIDs []string) error
	Descendants(ctx context.Context, id string) ([]Organization, error)
	Ancestors(ctx context.Context, id string) ([]Organization, error)
	// ReplacementOf returns the organization whose replaced_by points at
	// replacementID.
	ReplacementOf(ctx context.Context, replacementID string) (Organization, error)
}
