package orgclass

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("organization class not found")

type Repository interface {
	GetByID(ctx context.Context, id string) (OrganizationClass, error)
	// GetOrCreate inserts the class unless a row with the same composite id
	// already exists; the existing row wins and is returned unchanged.
	GetOrCreate(ctx context.Context, class OrganizationClass) (OrganizationClass, error)
}
