package datasource

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("data source not found")

type Repository interface {
	GetByID(ctx context.Context, id string) (DataSource, error)
	// GetOrCreate inserts the data source unless a row with the same id
	// already exists; the existing row wins and is returned unchanged.
	GetOrCreate(ctx context.Context, ds DataSource) (DataSource, error)
}
