package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/datasource"
	"github.com/jacksonlee411/orghierarchy/pkg/composables"
)

const (
	selectDataSourceQuery = `SELECT id, name, user_editable FROM data_sources WHERE id = $1`

	// The no-op DO UPDATE makes RETURNING yield the existing row on conflict,
	// so an already-registered source is never renamed.
	upsertDataSourceQuery = `INSERT INTO data_sources (id, name, user_editable)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET id = data_sources.id
		RETURNING id, name, user_editable`
)

type DataSourceRepository struct{}

func NewDataSourceRepository() *DataSourceRepository {
	return &DataSourceRepository{}
}

func scanDataSource(row orgRow) (datasource.DataSource, error) {
	var (
		id, name     string
		userEditable bool
	)
	if err := row.Scan(&id, &name, &userEditable); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return datasource.DataSource{}, datasource.ErrNotFound
		}
		return datasource.DataSource{}, fmt.Errorf("scan data source: %w", err)
	}
	return datasource.Hydrate(id, name, userEditable), nil
}

func (r *DataSourceRepository) GetByID(ctx context.Context, id string) (datasource.DataSource, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return datasource.DataSource{}, err
	}
	return scanDataSource(tx.QueryRow(ctx, selectDataSourceQuery, id))
}

func (r *DataSourceRepository) GetOrCreate(ctx context.Context, ds datasource.DataSource) (datasource.DataSource, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return datasource.DataSource{}, err
	}
	return scanDataSource(tx.QueryRow(ctx, upsertDataSourceQuery, ds.ID(), ds.Name(), ds.UserEditable()))
}
