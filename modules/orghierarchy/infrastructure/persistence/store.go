package persistence

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/datasource"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/organization"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/orgclass"
	"github.com/jacksonlee411/orghierarchy/pkg/composables"
)

// PgStore bundles the pgx-backed repositories behind the services.Store
// surface. Atomic runs fn inside a single transaction; nested calls join
// the transaction already carried by the context.
type PgStore struct {
	pool    *pgxpool.Pool
	orgs    *OrgRepository
	sources *DataSourceRepository
	classes *OrgClassRepository
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{
		pool:    pool,
		orgs:    NewOrgRepository(),
		sources: NewDataSourceRepository(),
		classes: NewOrgClassRepository(),
	}
}

func (s *PgStore) Organizations() organization.Repository {
	return s.orgs
}

func (s *PgStore) DataSources() datasource.Repository {
	return s.sources
}

func (s *PgStore) OrganizationClasses() orgclass.Repository {
	return s.classes
}

func (s *PgStore) Atomic(ctx context.Context, fn func(context.Context) error) error {
	return composables.InTx(composables.WithPool(ctx, s.pool), fn)
}
