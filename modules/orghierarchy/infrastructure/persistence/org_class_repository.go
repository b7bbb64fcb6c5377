package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/orgclass"
	"github.com/jacksonlee411/orghierarchy/pkg/composables"
)

const (
	selectOrgClassQuery = `SELECT id, data_source_id, origin_id, name, created_at, modified_at
		FROM organization_classes WHERE id = $1`

	upsertOrgClassQuery = `INSERT INTO organization_classes (
		id, data_source_id, origin_id, name, created_at, modified_at
	) VALUES ($1, $2, $3, $4, now(), now())
	ON CONFLICT (id) DO UPDATE SET id = organization_classes.id
	RETURNING id, data_source_id, origin_id, name, created_at, modified_at`
)

type OrgClassRepository struct{}

func NewOrgClassRepository() *OrgClassRepository {
	return &OrgClassRepository{}
}

func scanOrgClass(row orgRow) (orgclass.OrganizationClass, error) {
	var (
		id, dataSourceID, originID, name string
		createdAt, modifiedAt            time.Time
	)
	if err := row.Scan(&id, &dataSourceID, &originID, &name, &createdAt, &modifiedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return orgclass.OrganizationClass{}, orgclass.ErrNotFound
		}
		return orgclass.OrganizationClass{}, fmt.Errorf("scan organization class: %w", err)
	}
	return orgclass.Hydrate(id, dataSourceID, originID, name, createdAt, modifiedAt), nil
}

func (r *OrgClassRepository) GetByID(ctx context.Context, id string) (orgclass.OrganizationClass, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return orgclass.OrganizationClass{}, err
	}
	return scanOrgClass(tx.QueryRow(ctx, selectOrgClassQuery, id))
}

func (r *OrgClassRepository) GetOrCreate(ctx context.Context, class orgclass.OrganizationClass) (orgclass.OrganizationClass, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return orgclass.OrganizationClass{}, err
	}
	return scanOrgClass(tx.QueryRow(ctx, upsertOrgClassQuery,
		class.ID(), class.DataSourceID(), class.OriginID(), class.Name(),
	))
}
