package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/organization"
	"github.com/jacksonlee411/orghierarchy/pkg/composables"
)

const organizationColumns = `
	id, data_source_id, origin_id, name, abbreviation, classification_id,
	internal_type, founding_date, dissolution_date, parent_id, replaced_by_id,
	sort_order, created_at, modified_at`

const (
	selectOrgByIDQuery = `SELECT` + organizationColumns + `
		FROM organizations WHERE id = $1`

	selectOrgByOriginQuery = `SELECT` + organizationColumns + `
		FROM organizations
		WHERE data_source_id = $1 AND LOWER(origin_id) = LOWER($2)`

	selectChildrenQuery = `SELECT` + organizationColumns + `
		FROM organizations
		WHERE parent_id IS NOT DISTINCT FROM NULLIF($1, '')
		ORDER BY sort_order, id`

	selectReplacementOfQuery = `SELECT` + organizationColumns + `
		FROM organizations WHERE replaced_by_id = $1`

	insertOrgQuery = `INSERT INTO organizations (
		id, data_source_id, origin_id, name, abbreviation, classification_id,
		internal_type, founding_date, dissolution_date, parent_id, replaced_by_id,
		sort_order, created_at, modified_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11,
		(SELECT COALESCE(MAX(o.sort_order) + 1, 0)
			FROM organizations o
			WHERE o.parent_id IS NOT DISTINCT FROM NULLIF($10, '')),
		now(), now()
	)
	RETURNING` + organizationColumns

	updateOrgQuery = `UPDATE organizations SET
		data_source_id = $2,
		origin_id = $3,
		name = $4,
		abbreviation = $5,
		classification_id = $6,
		internal_type = $7,
		founding_date = $8,
		dissolution_date = $9,
		parent_id = $10,
		replaced_by_id = $11,
		modified_at = now()
	WHERE id = $1
	RETURNING` + organizationColumns

	reorderOrgQuery = `UPDATE organizations SET sort_order = $2, modified_at = now()
		WHERE id = $1`

	selectDescendantsQuery = `WITH RECURSIVE subtree AS (
		SELECT` + organizationColumns + ` FROM organizations WHERE parent_id = $1
		UNION ALL
		SELECT
			o.id, o.data_source_id, o.origin_id, o.name, o.abbreviation,
			o.classification_id, o.internal_type, o.founding_date,
			o.dissolution_date, o.parent_id, o.replaced_by_id, o.sort_order,
			o.created_at, o.modified_at
		FROM organizations o
		JOIN subtree s ON o.parent_id = s.id
	)
	SELECT * FROM subtree ORDER BY id`

	selectAncestorsQuery = `WITH RECURSIVE chain AS (
		SELECT` + organizationColumns + ` FROM organizations
		WHERE id = (SELECT parent_id FROM organizations WHERE id = $1)
		UNION ALL
		SELECT
			o.id, o.data_source_id, o.origin_id, o.name, o.abbreviation,
			o.classification_id, o.internal_type, o.founding_date,
			o.dissolution_date, o.parent_id, o.replaced_by_id, o.sort_order,
			o.created_at, o.modified_at
		FROM organizations o
		JOIN chain c ON o.id = c.parent_id
	)
	SELECT * FROM chain`
)

type OrgRepository struct{}

func NewOrgRepository() *OrgRepository {
	return &OrgRepository{}
}

type orgRow interface {
	Scan(dest ...any) error
}

func scanOrganization(row orgRow) (organization.Organization, error) {
	var (
		id, dataSourceID, originID, name, abbreviation string
		internalType                                   string
		classificationID, parentID, replacedByID       pgtype.Text
		foundingDate, dissolutionDate                  pgtype.Date
		sortOrder                                      int
		createdAt, modifiedAt                          time.Time
	)
	err := row.Scan(
		&id, &dataSourceID, &originID, &name, &abbreviation, &classificationID,
		&internalType, &foundingDate, &dissolutionDate, &parentID, &replacedByID,
		&sortOrder, &createdAt, &modifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return organization.Organization{}, organization.ErrNotFound
		}
		return organization.Organization{}, fmt.Errorf("scan organization: %w", err)
	}
	return organization.Hydrate(id, dataSourceID, originID, organization.Attributes{
		Name:             name,
		Abbreviation:     abbreviation,
		ClassificationID: textValue(classificationID),
		InternalType:     organization.InternalType(internalType),
		FoundingDate:     dateValue(foundingDate),
		DissolutionDate:  dateValue(dissolutionDate),
		ParentID:         textValue(parentID),
		ReplacedByID:     textValue(replacedByID),
	}, sortOrder, createdAt, modifiedAt), nil
}

func scanOrganizations(rows pgx.Rows) ([]organization.Organization, error) {
	defer rows.Close()
	var out []organization.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

func (r *OrgRepository) GetByID(ctx context.Context, id string) (organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return organization.Organization{}, err
	}
	return scanOrganization(tx.QueryRow(ctx, selectOrgByIDQuery, id))
}

func (r *OrgRepository) GetByOrigin(ctx context.Context, dataSourceID, originID string) (organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return organization.Organization{}, err
	}
	return scanOrganization(tx.QueryRow(ctx, selectOrgByOriginQuery, dataSourceID, originID))
}

func (r *OrgRepository) Create(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return organization.Organization{}, err
	}
	return scanOrganization(tx.QueryRow(ctx, insertOrgQuery,
		org.ID(),
		org.DataSourceID(),
		org.OriginID(),
		org.Name(),
		org.Abbreviation(),
		pgNullableText(org.ClassificationID()),
		string(org.InternalType()),
		pgNullableDate(org.FoundingDate()),
		pgNullableDate(org.DissolutionDate()),
		org.ParentID(),
		pgNullableText(org.ReplacedByID()),
	))
}

func (r *OrgRepository) Update(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return organization.Organization{}, err
	}
	return scanOrganization(tx.QueryRow(ctx, updateOrgQuery,
		org.ID(),
		org.DataSourceID(),
		org.OriginID(),
		org.Name(),
		org.Abbreviation(),
		pgNullableText(org.ClassificationID()),
		string(org.InternalType()),
		pgNullableDate(org.FoundingDate()),
		pgNullableDate(org.DissolutionDate()),
		pgNullableText(org.ParentID()),
		pgNullableText(org.ReplacedByID()),
	))
}

func (r *OrgRepository) Children(ctx context.Context, parentID string) ([]organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, selectChildrenQuery, parentID)
	if err != nil {
		return nil, fmt.Errorf("select children: %w", err)
	}
	return scanOrganizations(rows)
}

func (r *OrgRepository) Reorder(ctx context.Context, parentID string, orderedIDs []string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for i, id := range orderedIDs {
		if _, err := tx.Exec(ctx, reorderOrgQuery, id, i); err != nil {
			return fmt.Errorf("reorder organization %s: %w", id, err)
		}
	}
	return nil
}

func (r *OrgRepository) Descendants(ctx context.Context, id string) ([]organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, selectDescendantsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("select descendants: %w", err)
	}
	return scanOrganizations(rows)
}

func (r *OrgRepository) Ancestors(ctx context.Context, id string) ([]organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, selectAncestorsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("select ancestors: %w", err)
	}
	return scanOrganizations(rows)
}

func (r *OrgRepository) ReplacementOf(ctx context.Context, replacementID string) (organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return organization.Organization{}, err
	}
	return scanOrganization(tx.QueryRow(ctx, selectReplacementOfQuery, replacementID))
}
