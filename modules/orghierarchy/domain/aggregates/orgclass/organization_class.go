package orgclass

import (
	"strings"
	"time"
)

// OrganizationClass categorizes organizations (council, committee, office).
// Its id is "{data_source_id}:{origin_id}", fixed at creation.
type OrganizationClass struct {
	id           string
	dataSourceID string
	originID     string
	name         string
	createdAt    time.Time
	modifiedAt   time.Time
}

func New(dataSourceID, originID, name string) OrganizationClass {
	id := dataSourceID + ":" + originID
	name = strings.TrimSpace(name)
	if name == "" {
		name = id
	}
	return OrganizationClass{
		id:           id,
		dataSourceID: dataSourceID,
		originID:     originID,
		name:         name,
	}
}

func Hydrate(id, dataSourceID, originID, name string, createdAt, modifiedAt time.Time) OrganizationClass {
	return OrganizationClass{
		id:           id,
		dataSourceID: dataSourceID,
		originID:     originID,
		name:         name,
		createdAt:    createdAt,
		modifiedAt:   modifiedAt,
	}
}

func (c OrganizationClass) ID() string { return c.id }

func (c OrganizationClass) DataSourceID() string { return c.dataSourceID }

func (c OrganizationClass) OriginID() string { return c.originID }

func (c OrganizationClass) Name() string { return c.name }

func (c OrganizationClass) CreatedAt() time.Time { return c.createdAt }

func (c OrganizationClass) ModifiedAt() time.Time { return c.modifiedAt }

func (c OrganizationClass) IsZero() bool { return c.id == "" }
