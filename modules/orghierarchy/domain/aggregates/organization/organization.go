package organization

import (
	"fmt"
	"time"
)

type InternalType string

const (
	TypeNormal     InternalType = "normal"
	TypeAffiliated InternalType = "affiliated"
)

func ParseInternalType(s string) (InternalType, error) {
	switch InternalType(s) {
	case TypeNormal:
		return TypeNormal, nil
	case TypeAffiliated:
		return TypeAffiliated, nil
	default:
		return "", fmt.Errorf("unknown internal type: %q", s)
	}
}

// Organization is a node in the hierarchy. Its id is
// "{data_source_id}:{origin_id}", computed exactly once when the aggregate
// is first created and never recomputed, even if data source or origin id
// change later.
type Organization struct {
	id               string
	dataSourceID     string
	originID         string
	name             string
	abbreviation     string
	classificationID string
	internalType     InternalType
	foundingDate     *time.Time
	dissolutionDate  *time.Time
	parentID         string
	replacedByID     string
	sortOrder        int
	createdAt        time.Time
	modifiedAt       time.Time
}

func New(dataSourceID, originID string) Organization {
	return Organization{
		id:           dataSourceID + ":" + originID,
		dataSourceID: dataSourceID,
		originID:     originID,
		internalType: TypeNormal,
	}
}

// Attributes groups the mutable fields for hydration from storage.
type Attributes struct {
	Name             string
	Abbreviation     string
	ClassificationID string
	InternalType     InternalType
	FoundingDate     *time.Time
	DissolutionDate  *time.Time
	ParentID         string
	ReplacedByID     string
}

func Hydrate(id, dataSourceID, originID string, attrs Attributes, sortOrder int, createdAt, modifiedAt time.Time) Organization {
	return Organization{
		id:               id,
		dataSourceID:     dataSourceID,
		originID:         originID,
		name:             attrs.Name,
		abbreviation:     attrs.Abbreviation,
		classificationID: attrs.ClassificationID,
		internalType:     attrs.InternalType,
		foundingDate:     attrs.FoundingDate,
		dissolutionDate:  attrs.DissolutionDate,
		parentID:         attrs.ParentID,
		replacedByID:     attrs.ReplacedByID,
		sortOrder:        sortOrder,
		createdAt:        createdAt,
		modifiedAt:       modifiedAt,
	}
}

func (o Organization) ID() string { return o.id }

func (o Organization) DataSourceID() string { return o.dataSourceID }

func (o Organization) OriginID() string { return o.originID }

func (o Organization) Name() string { return o.name }

func (o Organization) Abbreviation() string { return o.abbreviation }

func (o Organization) ClassificationID() string { return o.classificationID }

func (o Organization) InternalType() InternalType { return o.internalType }

func (o Organization) IsAffiliated() bool { return o.internalType == TypeAffiliated }

func (o Organization) FoundingDate() *time.Time { return o.foundingDate }

func (o Organization) DissolutionDate() *time.Time { return o.dissolutionDate }

func (o Organization) ParentID() string { return o.parentID }

func (o Organization) ReplacedByID() string { return o.replacedByID }

func (o Organization) SortOrder() int { return o.sortOrder }

func (o Organization) CreatedAt() time.Time { return o.createdAt }

func (o Organization) ModifiedAt() time.Time { return o.modifiedAt }

func (o Organization) IsZero() bool { return o.id == "" }

func (o *Organization) SetDataSourceID(id string) { o.dataSourceID = id }

func (o *Organization) SetOriginID(originID string) { o.originID = originID }

func (o *Organization) SetName(name string) { o.name = name }

func (o *Organization) SetAbbreviation(abbr string) { o.abbreviation = abbr }

func (o *Organization) SetClassificationID(id string) { o.classificationID = id }

func (o *Organization) SetInternalType(t InternalType) { o.internalType = t }

func (o *Organization) SetFoundingDate(d *time.Time) { o.foundingDate = d }

func (o *Organization) SetDissolutionDate(d *time.Time) { o.dissolutionDate = d }

func (o *Organization) SetParentID(id string) { o.parentID = id }

func (o *Organization) SetReplacedByID(id string) { o.replacedByID = id }

func (o *Organization) SetSortOrder(n int) { o.sortOrder = n }
