package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TopicOrganizationImportedV1 = "orghierarchy.organization.imported.v1"
	EventVersionV1              = 1
)

const (
	ChangeTypeCreated = "created"
	ChangeTypeUpdated = "updated"
	ChangeTypeSkipped = "skipped"
)

type OrganizationImportedV1 struct {
	EventID        uuid.UUID `json:"event_id"`
	EventVersion   int       `json:"event_version"`
	RunID          string    `json:"run_id"`
	ChangeType     string    `json:"change_type"`
	OrganizationID string    `json:"organization_id,omitempty"`
	DataSourceID   string    `json:"data_source_id,omitempty"`
	OriginID       string    `json:"origin_id"`
	Name           string    `json:"name,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
