package domain

import "time"

// ChangeOperation describes an activity operation on a board entity.
type ChangeOperation string

// ChangeOperation values used by the in-memory activity log.
const (
	ChangeOperationCreate ChangeOperation = "create"
	ChangeOperationUpdate ChangeOperation = "update"
	ChangeOperationMove   ChangeOperation = "move"
	ChangeOperationDelete ChangeOperation = "delete"
	ChangeOperationCancel ChangeOperation = "cancel"
)

// ChangeEvent represents a single activity-log entry for a column or card.
type ChangeEvent struct {
	ID         int64             `json:"id"`
	EntityID   string            `json:"entity_id"`
	Kind       Kind              `json:"kind"`
	Operation  ChangeOperation   `json:"operation"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
