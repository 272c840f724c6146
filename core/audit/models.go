package audit

import (
	"time"
)

// ActorSystem is the actor recorded for automated state changes.
const ActorSystem = "system"

// Entry is an append-only record of an administrative or state-changing action.
type Entry struct {
	ID        string    `json:"id" db:"id"`
	ActorID   string    `json:"actor_id" db:"actor_id"` // user id or ActorSystem
	Action    string    `json:"action" db:"action"`
	Entity    string    `json:"entity" db:"entity"`
	EntityID  string    `json:"entity_id" db:"entity_id"`
	Details   string    `json:"details" db:"details"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// QueryFilter applies an AND operation on its non-empty fields.
type QueryFilter struct {
	ActorID string `query:"actor_id"`
	Entity  string `query:"entity"`
	Action  string `query:"action"`
}
