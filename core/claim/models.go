package claim

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/tulongph/tulong/core"
)

// StatusClaimed is the only persisted claim state.
const StatusClaimed = "CLAIMED"

// Claim links exactly one Family to exactly one DonationSchedule.
// (family_id, schedule_id) is unique: a family claims a schedule at most once, ever.
type Claim struct {
	ID         string      `json:"id" db:"id"`
	ScheduleID string      `json:"schedule_id" db:"schedule_id"`
	FamilyID   string      `json:"family_id" db:"family_id"`
	ClaimedBy  string      `json:"claimed_by" db:"claimed_by"`
	VerifiedBy null.String `json:"verified_by" db:"verified_by"` // barangay official, when claimed on behalf
	Status     string      `json:"status" db:"status"`
	Notes      string      `json:"notes" db:"notes"`
	ClaimedAt  time.Time   `json:"claimed_at" db:"claimed_at"` // UTC
}

// NewClaim contains information needed to record a claim. ResidentID is only
// set when a barangay official claims on a resident's behalf.
type NewClaim struct {
	ScheduleID string `json:"schedule_id" validate:"required,uuid4"`
	ResidentID string `json:"resident_id" validate:"omitempty,uuid4"`
	Notes      string `json:"notes"`
}

func (nc *NewClaim) Validate(validate *validator.Validate) error {
	nc.Notes = core.CleanString(nc.Notes)
	return validate.Struct(nc)
}

// QueryFilter applies an AND operation on its non-empty fields.
type QueryFilter struct {
	ScheduleID string `query:"schedule_id"`
	FamilyID   string `query:"family_id"`
	BarangayID string `query:"barangay_id"`
}
