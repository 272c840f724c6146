package report

import (
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
)

// Dashboard aggregates the counts the admin landing page renders.
type Dashboard struct {
	Users struct {
		Total     int `json:"total" db:"total"`
		Admins    int `json:"admins" db:"admins"`
		Officials int `json:"officials" db:"officials"`
		Residents int `json:"residents" db:"residents"`
		Pending   int `json:"pending" db:"pending"`
	} `json:"users"`
	Barangays int `json:"barangays"`
	Families  int `json:"families"`
	Schedules struct {
		Total       int `json:"total" db:"total"`
		Scheduled   int `json:"scheduled" db:"scheduled"`
		Distributed int `json:"distributed" db:"distributed"`
		Cancelled   int `json:"cancelled" db:"cancelled"`
	} `json:"schedules"`
	Claims int `json:"claims"`
}

// ClaimRow is one denormalized line of the claims report.
type ClaimRow struct {
	ClaimID        string      `json:"claim_id" db:"claim_id"`
	ScheduleTitle  string      `json:"schedule_title" db:"schedule_title"`
	ScheduleDate   string      `json:"schedule_date" db:"schedule_date"` // YYYY-MM-DD
	BarangayName   string      `json:"barangay_name" db:"barangay_name"`
	HeadName       string      `json:"head_name" db:"head_name"`
	Classification string      `json:"classification" db:"classification"`
	ClaimedByName  string      `json:"claimed_by_name" db:"claimed_by_name"`
	VerifiedBy     null.String `json:"verified_by_name" db:"verified_by_name"`
	Notes          string      `json:"notes" db:"notes"`
	ClaimedAt      string      `json:"claimed_at" db:"claimed_at"`
}

// ClaimsFilter applies an AND operation on its non-empty fields.
type ClaimsFilter struct {
	BarangayID string `query:"barangay_id" validate:"omitempty,uuid4"`
	ScheduleID string `query:"schedule_id" validate:"omitempty,uuid4"`
	DateFrom   string `query:"date_from" validate:"omitempty,dateonly"`
	DateTo     string `query:"date_to" validate:"omitempty,dateonly"`
}

func (f *ClaimsFilter) Validate(validate *validator.Validate) error {
	return validate.Struct(f)
}
