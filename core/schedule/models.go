package schedule

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/tulongph/tulong/core"
)

// Status is the schedule lifecycle state. SCHEDULED schedules dated strictly
// before today are flipped to DISTRIBUTED on the next barangay list read.
type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusDistributed Status = "DISTRIBUTED"
	StatusCancelled   Status = "CANCELLED"
)

// Schedule is a donation distribution event scoped to one barangay.
type Schedule struct {
	ID                   string      `json:"id" db:"id"`
	BarangayID           string      `json:"barangay_id" db:"barangay_id"`
	Title                string      `json:"title" db:"title"`
	Description          string      `json:"description" db:"description"`
	Date                 string      `json:"date" db:"date"` // YYYY-MM-DD
	StartTime            string      `json:"start_time" db:"start_time"`
	EndTime              string      `json:"end_time" db:"end_time"`
	Location             string      `json:"location" db:"location"`
	Capacity             null.Int    `json:"capacity" db:"capacity"`
	TargetClassification null.String `json:"target_classification" db:"target_classification"`
	Status               Status      `json:"status" db:"status"`
	CreatedBy            string      `json:"created_by" db:"created_by"`
	CreatedAt            time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt            time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// NewSchedule contains information needed to create a donation schedule.
type NewSchedule struct {
	Title                string `json:"title" validate:"required"`
	Description          string `json:"description" validate:"required"`
	Date                 string `json:"date" validate:"required,dateonly"`
	StartTime            string `json:"start_time" validate:"required"`
	EndTime              string `json:"end_time" validate:"required"`
	Location             string `json:"location" validate:"required"`
	Capacity             *int64 `json:"capacity" validate:"omitempty,gt=0"`
	TargetClassification string `json:"target_classification" validate:"omitempty,oneof=HIGH MIDDLE LOW UNCLASSIFIED"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.Title = core.CleanString(ns.Title)
	ns.Description = core.CleanString(ns.Description)
	ns.Location = core.CleanString(ns.Location)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	// server-local date comparison at the midnight boundary
	if ns.Date < core.Today() {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "date must not be in the past"})
	}
	return nil
}

// UpdateSchedule defines what information may be provided to modify a schedule.
type UpdateSchedule struct {
	Title                string `json:"title"`
	Description          string `json:"description"`
	Date                 string `json:"date" validate:"omitempty,dateonly"`
	StartTime            string `json:"start_time"`
	EndTime              string `json:"end_time"`
	Location             string `json:"location"`
	Capacity             *int64 `json:"capacity" validate:"omitempty,gt=0"`
	TargetClassification string `json:"target_classification" validate:"omitempty,oneof=HIGH MIDDLE LOW UNCLASSIFIED"`
}

func (us *UpdateSchedule) Validate(orig Schedule, validate *validator.Validate) error {
	if title := core.CleanString(us.Title); title != "" {
		us.Title = title
	} else {
		us.Title = orig.Title
	}
	if desc := core.CleanString(us.Description); desc != "" {
		us.Description = desc
	} else {
		us.Description = orig.Description
	}
	if us.Date == "" {
		us.Date = orig.Date
	}
	if us.StartTime == "" {
		us.StartTime = orig.StartTime
	}
	if us.EndTime == "" {
		us.EndTime = orig.EndTime
	}
	if loc := core.CleanString(us.Location); loc != "" {
		us.Location = loc
	} else {
		us.Location = orig.Location
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	if us.Date != orig.Date && us.Date < core.Today() {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "date must not be in the past"})
	}
	return nil
}

// QueryFilter applies an AND operation on its non-empty fields.
type QueryFilter struct {
	BarangayID string `query:"barangay_id"`
	Status     Status `query:"status"`
	DateFrom   string `query:"date_from"`
	DateTo     string `query:"date_to"`
}
