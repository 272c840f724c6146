package barangay

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/tulongph/tulong/core"
)

// Barangay is the tenant/partition boundary for residents, schedules and claims.
type Barangay struct {
	ID        string      `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	Code      string      `json:"code" db:"code"` // unique
	Address   string      `json:"address" db:"address"`
	ManagerID null.String `json:"manager_id" db:"manager_id"` // exclusive BARANGAY-role manager
	IsActive  bool        `json:"is_active" db:"is_active"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// NewBarangay contains information needed to create a new Barangay.
type NewBarangay struct {
	Name    string `json:"name" validate:"required"`
	Code    string `json:"code" validate:"required,alphanum_"`
	Address string `json:"address" validate:"required"`
}

func (nb *NewBarangay) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nb.Name = core.CleanString(nb.Name)
	nb.Code = core.CleanString(nb.Code, true /* lower */)
	nb.Address = core.CleanString(nb.Address)

	if err := validate.Struct(nb); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(nb.Code)
}

// UpdateBarangay defines what information may be provided to modify an existing Barangay.
type UpdateBarangay struct {
	Name    string `json:"name"`
	Code    string `json:"code" validate:"omitempty,alphanum_"`
	Address string `json:"address"`
}

func (ub *UpdateBarangay) Validate(orig Barangay, validate *validator.Validate, svc ServiceInterface) error {
	if name := core.CleanString(ub.Name); name != "" {
		ub.Name = name
	} else {
		ub.Name = orig.Name
	}
	if code := core.CleanString(ub.Code, true /* lower */); code != "" {
		ub.Code = code
	} else {
		ub.Code = orig.Code
	}
	if addr := core.CleanString(ub.Address); addr != "" {
		ub.Address = addr
	} else {
		ub.Address = orig.Address
	}

	if err := validate.Struct(ub); err != nil {
		return err
	}
	if ub.Code != orig.Code {
		return svc.CheckCodeUniqueness(ub.Code)
	}
	return nil
}

// QueryFilter applies an AND operation on its non-empty fields.
// Search does a case-insensitive match on one of Name or Code.
type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
