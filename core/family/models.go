package family

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tulongph/tulong/core"
)

// Classification is the coarse economic tier used to target notifications and
// eligibility.
type Classification string

const (
	ClassificationHigh         Classification = "HIGH"
	ClassificationMiddle       Classification = "MIDDLE"
	ClassificationLow          Classification = "LOW"
	ClassificationUnclassified Classification = "UNCLASSIFIED"
)

func (c Classification) Valid() bool {
	switch c {
	case ClassificationHigh, ClassificationMiddle, ClassificationLow, ClassificationUnclassified:
		return true
	}
	return false
}

// VerificationStatus tracks one eligibility flag's review state.
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "PENDING"
	StatusApproved VerificationStatus = "APPROVED"
	StatusRejected VerificationStatus = "REJECTED"
)

// EligibilityFlag names one of the four independently verifiable attributes.
type EligibilityFlag string

const (
	FlagIndigent EligibilityFlag = "indigent"
	FlagSenior   EligibilityFlag = "senior"
	FlagPWD      EligibilityFlag = "pwd"
	FlagStudent  EligibilityFlag = "student"
)

func (f EligibilityFlag) Valid() bool {
	switch f {
	case FlagIndigent, FlagSenior, FlagPWD, FlagStudent:
		return true
	}
	return false
}

// Family is owned by exactly one resident and scoped to one barangay.
type Family struct {
	ID             string         `json:"id" db:"id"`
	HeadID         string         `json:"head_id" db:"head_id"`
	BarangayID     string         `json:"barangay_id" db:"barangay_id"`
	Classification Classification `json:"classification" db:"classification"`
	IsActive       bool           `json:"is_active" db:"is_active"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"` // UTC
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"` // UTC
}

// Member is a child of Family carrying independently togglable eligibility
// flags, each with its own verification status.
type Member struct {
	ID           string    `json:"id" db:"id"`
	FamilyID     string    `json:"family_id" db:"family_id"`
	FullName     string    `json:"full_name" db:"full_name"`
	Birthdate    string    `json:"birthdate" db:"birthdate"` // YYYY-MM-DD
	Relationship string    `json:"relationship" db:"relationship"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC

	IsIndigent     bool               `json:"is_indigent" db:"is_indigent"`
	IndigentStatus VerificationStatus `json:"indigent_status" db:"indigent_status"`
	IsSenior       bool               `json:"is_senior" db:"is_senior"`
	SeniorStatus   VerificationStatus `json:"senior_status" db:"senior_status"`
	IsPWD          bool               `json:"is_pwd" db:"is_pwd"`
	PWDStatus      VerificationStatus `json:"pwd_status" db:"pwd_status"`
	IsStudent      bool               `json:"is_student" db:"is_student"`
	StudentStatus  VerificationStatus `json:"student_status" db:"student_status"`
}

// NewMember contains information needed to add a family member.
type NewMember struct {
	FullName     string `json:"full_name" validate:"required"`
	Birthdate    string `json:"birthdate" validate:"required,dateonly"`
	Relationship string `json:"relationship" validate:"required"`
}

func (nm *NewMember) Validate(validate *validator.Validate) error {
	nm.FullName = core.CleanString(nm.FullName)
	nm.Relationship = core.CleanString(nm.Relationship)
	return validate.Struct(nm)
}

// UpdateMember defines what information may be provided to modify a member.
type UpdateMember struct {
	FullName     string `json:"full_name"`
	Birthdate    string `json:"birthdate" validate:"omitempty,dateonly"`
	Relationship string `json:"relationship"`
}

func (um *UpdateMember) Validate(orig Member, validate *validator.Validate) error {
	if name := core.CleanString(um.FullName); name != "" {
		um.FullName = name
	} else {
		um.FullName = orig.FullName
	}
	if um.Birthdate == "" {
		um.Birthdate = orig.Birthdate
	}
	if rel := core.CleanString(um.Relationship); rel != "" {
		um.Relationship = rel
	} else {
		um.Relationship = orig.Relationship
	}
	return validate.Struct(um)
}

// VerifyInput toggles one eligibility flag on a member.
type VerifyInput struct {
	Flag   EligibilityFlag `json:"flag" validate:"required,oneof=indigent senior pwd student"`
	Action string          `json:"action" validate:"required,oneof=APPROVE REJECT"`
}

func (vi VerifyInput) Validate(validate *validator.Validate) error {
	return validate.Struct(vi)
}

// QueryFilter applies an AND operation on its non-empty fields.
type QueryFilter struct {
	BarangayID     string `query:"barangay_id"`
	HeadID         string `query:"head_id"`
	Classification string `query:"classification"`
	IsActive       *bool  `query:"is_active"`
}
