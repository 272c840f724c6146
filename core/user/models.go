package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/tulongph/tulong/core"
)

// Role is the closed set of account roles. Authorization decisions dispatch on
// this single value at the API boundary; handlers never re-check role strings.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleBarangay Role = "BARANGAY"
	RoleResident Role = "RESIDENT"
)

var AllRoles = []Role{RoleAdmin, RoleBarangay, RoleResident}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleBarangay, RoleResident:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

type User struct {
	ID           string      `json:"id" db:"id"`
	Name         string      `json:"name" db:"name"`
	Username     string      `json:"username" db:"username"`
	Email        null.String `json:"email" db:"email"`
	Phone        null.String `json:"phone" db:"phone"`
	Role         Role        `json:"role" db:"role"`
	BarangayID   null.String `json:"barangay_id" db:"barangay_id"`
	IsActive     bool        `json:"is_active" db:"is_active"`
	PasswordHash []byte      `json:"-" db:"password_hash"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    null.Time   `json:"last_login" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool    { return u.Role == RoleAdmin }
func (u User) IsBarangay() bool { return u.Role == RoleBarangay }
func (u User) IsResident() bool { return u.Role == RoleResident }

// Register contains information provided at open resident registration.
// The account starts inactive until approved by an admin; a Family headed by
// the resident is created alongside.
type Register struct {
	Name            string `json:"name" validate:"required"`
	Username        string `json:"username" validate:"required,min=6,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone" validate:"required,phone_ph"`
	BarangayID      string `json:"barangay_id" validate:"required,uuid4"`
	Classification  string `json:"classification" validate:"omitempty,oneof=HIGH MIDDLE LOW UNCLASSIFIED"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (r *Register) Validate(validate *validator.Validate, svc ServiceInterface) error {
	r.Name = core.CleanString(r.Name)
	r.Username = core.CleanString(r.Username, true /* lower */)
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Phone = core.CleanString(r.Phone)

	if err := validate.Struct(r); err != nil {
		return err
	}
	return svc.CheckUniqueness(r.Username, r.Email)
}

// NewUser contains information needed by an admin to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Username        string `json:"username" validate:"required,min=6,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone" validate:"omitempty,phone_ph"`
	Role            Role   `json:"role" validate:"required,oneof=ADMIN BARANGAY RESIDENT"`
	BarangayID      string `json:"barangay_id" validate:"omitempty,uuid4"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	// BARANGAY and RESIDENT accounts must be attached to a barangay.
	if nu.Role != RoleAdmin && nu.BarangayID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "barangay_id", Error: "this field is required"})
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string `json:"name"`
	Username        string `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone" validate:"omitempty,phone_ph"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email.String
	}
	uu.Phone = core.CleanString(uu.Phone)

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Username, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

// GetFilter selects a single User by exactly one of its fields.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}

// QueryFilter applies an AND operation on its non-empty fields.
// Search does a case-insensitive match on one of Name, Username or Email.
type QueryFilter struct {
	Search      string    `query:"search"`
	Role        Role      `query:"role"`
	BarangayID  string    `query:"barangay_id"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.BarangayID = core.CleanString(qf.BarangayID)
}
