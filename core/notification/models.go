package notification

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/tulongph/tulong/core"
)

// Kind distinguishes the two dispatch templates.
type Kind string

const (
	KindCreated  Kind = "CREATED"
	KindReminder Kind = "REMINDER"
)

// LogStatus is the per-recipient delivery outcome.
type LogStatus string

const (
	StatusPending LogStatus = "PENDING"
	StatusSent    LogStatus = "SENT"
	StatusFailed  LogStatus = "FAILED"
	StatusSkipped LogStatus = "SKIPPED"
)

// Log records one recipient's outcome for one dispatch.
type Log struct {
	ID         string      `json:"id" db:"id"`
	ScheduleID string      `json:"schedule_id" db:"schedule_id"`
	Kind       Kind        `json:"kind" db:"kind"`
	UserID     string      `json:"user_id" db:"user_id"`
	Recipient  string      `json:"recipient" db:"recipient"` // phone number
	Status     LogStatus   `json:"status" db:"status"`
	MessageID  null.String `json:"message_id" db:"message_id"` // gateway batch id
	Error      null.String `json:"error" db:"error"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"` // UTC
}

// Recipient is an eligible resident selected for a dispatch.
type Recipient struct {
	UserID   string `db:"user_id"`
	FamilyID string `db:"family_id"`
	Phone    string `db:"phone"`
}

// SMSSettings holds the gateway credentials; at most one row is active and the
// dispatcher consumes an injected snapshot of it, never an ad-hoc query.
type SMSSettings struct {
	ID         string    `json:"id" db:"id"`
	Provider   string    `json:"provider" db:"provider"`
	GatewayURL string    `json:"gateway_url" db:"gateway_url"`
	Username   string    `json:"username" db:"username"`
	Password   string    `json:"-" db:"password"`
	Sender     string    `json:"sender" db:"sender"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// GatewayConfig converts the stored credentials into the injected form the
// SMS service consumes.
func (s SMSSettings) GatewayConfig() core.SMSGatewayConfig {
	return core.SMSGatewayConfig{
		URL:      s.GatewayURL,
		Username: s.Username,
		Password: s.Password,
		Sender:   s.Sender,
	}
}

// UpdateSMSSettings replaces the active gateway credentials.
type UpdateSMSSettings struct {
	Provider   string `json:"provider" validate:"required"`
	GatewayURL string `json:"gateway_url" validate:"required,url"`
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	Sender     string `json:"sender" validate:"required"`
}

func (us *UpdateSMSSettings) Validate(validate *validator.Validate) error {
	us.Provider = core.CleanString(us.Provider)
	us.GatewayURL = core.CleanString(us.GatewayURL)
	us.Username = core.CleanString(us.Username)
	us.Sender = core.CleanString(us.Sender)
	return validate.Struct(us)
}
