package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/audit"
)

type (
	SettingsServiceInterface interface {
		Get(ctx context.Context) (SMSSettings, error)
		Update(ctx context.Context, in UpdateSMSSettings, actorID string) (SMSSettings, error)
	}

	// SettingsService manages the single active SMS gateway credentials row.
	SettingsService struct {
		repo  Repository
		audit audit.Logger
	}
)

var _ SettingsServiceInterface = (*SettingsService)(nil)

func NewSettingsService(repo Repository, auditLog audit.Logger) *SettingsService {
	return &SettingsService{repo: repo, audit: auditLog}
}

func (svc *SettingsService) Get(ctx context.Context) (SMSSettings, error) {
	return svc.repo.GetActiveSettings(ctx)
}

func (svc *SettingsService) Update(ctx context.Context, in UpdateSMSSettings, actorID string) (SMSSettings, error) {
	s, err := svc.repo.GetActiveSettings(ctx)
	if err != nil && errors.Cause(err) != ErrSettingsNotFound {
		return SMSSettings{}, err
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	s.Provider = in.Provider
	s.GatewayURL = in.GatewayURL
	s.Username = in.Username
	s.Password = in.Password
	s.Sender = in.Sender
	s.IsActive = true
	s.UpdatedAt = time.Now().UTC()

	s, err = svc.repo.SaveSettings(ctx, s)
	if err != nil {
		return SMSSettings{}, err
	}
	if err = svc.audit.Log(ctx, actorID, "sms_settings.update", "sms_settings", s.ID, s.Provider); err != nil {
		return SMSSettings{}, errors.Wrap(err, "logging settings update")
	}
	return s, nil
}

// ActiveGatewayConfig loads the active credentials once at startup so the SMS
// service gets an injected snapshot. Falls back to the app config when no row
// is stored yet.
func ActiveGatewayConfig(ctx context.Context, repo Repository, conf *core.Config) core.SMSGatewayConfig {
	if s, err := repo.GetActiveSettings(ctx); err == nil {
		return s.GatewayConfig()
	}
	return core.SMSGatewayConfig{
		URL:      conf.SMS.GatewayURL,
		Username: conf.SMS.Username,
		Password: conf.SMS.Password,
		Sender:   conf.SMS.Sender,
	}
}
