package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/notification"
)

type notificationRepository struct {
	exec core.DBExecutor
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(exec core.DBExecutor) *notificationRepository {
	return &notificationRepository{exec: exec}
}

func (repo notificationRepository) QueryRecipients(ctx context.Context, barangayID string, classification null.String, exec ...core.DBExecutor) ([]notification.Recipient, error) {
	query := `
SELECT u.id AS user_id, f.id AS family_id, u.phone AS phone
FROM users u
JOIN families f ON f.head_id = u.id
WHERE u.barangay_id = ? AND u.role = 'RESIDENT' AND u.is_active = ?
	AND u.phone IS NOT NULL AND u.phone <> ''`
	args := []interface{}{barangayID, true}
	if classification.Valid && classification.String != "" {
		query += ` AND f.classification = ?`
		args = append(args, classification.String)
	}

	exe := getExec(repo.exec, exec)
	var recipients []notification.Recipient
	if err := sqlx.SelectContext(ctx, exe, &recipients, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying recipients")
	}
	return recipients, nil
}

func (repo notificationRepository) QueryClaimedFamilyIDs(ctx context.Context, scheduleID string, exec ...core.DBExecutor) ([]string, error) {
	exe := getExec(repo.exec, exec)
	var ids []string
	query := exe.Rebind(`SELECT family_id FROM claims WHERE schedule_id = ?`)
	if err := sqlx.SelectContext(ctx, exe, &ids, query, scheduleID); err != nil {
		return nil, errors.Wrap(err, "querying claimed families")
	}
	return ids, nil
}

func (repo notificationRepository) CreateLogs(ctx context.Context, logs []notification.Log, exec ...core.DBExecutor) error {
	if len(logs) == 0 {
		return nil
	}
	query := `
INSERT INTO notification_logs (id, schedule_id, kind, user_id, recipient, status, message_id, error, created_at)
VALUES (:id, :schedule_id, :kind, :user_id, :recipient, :status, :message_id, :error, :created_at)`
	exe := getExec(repo.exec, exec)
	for _, l := range logs {
		if _, err := sqlx.NamedExecContext(ctx, exe, query, l); err != nil {
			return errors.Wrap(err, "inserting notification log")
		}
	}
	return nil
}

func (repo notificationRepository) GetActiveSettings(ctx context.Context, exec ...core.DBExecutor) (notification.SMSSettings, error) {
	exe := getExec(repo.exec, exec)
	var s notification.SMSSettings
	query := exe.Rebind(`
SELECT id, provider, gateway_url, username, password, sender, is_active, updated_at
FROM sms_settings WHERE is_active = ? ORDER BY updated_at DESC LIMIT 1`)
	if err := sqlx.GetContext(ctx, exe, &s, query, true); err != nil {
		if err == sql.ErrNoRows {
			return notification.SMSSettings{}, notification.ErrSettingsNotFound
		}
		return notification.SMSSettings{}, errors.Wrap(err, "finding sms settings")
	}
	return s, nil
}

func (repo notificationRepository) SaveSettings(ctx context.Context, s notification.SMSSettings, exec ...core.DBExecutor) (notification.SMSSettings, error) {
	exe := getExec(repo.exec, exec)

	query := `
UPDATE sms_settings
SET provider = :provider, gateway_url = :gateway_url, username = :username,
	password = :password, sender = :sender, is_active = :is_active, updated_at = :updated_at
WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, exe, query, s)
	if err != nil {
		return notification.SMSSettings{}, errors.Wrap(err, "updating sms settings")
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return s, nil
	}

	query = `
INSERT INTO sms_settings (id, provider, gateway_url, username, password, sender, is_active, updated_at)
VALUES (:id, :provider, :gateway_url, :username, :password, :sender, :is_active, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, exe, query, s); err != nil {
		return notification.SMSSettings{}, errors.Wrap(err, "inserting sms settings")
	}
	return s, nil
}
