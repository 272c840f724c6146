package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/audit"
)

const auditColumns = `id, actor_id, action, entity, entity_id, details, created_at`

type auditRepository struct {
	exec core.DBExecutor
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(exec core.DBExecutor) *auditRepository {
	return &auditRepository{exec: exec}
}

func (repo auditRepository) CreateEntry(ctx context.Context, entry audit.Entry, exec ...core.DBExecutor) (audit.Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	query := `
INSERT INTO audit_logs (` + auditColumns + `)
VALUES (:id, :actor_id, :action, :entity, :entity_id, :details, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), query, entry); err != nil {
		return audit.Entry{}, errors.Wrap(err, "inserting audit entry")
	}
	return entry, nil
}

func (repo auditRepository) QueryEntries(ctx context.Context, filter *audit.QueryFilter, exec ...core.DBExecutor) ([]audit.Entry, error) {
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.ActorID != "" {
			conds = append(conds, `actor_id = ?`)
			args = append(args, filter.ActorID)
		}
		if filter.Entity != "" {
			conds = append(conds, `entity = ?`)
			args = append(args, filter.Entity)
		}
		if filter.Action != "" {
			conds = append(conds, `action = ?`)
			args = append(args, filter.Action)
		}
	}

	exe := getExec(repo.exec, exec)
	query := `SELECT ` + auditColumns + ` FROM audit_logs` + where(conds) + ` ORDER BY created_at DESC`

	var entries []audit.Entry
	if err := sqlx.SelectContext(ctx, exe, &entries, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying audit entries")
	}
	return entries, nil
}
