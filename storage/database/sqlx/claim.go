package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/claim"
)

const claimColumns = `id, schedule_id, family_id, claimed_by, verified_by, status, notes, claimed_at`

type claimRepository struct {
	exec core.DBExecutor
}

var _ claim.Repository = (*claimRepository)(nil) // interface compliance check

func NewClaimRepository(exec core.DBExecutor) *claimRepository {
	return &claimRepository{exec: exec}
}

func (repo claimRepository) CreateClaim(ctx context.Context, c claim.Claim, exec ...core.DBExecutor) (claim.Claim, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	query := `
INSERT INTO claims (` + claimColumns + `)
VALUES (:id, :schedule_id, :family_id, :claimed_by, :verified_by, :status, :notes, :claimed_at)`
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), query, c); err != nil {
		if isUniqueViolation(errors.Cause(err)) {
			return claim.Claim{}, claim.ErrAlreadyClaimed
		}
		return claim.Claim{}, errors.Wrap(err, "inserting claim")
	}
	return c, nil
}

func (repo claimRepository) ClaimExists(ctx context.Context, familyID, scheduleID string, exec ...core.DBExecutor) (bool, error) {
	exe := getExec(repo.exec, exec)
	var cnt int
	query := exe.Rebind(`SELECT COUNT(*) FROM claims WHERE family_id = ? AND schedule_id = ?`)
	if err := sqlx.GetContext(ctx, exe, &cnt, query, familyID, scheduleID); err != nil {
		return false, errors.Wrap(err, "checking existing claim")
	}
	return cnt > 0, nil
}

func (repo claimRepository) QueryClaims(ctx context.Context, filter *claim.QueryFilter, exec ...core.DBExecutor) ([]claim.Claim, error) {
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.ScheduleID != "" {
			conds = append(conds, `c.schedule_id = ?`)
			args = append(args, filter.ScheduleID)
		}
		if filter.FamilyID != "" {
			conds = append(conds, `c.family_id = ?`)
			args = append(args, filter.FamilyID)
		}
		if filter.BarangayID != "" {
			conds = append(conds, `c.schedule_id IN (SELECT id FROM donation_schedules WHERE barangay_id = ?)`)
			args = append(args, filter.BarangayID)
		}
	}

	exe := getExec(repo.exec, exec)
	query := `
SELECT c.id, c.schedule_id, c.family_id, c.claimed_by, c.verified_by, c.status, c.notes, c.claimed_at
FROM claims c` + where(conds) + ` ORDER BY c.claimed_at DESC`

	var claims []claim.Claim
	if err := sqlx.SelectContext(ctx, exe, &claims, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying claims")
	}
	return claims, nil
}

func (repo claimRepository) GetClaim(ctx context.Context, id string, exec ...core.DBExecutor) (claim.Claim, error) {
	if _, err := uuid.Parse(id); err != nil {
		return claim.Claim{}, claim.ErrNotFound
	}
	exe := getExec(repo.exec, exec)
	var c claim.Claim
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = ?`
	if err := sqlx.GetContext(ctx, exe, &c, exe.Rebind(query), id); err != nil {
		if err == sql.ErrNoRows {
			return claim.Claim{}, claim.ErrNotFound
		}
		return claim.Claim{}, errors.Wrap(err, "finding claim")
	}
	return c, nil
}
