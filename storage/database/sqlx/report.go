package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/report"
)

type reportRepository struct {
	exec core.DBExecutor
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(exec core.DBExecutor) *reportRepository {
	return &reportRepository{exec: exec}
}

func (repo reportRepository) DashboardCounts(ctx context.Context, exec ...core.DBExecutor) (report.Dashboard, error) {
	exe := getExec(repo.exec, exec)
	var d report.Dashboard

	userQuery := `
SELECT COUNT(*) AS total,
	COALESCE(SUM(CASE WHEN role = 'ADMIN' THEN 1 ELSE 0 END), 0) AS admins,
	COALESCE(SUM(CASE WHEN role = 'BARANGAY' THEN 1 ELSE 0 END), 0) AS officials,
	COALESCE(SUM(CASE WHEN role = 'RESIDENT' THEN 1 ELSE 0 END), 0) AS residents,
	COALESCE(SUM(CASE WHEN role = 'RESIDENT' AND is_active = ? THEN 1 ELSE 0 END), 0) AS pending
FROM users`
	if err := sqlx.GetContext(ctx, exe, &d.Users, exe.Rebind(userQuery), false); err != nil {
		return report.Dashboard{}, errors.Wrap(err, "counting users")
	}

	scheduleQuery := `
SELECT COUNT(*) AS total,
	COALESCE(SUM(CASE WHEN status = 'SCHEDULED' THEN 1 ELSE 0 END), 0) AS scheduled,
	COALESCE(SUM(CASE WHEN status = 'DISTRIBUTED' THEN 1 ELSE 0 END), 0) AS distributed,
	COALESCE(SUM(CASE WHEN status = 'CANCELLED' THEN 1 ELSE 0 END), 0) AS cancelled
FROM donation_schedules`
	if err := sqlx.GetContext(ctx, exe, &d.Schedules, scheduleQuery); err != nil {
		return report.Dashboard{}, errors.Wrap(err, "counting schedules")
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM barangays`, &d.Barangays},
		{`SELECT COUNT(*) FROM families`, &d.Families},
		{`SELECT COUNT(*) FROM claims`, &d.Claims},
	}
	for _, c := range counts {
		if err := sqlx.GetContext(ctx, exe, c.dest, c.query); err != nil {
			return report.Dashboard{}, errors.Wrap(err, "counting entities")
		}
	}
	return d, nil
}

func (repo reportRepository) QueryClaimRows(ctx context.Context, filter *report.ClaimsFilter, exec ...core.DBExecutor) ([]report.ClaimRow, error) {
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.BarangayID != "" {
			conds = append(conds, `s.barangay_id = ?`)
			args = append(args, filter.BarangayID)
		}
		if filter.ScheduleID != "" {
			conds = append(conds, `c.schedule_id = ?`)
			args = append(args, filter.ScheduleID)
		}
		if filter.DateFrom != "" {
			conds = append(conds, `s.date >= ?`)
			args = append(args, filter.DateFrom)
		}
		if filter.DateTo != "" {
			conds = append(conds, `s.date <= ?`)
			args = append(args, filter.DateTo)
		}
	}

	exe := getExec(repo.exec, exec)
	query := `
SELECT c.id AS claim_id, s.title AS schedule_title, s.date AS schedule_date,
	b.name AS barangay_name, h.name AS head_name, f.classification AS classification,
	cb.name AS claimed_by_name, vb.name AS verified_by_name, c.notes AS notes,
	c.claimed_at AS claimed_at
FROM claims c
JOIN donation_schedules s ON s.id = c.schedule_id
JOIN barangays b ON b.id = s.barangay_id
JOIN families f ON f.id = c.family_id
JOIN users h ON h.id = f.head_id
JOIN users cb ON cb.id = c.claimed_by
LEFT JOIN users vb ON vb.id = c.verified_by` + where(conds) + ` ORDER BY c.claimed_at DESC`

	var rows []report.ClaimRow
	if err := sqlx.SelectContext(ctx, exe, &rows, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying claim report rows")
	}
	return rows, nil
}
