package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/schedule"
)

const scheduleColumns = `id, barangay_id, title, description, date, start_time, end_time, location,
	capacity, target_classification, status, created_by, created_at, updated_at`

type scheduleRepository struct {
	exec core.DBExecutor
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(exec core.DBExecutor) *scheduleRepository {
	return &scheduleRepository{exec: exec}
}

func (repo scheduleRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return schedule.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo scheduleRepository) CreateSchedule(ctx context.Context, sch schedule.Schedule, exec ...core.DBExecutor) (schedule.Schedule, error) {
	if sch.ID == "" {
		sch.ID = uuid.New().String()
	}
	query := `
INSERT INTO donation_schedules (` + scheduleColumns + `)
VALUES (:id, :barangay_id, :title, :description, :date, :start_time, :end_time, :location,
	:capacity, :target_classification, :status, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), query, sch); err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "inserting schedule")
	}
	return sch, nil
}

func (repo scheduleRepository) QuerySchedules(ctx context.Context, filter *schedule.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]schedule.Schedule, error) {
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.BarangayID != "" {
			conds = append(conds, `barangay_id = ?`)
			args = append(args, filter.BarangayID)
		}
		if filter.Status != "" {
			conds = append(conds, `status = ?`)
			args = append(args, filter.Status)
		}
		if filter.DateFrom != "" {
			conds = append(conds, `date >= ?`)
			args = append(args, filter.DateFrom)
		}
		if filter.DateTo != "" {
			conds = append(conds, `date <= ?`)
			args = append(args, filter.DateTo)
		}
	}

	exe := getExec(repo.exec, exec)
	query := `SELECT ` + scheduleColumns + ` FROM donation_schedules` + where(conds) + orderBy(ordering, "date DESC")

	var schs []schedule.Schedule
	if err := sqlx.SelectContext(ctx, exe, &schs, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying schedules")
	}
	return schs, nil
}

func (repo scheduleRepository) GetSchedule(ctx context.Context, id string, exec ...core.DBExecutor) (schedule.Schedule, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	exe := getExec(repo.exec, exec)
	var sch schedule.Schedule
	query := `SELECT ` + scheduleColumns + ` FROM donation_schedules WHERE id = ?`
	if err := sqlx.GetContext(ctx, exe, &sch, exe.Rebind(query), id); err != nil {
		return schedule.Schedule{}, repo.trapNoRowsErr(err, "finding schedule")
	}
	return sch, nil
}

func (repo scheduleRepository) UpdateSchedule(ctx context.Context, sch schedule.Schedule, exec ...core.DBExecutor) (schedule.Schedule, error) {
	exe := getExec(repo.exec, exec)
	query := `
UPDATE donation_schedules
SET title = :title, description = :description, date = :date, start_time = :start_time,
	end_time = :end_time, location = :location, capacity = :capacity,
	target_classification = :target_classification, updated_at = :updated_at
WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, exe, query, sch)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "updating schedule")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	return repo.GetSchedule(ctx, sch.ID, exec...)
}

func (repo scheduleRepository) SetStatus(ctx context.Context, id string, status schedule.Status, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)
	query := exe.Rebind(`UPDATE donation_schedules SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`)
	res, err := exe.ExecContext(ctx, query, status, id)
	if err != nil {
		return errors.Wrap(err, "setting schedule status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schedule.ErrNotFound
	}
	return nil
}

func (repo scheduleRepository) MarkPastDistributed(ctx context.Context, barangayID, today string, exec ...core.DBExecutor) (int, error) {
	exe := getExec(repo.exec, exec)
	query := exe.Rebind(`
UPDATE donation_schedules SET status = ?, updated_at = CURRENT_TIMESTAMP
WHERE barangay_id = ? AND status = ? AND date < ?`)
	res, err := exe.ExecContext(ctx, query, schedule.StatusDistributed, barangayID, schedule.StatusScheduled, today)
	if err != nil {
		return 0, errors.Wrap(err, "marking past schedules distributed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting marked schedules")
	}
	return int(n), nil
}
