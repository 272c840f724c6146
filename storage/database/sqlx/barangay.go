package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/barangay"
)

const barangayColumns = `id, name, code, address, manager_id, is_active, created_at, updated_at`

type barangayRepository struct {
	exec core.DBExecutor
}

var _ barangay.Repository = (*barangayRepository)(nil) // interface compliance check

func NewBarangayRepository(exec core.DBExecutor) *barangayRepository {
	return &barangayRepository{exec: exec}
}

func (repo barangayRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return barangay.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo barangayRepository) CheckCodeUniqueness(ctx context.Context, code string, excluded []barangay.Barangay, exec ...core.DBExecutor) error {
	query := `SELECT COUNT(*) FROM barangays WHERE code = ?`
	args := []interface{}{code}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, b := range excluded {
			ids = append(ids, b.ID)
		}
		inQuery, inArgs, err := sqlx.In(`id NOT IN (?)`, ids)
		if err != nil {
			return errors.Wrap(err, "binding excluded barangays")
		}
		query += ` AND ` + inQuery
		args = append(args, inArgs...)
	}

	exe := getExec(repo.exec, exec)
	var cnt int
	if err := sqlx.GetContext(ctx, exe, &cnt, exe.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking barangay code uniqueness")
	}
	if cnt > 0 {
		return barangay.ErrCodeExists
	}
	return nil
}

func (repo barangayRepository) CreateBarangay(ctx context.Context, brgy barangay.Barangay, exec ...core.DBExecutor) (barangay.Barangay, error) {
	if brgy.ID == "" {
		brgy.ID = uuid.New().String()
	}
	query := `
INSERT INTO barangays (` + barangayColumns + `)
VALUES (:id, :name, :code, :address, :manager_id, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), query, brgy); err != nil {
		return barangay.Barangay{}, errors.Wrap(err, "inserting barangay")
	}
	return brgy, nil
}

func (repo barangayRepository) QueryBarangays(ctx context.Context, filter *barangay.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]barangay.Barangay, error) {
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			val := "%" + strings.ToLower(filter.Search) + "%"
			conds = append(conds, `(LOWER(name) LIKE ? OR LOWER(code) LIKE ?)`)
			args = append(args, val, val)
		}
		if filter.IsActive != nil {
			conds = append(conds, `is_active = ?`)
			args = append(args, *filter.IsActive)
		}
	}

	exe := getExec(repo.exec, exec)
	query := `SELECT ` + barangayColumns + ` FROM barangays` + where(conds) + orderBy(ordering, "name ASC")

	var brgys []barangay.Barangay
	if err := sqlx.SelectContext(ctx, exe, &brgys, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying barangays")
	}
	return brgys, nil
}

func (repo barangayRepository) GetBarangay(ctx context.Context, id string, exec ...core.DBExecutor) (barangay.Barangay, error) {
	if _, err := uuid.Parse(id); err != nil {
		return barangay.Barangay{}, barangay.ErrNotFound
	}
	exe := getExec(repo.exec, exec)
	var brgy barangay.Barangay
	query := `SELECT ` + barangayColumns + ` FROM barangays WHERE id = ?`
	if err := sqlx.GetContext(ctx, exe, &brgy, exe.Rebind(query), id); err != nil {
		return barangay.Barangay{}, repo.trapNoRowsErr(err, "finding barangay")
	}
	return brgy, nil
}

func (repo barangayRepository) UpdateBarangay(ctx context.Context, brgy barangay.Barangay, isActive *bool, exec ...core.DBExecutor) (barangay.Barangay, error) {
	sets := []string{`updated_at = ?`}
	args := []interface{}{brgy.UpdatedAt.UTC()}

	if brgy.Name != "" {
		sets = append(sets, `name = ?`)
		args = append(args, brgy.Name)
	}
	if brgy.Code != "" {
		sets = append(sets, `code = ?`)
		args = append(args, brgy.Code)
	}
	if brgy.Address != "" {
		sets = append(sets, `address = ?`)
		args = append(args, brgy.Address)
	}
	if isActive != nil {
		sets = append(sets, `is_active = ?`)
		args = append(args, *isActive)
	}
	args = append(args, brgy.ID)

	exe := getExec(repo.exec, exec)
	query := `UPDATE barangays SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := exe.ExecContext(ctx, exe.Rebind(query), args...)
	if err != nil {
		return barangay.Barangay{}, errors.Wrap(err, "updating barangay")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return barangay.Barangay{}, barangay.ErrNotFound
	}
	return repo.GetBarangay(ctx, brgy.ID, exec...)
}

func (repo barangayRepository) AssignManager(ctx context.Context, barangayID, userID string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	// displace the previous manager reference before pointing both rows at each other
	queries := []struct {
		q    string
		args []interface{}
	}{
		{`UPDATE barangays SET manager_id = NULL WHERE manager_id = ?`, []interface{}{userID}},
		{`UPDATE barangays SET manager_id = ? WHERE id = ?`, []interface{}{userID, barangayID}},
		{`UPDATE users SET barangay_id = ? WHERE id = ?`, []interface{}{barangayID, userID}},
	}
	for _, q := range queries {
		if _, err := exe.ExecContext(ctx, exe.Rebind(q.q), q.args...); err != nil {
			return errors.Wrap(err, "assigning barangay manager")
		}
	}
	return nil
}
