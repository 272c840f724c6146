package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/user"
)

const userColumns = `id, name, username, email, phone, role, barangay_id, is_active, password_hash, created_at, updated_at, last_login`

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

// trapNoRowsErr maps sql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	query := `SELECT username, email FROM users WHERE (username = ? OR (? <> '' AND email = ?))`
	args := []interface{}{username, email, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		inQuery, inArgs, err := sqlx.In(`id NOT IN (?)`, ids)
		if err != nil {
			return errors.Wrap(err, "binding excluded users")
		}
		query += ` AND ` + inQuery
		args = append(args, inArgs...)
	}

	rows, err := exe.QueryxContext(ctx, exe.Rebind(query), args...)
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var uname, mail sql.NullString
		if err = rows.Scan(&uname, &mail); err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		if uname.String == username {
			return user.ErrUsernameExists
		}
		return user.ErrEmailExists
	}
	return errors.Wrap(rows.Err(), "checking user uniqueness")
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	query := `
INSERT INTO users (` + userColumns + `)
VALUES (:id, :name, :username, :email, :phone, :role, :barangay_id, :is_active, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), query, usr); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var conds []string
	var args []interface{}

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + strings.ToLower(filter.Search) + "%"
			conds = append(conds, `(LOWER(name) LIKE ? OR LOWER(username) LIKE ? OR LOWER(email) LIKE ?)`)
			args = append(args, val, val, val)
		}
		if filter.Role != "" {
			conds = append(conds, `role = ?`)
			args = append(args, filter.Role)
		}
		if filter.BarangayID != "" {
			conds = append(conds, `barangay_id = ?`)
			args = append(args, filter.BarangayID)
		}
		if filter.IsActive != nil {
			conds = append(conds, `is_active = ?`)
			args = append(args, *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, `created_at >= ?`)
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, `created_at <= ?`)
			args = append(args, filter.CreatedTo.UTC())
		}
	}

	exe := getExec(repo.exec, exec)
	query := `SELECT ` + userColumns + ` FROM users` + where(conds) + orderBy(ordering, "created_at DESC")

	var users []user.User
	if err := sqlx.SelectContext(ctx, exe, &users, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var cond string
	var args []interface{}

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		cond = `id = ?`
		args = []interface{}{filter.ID}
	case filter.Username != "":
		cond = `username = ?`
		args = []interface{}{filter.Username}
	case filter.Email != "":
		cond = `email = ?`
		args = []interface{}{filter.Email}
	case filter.UsernameOrEmail != "":
		cond = `(username = ? OR email = ?)`
		args = []interface{}{filter.UsernameOrEmail, filter.UsernameOrEmail}
	default:
		return user.User{}, user.ErrNotFound
	}

	exe := getExec(repo.exec, exec)
	var usr user.User
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + cond
	if err := sqlx.GetContext(ctx, exe, &usr, exe.Rebind(query), args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool, exec ...core.DBExecutor) (user.User, error) {
	sets := []string{`updated_at = ?`}
	args := []interface{}{usr.UpdatedAt.UTC()}

	if usr.Name != "" {
		sets = append(sets, `name = ?`)
		args = append(args, usr.Name)
	}
	if usr.Username != "" {
		sets = append(sets, `username = ?`)
		args = append(args, usr.Username)
	}
	if usr.Email.Valid {
		sets = append(sets, `email = ?`)
		args = append(args, usr.Email)
	}
	if usr.Phone.Valid {
		sets = append(sets, `phone = ?`)
		args = append(args, usr.Phone)
	}
	if len(usr.PasswordHash) > 0 {
		sets = append(sets, `password_hash = ?`)
		args = append(args, usr.PasswordHash)
	}
	if isActive != nil {
		sets = append(sets, `is_active = ?`)
		args = append(args, *isActive)
	}
	args = append(args, usr.ID)

	exe := getExec(repo.exec, exec)
	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := exe.ExecContext(ctx, exe.Rebind(query), args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID}, exec...)
}

func (repo userRepository) SetLastLogin(ctx context.Context, id string, t time.Time, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)
	query := exe.Rebind(`UPDATE users SET last_login = ? WHERE id = ?`)
	if _, err := exe.ExecContext(ctx, query, t.UTC(), id); err != nil {
		return errors.Wrap(err, "setting last login")
	}
	return nil
}

func (repo userRepository) PurgeUserData(ctx context.Context, userID string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	// ordered by foreign-key dependencies; do not reorder
	queries := []string{
		`DELETE FROM family_members WHERE family_id IN (SELECT id FROM families WHERE head_id = ?)`,
		`DELETE FROM claims WHERE family_id IN (SELECT id FROM families WHERE head_id = ?)`,
		`DELETE FROM claims WHERE claimed_by = ?`,
		`DELETE FROM notification_logs WHERE user_id = ?`,
		`DELETE FROM families WHERE head_id = ?`,
		`DELETE FROM audit_logs WHERE actor_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	}
	for _, q := range queries {
		if _, err := exe.ExecContext(ctx, exe.Rebind(q), userID); err != nil {
			return errors.Wrap(err, "purging user data")
		}
	}
	return nil
}
