package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/user"
)

// fakeUserRepo keeps users in memory; enough for exercising the CLI paths.
type fakeUserRepo struct {
	users map[string]user.User // by ID
}

var _ user.Repository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]user.User)}
}

func (r *fakeUserRepo) CheckUsernameUniqueness(_ context.Context, uname, email string, excl []user.User, _ ...core.DBExecutor) error {
	skip := func(u user.User) bool {
		for _, e := range excl {
			if e.ID == u.ID {
				return true
			}
		}
		return false
	}
	for _, u := range r.users {
		if skip(u) {
			continue
		}
		if u.Username == uname {
			return user.ErrUsernameExists
		}
		if email != "" && u.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (r *fakeUserRepo) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	r.users[usr.ID] = usr
	return usr, nil
}

func (r *fakeUserRepo) QueryUsers(_ context.Context, _ *user.QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	usrs := make([]user.User, 0, len(r.users))
	for _, u := range r.users {
		usrs = append(usrs, u)
	}
	return usrs, nil
}

func (r *fakeUserRepo) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	for _, u := range r.users {
		switch {
		case filter.ID != "" && u.ID == filter.ID:
			return u, nil
		case filter.Username != "" && u.Username == filter.Username:
			return u, nil
		case filter.Email != "" && u.Email.String == filter.Email:
			return u, nil
		case filter.UsernameOrEmail != "" && (u.Username == filter.UsernameOrEmail || u.Email.String == filter.UsernameOrEmail):
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *fakeUserRepo) UpdateUser(_ context.Context, usr user.User, isActive *bool, _ ...core.DBExecutor) (user.User, error) {
	stored, ok := r.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if len(usr.PasswordHash) > 0 {
		stored.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		stored.IsActive = *isActive
	}
	stored.UpdatedAt = time.Now().UTC()
	r.users[usr.ID] = stored
	return stored, nil
}

func (r *fakeUserRepo) SetLastLogin(_ context.Context, id string, t time.Time, _ ...core.DBExecutor) error {
	u, ok := r.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.LastLogin.SetValid(t)
	r.users[id] = u
	return nil
}

func (r *fakeUserRepo) PurgeUserData(_ context.Context, userID string, _ ...core.DBExecutor) error {
	delete(r.users, userID)
	return nil
}

func setup(t *testing.T) (*commandLine, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo()
	return &commandLine{conf: &core.Config{}, usrRepo: repo}, repo
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)
	cli.conf.Database.Engine = "sqlite3"
	cli.db = &sqlx.DB{}

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a VERSION argument", command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create requires a NAME argument")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires a VERSION argument"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create requires a NAME argument"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to requires a VERSION argument"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "claims", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_createAdmin(t *testing.T) {
	cli, repo := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"createadmin"}, wantErr: errHelp},
		{name: "name but no username", args: []string{"createadmin", "-name", "Juan"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"createadmin", "-name", "Juan", "-username", "juandc"}, wantErr: errHelp},
		{name: "ok", args: []string{"createadmin", "-name", "Juan", "-username", "juandc", "-email", "juan@test.ph"}, extra: extra{pwd: "s3cr3tpwd"}},
		{name: "duplicate username", args: []string{"createadmin", "-name", "Juan", "-username", "juandc"}, extra: extra{pwd: "s3cr3tpwd"}, wantErr: user.ErrUsernameExists},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				usr, err := repo.GetUser(context.Background(), user.GetFilter{Username: "juandc"})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if !usr.IsAdmin() {
					t.Errorf("createAdmin() role = %s, want %s", usr.Role, user.RoleAdmin)
				}
				if !usr.IsActive {
					t.Error("createAdmin() created an inactive account")
				}
				if err := usr.CheckPassword("s3cr3tpwd"); err != nil {
					t.Error("createAdmin() stored an unusable password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, repo := setup(t)

	usr := user.User{ID: "u1", Name: "User", Username: "aweawe"}
	usr.Email.SetValid("awe@test.ph")
	if err := usr.SetPassword("mdrlol"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateUser(context.Background(), usr); err != nil {
		t.Fatal(err)
	}

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lolwat"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email.String}, extra: extra{pwd: "lmaowat"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := repo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
