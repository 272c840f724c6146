package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/user"
)

// createAdmin creates an active admin account. Existing usernames are refused;
// use resetpassword to recover access to an existing account.
func (cli *commandLine) createAdmin(name, uname, email, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if err := cli.usrRepo.CheckUsernameUniqueness(ctx, uname, email, nil); err != nil {
		return err
	}

	now := time.Now().UTC()
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      core.CleanString(name),
		Username:  uname,
		Email:     null.NewString(email, email != ""),
		Role:      user.RoleAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	_, err := cli.usrRepo.CreateUser(ctx, usr)
	return err
}
