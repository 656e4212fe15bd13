package main

import (
	"context"
	"time"

	"github.com/kelasku/kelasku/core"
	"github.com/kelasku/kelasku/core/user"
)

// addUser creates an admin user.User
func (cli *commandLine) addUser(uname, email, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if err := cli.usrRepo.CheckUsernameUniqueness(ctx, uname, email); err != nil {
		return err
	}

	now := time.Now().UTC()
	usr := user.User{
		Username:  uname,
		Email:     email,
		Role:      user.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.CreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
