package main

import (
	"context"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, role user.Role, isSuperuser bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: uname})
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		if usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: email}); err != nil {
			if err != user.ErrNotFound {
				return err
			}
			now := core.NowFunc()
			usr = user.User{CreatedAt: now}
		}
	}
	usr.Username = uname
	usr.Email = email
	usr.Role = role
	usr.IsSuperuser = isSuperuser
	usr.IsActive = true
	usr.UpdatedAt = core.NowFunc()
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
