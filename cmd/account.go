package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ljcooper54/DeID/internal/shared"
	"github.com/urfave/cli/v3"
)

// AccountCreate registers a new user account.
func (r *Runner) AccountCreate(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensure(); err != nil {
		return err
	}

	username := cmd.String("user")
	if username == "" {
		username = os.Getenv("DEID_USER")
	}
	password := cmd.String("password")
	if password == "" {
		password = os.Getenv("DEID_PASSWORD")
	}
	if username == "" {
		return fmt.Errorf("%w: --user flag or DEID_USER environment variable", shared.ErrMissingArgument)
	}

	user, err := r.accounts.Register(username, password)
	if err != nil {
		return err
	}

	r.logger.Info("account created", "username", user.Username())
	r.writePlain("✓ Account '%s' created\n", user.Username())
	return nil
}

// AccountPasswd changes the account password after verifying the current one.
func (r *Runner) AccountPasswd(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(cmd)
	if err != nil {
		return err
	}

	oldPassword := cmd.String("password")
	if oldPassword == "" {
		oldPassword = os.Getenv("DEID_PASSWORD")
	}
	if err := r.accounts.ChangePassword(sess, oldPassword, cmd.String("new-password")); err != nil {
		return err
	}

	r.logger.Info("password changed", "username", sess.Username)
	r.writePlain("✓ Password updated\n")
	return nil
}

// AccountDelete removes the account and soft-deletes all its projects.
func (r *Runner) AccountDelete(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(cmd)
	if err != nil {
		return err
	}

	password := cmd.String("password")
	if password == "" {
		password = os.Getenv("DEID_PASSWORD")
	}
	if err := r.accounts.DeleteAccount(sess, password); err != nil {
		return err
	}

	r.logger.Info("account deleted", "username", sess.Username)
	r.writePlain("✓ Account '%s' and its projects deleted\n", sess.Username)
	return nil
}
