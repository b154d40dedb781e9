package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallyhours/tally/internal/model"
	"github.com/tallyhours/tally/internal/repository"
	"github.com/tallyhours/tally/internal/service"
)

const bootstrapTimeout = 10 * time.Second

type createAdminOptions struct {
	name          string
	email         string
	passwordStdin bool
	format        string
}

type adminOutput struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

func newCreateAdminCmd(root *rootOptions) *cobra.Command {
	opts := &createAdminOptions{}

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an ADMIN account",
		Long: `Create an ADMIN account. This is the only way administrators are created.
The password is read from $TALLY_ADMIN_PASSWORD, or from stdin with --password-stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := root.requireDatabaseURL()
			if err != nil {
				return err
			}
			password, err := readPassword(opts.passwordStdin, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), bootstrapTimeout)
			defer cancel()

			repo, err := repository.New(ctx, dsn)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer repo.Close()

			accounts := service.NewAccountService(repo, nil, nil, nil)
			user, err := accounts.CreateUser(ctx, service.RegisterInput{
				Name:     opts.name,
				Email:    opts.email,
				Password: password,
			}, model.RoleAdmin)
			if err != nil {
				return describeCreateError(err)
			}

			return writeAdmin(cmd.OutOrStdout(), opts.format, user)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&opts.email, "email", "", "login email (required)")
	cmd.Flags().BoolVar(&opts.passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.Flags().StringVar(&opts.format, "format", "plain", "output format: plain or json")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func readPassword(fromStdin bool, stdin io.Reader) (string, error) {
	if !fromStdin {
		password := os.Getenv("TALLY_ADMIN_PASSWORD")
		if password == "" {
			return "", errors.New("TALLY_ADMIN_PASSWORD is empty (or pass --password-stdin)")
		}
		return password, nil
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password on stdin")
	}
	return password, nil
}

func describeCreateError(err error) error {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		return errors.New(validation.Message)
	case errors.Is(err, service.ErrEmailTaken):
		return errors.New("an account with that email already exists")
	}
	return err
}

func writeAdmin(w io.Writer, format string, user *model.User) error {
	out := adminOutput{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "plain", "":
		_, err := fmt.Fprintf(w, "created %s account %s <%s> id=%s\n", out.Role, out.Name, out.Email, out.ID)
		return err
	}
	return fmt.Errorf("unknown format %q", format)
}
