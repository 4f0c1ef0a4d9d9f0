package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hostelhub/portal/internal/bootstrap"
	"github.com/hostelhub/portal/internal/data"
	domainauth "github.com/hostelhub/portal/internal/domain/auth"
	"github.com/hostelhub/portal/internal/ports"
)

const defaultMigrationTimeout = 5 * time.Minute

// adminApp carries what every subcommand needs. open is swapped in tests.
type adminApp struct {
	logger *slog.Logger
	open   func(ctx context.Context, logger *slog.Logger) (*sql.DB, error)
}

func openDatabase(ctx context.Context, logger *slog.Logger) (*sql.DB, error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return nil, err
	}
	return bootstrap.ConnectDB(ctx, cfg.Postgres, logger)
}

func (a *adminApp) withDB(ctx context.Context, fn func(db *sql.DB) error) error {
	db, err := a.open(ctx, a.logger)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			a.logger.ErrorContext(ctx, "close database failed", "error", cerr)
		}
	}()
	return fn(db)
}

func newRootCmd(app *adminApp) *cobra.Command {
	root := &cobra.Command{
		Use:           "portal-admin <command>",
		Short:         "Administrative tasks for the hostel portal database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(app), newSetRoleCmd(app), newWhoisCmd(app))
	return root
}

func newMigrateCmd(app *adminApp) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return app.withDB(ctx, func(db *sql.DB) error {
				if err := bootstrap.RunMigrations(ctx, db, app.logger); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return err
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultMigrationTimeout, "maximum time to spend migrating")
	return cmd
}

func newSetRoleCmd(app *adminApp) *cobra.Command {
	var userID, role string
	cmd := &cobra.Command{
		Use:   "set-role --user <id> --role <admin|student>",
		Short: "Change the role stored on a user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := domainauth.ParseRole(role)
			if r != domainauth.RoleAdmin && r != domainauth.RoleStudent {
				return fmt.Errorf("unsupported role %q (want admin or student)", role)
			}
			id := strings.TrimSpace(userID)
			return app.withDB(cmd.Context(), func(db *sql.DB) error {
				if err := data.NewProfileRepo(db).UpdateRole(cmd.Context(), id, r); err != nil {
					if errors.Is(err, ports.ErrProfileNotFound) {
						return fmt.Errorf("no profile for user %s", id)
					}
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "user %s is now %s\n", id, r)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (UUID)")
	cmd.Flags().StringVar(&role, "role", "", "new role: admin or student")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newWhoisCmd(app *adminApp) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "whois <user-id>",
		Short: "Show the profile stored for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withDB(cmd.Context(), func(db *sql.DB) error {
				p, err := data.NewProfileRepo(db).GetProfile(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					if errors.Is(err, ports.ErrProfileNotFound) {
						return fmt.Errorf("no profile for user %s", args[0])
					}
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(p)
				}
				return printProfile(cmd.OutOrStdout(), p)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printProfile(w io.Writer, p domainauth.Profile) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"ID", p.ID},
		{"Email", p.Email},
		{"Full name", p.FullName},
		{"Role", string(p.Role)},
		{"School", p.School},
		{"Phone", p.PhoneNumber},
		{"Home county", p.HomeCounty},
		{"Created", p.CreatedAt.Format(time.RFC3339)},
	}
	if p.Age > 0 {
		rows = append(rows, [2]string{"Age", fmt.Sprint(p.Age)})
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}
