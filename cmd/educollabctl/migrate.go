package main

import (
	"github.com/spf13/cobra"

	"github.com/EduCollab-AI/EduCollab-Backend/pkg/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the embedded database migrations",
	}

	run := func(action func(*database.Migrator, *cobra.Command) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			db, err := database.NewPostgres(cmd.Context(), a.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			migrator, err := database.NewMigrator(db, a.logger)
			if err != nil {
				return err
			}
			return action(migrator, cmd)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: run(func(m *database.Migrator, cmd *cobra.Command) error {
				return m.Up(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: run(func(m *database.Migrator, cmd *cobra.Command) error {
				return m.Down(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the state of every migration",
			RunE: run(func(m *database.Migrator, cmd *cobra.Command) error {
				return m.Status(cmd.Context())
			}),
		},
	)
	return cmd
}
