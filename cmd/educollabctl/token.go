package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/service"
)

func newTokenCmd(a *app) *cobra.Command {
	var (
		subject  string
		role     string
		students []string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an access token for operators and smoke tests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.JWT.Secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			auth := service.NewAuthService(service.AuthConfig{
				Secret: a.cfg.JWT.Secret,
				Issuer: a.cfg.JWT.Issuer,
				Expiry: a.cfg.JWT.Expiration,
			})
			token, expiresAt, err := auth.IssueToken(subject, role, students)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "educollabctl", "token subject")
	cmd.Flags().StringVar(&role, "role", "ADMIN", "ADMIN, TEACHER or PARENT")
	cmd.Flags().StringSliceVar(&students, "student", nil, "student IDs a PARENT token may access")
	return cmd
}
