package main

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/shadow"
)

func newShadowCompareCmd(_ *app) *cobra.Command {
	var (
		goBase      string
		legacyBase  string
		targetsPath string
		token       string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "shadow-compare",
		Short: "Compare the Go API against the legacy API route by route",
		RunE: func(cmd *cobra.Command, _ []string) error {
			targets, err := shadow.LoadTargets(targetsPath)
			if err != nil {
				return fmt.Errorf("load targets: %w", err)
			}
			headers := http.Header{}
			if token != "" {
				headers.Set("Authorization", "Bearer "+token)
			}
			comparer := shadow.NewComparer(&http.Client{Timeout: timeout}, goBase, legacyBase, headers)
			report := comparer.Run(cmd.Context(), targets)
			shadow.Print(cmd.OutOrStdout(), report)
			if report.Breaking > 0 {
				return fmt.Errorf("%d breaking diffs", report.Breaking)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&goBase, "go-base", "http://localhost:8080", "Go API base URL")
	cmd.Flags().StringVar(&legacyBase, "legacy-base", "http://localhost:3000", "Legacy API base URL")
	cmd.Flags().StringVar(&targetsPath, "targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "Path to JSON targets file")
	cmd.Flags().StringVar(&token, "token", "", "bearer token sent to both services")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	return cmd
}
