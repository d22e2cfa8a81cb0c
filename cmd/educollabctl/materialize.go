package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/dto"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/repository"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/service"
	"github.com/EduCollab-AI/EduCollab-Backend/pkg/database"
)

func newMaterializeCmd(a *app) *cobra.Command {
	var (
		studentID string
		start     string
		end       string
		maxCount  int
	)

	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Generate the missing payment events of a student once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			query := dto.PaymentEventQuery{}
			var err error
			if start != "" {
				if query.Start, err = recurrence.ParseDate(start); err != nil {
					return err
				}
			}
			if end != "" {
				if query.End, err = recurrence.ParseDate(end); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("max") {
				query.MaxCount = &maxCount
			}

			db, err := database.NewPostgres(cmd.Context(), a.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			payments := service.NewPaymentService(
				repository.NewStudentRepository(db),
				repository.NewPaymentScheduleRepository(db),
				repository.NewPaymentEventRepository(db),
				repository.NewTxManager(db),
				nil,
				nil,
				service.PaymentConfig{
					DefaultWindowMonths: a.cfg.Projection.DefaultWindowMonths,
					LegacyFallback:      a.cfg.Projection.LegacyRRFallback,
				},
				a.logger,
			)

			resp, err := payments.GetPaymentEvents(cmd.Context(), studentID, query)
			if err != nil {
				return err
			}
			a.logger.Info("materialization finished",
				zap.String("student_id", studentID),
				zap.Int("schedules", len(resp.Schedules)),
				zap.Int("events", len(resp.Events)),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "%d events in window for %d billing rules\n", len(resp.Events), len(resp.Schedules))
			return nil
		},
	}

	cmd.Flags().StringVar(&studentID, "student", "", "student ID")
	cmd.Flags().StringVar(&start, "start", "", "window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "window end (YYYY-MM-DD)")
	cmd.Flags().IntVar(&maxCount, "max", 0, "maximum events per run")
	_ = cmd.MarkFlagRequired("student")
	return cmd
}
