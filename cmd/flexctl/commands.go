package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	flexapp "github.com/msdp-platform/msdp-flexstaff/internal/app"
	"github.com/msdp-platform/msdp-flexstaff/internal/messaging/kafka"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/money"
	"github.com/msdp-platform/msdp-flexstaff/internal/timesheet"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables, indexes and constraints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flexapp.Migrate(app.gormDB); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Println("schema is up to date")
			return nil
		},
	}
}

func settleCmd() *cobra.Command {
	var timesheetID, employerID string

	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Start or retry settlement of an approved timesheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := flexapp.NewPaymentService(app.ctx, app.db, app.gormDB, kafka.NewOutboxRepository(app.db))
			if err != nil {
				return err
			}

			resp, err := svc.Process(app.ctx, employerID, timesheetID)
			if err != nil {
				app.logger.Warn("manual settlement failed", zap.String("timesheet_id", timesheetID), zap.Error(err))
				return fmt.Errorf("settle %s: %w", timesheetID, err)
			}

			fmt.Printf("payment %s (%s) is %s\n", resp.PaymentID, resp.Reference, resp.Status)
			fmt.Printf("  gross %s  fee %s  net %s  attempt %d\n",
				money.FormatPence(resp.Amount),
				money.FormatPence(resp.PlatformFee),
				money.FormatPence(resp.NetAmount),
				resp.Attempts,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&timesheetID, "timesheet", "", "timesheet id")
	cmd.Flags().StringVar(&employerID, "employer", "", "employer profile id that owns the timesheet")
	_ = cmd.MarkFlagRequired("timesheet")
	_ = cmd.MarkFlagRequired("employer")
	return cmd
}

func disputesCmd() *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "disputes",
		Short: "List disputed timesheets, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := timesheet.NewService(app.db, timesheet.NewRepository(app.gormDB), nil, nil)
			rows, total, err := svc.ListDisputes(app.ctx, page, limit)
			if err != nil {
				return fmt.Errorf("list disputes: %w", err)
			}

			fmt.Printf("%d disputed timesheets\n\n", total)
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tAMOUNT\tBY\tAT\tREASON")
			for _, t := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					t.ID,
					t.Status,
					money.FormatPence(t.TotalAmount),
					deref(t.DisputedByRole),
					deref(t.DisputedAt),
					deref(t.DisputeReason),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "rows per page")
	return cmd
}

func outboxCmd() *cobra.Command {
	outbox := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect the event outbox",
	}
	outbox.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Count outbox rows by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := kafka.NewOutboxRepository(app.db).CountByStatus(app.ctx)
			if err != nil {
				return fmt.Errorf("outbox stats: %w", err)
			}

			statuses := make([]string, 0, len(counts))
			for s := range counts {
				statuses = append(statuses, s)
			}
			sort.Strings(statuses)
			for _, s := range statuses {
				fmt.Printf("%-10s %d\n", s, counts[s])
			}
			return nil
		},
	})
	return outbox
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
