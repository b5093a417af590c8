package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"roadrich/internal/cli"
	"roadrich/internal/core"
	applog "roadrich/internal/log"
	"roadrich/internal/services"
)

func newMonthlyCmd(f *rootFlags) *cobra.Command {
	var (
		email string
		year  int
		month int
	)
	now := time.Now()
	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Render a user's report from the configured store",
		Example: `  roadrich-report monthly --email lea@example.com --year 2026 --month 3
  DATA_BACKEND=sqlite SQLITE_DB_PATH=./data/roadrich.db roadrich-report monthly --email lea@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cli.SetupLogger(f.logLevel, applog.ComponentReport)
			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("--email is required")
			}
			if err := core.ValidateYearMonth(year, month); err != nil {
				return err
			}

			cfg := cli.LoadAndValidateConfig(logger)
			store, err := cli.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			user, err := store.UserByEmail(ctx, email)
			if err != nil {
				return fmt.Errorf("find user %s: %w", email, err)
			}

			svc := services.NewReportService(store, f.composer())
			doc, s, err := svc.MonthlyReport(ctx, user.ID, year, month)
			if err != nil {
				return err
			}
			return f.write(cmd, doc, s)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email of the user to report on")
	cmd.Flags().IntVar(&year, "year", now.Year(), "Report year")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "Report month (1-12)")
	return cmd
}
