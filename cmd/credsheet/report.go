package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/medienwerk/credsheet/internal/report"
)

var (
	reportLimit int
	reportRunID string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show audited outcomes of past provisioning runs",
	Long: `Show per-customer outcomes persisted by past provisioning runs.
Requires the audit database (database_dsn in the config file or
CREDSHEET_DATABASE_DSN).`,
	Run: func(cmd *cobra.Command, args []string) {
		options, log, err := loadConfig()
		if err != nil {
			fail("error: %v", err)
		}
		defer log.Log.Sync()

		if options.DatabaseDSN == "" {
			fail("error: audit database not configured")
		}
		db, err := report.InitPostgres(options.DatabaseDSN)
		if err != nil {
			fail("error: audit database: %v", err)
		}
		defer db.Close()
		repo := report.NewPostgresAuditRepository(db)

		ctx := context.Background()
		var rows []report.AuditRow
		if reportRunID != "" {
			rows, err = repo.RunResults(ctx, reportRunID)
		} else {
			rows, err = repo.RecentResults(ctx, reportLimit)
		}
		if err != nil {
			fail("error: %v", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CREATED\tRUN\tCUSTOMER\tCATEGORY\tSTATE\tERROR")
		for _, row := range rows {
			errCol := row.ErrorKind
			if row.ErrorMessage != "" {
				errCol = fmt.Sprintf("%s: %s", row.ErrorKind, row.ErrorMessage)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				row.CreatedAt.Format("2006-01-02 15:04"),
				row.RunID, row.Customer, row.Category, row.State, errCol)
		}
		w.Flush()
	},
}

func init() {
	reportCmd.Flags().IntVar(&reportLimit, "limit", 20, "number of rows to show")
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "show one run by id")
	rootCmd.AddCommand(reportCmd)
}
