package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/estatedesk/internal/models"
	"github.com/stwalsh4118/estatedesk/internal/repository"
	"github.com/stwalsh4118/estatedesk/internal/services"
)

func newPipelineCmd() *cobra.Command {
	var (
		days   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Print the daily lead, viewing and offer series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Fail before dialling the database
			if days < services.MinRangeDays || days > services.MaxRangeDays {
				return fmt.Errorf("%w: got %d", services.ErrInvalidRange, days)
			}

			_, db, log, err := connect(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			analytics := services.NewAnalyticsService(services.AnalyticsDeps{
				Leads:    repository.NewLeadRepository(db),
				Activity: repository.NewActivityRepository(db),
			}, log)

			buckets, err := analytics.Pipeline(cmd.Context(), days)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(buckets)
			}
			return writeSeries(cmd.OutOrStdout(), buckets)
		},
	}

	cmd.Flags().IntVar(&days, "days", models.DefaultDashboardRangeDays, "window size in days, ending yesterday")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// writeSeries prints one row per bucket followed by a totals row.
func writeSeries(w io.Writer, buckets []models.TimeSeriesBucket) error {
	const row = "%-10s %6v %8v %6v %4v\n"

	if _, err := fmt.Fprintf(w, row, "date", "leads", "viewings", "offers", "won"); err != nil {
		return err
	}

	var total models.TimeSeriesBucket
	for _, b := range buckets {
		if _, err := fmt.Fprintf(w, row, b.Date, b.Leads, b.Viewings, b.Offers, b.Won); err != nil {
			return err
		}
		total.Leads += b.Leads
		total.Viewings += b.Viewings
		total.Offers += b.Offers
		total.Won += b.Won
	}

	_, err := fmt.Fprintf(w, row, "total", total.Leads, total.Viewings, total.Offers, total.Won)
	return err
}
