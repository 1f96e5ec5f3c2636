package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/estatedesk/internal/scoring"
	"github.com/stwalsh4118/estatedesk/internal/services"
)

type scoreOptions struct {
	budgetFit    float64
	readiness    float64
	regionMatch  bool
	propertyCode string
	hot          int
	warm         int
	asJSON       bool
}

func newScoreCmd() *cobra.Command {
	var opts scoreOptions

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Print the score breakdown for a set of lead signals",
		Long: `Score ad-hoc lead signals without touching the database.

Signals that are not passed contribute nothing, exactly as for a stored lead
with the column left empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scorer, err := scoring.New(scoring.Thresholds{Hot: opts.hot, Warm: opts.warm})
			if err != nil {
				return err
			}

			signals, err := signalsFromFlags(cmd, opts)
			if err != nil {
				return err
			}

			breakdown := scorer.Explain(signals)
			if opts.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(breakdown)
			}
			return writeBreakdown(cmd.OutOrStdout(), breakdown)
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&opts.budgetFit, "budget-fit", 0, "budget fit signal (0-100)")
	flags.Float64Var(&opts.readiness, "readiness", 0, "readiness signal (0-100)")
	flags.BoolVar(&opts.regionMatch, "region-match", false, "lead wants the listing's region")
	flags.StringVar(&opts.propertyCode, "property-code", "", "listing the lead asked about")
	flags.IntVar(&opts.hot, "hot", scoring.DefaultHot, "minimum score for the Hot tier")
	flags.IntVar(&opts.warm, "warm", scoring.DefaultWarm, "minimum score for the Warm tier")
	flags.BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// signalsFromFlags keeps unset flags nil so they score as missing.
func signalsFromFlags(cmd *cobra.Command, opts scoreOptions) (scoring.Signals, error) {
	var s scoring.Signals
	flags := cmd.Flags()

	if flags.Changed("budget-fit") {
		if err := checkSignal("budget-fit", opts.budgetFit); err != nil {
			return s, err
		}
		v := opts.budgetFit
		s.BudgetFit = &v
	}
	if flags.Changed("readiness") {
		if err := checkSignal("readiness", opts.readiness); err != nil {
			return s, err
		}
		v := opts.readiness
		s.Readiness = &v
	}
	if flags.Changed("region-match") {
		v := opts.regionMatch
		s.RegionMatch = &v
	}
	if flags.Changed("property-code") {
		v := opts.propertyCode
		s.PropertyCode = &v
	}
	return s, nil
}

func checkSignal(name string, v float64) error {
	if v < services.MinSignal || v > services.MaxSignal {
		return fmt.Errorf("--%s must be between %.0f and %.0f, got %g",
			name, services.MinSignal, services.MaxSignal, v)
	}
	return nil
}

func writeBreakdown(w io.Writer, b scoring.Breakdown) error {
	_, err := fmt.Fprintf(w,
		"score      %d (%s)\nbudget     %5.1f\nreadiness  %5.1f\nregion     %5.1f\nproperty   %5.1f\n",
		b.Score, b.Label, b.Budget, b.Readiness, b.Region, b.Property)
	return err
}
