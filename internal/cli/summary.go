package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newSummaryCommand(app *App) *cobra.Command {
	var (
		flags     monthFlags
		locations []string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize one month across locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(locations) == 0 {
				locations = app.Locations
			}
			if len(locations) == 0 {
				return errNoLocation
			}

			summaries, err := app.RainLogs.MonthlySummary(cmd.Context(),
				flags.year, time.Month(flags.month), locations, flags.realOnly)
			if err != nil {
				return describe(err)
			}

			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), summaries)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "%s %d\n", time.Month(flags.month), flags.year)
			fmt.Fprintln(tw, "LOCATION\tLOGS\tRAINY DAYS\tTOTAL MM")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n",
					s.Location, s.Logs, len(s.Days), formatMM(s.Total))
			}
			return tw.Flush()
		},
	}

	flags.register(cmd, app.Now())
	cmd.Flags().StringSliceVar(&locations, "locations", nil, "locations (default: LOCATION_NAMES)")
	return cmd
}
