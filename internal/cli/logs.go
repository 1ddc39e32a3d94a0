package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kroma-labs/rainlogger-go/rainlog"
)

func newLogsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List, add, correct and delete rainlogs",
	}
	cmd.AddCommand(
		newLogsListCommand(app),
		newLogsDayCommand(app),
		newLogsAddCommand(app),
		newLogsUpdateCommand(app),
		newLogsDeleteCommand(app),
	)
	return cmd
}

// monthFlags registers --year, --month and --real. Year and month default
// to the current month.
type monthFlags struct {
	year     int
	month    int
	realOnly bool
}

func (f *monthFlags) register(cmd *cobra.Command, now time.Time) {
	cmd.Flags().IntVar(&f.year, "year", now.Year(), "year")
	cmd.Flags().IntVar(&f.month, "month", int(now.Month()), "month, 1-12")
	cmd.Flags().BoolVar(&f.realOnly, "real", false, "only real readings")
}

func newLogsListCommand(app *App) *cobra.Command {
	var (
		flags    monthFlags
		location string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the logs of one month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := app.location(location)
			if err != nil {
				return err
			}

			logs, err := app.RainLogs.Month(cmd.Context(), rainlog.MonthFilter{
				Year:        flags.year,
				Month:       time.Month(flags.month),
				Location:    loc,
				RealReading: flags.realOnly,
			})
			if err != nil {
				return describe(err)
			}

			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), logs)
			}
			return printLogs(cmd.OutOrStdout(), logs)
		},
	}
	flags.register(cmd, app.Now())
	cmd.Flags().StringVar(&location, "location", "", "location (default: first of LOCATION_NAMES)")
	return cmd
}

func newLogsDayCommand(app *App) *cobra.Command {
	var (
		date     string
		location string
		realOnly bool
	)

	cmd := &cobra.Command{
		Use:   "day",
		Short: "List the logs of one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := app.location(location)
			if err != nil {
				return err
			}

			logs, err := app.RainLogs.Day(cmd.Context(), rainlog.DayFilter{
				Date:        date,
				Location:    loc,
				RealReading: realOnly,
			})
			if err != nil {
				return describe(err)
			}

			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), logs)
			}
			return printLogs(cmd.OutOrStdout(), logs)
		},
	}

	cmd.Flags().StringVar(&date, "date", app.Now().Format(rainlog.DateLayout), "day, YYYY-MM-DD")
	cmd.Flags().StringVar(&location, "location", "", "location (default: first of LOCATION_NAMES)")
	cmd.Flags().BoolVar(&realOnly, "real", false, "only real readings")
	return cmd
}

func newLogsAddCommand(app *App) *cobra.Command {
	var (
		in          rainlog.NewRainLog
		measurement string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a measurement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := rainlog.ParseMeasurement(measurement)
			if err != nil {
				return err
			}
			in.Measurement = v

			if in.Location, err = app.location(in.Location); err != nil {
				return err
			}

			log, err := app.RainLogs.Create(cmd.Context(), in)
			if err != nil {
				return describe(err)
			}

			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), log)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s mm in %s on %s\n",
				log.ID, formatMM(log.Measurement), log.Location, log.Day())
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Date, "date", app.Now().Format(rainlog.DateLayout), "day, YYYY-MM-DD")
	cmd.Flags().StringVar(&measurement, "measurement", "", "rainfall in mm, at most two decimals")
	cmd.Flags().StringVar(&in.Location, "location", "", "location (default: first of LOCATION_NAMES)")
	cmd.Flags().BoolVar(&in.RealReading, "real", true, "a real reading rather than an estimate")
	_ = cmd.MarkFlagRequired("measurement")
	return cmd
}

func newLogsUpdateCommand(app *App) *cobra.Command {
	var (
		measurement string
		realReading bool
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Correct the measurement of a log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := rainlog.ParseMeasurement(measurement)
			if err != nil {
				return err
			}

			log, err := app.RainLogs.Update(cmd.Context(), rainlog.Update{
				ID:          args[0],
				Measurement: v,
				RealReading: realReading,
			})
			if err != nil {
				return describe(err)
			}

			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), log)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s mm\n", log.ID, formatMM(log.Measurement))
			return nil
		},
	}

	cmd.Flags().StringVar(&measurement, "measurement", "", "rainfall in mm, at most two decimals")
	cmd.Flags().BoolVar(&realReading, "real", true, "a real reading rather than an estimate")
	_ = cmd.MarkFlagRequired("measurement")
	return cmd
}

func newLogsDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.RainLogs.Delete(cmd.Context(), args[0]); err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func printLogs(w io.Writer, logs []rainlog.RainLog) error {
	if len(logs) == 0 {
		_, err := fmt.Fprintln(w, "No rainlogs found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tLOCATION\tMM\tREAL\tLOGGED BY")
	for _, l := range logs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, l.Day(), l.Location, formatMM(l.Measurement), yesNo(l.RealReading), l.LoggedBy)
	}
	fmt.Fprintf(tw, "\t\tTOTAL\t%s\t\t\n", formatMM(rainlog.TotalRainfall(logs)))
	return tw.Flush()
}

func formatMM(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
