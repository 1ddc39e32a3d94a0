package cli

import (
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/kroma-labs/rainlogger-go/httpclient"
)

var (
	errNotLoggedIn = errors.New("not logged in, run: rainlogger login")
	errNoLocation  = errors.New("no location given, use --location or set LOCATION_NAMES")
)

// NewRootCommand builds the rainlogger command tree.
func NewRootCommand(app *App, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "rainlogger",
		Short: "Log and review rainfall measurements",
		Long: `rainlogger talks to the rainlogger API: log in once, then add, correct and
review rainfall measurements per location, or summarize a month.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("json", false, "print JSON instead of tables")

	root.AddCommand(
		newLoginCommand(app),
		newLogoutCommand(app),
		newWhoamiCommand(app),
		newLogsCommand(app),
		newSummaryCommand(app),
	)
	return root
}

func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describe turns API errors into one-line messages for the terminal.
func describe(err error) error {
	apiErr, ok := httpclient.AsAPIError(err)
	if !ok {
		return err
	}
	if apiErr.IsTransport() {
		return fmt.Errorf("could not reach the server: %s", apiErr.Message)
	}
	return fmt.Errorf("%s (HTTP %d)", apiErr.Message, apiErr.Status)
}

func (a *App) location(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if len(a.Locations) == 0 {
		return "", errNoLocation
	}
	return a.Locations[0], nil
}
