package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/botctl/internal/version"
)

func newVersionCommand(app *App) *cobra.Command {
	var verbose, asJSON bool

	c := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{annotationNoConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetInfo()

			if asJSON {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal version info: %w", err)
				}
				fmt.Fprintln(app.Out, string(data))
				return nil
			}

			if verbose {
				fmt.Fprintln(app.Out, info.String())
				fmt.Fprintf(app.Out, "user agent: %s\n", info.UserAgent())
				return nil
			}

			fmt.Fprintf(app.Out, "botctl %s\n", info.Short())
			return nil
		},
	}

	c.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed version information")
	c.Flags().BoolVar(&asJSON, "json", false, "output version information as JSON")
	return c
}
