package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/botctl/internal/config"
)

func newConfigCommand(app *App) *cobra.Command {
	configCmd := groupCommand("config", "Show and initialize configuration",
		`Show and initialize the botctl configuration.

Settings are read from the config file, then overridden by BOTCTL_*
environment variables, then by command line flags.`)

	configCmd.AddCommand(
		newConfigShowCommand(app),
		newConfigInitCommand(app),
		&cobra.Command{
			Use:         "path",
			Short:       "Print the config file location",
			Args:        usageArgs(cobra.NoArgs),
			Annotations: map[string]string{annotationNoConfig: "true"},
			RunE: func(cmd *cobra.Command, _ []string) error {
				fmt.Fprintln(app.Out, app.configPath())
				return nil
			},
		},
	)
	return configCmd
}

func newConfigShowCommand(app *App) *cobra.Command {
	var env bool

	c := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration after applying the config file,
environment variables and flags. Secrets are never printed.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if env {
				config.DescribeEnv(app.Out)
				return nil
			}
			if app.cfg.Output == config.OutputJSON {
				return app.print(app.cfg)
			}
			enc := yaml.NewEncoder(app.Out)
			enc.SetIndent(2)
			if err := enc.Encode(app.cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	c.Flags().BoolVar(&env, "env", false, "list the supported environment variables instead")
	return c
}

func newConfigInitCommand(app *App) *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:         "init",
		Short:       "Write a configuration file with the default settings",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{annotationNoConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := app.configPath()
			if err := config.WriteTemplate(path, force); err != nil {
				return err
			}
			app.success("Wrote %s", path)
			return nil
		},
	}

	c.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return c
}

func (a *App) configPath() string {
	if a.flags.configPath != "" {
		return a.flags.configPath
	}
	return config.DefaultPath()
}
