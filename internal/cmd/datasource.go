package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/botctl/internal/api"
	"github.com/felixgeelhaar/botctl/internal/errors"
	"github.com/felixgeelhaar/botctl/internal/ux"
	"github.com/felixgeelhaar/botctl/internal/validate"
)

func newDataSourceCommand(app *App) *cobra.Command {
	dsCmd := groupCommand("datasource", "Manage the databases your bots query",
		`Manage the databases your bots query.

Examples:
  botctl datasource list
  botctl datasource create --name warehouse --engine postgresql --host db.internal --database dw --username bot
  botctl datasource test 3`)
	dsCmd.Aliases = []string{"datasources", "ds"}

	dsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List data sources",
			Args:  usageArgs(cobra.NoArgs),
			RunE: func(cmd *cobra.Command, _ []string) error {
				client, err := app.authed(cmd.Context())
				if err != nil {
					return err
				}
				sources, err := client.ListDataSources(cmd.Context())
				if err != nil {
					return err
				}
				return app.print(ux.DataSources(sources))
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show a data source",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("data source", args[0])
				if err != nil {
					return err
				}
				client, err := app.authed(cmd.Context())
				if err != nil {
					return err
				}
				ds, err := client.GetDataSource(cmd.Context(), id)
				if err != nil {
					return err
				}
				if app.structured() {
					return app.print(ds)
				}
				return app.print(ux.DataSourceDetails(ds))
			},
		},
		newDataSourceCreateCommand(app),
		newDataSourceDeleteCommand(app),
		&cobra.Command{
			Use:   "test <id>",
			Short: "Check that the platform can connect to a data source",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("data source", args[0])
				if err != nil {
					return err
				}
				client, err := app.authed(cmd.Context())
				if err != nil {
					return err
				}
				result, err := client.TestDataSourceConnection(cmd.Context(), id)
				if err != nil {
					return err
				}
				if app.structured() {
					return app.print(result)
				}
				if !result.Success {
					return errors.New(errors.ErrCodeAPIRejected, "connection failed: "+result.Message).
						WithSuggestion("Check the host, port and credentials of the data source")
				}
				app.success("Connection to data source %d succeeded", id)
				return nil
			},
		},
	)
	return dsCmd
}

func newDataSourceCreateCommand(app *App) *cobra.Command {
	var in api.DataSourceInput

	c := &cobra.Command{
		Use:   "create",
		Short: "Add a data source",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validate.Struct(in); err != nil {
				return err
			}
			client, err := app.authed(cmd.Context())
			if err != nil {
				return err
			}
			if in.Engine != "sqlite" && in.Username != "" && in.Password == "" {
				if in.Password, err = app.Prompt.Password("Database password"); err != nil {
					return err
				}
			}

			ds, err := client.CreateDataSource(cmd.Context(), in)
			if err != nil {
				return err
			}
			if app.structured() {
				return app.print(ds)
			}
			app.success("Created data source %d (%s)", ds.ID, ds.Name)
			return nil
		},
	}

	f := c.Flags()
	f.StringVar(&in.Name, "name", "", "display name")
	f.StringVar(&in.Engine, "engine", "postgresql", "database engine: postgresql, mysql, sqlite or mssql")
	f.StringVar(&in.Host, "host", "", "database host")
	f.IntVar(&in.Port, "port", 0, "database port (engine default when 0)")
	f.StringVar(&in.Database, "database", "", "database name, or file path for sqlite")
	f.StringVar(&in.Username, "username", "", "database user")
	f.StringVar(&in.Password, "password", "", "database password (prompted for when a username is set)")
	return c
}

func newDataSourceDeleteCommand(app *App) *cobra.Command {
	var yes bool

	c := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a data source",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("data source", args[0])
			if err != nil {
				return err
			}
			client, err := app.authed(cmd.Context())
			if err != nil {
				return err
			}
			ok, err := app.confirm(yes, "Delete data source %d? Bots using it stop working.", id)
			if err != nil || !ok {
				return err
			}
			if err := client.DeleteDataSource(cmd.Context(), id); err != nil {
				return err
			}
			app.success("Deleted data source %d", id)
			return nil
		},
	}

	c.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return c
}
