package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/botctl/internal/api"
	"github.com/felixgeelhaar/botctl/internal/ux"
	"github.com/felixgeelhaar/botctl/internal/validate"
)

func newBotCommand(app *App) *cobra.Command {
	botCmd := groupCommand("bot", "Manage bots",
		`Manage the bots of your organization. A bot answers questions about one
data source.

Examples:
  botctl bot list
  botctl bot create --name sales --data-source 3 --temperature 0.2`)
	botCmd.Aliases = []string{"bots"}

	botCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List bots",
			Args:  usageArgs(cobra.NoArgs),
			RunE: func(cmd *cobra.Command, _ []string) error {
				client, err := app.authed(cmd.Context())
				if err != nil {
					return err
				}
				bots, err := client.ListBots(cmd.Context())
				if err != nil {
					return err
				}
				return app.print(ux.Bots(bots))
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show a bot",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("bot", args[0])
				if err != nil {
					return err
				}
				client, err := app.authed(cmd.Context())
				if err != nil {
					return err
				}
				bot, err := client.GetBot(cmd.Context(), id)
				if err != nil {
					return err
				}
				if app.structured() {
					return app.print(bot)
				}
				return app.print(ux.BotDetails(bot))
			},
		},
		newBotCreateCommand(app),
		newBotDeleteCommand(app),
	)
	return botCmd
}

func newBotCreateCommand(app *App) *cobra.Command {
	in := api.BotInput{Temperature: 0.2, MaxTokens: 1024, RowLimit: 100}

	c := &cobra.Command{
		Use:   "create",
		Short: "Create a bot",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validate.Struct(in); err != nil {
				return err
			}
			client, err := app.authed(cmd.Context())
			if err != nil {
				return err
			}
			bot, err := client.CreateBot(cmd.Context(), in)
			if err != nil {
				return err
			}
			if app.structured() {
				return app.print(bot)
			}
			app.success("Created bot %d (%s)", bot.ID, bot.Name)
			return nil
		},
	}

	f := c.Flags()
	f.StringVar(&in.Name, "name", "", "bot name")
	f.StringVar(&in.Description, "description", "", "short description")
	f.Int64Var(&in.DataSource, "data-source", 0, "ID of the data source the bot queries")
	f.StringVar(&in.SystemPrompt, "system-prompt", "", "instructions prepended to every conversation")
	f.Float64Var(&in.Temperature, "temperature", in.Temperature, "sampling temperature between 0 and 2")
	f.IntVar(&in.MaxTokens, "max-tokens", in.MaxTokens, "maximum tokens per answer")
	f.IntVar(&in.RowLimit, "row-limit", in.RowLimit, "maximum rows returned per query")
	return c
}

func newBotDeleteCommand(app *App) *cobra.Command {
	var yes bool

	c := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a bot and its conversations",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("bot", args[0])
			if err != nil {
				return err
			}
			client, err := app.authed(cmd.Context())
			if err != nil {
				return err
			}
			ok, err := app.confirm(yes, "Delete bot %d and all of its conversations?", id)
			if err != nil || !ok {
				return err
			}
			if err := client.DeleteBot(cmd.Context(), id); err != nil {
				return err
			}
			app.success("Deleted bot %d", id)
			return nil
		},
	}

	c.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return c
}
