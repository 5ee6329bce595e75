package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/botctl/internal/ux"
)

func newConversationCommand(app *App) *cobra.Command {
	convCmd := groupCommand("conversation", "Browse and manage conversations",
		`Browse and manage the conversations held with your bots.

Examples:
  botctl conversation list --bot 4
  botctl conversation get 17
  botctl conversation rename 17 --title "Q3 revenue"`)
	convCmd.Aliases = []string{"conversations", "conv"}

	convCmd.AddCommand(
		newConversationListCommand(app),
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show the messages of a conversation",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("conversation", args[0])
				if err != nil {
					return err
				}
				client, err := app.authed(cmd.Context())
				if err != nil {
					return err
				}
				conv, err := client.GetConversation(cmd.Context(), id)
				if err != nil {
					return err
				}
				if app.structured() {
					return app.print(conv)
				}
				return app.print(ux.Messages(conv.Messages))
			},
		},
		newConversationRenameCommand(app),
		newConversationDeleteCommand(app),
	)
	return convCmd
}

func newConversationListCommand(app *App) *cobra.Command {
	var botID int64

	c := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if botID < 0 {
				return parseIDFlag("--bot", botID)
			}
			client, err := app.authed(cmd.Context())
			if err != nil {
				return err
			}
			convs, err := client.ListConversations(cmd.Context(), botID)
			if err != nil {
				return err
			}
			return app.print(ux.Conversations(convs))
		},
	}

	c.Flags().Int64Var(&botID, "bot", 0, "only list conversations with this bot")
	return c
}

func newConversationRenameCommand(app *App) *cobra.Command {
	var title string

	c := &cobra.Command{
		Use:   "rename <id>",
		Short: "Change the title of a conversation",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("conversation", args[0])
			if err != nil {
				return err
			}
			client, err := app.authed(cmd.Context())
			if err != nil {
				return err
			}
			if title, err = app.value(title, "New title"); err != nil {
				return err
			}
			conv, err := client.RenameConversation(cmd.Context(), id, title)
			if err != nil {
				return err
			}
			if app.structured() {
				return app.print(conv)
			}
			app.success("Renamed conversation %d to %q", conv.ID, conv.Title)
			return nil
		},
	}

	c.Flags().StringVar(&title, "title", "", "new title")
	return c
}

func newConversationDeleteCommand(app *App) *cobra.Command {
	var yes bool

	c := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("conversation", args[0])
			if err != nil {
				return err
			}
			client, err := app.authed(cmd.Context())
			if err != nil {
				return err
			}
			ok, err := app.confirm(yes, "Delete conversation %d?", id)
			if err != nil || !ok {
				return err
			}
			if err := client.DeleteConversation(cmd.Context(), id); err != nil {
				return err
			}
			app.success("Deleted conversation %d", id)
			return nil
		},
	}

	c.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return c
}
