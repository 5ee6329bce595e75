package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/botctl/internal/api"
	"github.com/felixgeelhaar/botctl/internal/validate"
)

func newChatCommand(app *App) *cobra.Command {
	chatCmd := groupCommand("chat", "Ask a bot a question",
		`Ask a bot a question. The answer and the SQL it ran are printed.

Examples:
  botctl chat send --bot 4 "How many orders shipped last week?"
  botctl chat send --bot 4 --conversation 17 "And the week before?"`)

	chatCmd.AddCommand(newChatSendCommand(app))
	return chatCmd
}

func newChatSendCommand(app *App) *cobra.Command {
	var botID, conversationID int64

	c := &cobra.Command{
		Use:   "send <message>...",
		Short: "Send a message to a bot",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.ChatRequest{
				BotID:   botID,
				Message: strings.TrimSpace(strings.Join(args, " ")),
			}
			if cmd.Flags().Changed("conversation") {
				if conversationID <= 0 {
					return parseIDFlag("--conversation", conversationID)
				}
				req.ConversationID = &conversationID
			}
			if err := validate.Struct(req); err != nil {
				return err
			}

			client, err := app.authed(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := client.SendChatMessage(cmd.Context(), req)
			if err != nil {
				return err
			}
			if app.structured() {
				return app.print(resp)
			}

			fmt.Fprintln(app.Out, resp.AssistantMessage.Content)
			if sql := resp.AssistantMessage.SQL; sql != "" {
				fmt.Fprintf(app.Err, "\nSQL:\n  %s\n", strings.ReplaceAll(sql, "\n", "\n  "))
			}
			if req.ConversationID == nil {
				app.notice("Continue with --conversation %d", resp.ConversationID)
			}
			return nil
		},
	}

	f := c.Flags()
	f.Int64Var(&botID, "bot", 0, "ID of the bot to ask")
	f.Int64Var(&conversationID, "conversation", 0, "continue an existing conversation")
	return c
}
