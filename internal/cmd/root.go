package cmd

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/botctl/internal/errors"
	"github.com/felixgeelhaar/botctl/internal/tui"
	"github.com/felixgeelhaar/botctl/internal/ux"
)

const annotationNoConfig = "botctl/no-config"

// NewRootCommand builds the botctl command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "botctl",
		Short: "Manage bots, data sources and conversations on the bot platform",
		Long: `botctl is the command line client for the multi-tenant AI bot platform.

It signs you in, keeps your session, and lets you manage the data sources
your bots query, the bots themselves, their conversations, your team and
your subscription.

Configuration is read from ~/.botctl/config.yaml and BOTCTL_* environment
variables; see 'botctl config show --env'.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              usageArgs(cobra.NoArgs),
		RunE:              showHelp,
		PersistentPreRunE: app.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.flags.configPath, "config", "", "config file (default is $HOME/.botctl/config.yaml)")
	flags.StringVar(&app.flags.apiURL, "api-url", "", "base URL of the bot platform API")
	flags.StringVarP(&app.flags.output, "output", "o", "", "output format: table, json or yaml")
	flags.StringVar(&app.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.NewUsageError(err)
	})

	root.AddCommand(
		newAuthCommand(app),
		newDataSourceCommand(app),
		newBotCommand(app),
		newConversationCommand(app),
		newChatCommand(app),
		newTeamCommand(app),
		newBillingCommand(app),
		newConfigCommand(app),
		newVersionCommand(app),
	)
	return root
}

// Execute runs botctl with the process arguments.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs botctl with the process arguments under ctx.
func ExecuteContext(ctx context.Context) error {
	return NewApp().Run(ctx, os.Args[1:])
}

// Run executes one command line. The returned error is ready to be shown
// to the user.
func (a *App) Run(ctx context.Context, args []string) error {
	root := NewRootCommand(a)
	root.SetArgs(args)
	root.SetIn(a.In)
	root.SetOut(a.Out)
	root.SetErr(a.Err)

	start := time.Now()
	executed, err := root.ExecuteContextC(ctx)
	err = ux.PresentError(err)
	a.finish(commandName(executed), time.Since(start), err)
	return err
}

func commandName(c *cobra.Command) string {
	if c == nil {
		return "botctl"
	}
	name := strings.TrimPrefix(c.CommandPath(), "botctl ")
	if name == "" {
		return "botctl"
	}
	return name
}

func showHelp(cmd *cobra.Command, _ []string) error {
	return cmd.Help()
}

// groupCommand returns a parent command that prints its help and rejects
// unknown subcommands as usage errors.
func groupCommand(use, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  usageArgs(cobra.NoArgs),
		RunE:  showHelp,
	}
}

// App carries the streams and collaborators shared by every command.
type App struct {
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Prompt tui.Prompter

	flags globalFlags
	state
}

// NewApp returns an App bound to the process streams and terminal.
func NewApp() *App {
	return &App{
		In:     os.Stdin,
		Out:    os.Stdout,
		Err:    os.Stderr,
		Prompt: tui.NewTerminal(),
	}
}
