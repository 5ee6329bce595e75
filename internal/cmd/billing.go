package cmd

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/botctl/internal/api"
	"github.com/felixgeelhaar/botctl/internal/billing"
	"github.com/felixgeelhaar/botctl/internal/tui"
	"github.com/felixgeelhaar/botctl/internal/ux"
	"github.com/felixgeelhaar/botctl/internal/validate"
)

func newBillingCommand(app *App) *cobra.Command {
	billingCmd := groupCommand("billing", "Show plans and manage your subscription",
		`Show the available plans and manage your organization's subscription.

Examples:
  botctl billing plans
  botctl billing subscription
  botctl billing change pro`)

	billingCmd.AddCommand(
		&cobra.Command{
			Use:   "plans",
			Short: "List the available plans",
			Args:  usageArgs(cobra.NoArgs),
			RunE: func(cmd *cobra.Command, _ []string) error {
				client, err := app.authed(cmd.Context())
				if err != nil {
					return err
				}
				plans, err := client.ListPlans(cmd.Context())
				if err != nil && !api.IsStatus(err, http.StatusNotFound) {
					return err
				}
				// Backends without a plans endpoint get the built-in catalog.
				return app.print(ux.Plans(billing.Merge(plans)))
			},
		},
		&cobra.Command{
			Use:   "subscription",
			Short: "Show your organization's subscription",
			Args:  usageArgs(cobra.NoArgs),
			RunE: func(cmd *cobra.Command, _ []string) error {
				client, err := app.authed(cmd.Context())
				if err != nil {
					return err
				}
				sub, err := client.GetSubscription(cmd.Context())
				if err != nil {
					return err
				}
				if app.structured() {
					return app.print(sub)
				}
				return app.print(ux.SubscriptionDetails(sub))
			},
		},
		newBillingChangeCommand(app),
	)
	return billingCmd
}

func newBillingChangeCommand(app *App) *cobra.Command {
	var yes bool

	c := &cobra.Command{
		Use:   "change [plan]",
		Short: "Switch your organization to another plan",
		Long: `Switch your organization to another plan. Without an argument you pick
the plan from a list. Only the organization owner can change the plan.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.owner(cmd.Context(), "change the subscription")
			if err != nil {
				return err
			}

			var plan string
			if len(args) == 1 {
				plan = args[0]
			} else if plan, err = app.Prompt.Select("Choose a plan", planOptions()); err != nil {
				return err
			}
			if err := validate.Struct(validate.PlanChange{Plan: plan}); err != nil {
				return err
			}

			tier, _ := billing.Lookup(plan)
			ok, err := app.confirm(yes, "Switch to the %s plan (%s)?", tier.Name, tier.Price)
			if err != nil || !ok {
				return err
			}

			sub, err := client.UpdateSubscription(cmd.Context(), plan)
			if err != nil {
				return err
			}
			if app.structured() {
				return app.print(sub)
			}
			app.success("Your organization is now on the %s plan", billing.Describe(sub.Plan, sub.Entitlements).Name)
			return nil
		},
	}

	c.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return c
}

func planOptions() []tui.Option {
	tiers := billing.Catalog()
	opts := make([]tui.Option, 0, len(tiers))
	for _, t := range tiers {
		opts = append(opts, tui.Option{Label: t.Name + " - " + t.Price, Value: t.Code})
	}
	return opts
}
