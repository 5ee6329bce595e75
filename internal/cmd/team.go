package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/botctl/internal/api"
	"github.com/felixgeelhaar/botctl/internal/ux"
	"github.com/felixgeelhaar/botctl/internal/validate"
)

func newTeamCommand(app *App) *cobra.Command {
	teamCmd := groupCommand("team", "Manage the members of your organization",
		`Manage the members of your organization. Only the organization owner can
add members.

Examples:
  botctl team list
  botctl team add --email bob@example.com --username bob`)

	teamCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List organization members",
			Args:  usageArgs(cobra.NoArgs),
			RunE: func(cmd *cobra.Command, _ []string) error {
				client, err := app.authed(cmd.Context())
				if err != nil {
					return err
				}
				users, err := client.ListOrgUsers(cmd.Context())
				if err != nil {
					return err
				}
				return app.print(ux.Members(users))
			},
		},
		newTeamAddCommand(app),
	)
	return teamCmd
}

func newTeamAddCommand(app *App) *cobra.Command {
	var req api.CreateOrgUserRequest

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a member to your organization",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.owner(cmd.Context(), "add team members")
			if err != nil {
				return err
			}

			if req.Email, err = app.value(req.Email, "Email"); err != nil {
				return err
			}
			if req.Username, err = app.value(req.Username, "Username"); err != nil {
				return err
			}
			password, confirmation, err := app.newPassword(req.Password, "Initial password")
			if err != nil {
				return err
			}
			if err := validate.Struct(validate.NewPassword{Password: password, Confirm: confirmation}); err != nil {
				return err
			}
			req.Password = password
			if err := validate.Struct(req); err != nil {
				return err
			}

			user, err := client.CreateOrgUser(cmd.Context(), req)
			if err != nil {
				return err
			}
			if app.structured() {
				return app.print(user)
			}
			app.success("Added %s <%s> to the organization", user.Username, user.Email)
			return nil
		},
	}

	f := c.Flags()
	f.StringVar(&req.Email, "email", "", "email address of the new member")
	f.StringVarP(&req.Username, "username", "u", "", "username of the new member")
	f.StringVar(&req.Password, "password", "", "initial password (prompted for when omitted)")
	f.StringVar(&req.FirstName, "first-name", "", "first name")
	f.StringVar(&req.LastName, "last-name", "", "last name")
	return c
}
