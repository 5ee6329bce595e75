package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/botctl/internal/api"
	"github.com/felixgeelhaar/botctl/internal/errors"
	"github.com/felixgeelhaar/botctl/internal/ux"
	"github.com/felixgeelhaar/botctl/internal/validate"
)

func newAuthResetCommand(app *App) *cobra.Command {
	resetCmd := groupCommand("reset", "Reset a forgotten password",
		`Reset a forgotten password in three steps: request a reset link, check
the token from the link, and set a new password.

Examples:
  botctl auth reset request --email alice@example.com
  botctl auth reset validate --token <token>
  botctl auth reset confirm --token <token>`)

	resetCmd.AddCommand(
		newResetRequestCommand(app),
		newResetValidateCommand(app),
		newResetConfirmCommand(app),
	)
	return resetCmd
}

func newResetRequestCommand(app *App) *cobra.Command {
	var email string

	c := &cobra.Command{
		Use:   "request",
		Short: "Email a password reset link",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var err error
			if email, err = app.value(email, "Email"); err != nil {
				return err
			}
			if err := validate.Email(email); err != nil {
				return err
			}

			client, err := app.api(ctx)
			if err != nil {
				return err
			}
			if err := client.RequestPasswordReset(ctx, email); err != nil {
				return err
			}
			// The platform answers the same way for unknown addresses.
			app.success("If %s has an account, a reset link is on its way", email)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "account email address")
	return c
}

func newResetValidateCommand(app *App) *cobra.Command {
	var token string

	c := &cobra.Command{
		Use:   "validate",
		Short: "Check a password reset token",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var err error
			if token, err = app.value(token, "Reset token"); err != nil {
				return err
			}
			client, err := app.api(ctx)
			if err != nil {
				return err
			}
			status, err := client.ValidatePasswordReset(ctx, token)
			if err != nil {
				return err
			}
			if !status.Valid {
				return errors.New(errors.ErrCodeAuthResetToken, "the reset link is invalid").
					WithSuggestion("Request a new link with 'botctl auth reset request'")
			}

			if app.structured() {
				return app.print(status)
			}
			mfa := "no"
			if status.MFARequired {
				mfa = "yes"
			}
			return app.print(ux.Details{
				{"Valid", "yes"},
				{"Email", status.Email},
				{"MFA code required", mfa},
			})
		},
	}

	c.Flags().StringVar(&token, "token", "", "token from the reset link")
	return c
}

func newResetConfirmCommand(app *App) *cobra.Command {
	var (
		req      api.ConfirmPasswordResetRequest
		password string
	)

	c := &cobra.Command{
		Use:   "confirm",
		Short: "Set a new password with a reset token",
		Long: `Set a new password. When the account uses multi-factor authentication the
current MFA code is required; it is prompted for when the token needs one
and --mfa is not given.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var err error
			if req.Token, err = app.value(req.Token, "Reset token"); err != nil {
				return err
			}
			client, err := app.api(ctx)
			if err != nil {
				return err
			}

			if req.MFA == "" {
				status, err := client.ValidatePasswordReset(ctx, req.Token)
				if err != nil {
					return err
				}
				if status.MFARequired {
					if req.MFA, err = app.Prompt.Input("MFA code", "123456"); err != nil {
						return err
					}
				}
			}

			pw, confirmation, err := app.newPassword(password, "New password")
			if err != nil {
				return err
			}
			if err := validate.Struct(validate.NewPassword{Password: pw, Confirm: confirmation}); err != nil {
				return err
			}
			req.Password = pw
			if err := validate.Struct(req); err != nil {
				return err
			}

			if err := client.ConfirmPasswordReset(ctx, req); err != nil {
				return err
			}
			app.success("Password updated. Sign in with 'botctl auth login'")
			return nil
		},
	}

	c.Flags().StringVar(&req.Token, "token", "", "token from the reset link")
	c.Flags().StringVar(&req.MFA, "mfa", "", "6-digit MFA code")
	c.Flags().StringVar(&password, "password", "", "new password (prompted for when omitted)")
	return c
}
