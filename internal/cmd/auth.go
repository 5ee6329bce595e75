package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/botctl/internal/api"
	"github.com/felixgeelhaar/botctl/internal/errors"
	"github.com/felixgeelhaar/botctl/internal/session"
	"github.com/felixgeelhaar/botctl/internal/ux"
	"github.com/felixgeelhaar/botctl/internal/validate"
)

func newAuthCommand(app *App) *cobra.Command {
	authCmd := groupCommand("auth", "Sign in, sign up and manage your account",
		`Sign in, sign up and manage your account.

The session token is stored in the configured session backend and sent with
every request. When the platform rejects it, the session is removed and you
are asked to sign in again.

Examples:
  botctl auth login --username alice
  botctl auth status
  botctl auth logout`)

	authCmd.AddCommand(
		newAuthLoginCommand(app),
		newAuthRegisterCommand(app),
		newAuthLogoutCommand(app),
		newAuthStatusCommand(app),
		newAuthVerifyCommand(app),
		newAuthResendCommand(app),
		newAuthPasswordCommand(app),
		newAuthResetCommand(app),
	)
	return authCmd
}

func newAuthLoginCommand(app *App) *cobra.Command {
	var username, password string

	c := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the platform",
		Long: `Sign in with your username and password. Missing values are prompted for.

Examples:
  botctl auth login
  botctl auth login --username alice`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var err error
			if username, err = app.value(username, "Username"); err != nil {
				return err
			}
			if password, err = app.secret(password, "Password"); err != nil {
				return err
			}
			if err := validate.Struct(validate.Login{Username: username, Password: password}); err != nil {
				return err
			}

			client, err := app.api(ctx)
			if err != nil {
				return err
			}
			resp, err := client.Login(ctx, username, password)
			if err != nil {
				return err
			}

			profile := resp.Profile()
			if org := profile.OrganizationName; org != nil {
				app.success("Signed in as %s (%s)", profile.Username, *org)
			} else {
				app.success("Signed in as %s", profile.Username)
			}
			if !profile.EmailVerified {
				app.notice("Your email address is not verified yet. Run 'botctl auth verify --code <code>'.")
			}
			if pending, ok := client.Session().TakePendingRedirect(ctx); ok {
				app.notice("You were signed out while running '%s'. Run it again to continue.", pending)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&username, "username", "u", "", "username")
	c.Flags().StringVar(&password, "password", "", "password (prompted for when omitted)")
	return c
}

func newAuthRegisterCommand(app *App) *cobra.Command {
	var req api.RegisterRequest

	c := &cobra.Command{
		Use:   "register",
		Short: "Create an account and organization",
		Long: `Create an account. You become the owner of a new organization on the free plan.

Examples:
  botctl auth register --email alice@example.com --username alice`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var err error
			if req.Email, err = app.value(req.Email, "Email"); err != nil {
				return err
			}
			if req.Username, err = app.value(req.Username, "Username"); err != nil {
				return err
			}
			password, confirmation, err := app.newPassword(req.Password, "Password")
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

			client, err := app.api(ctx)
			if err != nil {
				return err
			}
			resp, err := client.Register(ctx, req)
			if err != nil {
				return err
			}

			if resp.Token == "" {
				app.success("Account created for %s", req.Email)
				app.notice("Check your inbox for a verification code, then run 'botctl auth verify --email %s --code <code>'.", req.Email)
				return nil
			}
			app.success("Account created. Signed in as %s", resp.Username)
			if !resp.EmailVerified {
				app.notice("We sent a verification code to %s. Run 'botctl auth verify --code <code>'.", resp.Email)
			}
			return nil
		},
	}

	c.Flags().StringVar(&req.Email, "email", "", "email address")
	c.Flags().StringVarP(&req.Username, "username", "u", "", "username")
	c.Flags().StringVar(&req.Password, "password", "", "password (prompted for when omitted)")
	return c
}

func newAuthLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.api(ctx)
			if err != nil {
				return err
			}
			if _, ok := client.Session().Token(); !ok {
				app.success("Not signed in")
				return nil
			}
			if err := client.Logout(ctx); err != nil {
				return err
			}
			app.success("Signed out")
			return nil
		},
	}
}

func newAuthStatusCommand(app *App) *cobra.Command {
	var refresh bool

	c := &cobra.Command{
		Use:   "status",
		Short: "Show the signed-in user",
		Long: `Show the signed-in user from the cached profile.

With --refresh the profile is fetched from the platform first, which also
checks that the session is still valid.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.authed(ctx)
			if err != nil {
				return err
			}

			var profile *session.Profile
			if refresh {
				if profile, err = client.CurrentUser(ctx); err != nil {
					return err
				}
			} else {
				var ok bool
				if profile, ok = client.Session().Profile(); !ok {
					if profile, err = client.CurrentUser(ctx); err != nil {
						return err
					}
				}
			}

			if app.structured() {
				return app.print(profile)
			}
			return app.print(ux.ProfileDetails(profile))
		},
	}

	c.Flags().BoolVar(&refresh, "refresh", false, "fetch the profile from the platform")
	return c
}

func newAuthVerifyCommand(app *App) *cobra.Command {
	var form validate.EmailVerification

	c := &cobra.Command{
		Use:   "verify",
		Short: "Verify your email address",
		Long: `Submit the verification code sent to your email address. The email
defaults to the signed-in user's address.

Examples:
  botctl auth verify --code 123456`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.api(ctx)
			if err != nil {
				return err
			}

			if form.Email == "" {
				if p, ok := client.Session().Profile(); ok {
					form.Email = p.Email
				}
			}
			if form.Email, err = app.value(form.Email, "Email"); err != nil {
				return err
			}
			if form.Code, err = app.value(form.Code, "Verification code"); err != nil {
				return err
			}
			if err := validate.Struct(form); err != nil {
				return err
			}

			if err := client.VerifyEmail(ctx, form.Email, form.Code); err != nil {
				return err
			}
			app.success("Email address %s verified", form.Email)
			return nil
		},
	}

	c.Flags().StringVar(&form.Email, "email", "", "email address (default: signed-in user)")
	c.Flags().StringVar(&form.Code, "code", "", "6-digit verification code")
	return c
}

func newAuthResendCommand(app *App) *cobra.Command {
	var email string

	c := &cobra.Command{
		Use:   "resend",
		Short: "Send a new verification code",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.api(ctx)
			if err != nil {
				return err
			}

			if email == "" {
				if p, ok := client.Session().Profile(); ok {
					email = p.Email
				}
			}
			if email, err = app.value(email, "Email"); err != nil {
				return err
			}
			if err := validate.Email(email); err != nil {
				return err
			}

			if err := client.ResendVerification(ctx, email); err != nil {
				return err
			}
			app.success("Verification code sent to %s", email)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "email address (default: signed-in user)")
	return c
}

func newAuthPasswordCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "password",
		Short: "Change the organization owner's password",
		Long: `Change your password. Only organization owners with a verified email
address can change their password here; members ask their owner.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.owner(ctx, "change the account password")
			if err != nil {
				return err
			}
			if p, ok := client.Session().Profile(); ok && !p.EmailVerified {
				return errors.New(errors.ErrCodeAuthEmailUnverified, "verify your email address before changing your password").
					WithSuggestion("Run 'botctl auth verify --code <code>'")
			}

			var form validate.PasswordChange
			if form.Current, err = app.Prompt.Password("Current password"); err != nil {
				return err
			}
			if form.New, form.Confirm, err = app.newPassword("", "New password"); err != nil {
				return err
			}
			if err := validate.Struct(form); err != nil {
				return err
			}

			if err := client.UpdateOwnerPassword(ctx, form.Current, form.New); err != nil {
				return err
			}
			app.success("Password changed")
			return nil
		},
	}
}
