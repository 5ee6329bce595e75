package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/botctl/internal/errors"
)

// usageArgs wraps a cobra argument validator so its failures are reported
// as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return errors.NewUsageError(err).
				WithSuggestion(fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()))
		}
		return nil
	}
}

// parseID parses a positive resource ID argument.
func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewUsageError(fmt.Errorf("invalid %s ID %q: must be a positive number", kind, arg))
	}
	return id, nil
}

// confirm asks before a destructive action unless yes is set.
func (a *App) confirm(yes bool, format string, args ...any) (bool, error) {
	if yes {
		return true, nil
	}
	return a.Prompt.Confirm(fmt.Sprintf(format, args...), false)
}

// value returns flagValue, or asks for it when empty.
func (a *App) value(flagValue, title string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return a.Prompt.Input(title, "")
}

// secret returns flagValue, or asks for it without echo when empty.
func (a *App) secret(flagValue, title string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return a.Prompt.Password(title)
}

// newPassword asks for a password twice unless one was given by flag.
func (a *App) newPassword(flagValue, title string) (password, confirmation string, err error) {
	if flagValue != "" {
		return flagValue, flagValue, nil
	}
	if password, err = a.Prompt.Password(title); err != nil {
		return "", "", err
	}
	if confirmation, err = a.Prompt.Password("Confirm " + lowerFirst(title)); err != nil {
		return "", "", err
	}
	return password, confirmation, nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]|0x20) + s[1:]
}

// parseIDFlag reports an ID flag that is not a positive number.
func parseIDFlag(flag string, v int64) error {
	return errors.NewUsageError(fmt.Errorf("invalid %s %d: must be a positive number", flag, v))
}
