package ux

import (
	"errors"
	"fmt"
	"io"

	"github.com/felixgeelhaar/botctl/internal/api"
	botctlerrors "github.com/felixgeelhaar/botctl/internal/errors"
	"github.com/felixgeelhaar/botctl/internal/tui"
)

// PresentError turns err into the error shown to the user. Structured API
// errors become coded errors with suggestions; a prompt that could not be
// shown becomes a usage error naming the flag to pass instead.
func PresentError(err error) error {
	if err == nil {
		return nil
	}

	var be *botctlerrors.BotctlError
	if errors.As(err, &be) {
		return err
	}

	if errors.Is(err, tui.ErrNotInteractive) {
		return botctlerrors.NewUsageError(err).
			WithSuggestion("Pass the value with a flag, or run the command in a terminal")
	}

	var apiErr *api.Error
	var transportErr *api.TransportError
	if errors.As(err, &apiErr) || errors.As(err, &transportErr) {
		return botctlerrors.FromAPI(err)
	}
	return err
}

// RenderError writes err to w with a colored prefix.
func RenderError(w io.Writer, err error) {
	if err == nil {
		return
	}
	styles := StylesFor(w)
	fmt.Fprintf(w, "%s %v\n", styles.Error.Render("Error:"), err)
}

// Notice writes a one-line warning to w.
func Notice(w io.Writer, format string, args ...any) {
	styles := StylesFor(w)
	fmt.Fprintf(w, "%s %s\n", styles.Warning.Render("!"), fmt.Sprintf(format, args...))
}

// Success writes a one-line confirmation to w.
func Success(w io.Writer, format string, args ...any) {
	styles := StylesFor(w)
	fmt.Fprintf(w, "%s %s\n", styles.Success.Render("✓"), fmt.Sprintf(format, args...))
}
