// Package tui asks the user for input on the terminal.
package tui

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ErrNotInteractive is returned when a value must be prompted for but
// stdin is not a terminal.
var ErrNotInteractive = errors.New("input required but stdin is not a terminal")

// Option is one choice of a select prompt.
type Option struct {
	Label string
	Value string
}

// Prompter asks the user for values.
type Prompter interface {
	// Input asks for a line of text.
	Input(title, placeholder string) (string, error)
	// Password asks for a secret without echoing it.
	Password(title string) (string, error)
	// Confirm asks a yes/no question.
	Confirm(title string, defaultValue bool) (bool, error)
	// Select asks the user to pick one option and returns its value.
	Select(title string, options []Option) (string, error)
}

// Terminal prompts with huh forms. Every prompt fails with
// ErrNotInteractive when prompting is disabled.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

// NewTerminal returns a prompter bound to stdin and stderr, so prompts do
// not mix with command output.
func NewTerminal() *Terminal {
	return &Terminal{in: os.Stdin, out: os.Stderr}
}

func (t *Terminal) run(field huh.Field) error {
	if !ShouldPrompt() {
		return ErrNotInteractive
	}
	form := huh.NewForm(huh.NewGroup(field)).
		WithInput(t.in).
		WithOutput(t.out).
		WithShowHelp(false)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return err
		}
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

// Input asks for a line of text.
func (t *Terminal) Input(title, placeholder string) (string, error) {
	var value string
	err := t.run(huh.NewInput().
		Title(title).
		Placeholder(placeholder).
		Value(&value))
	return value, err
}

// Password asks for a secret.
func (t *Terminal) Password(title string) (string, error) {
	var value string
	err := t.run(huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&value))
	return value, err
}

// Confirm asks a yes/no question.
func (t *Terminal) Confirm(title string, defaultValue bool) (bool, error) {
	confirmed := defaultValue
	err := t.run(huh.NewConfirm().
		Title(title).
		Value(&confirmed))
	return confirmed, err
}

// Select asks the user to pick one option.
func (t *Terminal) Select(title string, options []Option) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("no options provided")
	}

	huhOptions := make([]huh.Option[string], len(options))
	for i, opt := range options {
		huhOptions[i] = huh.NewOption(opt.Label, opt.Value)
	}

	var selected string
	err := t.run(huh.NewSelect[string]().
		Title(title).
		Options(huhOptions...).
		Value(&selected))
	return selected, err
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ShouldPrompt returns true if prompts should be shown based on environment
// Prompts are disabled in CI environments or when stdin is not a terminal
func ShouldPrompt() bool {
	ciEnvVars := []string{
		"CI",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_URL",
		"BUILDKITE",
		"BOTCTL_NO_PROMPT",
	}

	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return false
		}
	}

	return IsInteractive()
}
