package tui

import (
	"errors"
	"testing"
)

func TestShouldPrompt(t *testing.T) {
	tests := []struct {
		name   string
		envVar string
	}{
		{name: "GitHub Actions", envVar: "GITHUB_ACTIONS"},
		{name: "GitLab CI", envVar: "GITLAB_CI"},
		{name: "Generic CI", envVar: "CI"},
		{name: "explicit opt-out", envVar: "BOTCTL_NO_PROMPT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envVar, "true")
			if ShouldPrompt() {
				t.Errorf("ShouldPrompt() = true with %s set", tt.envVar)
			}
		})
	}
}

func TestTerminalNotInteractive(t *testing.T) {
	t.Setenv("CI", "true")
	term := NewTerminal()

	if _, err := term.Password("Password"); !errors.Is(err, ErrNotInteractive) {
		t.Errorf("Password() error = %v, want ErrNotInteractive", err)
	}
	if _, err := term.Confirm("Sure?", true); !errors.Is(err, ErrNotInteractive) {
		t.Errorf("Confirm() error = %v, want ErrNotInteractive", err)
	}
}

func TestTerminalSelectWithoutOptions(t *testing.T) {
	if _, err := NewTerminal().Select("Choose:", nil); err == nil {
		t.Error("expected error when no options provided, got nil")
	}
}

func TestScripted(t *testing.T) {
	s := NewScripted("alice", "s3cret", "y", "pro", "")

	if got, _ := s.Input("Username", ""); got != "alice" {
		t.Errorf("Input() = %q", got)
	}
	if got, _ := s.Password("Password"); got != "s3cret" {
		t.Errorf("Password() = %q", got)
	}
	if got, _ := s.Confirm("Continue?", false); !got {
		t.Error("Confirm() = false, want true")
	}
	plan, err := s.Select("Plan", []Option{{Label: "Pro", Value: "pro"}})
	if err != nil || plan != "pro" {
		t.Errorf("Select() = %q, %v", plan, err)
	}
	if got, _ := s.Confirm("Again?", true); !got {
		t.Error("empty answer should select the default")
	}

	if _, err := s.Input("Extra", ""); !errors.Is(err, ErrNotInteractive) {
		t.Errorf("exhausted script error = %v, want ErrNotInteractive", err)
	}
	if len(s.Asked) != 6 {
		t.Errorf("Asked = %v", s.Asked)
	}
}

func TestScriptedSelectRejectsUnknown(t *testing.T) {
	s := NewScripted("platinum")
	if _, err := s.Select("Plan", []Option{{Label: "Pro", Value: "pro"}}); err == nil {
		t.Error("expected error for unknown option")
	}
}
