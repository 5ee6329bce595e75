package tui

import (
	"fmt"
	"strconv"
	"sync"
)

// Scripted answers prompts from a fixed list, in order. It records the
// titles it was asked. Used by tests and by callers that gather values
// from another source.
type Scripted struct {
	mu      sync.Mutex
	answers []string
	Asked   []string
}

// NewScripted returns a prompter that replies with answers in order.
func NewScripted(answers ...string) *Scripted {
	return &Scripted{answers: answers}
}

func (s *Scripted) next(title string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Asked = append(s.Asked, title)
	if len(s.answers) == 0 {
		return "", fmt.Errorf("%w: no answer for %q", ErrNotInteractive, title)
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

// Input returns the next answer.
func (s *Scripted) Input(title, _ string) (string, error) {
	return s.next(title)
}

// Password returns the next answer.
func (s *Scripted) Password(title string) (string, error) {
	return s.next(title)
}

// Confirm parses the next answer as a boolean; "y" and "yes" count as true.
func (s *Scripted) Confirm(title string, defaultValue bool) (bool, error) {
	a, err := s.next(title)
	if err != nil {
		return false, err
	}
	switch a {
	case "":
		return defaultValue, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}
	return strconv.ParseBool(a)
}

// Select returns the next answer, which must be one of the option values.
func (s *Scripted) Select(title string, options []Option) (string, error) {
	a, err := s.next(title)
	if err != nil {
		return "", err
	}
	for _, opt := range options {
		if opt.Value == a {
			return a, nil
		}
	}
	return "", fmt.Errorf("%q is not an option of %q", a, title)
}

var (
	_ Prompter = (*Terminal)(nil)
	_ Prompter = (*Scripted)(nil)
)
