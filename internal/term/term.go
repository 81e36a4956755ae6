// Package term handles user-facing terminal output and prompts: styled
// reports on stdout, confirm/select forms for interactive decisions.
// Diagnostic logging lives in internal/logger; this package is only for
// what the user is meant to read and answer.
package term

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/muesli/termenv"
)

// Style defines the styling configuration for terminal output
type Style struct {
	profile        termenv.Profile
	useColor       bool
	errorStyle     termenv.Style
	warningStyle   termenv.Style
	successStyle   termenv.Style
	infoStyle      termenv.Style
	highlightStyle termenv.Style
	boldStyle      termenv.Style
	dimStyle       termenv.Style
}

// NewStyle creates a new Style with the appropriate color profile
func NewStyle(useColor bool) *Style {
	profile := termenv.ColorProfile()
	if !useColor {
		profile = termenv.Ascii
	}

	return &Style{
		profile:        profile,
		useColor:       useColor,
		errorStyle:     termenv.Style{}.Foreground(profile.Color("1")), // Red
		warningStyle:   termenv.Style{}.Foreground(profile.Color("3")), // Yellow
		successStyle:   termenv.Style{}.Foreground(profile.Color("2")), // Green
		infoStyle:      termenv.Style{}.Foreground(profile.Color("4")), // Blue
		highlightStyle: termenv.Style{}.Foreground(profile.Color("6")), // Cyan
		boldStyle:      termenv.Style{}.Bold(),
		dimStyle:       termenv.Style{}.Faint(),
	}
}

// Error formats an error message with styling
func (s *Style) Error(message string) string {
	if !s.useColor {
		return fmt.Sprintf("✗ %s", message)
	}
	return fmt.Sprintf("%s %s", s.errorStyle.Styled("✗"), s.errorStyle.Styled(message))
}

// Warning formats a warning message with styling
func (s *Style) Warning(message string) string {
	if !s.useColor {
		return fmt.Sprintf("⚠ %s", message)
	}
	return fmt.Sprintf("%s %s", s.warningStyle.Styled("⚠"), s.warningStyle.Styled(message))
}

// Success formats a success message with styling
func (s *Style) Success(message string) string {
	if !s.useColor {
		return fmt.Sprintf("✓ %s", message)
	}
	return fmt.Sprintf("%s %s", s.successStyle.Styled("✓"), s.successStyle.Styled(message))
}

// Info formats an info message with styling
func (s *Style) Info(message string) string {
	if !s.useColor {
		return fmt.Sprintf("ℹ %s", message)
	}
	return fmt.Sprintf("%s %s", s.infoStyle.Styled("ℹ"), s.infoStyle.Styled(message))
}

// Highlight highlights text
func (s *Style) Highlight(text string) string {
	if !s.useColor {
		return text
	}
	return s.highlightStyle.Styled(text)
}

// Bold emphasizes text
func (s *Style) Bold(text string) string {
	if !s.useColor {
		return text
	}
	return s.boldStyle.Styled(text)
}

// Dim de-emphasizes text
func (s *Style) Dim(text string) string {
	if !s.useColor {
		return text
	}
	return s.dimStyle.Styled(text)
}

// Prompter asks the user for decisions. The engine only ever sees this
// interface, so non-interactive runs and tests can substitute answers.
type Prompter interface {
	// Confirm asks a yes/no question
	Confirm(title, description string) (bool, error)

	// Select asks the user to pick one of the options, returned by value
	Select(title string, options ...string) (string, error)
}

// HuhPrompter implements Prompter with interactive terminal forms.
type HuhPrompter struct{}

// Confirm asks a yes/no question
func (HuhPrompter) Confirm(title, description string) (bool, error) {
	var answer bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Value(&answer).
				Affirmative("Yes").
				Negative("No"),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return answer, nil
}

// Select asks the user to pick one of the options
func (HuhPrompter) Select(title string, options ...string) (string, error) {
	var answer string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(huh.NewOptions(options...)...).
				Value(&answer),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return answer, nil
}
