package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeExitCode(t *testing.T) {
	tests := []struct {
		name     string
		outcome  Outcome
		expected int
	}{
		{"nothing to do", OutcomeNothingToDo, 0},
		{"migration available", OutcomeMigrationAvailable, 100},
		{"ports available", OutcomePortsAvailable, 110},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.outcome.ExitCode())
		})
	}
}
