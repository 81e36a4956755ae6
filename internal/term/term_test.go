package term

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStyleWithoutColor(t *testing.T) {
	s := NewStyle(false)

	assert.Equal(t, "✗ boom", s.Error("boom"))
	assert.Equal(t, "⚠ careful", s.Warning("careful"))
	assert.Equal(t, "✓ done", s.Success("done"))
	assert.Equal(t, "ℹ note", s.Info("note"))

	// Emphasis styles degrade to plain text.
	assert.Equal(t, "plain", s.Highlight("plain"))
	assert.Equal(t, "plain", s.Bold("plain"))
	assert.Equal(t, "plain", s.Dim("plain"))
}

func TestStyleWithColorKeepsMessage(t *testing.T) {
	s := NewStyle(true)

	assert.Contains(t, s.Error("boom"), "boom")
	assert.Contains(t, s.Success("done"), "done")
	assert.Contains(t, s.Bold("text"), "text")
}
