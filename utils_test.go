package harness

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

func TestExtractKeyErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"panic", errors.New("test \"x\" failed: panic: index out of range\ngoroutine 1"), "panic: index out of range"},
		{"command exit", errors.New("command \"false\": exit status 1\noutput"), "exit status 1"},
		{"first line", errors.New("first\nsecond"), "first"},
		{"truncated", errors.New(strings.Repeat("a", 100)), strings.Repeat("a", 77) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractKeyErrorMessage(tt.err))
		})
	}
}

func TestResultHelpers(t *testing.T) {
	assert.Equal(t, "✓ pass", getResultString(types.TestStatusPass))
	assert.Equal(t, "- skip", getResultString(types.TestStatusSkip))
	assert.Equal(t, "✗ fail", getResultString(types.TestStatusFail))
	assert.Equal(t, "Hook", getKindString(types.TypeAfterEach))
	assert.Equal(t, "Test", getKindString(types.TypeTest))
	assert.Equal(t, 1, boolToInt(true))
	assert.Equal(t, 0, boolToInt(false))
}

