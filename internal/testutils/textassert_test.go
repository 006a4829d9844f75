//go:build test

package testutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextAsserter_DefaultOptions(t *testing.T) {
	opts := NewTextAsserter(t).Options()
	assert.True(t, opts.TrimSpace)
	assert.True(t, opts.IgnoreTrailingWhitespace)
	assert.False(t, opts.IgnoreEmptyLines)
	assert.False(t, opts.EnableColors)
}

func TestTextAsserter_Diff(t *testing.T) {
	tests := []struct {
		name     string
		opts     []TextOption
		actual   string
		expected string
		match    bool
	}{
		{"equal", nil, "a\nb", "a\nb", true},
		{"surrounding space trimmed", nil, "\n  a\nb  \n", "a\nb", true},
		{"trailing whitespace ignored", nil, "a  \nb\t", "a\nb", true},
		{"trailing whitespace kept", []TextOption{WithIgnoreTrailingWhitespace(false)}, "a  \nb", "a\nb", false},
		{"empty lines kept", nil, "a\n\nb", "a\nb", false},
		{"empty lines ignored", []TextOption{WithIgnoreEmptyLines(true)}, "a\n\n  \nb", "a\nb", true},
		{"no trim", []TextOption{WithTrimSpace(false), WithIgnoreTrailingWhitespace(false)}, "a\n", "a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := NewTextAsserter(t).WithOptions(tt.opts...).Diff(tt.actual, tt.expected)
			if tt.match {
				assert.Empty(t, diff)
			} else {
				assert.NotEmpty(t, diff)
			}
		})
	}
}

func TestTextAsserter_UnifiedDiff(t *testing.T) {
	diff := NewTextAsserter(t).Diff("one\ntwo\nthree", "one\n2\nthree")
	assert.Contains(t, diff, "--- expected")
	assert.Contains(t, diff, "+++ actual")
	assert.Contains(t, diff, "-2")
	assert.Contains(t, diff, "+two")
}

func TestTextAsserter_ColoredDiff(t *testing.T) {
	diff := NewTextAsserter(t).WithOptions(WithEnableColors(true)).Diff("a b", "a  b")
	assert.Contains(t, diff, "\x1b[")
	assert.Contains(t, diff, "a·b")
}

func TestTextAsserter_AssertReportsFailure(t *testing.T) {
	rt := &recordingT{}
	assert.False(t, NewTextAsserterWithInterface(rt).Assert("x", "y"))
	assert.True(t, NewTextAsserterWithInterface(rt).Assert("x", "x"))
	assert.Len(t, rt.messages, 1)
}
