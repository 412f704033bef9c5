package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{name: "plain", input: "hello", max: 10, expected: "hello"},
		{name: "markup stripped", input: "<b>hi</b>", max: 20, expected: "bhi/b"},
		{name: "capped before stripping", input: "abc<def", max: 4, expected: "abc"},
		{name: "multibyte runes counted once", input: "Česko Česko", max: 5, expected: "Česko"},
		{name: "whitespace trimmed", input: "  hi  ", max: 10, expected: "hi"},
		{name: "control chars become spaces", input: "a\nb\tc", max: 10, expected: "a b c"},
		{name: "only markup", input: "<<>>", max: 10, expected: ""},
		{name: "zero max", input: "hello", max: 0, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input, tt.max))
		})
	}
}
