package sortname

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "The at beginning", input: "The Hobbit", expected: "Hobbit, The"},
		{name: "A at beginning", input: "A Tale of Two Cities", expected: "Tale of Two Cities, A"},
		{name: "An at beginning", input: "An American Tragedy", expected: "American Tragedy, An"},
		{name: "lowercase article", input: "the hobbit", expected: "hobbit, the"},
		{name: "no article", input: "Lord of the Rings", expected: "Lord of the Rings"},
		{name: "article in middle only", input: "Return of the King", expected: "Return of the King"},
		{name: "empty string", input: "", expected: ""},
		{name: "whitespace only", input: "   ", expected: ""},
		{name: "just The", input: "The", expected: "The"},
		{name: "single word", input: "Dune", expected: "Dune"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ForTitle(tt.input))
		})
	}
}

func TestForPerson(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple", input: "Stephen King", expected: "King, Stephen"},
		{name: "generational suffix", input: "Martin Luther King Jr.", expected: "King, Martin Luther, Jr."},
		{name: "prefix stripped", input: "Dr. Sarah Connor", expected: "Connor, Sarah"},
		{name: "particle", input: "Ludwig van Beethoven", expected: "Beethoven, Ludwig van"},
		{name: "single word", input: "Homer", expected: "Homer"},
		{name: "empty", input: "", expected: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ForPerson(tt.input))
		})
	}
}
