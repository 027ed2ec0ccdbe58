package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		callerName string
		first      string
		last       string
		want       Classification
	}{
		{"exact_last", "SMITH JOHN", "John", "Smith", ClassIDMatch},
		{"first_token", "john q public", "John", "Smith", ClassIDMatch},
		{"wireless_caller", "WIRELESS CALLER", "John", "Smith", ClassWireless},
		{"wireless_caller_mixed", "Wireless Caller OH", "John", "Smith", ClassWireless},
		{"empty", "", "John", "Smith", ClassNoID},
		{"only_state", "OHIO", "John", "Smith", ClassNoID},
		{"two_word_state", "NEW JERSEY", "John", "Smith", ClassNoID},
		{"unrelated_name", "GARCIA MARIA", "John", "Smith", ClassWrongNumber},
		{"business", "ACME PLUMBING LLC", "John", "Smith", ClassWrongNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.callerName, tt.first, tt.last))
		})
	}
}

func TestClassify_IDMatchBeatsWireless(t *testing.T) {
	// A token matching the contact wins even when carrier filler is present.
	assert.Equal(t, ClassIDMatch, Classify("SMITH WIRELESS CALLER", "John", "Smith"))
}
