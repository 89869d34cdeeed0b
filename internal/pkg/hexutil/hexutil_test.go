package hexutil

import (
	"testing"
)

func TestParseInt64_Valid(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"0x0", 0},
		{"0x1", 1},
		{"0xa", 10},
		{"0x10", 16},
		{"0x3e8", 1000},
		{"0x186a0", 100000},
		{"64", 100},
		{"0xffffffffff", 1099511627775},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			result, err := ParseInt64(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tc.expected {
				t.Errorf("expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestParseInt64_Invalid(t *testing.T) {
	for _, input := range []string{"not_hex", "0xGHI", ""} {
		t.Run(input, func(t *testing.T) {
			if _, err := ParseInt64(input); err == nil {
				t.Errorf("expected error for %q", input)
			}
		})
	}
}
