package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatUniqueID(t *testing.T) {
	tests := []struct {
		name       string
		branchCode string
		sequence   int64
		expected   string
	}{
		{"first sequence is zero padded", "DH", 1, "DH-0001"},
		{"mid range sequence", "CTG", 42, "CTG-0042"},
		{"four digit boundary", "BOG", 9999, "BOG-9999"},
		{"wider sequences keep all digits", "DH", 12345, "DH-12345"},
		{"large sequence", "SYL", 1234567, "SYL-1234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatUniqueID(tt.branchCode, tt.sequence))
		})
	}
}

func TestNormalizeBranchCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"DH", "DH"},
		{"dh", "DH"},
		{"  ctg ", "CTG"},
		{"\tbog\n", "BOG"},
		{"   ", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeBranchCode(tt.input))
	}
}
