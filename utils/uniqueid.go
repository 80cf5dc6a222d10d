// Package utils provides utility functions for the application.
package utils

import (
	"fmt"
	"strings"
)

// FormatUniqueID renders a branch-scoped sequence number as a human-readable
// unique ID, e.g. ("DH", 1) -> "DH-0001". The sequence part is zero-padded to
// four digits; wider numbers keep all their digits rather than being truncated.
// Pure function, callers are responsible for allocating the sequence.
func FormatUniqueID(branchCode string, sequence int64) string {
	return fmt.Sprintf("%s%s%0*d", branchCode, UniqueIDSeparator, UniqueIDMinWidth, sequence)
}

// NormalizeBranchCode trims surrounding whitespace and upper-cases a branch
// code so that "dh " and "DH" address the same counter.
func NormalizeBranchCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
