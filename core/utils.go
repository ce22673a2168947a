package core

import "strings"

// CleanString trims `s` and collapses every inner run of whitespace into a single space,
// so that "  Université   Paris\tCité " and "Université Paris Cité" name the same thing.
func CleanString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
