package graph

import "strings"

// NormalizeKey case-folds s and collapses all whitespace runs to one space.
// "Marie  Curie" and "marie curie" share the key "marie curie".
func NormalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// canonicalSurface collapses whitespace but keeps the original case.
func canonicalSurface(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
