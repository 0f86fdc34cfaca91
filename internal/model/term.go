package model

import (
	"sort"
	"strings"
)

// InteractionSep separates the component names of an interaction term.
const InteractionSep = ":"

// TermKey identifies a regression term independently of the order in which a
// solver names interaction components: "rural:year_c" and "year_c:rural" are
// the same logical term and produce the same key.
type TermKey string

// NewTermKey builds the normalized key for a term name.
func NewTermKey(name string) TermKey {
	parts := strings.Split(name, InteractionSep)
	if len(parts) < 2 {
		return TermKey(name)
	}
	sort.Strings(parts)
	return TermKey(strings.Join(parts, InteractionSep))
}

// Matches reports whether name refers to the same logical term as the key.
func (k TermKey) Matches(name string) bool {
	return NewTermKey(name) == k
}

// IsInteraction reports whether the key names a product term.
func (k TermKey) IsInteraction() bool {
	return strings.Contains(string(k), InteractionSep)
}
