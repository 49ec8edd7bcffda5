package core

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var folder = cases.Fold()

// NameKey returns the identity key for a slot name: trimmed and case-folded.
// Two names with the same key denote the same slot.
func NameKey(name string) string {
	return folder.String(strings.TrimSpace(name))
}

// CleanName trims surrounding whitespace from a slot name.
func CleanName(name string) string {
	return strings.TrimSpace(name)
}

// SameName reports whether a and b identify the same slot.
func SameName(a, b string) bool {
	return NameKey(a) == NameKey(b)
}

// SortNames orders names case-insensitively for display.
// Ties under collation are broken by the raw byte order so the result is stable.
func SortNames(names []string) {
	// collate.Collator is not safe for concurrent use.
	c := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(names, func(a, b string) int {
		if r := c.CompareString(a, b); r != 0 {
			return r
		}
		return strings.Compare(a, b)
	})
}

// SortSlots orders slots by name for display.
func SortSlots(list []Slot) {
	c := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(list, func(a, b Slot) int {
		if r := c.CompareString(a.Name, b.Name); r != 0 {
			return r
		}
		return strings.Compare(a.Name, b.Name)
	})
}
