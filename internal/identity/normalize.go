// Package identity canonicalizes competitor names so that spelling
// variants of the same company ("Rasa", "Rasa.ai", "RASA AI") collapse to
// a single dedup key.
package identity

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var domainSuffixes = regexp.MustCompile(`(?i)\.(ai|io|com|co|app)\b`)

var companyTokens = regexp.MustCompile(`(?i)\s+(ai|inc|llc|ltd|corp)\.?\s*$`)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// Normalize produces the canonical dedup key for a competitor name:
// lowercase, domain suffixes and trailing company-type tokens stripped,
// all non-alphanumerics removed. Pure and deterministic.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = domainSuffixes.ReplaceAllString(n, "")
	n = companyTokens.ReplaceAllString(n, "")
	n = nonAlnum.ReplaceAllString(n, "")
	return strings.TrimSpace(n)
}

// Equivalent reports whether two names normalize to the same key.
func Equivalent(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

var titleCaser = cases.Title(language.English, cases.NoLower)

// DisplayName tidies a discovered competitor name for presentation
// without changing its dedup key: trims whitespace and title-cases
// all-lowercase names.
func DisplayName(name string) string {
	n := strings.TrimSpace(name)
	if n == strings.ToLower(n) {
		return titleCaser.String(n)
	}
	return n
}
