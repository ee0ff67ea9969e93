package services

import (
	"strings"
	"unicode"
)

// CollectionPrefix namespaces per-company collections.
const CollectionPrefix = "company__"

// Slugify lowercases s and replaces every run of non-alphanumeric
// characters with a single underscore.
func Slugify(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// CollectionName returns the collection configured explicitly, or the
// per-company default when a run targets one company.
func CollectionName(configured, company string) string {
	if configured != "" {
		return configured
	}
	if slug := Slugify(company); slug != "" {
		return CollectionPrefix + slug
	}
	return "filings"
}
