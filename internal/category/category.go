// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package category maps model-reported category labels onto the
// configured canonical set.
package category

import "strings"

// Match returns the canonical category for candidate. An exact match
// wins; otherwise the first canonical entry that contains candidate, or
// is contained by it, ignoring case. ok is false when nothing matches or
// candidate is blank.
func Match(candidate string, canonical []string) (match string, ok bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", false
	}
	for _, c := range canonical {
		if c == candidate {
			return c, true
		}
	}

	lc := strings.ToLower(candidate)
	for _, c := range canonical {
		l := strings.ToLower(c)
		if strings.Contains(l, lc) || strings.Contains(lc, l) {
			return c, true
		}
	}
	return "", false
}

// MatchOrFirst is Match with a fallback to the first canonical category.
// It returns "" only when canonical is empty.
func MatchOrFirst(candidate string, canonical []string) string {
	if m, ok := Match(candidate, canonical); ok {
		return m
	}
	if len(canonical) == 0 {
		return ""
	}
	return canonical[0]
}

// Slug turns a category into a file name stem:
// "Materials Design & Synthesis" becomes "materials_design_synthesis".
func Slug(category string) string {
	s := strings.ToLower(category)
	s = strings.ReplaceAll(s, " & ", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
