package models

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	slugStripRe      = regexp.MustCompile(`[^\w\s-]`)
	slugSeparatorRe  = regexp.MustCompile(`[\s_]+`)
	slugRepeatDashRe = regexp.MustCompile(`-+`)
)

// UntitledSlug replaces a title that strips down to nothing.
const UntitledSlug = "untitled"

// MakeSlug turns a title into a URL-safe identifier made of lowercase
// ASCII letters, digits and single hyphens. Titles made only of punctuation
// produce the empty string.
func MakeSlug(title string) string {
	slug := strings.TrimSpace(strings.ToLower(title))
	slug = slugStripRe.ReplaceAllString(slug, "")
	slug = slugSeparatorRe.ReplaceAllString(slug, "-")
	slug = slugRepeatDashRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// UniqueSlug applies the creation-time collision policy to a generated slug:
// when base is already taken the day number is appended once, without
// checking the suffixed form again.
func UniqueSlug(base string, dayNumber int, taken bool) string {
	if base == "" {
		base = UntitledSlug
	}
	if !taken {
		return base
	}
	return base + "-day-" + strconv.Itoa(dayNumber)
}

// IsValidSlug reports whether s satisfies the slug invariants.
func IsValidSlug(s string) bool {
	if s == "" || strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") || strings.Contains(s, "--") {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}
