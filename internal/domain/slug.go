package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	maxSlugLength = 255
	maxSKULength  = 100
)

var (
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	nonSlugRunes  = regexp.MustCompile(`[^a-z0-9]+`)
	skuPattern    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// Slug is a URL-safe identifier: lowercase ASCII words joined by hyphens
type Slug string

// Slugify folds text into slug form. Accents are stripped, camel case is
// split and every run of other characters becomes a single hyphen.
func Slugify(text string) string {
	t := camelBoundary.ReplaceAllString(text, "$1 $2")
	t = norm.NFD.String(t)

	var b strings.Builder
	for _, r := range t {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	s := strings.ToLower(b.String())
	s = nonSlugRunes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ParseSlug normalizes raw into a slug, rejecting input that folds to nothing
func ParseSlug(raw string) (Slug, error) {
	s := Slugify(raw)
	if s == "" {
		return "", NewValidationError("slug", "must contain at least one letter or digit", raw)
	}
	if len(s) > maxSlugLength {
		return "", NewValidationError("slug", fmt.Sprintf("must be at most %d characters", maxSlugLength), raw)
	}
	return Slug(s), nil
}

// slugFromName derives a slug when none was supplied. A name that folds to
// nothing is reported against name, the only field the caller sent.
func slugFromName(name string) (Slug, error) {
	if Slugify(name) == "" {
		return "", NewValidationError("name", "must contain a letter or digit when no slug is given", name)
	}
	return ParseSlug(name)
}

// WithSuffix returns the n-th disambiguated form of the slug ("name-2", "name-3", ...)
func (s Slug) WithSuffix(n int) Slug {
	if n <= 1 {
		return s
	}
	suffix := fmt.Sprintf("-%d", n)
	base := string(s)
	if len(base)+len(suffix) > maxSlugLength {
		base = strings.TrimRight(base[:maxSlugLength-len(suffix)], "-")
	}
	return Slug(base + suffix)
}

func (s Slug) String() string { return string(s) }

// SKU is an optional stock keeping unit, unique across products
type SKU string

// ParseSKU trims and validates a SKU. An empty SKU is valid and means "none".
func ParseSKU(raw string) (SKU, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", nil
	}
	if len(s) > maxSKULength {
		return "", NewValidationError("sku", fmt.Sprintf("must be at most %d characters", maxSKULength), raw)
	}
	if !skuPattern.MatchString(s) {
		return "", NewValidationError("sku", "may only contain letters, digits, '.', '_' and '-'", raw)
	}
	return SKU(s), nil
}

func (s SKU) String() string { return string(s) }
