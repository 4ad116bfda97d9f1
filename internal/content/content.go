// Package content holds the pure text helpers behind post creation:
// slug derivation, slug de-duplication and cover extraction.
package content

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// FallbackSlug is used when a title has no ASCII letters or digits.
const FallbackSlug = "post"

var (
	nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)
	firstImage = regexp.MustCompile(`(?i)<img[^>]*src=["']([^"']+)["'][^>]*>`)
)

// Slugify lowercases s, collapses every run of characters outside [a-z0-9]
// into a single "-" and trims leading and trailing separators.
func Slugify(s string) string {
	slug := nonSlugRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(slug, "-")
}

// SlugBase is Slugify with the fallback applied.
func SlugBase(title string) string {
	if slug := Slugify(title); slug != "" {
		return slug
	}
	return FallbackSlug
}

// UniqueSlug returns base if it is free, otherwise base-1, base-2, ... until
// exists reports no collision.
func UniqueSlug(ctx context.Context, base string, exists func(ctx context.Context, slug string) (bool, error)) (string, error) {
	slug := base
	for i := 1; ; i++ {
		taken, err := exists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("probe slug %q: %w", slug, err)
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// FirstImageURL returns the src of the first <img> tag in html, or "".
func FirstImageURL(html string) string {
	m := firstImage.FindStringSubmatch(html)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// NormalizeTags trims names, drops blanks and keeps the first occurrence of
// each name.
func NormalizeTags(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
