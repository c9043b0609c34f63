package models

import (
	"fmt"
	"strings"

	"github.com/gosimple/slug"
)

// SlugExistsFunc reports whether a candidate slug is already taken.
type SlugExistsFunc func(candidate string) (bool, error)

// UniqueSlug slugifies the first maxLen runes of base. When the result is taken
// it retries with the first suffixLen runes plus "-1", "-2", ... until free.
func UniqueSlug(base string, maxLen, suffixLen int, exists SlugExistsFunc) (string, error) {
	candidate := slug.Make(truncateRunes(base, maxLen))
	if candidate == "" {
		candidate = "item"
	}
	prefix := slug.Make(truncateRunes(base, suffixLen))
	if prefix == "" {
		prefix = "item"
	}
	for counter := 1; ; counter++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", prefix, counter)
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// fileSafe turns display text into something usable inside a download filename.
func fileSafe(s string) string {
	out := slug.Make(s)
	out = strings.ReplaceAll(out, "-", "_")
	if out == "" {
		return "document"
	}
	return strings.ToUpper(out[:1]) + out[1:]
}
