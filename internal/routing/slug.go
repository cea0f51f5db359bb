// internal/routing/slug.go
//
// Slug and path helpers.
//
// • MakeSlug(title) ─ converts arbitrary text into a URL-safe segment
//   restricted to ASCII a-z, 0-9 and “-”.
// • BuildPath(parent, slug) ─ joins parent path + slug with a single “/” and
//   guarantees exactly one leading slash.
// • ReplaceSlugPrefix(child, old, new) ─ rewrites a descendant's slug after
//   its ancestor moved from old to new.
//
// Rules (ReplaceSlugPrefix)
// -------------------------
// 0. old == ""                   → child unchanged (partials own no path).
// 1. child == old                → new (index-style children, dynamic pages).
// 2. child has prefix old + "/"  → swap that prefix for new + "/".
// 3. child has prefix old        → replace the first occurrence only.
// 4. anything else               → new + "/" + last segment of child.
//
// Notes
// -----
// • Slugs are max 100 runes per segment; callers may truncate earlier.
package routing

import (
	"strings"
)

// MakeSlug converts title → lower-kebab ASCII.
func MakeSlug(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastWasDash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasDash = false
		default:
			if !lastWasDash {
				b.WriteRune('-')
				lastWasDash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "page"
	}
	if len(slug) > 100 {
		slug = strings.TrimRight(slug[:100], "-")
	}
	return slug
}

// BuildPath joins parent + slug ensuring exactly one leading slash and no
// duplicate separators.
func BuildPath(parent, slug string) string {
	parent = strings.Trim(parent, "/")
	slug = strings.Trim(slug, "/")

	switch {
	case parent == "" && slug == "":
		return "/"
	case parent == "":
		return "/" + slug
	case slug == "":
		return "/" + parent
	default:
		return "/" + parent + "/" + slug
	}
}

// LastSegment returns the final path segment of slug ("" for "/").
func LastSegment(slug string) string {
	trimmed := strings.TrimRight(slug, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// ReplaceSlugPrefix recomputes a descendant slug after its ancestor moved.
func ReplaceSlugPrefix(childSlug, oldParentSlug, newParentSlug string) string {
	switch {
	case oldParentSlug == "":
		return childSlug
	case childSlug == oldParentSlug:
		return newParentSlug
	case oldParentSlug == "/":
		return BuildPath(newParentSlug, childSlug)
	case strings.HasPrefix(childSlug, oldParentSlug+"/"):
		return newParentSlug + "/" + strings.TrimPrefix(childSlug, oldParentSlug+"/")
	case oldParentSlug != "" && strings.HasPrefix(childSlug, oldParentSlug):
		return strings.Replace(childSlug, oldParentSlug, newParentSlug, 1)
	default:
		return strings.TrimRight(newParentSlug, "/") + "/" + LastSegment(childSlug)
	}
}
