// Package identity resolves who wrote something and whether the signed-in user
// owns it. Ids are canonicalized in one place: `_id`, then `id`, then `userId`.
package identity

import (
	"toolbox/internal/models"
)

// Anonymous is shown when no author information can be resolved.
const Anonymous = "Anonymous"

// Authored is anything that carries author attribution (posts, comments).
type Authored interface {
	Attribution() models.Attribution
}

// CanonicalID returns the user's id by priority: `_id`, `id`, `userId`.
func CanonicalID(u *models.User) string {
	if u == nil {
		return ""
	}
	return string(models.FirstID(u.IDs()...))
}

// RefID returns the canonical id behind a reference, embedded or raw.
func RefID(r *models.Ref) string {
	if r.Empty() {
		return ""
	}
	if r.User != nil {
		return CanonicalID(r.User)
	}
	return string(r.ID)
}

// SameID compares two ids as strings. Empty ids never match.
func SameID(a, b string) bool {
	return a != "" && b != "" && a == b
}

// MatchesUser reports whether the reference points at any of the user's ids.
// Every id field is tried because call sites disagree on which one is set.
func MatchesUser(r *models.Ref, u *models.User) bool {
	if u == nil || r.Empty() {
		return false
	}
	theirs := RefID(r)
	for _, mine := range u.IDs() {
		if SameID(string(mine), theirs) {
			return true
		}
	}
	return false
}

// DisplayName resolves the author name of e. The first source that yields a
// value wins:
//  1. embedded author username
//  2. denormalized username
//  3. embedded author name or displayName
//  4. current user's username when the author is the current user
//  5. authorName or authorUsername
//  6. Anonymous
func DisplayName(e Authored, current *models.User) string {
	a := e.Attribution()
	embedded := a.Author != nil && a.Author.User != nil

	if embedded && a.Author.User.Username != "" {
		return a.Author.User.Username
	}
	if a.Username != "" {
		return a.Username
	}
	if embedded {
		if a.Author.User.Name != "" {
			return a.Author.User.Name
		}
		if a.Author.User.DisplayName != "" {
			return a.Author.User.DisplayName
		}
	}
	if current != nil && current.Username != "" && MatchesUser(a.Author, current) {
		return current.Username
	}
	if a.AuthorName != "" {
		return a.AuthorName
	}
	if a.AuthorUsername != "" {
		return a.AuthorUsername
	}
	return Anonymous
}

// IsOwner reports whether the current user authored e. Without an author
// reference it falls back to comparing the denormalized username, which is a
// best-effort guess.
func IsOwner(e Authored, current *models.User) bool {
	if current == nil {
		return false
	}
	a := e.Attribution()
	if a.Author.Empty() {
		return a.Username != "" && a.Username == current.Username
	}
	return SameID(RefID(a.Author), CanonicalID(current))
}

// SameUser reports whether two user records share a canonical id.
func SameUser(a, b *models.User) bool {
	return SameID(CanonicalID(a), CanonicalID(b))
}
