// Package engagement computes like/save state for posts and applies the result
// of like and save round trips.
//
// Likes and saves reconcile differently. The like endpoint returns the updated
// post, so the server copy replaces local state wholesale. The save endpoint
// only acknowledges, so the client flips its own saved-id set.
package engagement

import (
	"toolbox/internal/identity"
	"toolbox/internal/models"
)

// IsLiked reports whether userID appears in the post's likes, whether the
// server sent raw ids or embedded user objects.
func IsLiked(post models.Post, userID string) bool {
	return containsUser(post.Likes, userID)
}

// IsSavedBy reports whether userID appears in the post's saves.
func IsSavedBy(post models.Post, userID string) bool {
	return containsUser(post.Saves, userID)
}

func containsUser(refs []models.Ref, userID string) bool {
	if userID == "" {
		return false
	}
	for i := range refs {
		if identity.SameID(identity.RefID(&refs[i]), userID) {
			return true
		}
	}
	return false
}

// LikeCount prefers the server-supplied count and falls back to len(likes).
func LikeCount(post models.Post) int {
	if post.LikesCount != nil {
		return *post.LikesCount
	}
	return len(post.Likes)
}

// ApplyLikeToggle returns the post state after a successful like call: the
// server's post replaces prev. A nil server response leaves prev unchanged.
func ApplyLikeToggle(prev models.Post, server *models.Post) models.Post {
	if server == nil {
		return prev
	}
	return *server
}

// ReplacePost swaps the post with id in posts for updated and returns a new
// slice. The match uses the requested id, not the id carried by updated.
func ReplacePost(posts []models.Post, id models.ID, updated models.Post) []models.Post {
	out := make([]models.Post, len(posts))
	for i, p := range posts {
		if id != "" && p.Key() == id {
			out[i] = ApplyLikeToggle(p, &updated)
			continue
		}
		out[i] = p
	}
	return out
}

// SavedSet is the locally tracked set of saved post ids.
type SavedSet map[models.ID]struct{}

// NewSavedSet builds a set from ids.
func NewSavedSet(ids ...models.ID) SavedSet {
	s := make(SavedSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// SavedSetFromPosts seeds the set from the user's saved-posts listing.
func SavedSetFromPosts(posts []models.Post) SavedSet {
	s := make(SavedSet, len(posts))
	for _, p := range posts {
		if id := p.Key(); id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// IsSaved reports whether postID is in the set.
func IsSaved(postID models.ID, set SavedSet) bool {
	_, ok := set[postID]
	return ok
}

// ApplySaveToggle flips postID's membership after the save endpoint
// acknowledged. It returns a new set and never mutates set.
func ApplySaveToggle(set SavedSet, postID models.ID) SavedSet {
	out := make(SavedSet, len(set)+1)
	for id := range set {
		out[id] = struct{}{}
	}
	if _, ok := out[postID]; ok {
		delete(out, postID)
	} else if postID != "" {
		out[postID] = struct{}{}
	}
	return out
}
