// Package thread assembles flat comment lists into one-level discussion threads.
//
// Assemble only ever consumes the flat representation. To re-thread an already
// assembled list, Flatten it first; Assemble(Flatten(Assemble(x))) equals
// Assemble(x).
package thread

import (
	"toolbox/internal/identity"
	"toolbox/internal/models"
)

// OrphanPolicy decides what happens to a reply whose parent is not in the list.
type OrphanPolicy int

const (
	// OrphansAsRoots promotes orphaned replies to top-level threads at their
	// arrival position.
	OrphansAsRoots OrphanPolicy = iota
	// DropOrphans discards orphaned replies.
	DropOrphans
)

type options struct {
	orphans OrphanPolicy
}

// Option configures Assemble.
type Option func(*options)

// WithOrphanPolicy sets the orphan policy. The default is OrphansAsRoots.
func WithOrphanPolicy(p OrphanPolicy) Option {
	return func(o *options) { o.orphans = p }
}

// ParentKey returns the canonical id of the comment's parent, embedded or raw.
func ParentKey(c models.Comment) string {
	return identity.RefID(c.ParentID)
}

// Assemble partitions flat into root comments and attaches each reply to its
// root. Replies of replies collapse onto the root ancestor. Order is arrival
// order for both roots and replies. Every root gets a non-nil Replies slice.
func Assemble(flat []models.Comment, opts ...Option) []models.Thread {
	o := options{orphans: OrphansAsRoots}
	for _, opt := range opts {
		opt(&o)
	}

	byID := make(map[string]int, len(flat))
	for i, c := range flat {
		if k := string(c.Key()); k != "" {
			if _, dup := byID[k]; !dup {
				byID[k] = i
			}
		}
	}

	place := make([]placement, len(flat))
	for i := range flat {
		place[i] = resolveRoot(flat, byID, i)
	}

	dropped := func(i int) bool {
		return place[i].orphaned && o.orphans == DropOrphans
	}
	isRoot := func(i int) bool {
		return !dropped(i) && (place[i].top == i || place[i].top < 0)
	}

	replies := make(map[int][]models.Comment)
	for i, c := range flat {
		if isRoot(i) || dropped(i) {
			continue
		}
		replies[place[i].top] = append(replies[place[i].top], c)
	}

	threads := make([]models.Thread, 0, len(flat))
	for i, c := range flat {
		if !isRoot(i) {
			continue
		}
		r := replies[i]
		if r == nil {
			r = []models.Comment{}
		}
		threads = append(threads, models.Thread{Comment: c, Replies: r})
	}
	return threads
}

// placement records where a comment lands: top is the index of its top-level
// ancestor (itself for roots and for replies whose parent is missing), or -1
// when the parent chain loops. orphaned is set when the chain never reaches a
// real root.
type placement struct {
	top      int
	orphaned bool
}

// resolveRoot follows parent links from i to the top-level ancestor.
func resolveRoot(flat []models.Comment, byID map[string]int, i int) placement {
	seen := map[int]bool{}
	cur := i
	for {
		if !flat[cur].IsReply() {
			return placement{top: cur}
		}
		if seen[cur] {
			return placement{top: -1, orphaned: true}
		}
		seen[cur] = true
		parent, ok := byID[ParentKey(flat[cur])]
		if !ok {
			return placement{top: cur, orphaned: true}
		}
		cur = parent
	}
}

// Flatten returns the comments of threads in thread order: each root followed
// by its replies.
func Flatten(threads []models.Thread) []models.Comment {
	out := make([]models.Comment, 0, Count(threads))
	for _, t := range threads {
		out = append(out, t.Comment)
		out = append(out, t.Replies...)
	}
	return out
}

// Count returns the number of comments, roots and replies, in threads.
func Count(threads []models.Thread) int {
	n := 0
	for _, t := range threads {
		n += 1 + len(t.Replies)
	}
	return n
}

// Find looks up a comment by id among roots and replies.
func Find(threads []models.Thread, id models.ID) (models.Comment, bool) {
	for _, t := range threads {
		if t.Key() == id {
			return t.Comment, true
		}
		for _, r := range t.Replies {
			if r.Key() == id {
				return r, true
			}
		}
	}
	return models.Comment{}, false
}
