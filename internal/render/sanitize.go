package render

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer turns user-written content into plain terminal text: markup is
// stripped, entities decoded and control characters other than newline and
// tab removed.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer returns a sanitizer that allows no elements at all.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean returns s as plain text.
func (s *Sanitizer) Clean(v string) string {
	if v == "" {
		return ""
	}
	out := html.UnescapeString(s.policy.Sanitize(v))
	out = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, out)
	return strings.TrimSpace(out)
}

// Line is Clean with all whitespace runs collapsed to single spaces.
func (s *Sanitizer) Line(v string) string {
	return strings.Join(strings.Fields(s.Clean(v)), " ")
}
