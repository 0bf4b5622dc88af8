package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	t.Parallel()
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, "u1"), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, "u1"), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	t.Parallel()
	m := NewManager("always=100%,never=0%,canary=25%,junk=abc%")

	assert.True(t, m.Enabled("always", ""))
	assert.False(t, m.Enabled("never", "u1"))
	assert.False(t, m.Enabled("junk", "u1"))

	first := m.Enabled("canary", "64b7f0c2e4")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", "64b7f0c2e4"), "rollout must be deterministic per user")
	}
	assert.False(t, m.Enabled("canary", ""), "percentage rollout requires a user id")
}

func TestParseAndSnapshot(t *testing.T) {
	t.Parallel()
	m := NewManager(" bad ,comment_replies=on, formula_cache = 20% ,request_retries=off ")

	assert.Equal(t, map[string]string{
		CommentReplies: "on",
		FormulaCache:   "20%",
		RequestRetries: "off",
	}, m.Raw())
	assert.Len(t, m.Snapshot("u1"), 3)
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		replies bool
		retries bool
		cache   bool
	}{
		{"empty", "", true, true, false},
		{"unrelated flag only", "formula_cache=on", true, true, true},
		{"explicit off wins", "comment_replies=off,request_retries=false", false, false, false},
		{"rollout overrides default", "comment_replies=0%", false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewManager(tt.raw)
			assert.Equal(t, tt.replies, m.Enabled(CommentReplies, "u1"))
			assert.Equal(t, tt.retries, m.Enabled(RequestRetries, "u1"))
			assert.Equal(t, tt.cache, m.Enabled(FormulaCache, "u1"))
		})
	}

	_, listed := NewManager("formula_cache=on").Raw()[CommentReplies]
	assert.True(t, listed, "defaults show up in Raw")
	_, listed = NewManager("").Raw()[FormulaCache]
	assert.False(t, listed)
}

func TestNilManager(t *testing.T) {
	t.Parallel()
	var m *Manager
	assert.False(t, m.Enabled(CommentReplies, "u1"))
}
