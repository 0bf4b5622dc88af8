package api

import (
	"testing"
	"time"

	"toolbox/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeList_Shapes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want []models.ID
	}{
		{"bare array", `[{"_id":"a"},{"_id":"b"}]`, []models.ID{"a", "b"}},
		{"items", `{"items":[{"_id":"a"}],"total":1}`, []models.ID{"a"}},
		{"formulas", `{"formulas":[{"id":"f"}]}`, []models.ID{"f"}},
		{"posts", `{"posts":[{"_id":"p"}]}`, []models.ID{"p"}},
		{"comments", `{"comments":[]}`, []models.ID{}},
		{"null", `null`, []models.ID{}},
		{"empty body", ``, []models.ID{}},
		{"object without list", `{"message":"ok"}`, []models.ID{}},
		{"non-array under key skipped", `{"items":{"x":1},"data":[{"_id":"d"}]}`, []models.ID{"d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := decodeList[models.Post]([]byte(tt.body))
			require.NoError(t, err)
			require.NotNil(t, out)
			got := make([]models.ID, 0, len(out))
			for _, p := range out {
				got = append(got, p.Key())
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := decodeList[models.Post]([]byte(`"nope"`))
	assert.Error(t, err)
}

func TestUnwrap(t *testing.T) {
	t.Parallel()
	assert.JSONEq(t, `{"username":"a"}`, string(unwrap([]byte(`{"user":{"username":"a"}}`), "user")))
	assert.JSONEq(t, `{"username":"a"}`, string(unwrap([]byte(`{"username":"a"}`), "user")))
	assert.JSONEq(t, `{"user":"id"}`, string(unwrap([]byte(`{"user":"id"}`), "user")))
}

func TestDecodeProfile(t *testing.T) {
	t.Parallel()
	p, err := decodeProfile([]byte(`{"user":{"_id":"u1","username":"bob"},"posts":[{"_id":"p1"}],"stats":{"posts":1}}`))
	require.NoError(t, err)
	assert.Equal(t, "bob", p.Username)
	assert.Len(t, p.Posts, 1)
	assert.Equal(t, 1, p.Stats.Posts)

	flat, err := decodeProfile([]byte(`{"_id":"u2","username":"eve"}`))
	require.NoError(t, err)
	assert.Equal(t, models.ID("u2"), flat.MongoID)
}

func TestBackoff(t *testing.T) {
	t.Parallel()
	c := New("http://x", nil, WithRetries(3, 100*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, c.backoffFor(1, 0))
	assert.Equal(t, 200*time.Millisecond, c.backoffFor(2, 0))
	assert.Equal(t, 400*time.Millisecond, c.backoffFor(3, 0))
	assert.Equal(t, maxBackoff, c.backoffFor(40, 0))
	assert.Equal(t, 2*time.Second, c.backoffFor(1, 2*time.Second))
	assert.Equal(t, maxBackoff, c.backoffFor(1, time.Minute))

	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("soon"))
}

func TestRetryable(t *testing.T) {
	t.Parallel()
	for status, want := range map[int]bool{429: true, 500: true, 503: true, 400: false, 401: false, 404: false} {
		assert.Equal(t, want, retryable(status), "status %d", status)
	}
	assert.Equal(t, "HTTP error! status: 418", statusMessage(418))
}
