package engagement

import (
	"testing"

	"toolbox/internal/models"

	"github.com/stretchr/testify/assert"
)

func intPtr(n int) *int { return &n }

func TestIsLiked_RawAndEmbeddedAgree(t *testing.T) {
	t.Parallel()

	raw := models.Post{MongoID: "p1", Likes: []models.Ref{{ID: "u1"}, {ID: "u2"}}}
	embedded := models.Post{MongoID: "p1", Likes: []models.Ref{
		{User: &models.User{MongoID: "u1", Username: "alice"}},
		{User: &models.User{ID: "u2"}},
	}}

	for _, userID := range []string{"u1", "u2", "u3", ""} {
		assert.Equal(t, IsLiked(raw, userID), IsLiked(embedded, userID), "user %q", userID)
	}
	assert.True(t, IsLiked(raw, "u1"))
	assert.False(t, IsLiked(raw, "u3"))
}

func TestIsLiked_MissingLikes(t *testing.T) {
	t.Parallel()
	assert.False(t, IsLiked(models.Post{}, "u1"))
}

func TestLikedScenario(t *testing.T) {
	t.Parallel()

	current := "u1"
	post := models.Post{Likes: []models.Ref{{ID: "u1"}, {ID: "u2"}}}
	assert.True(t, IsLiked(post, current))
	assert.Equal(t, 2, LikeCount(post))
}

func TestLikeCount_PrefersServerCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 10, LikeCount(models.Post{LikesCount: intPtr(10), Likes: []models.Ref{{ID: "u1"}}}))
	assert.Equal(t, 0, LikeCount(models.Post{LikesCount: intPtr(0), Likes: []models.Ref{{ID: "u1"}}}))
	assert.Equal(t, 1, LikeCount(models.Post{Likes: []models.Ref{{ID: "u1"}}}))
	assert.Equal(t, 0, LikeCount(models.Post{}))
}

func TestApplyLikeToggle(t *testing.T) {
	t.Parallel()

	prev := models.Post{MongoID: "p1", Likes: []models.Ref{{ID: "u1"}}}
	server := models.Post{MongoID: "p1", Likes: []models.Ref{{ID: "u1"}, {ID: "u2"}}, LikesCount: intPtr(2)}

	assert.Equal(t, server, ApplyLikeToggle(prev, &server))
	assert.Equal(t, prev, ApplyLikeToggle(prev, nil))
}

func TestReplacePost(t *testing.T) {
	t.Parallel()

	posts := []models.Post{{MongoID: "a"}, {MongoID: "b"}}
	updated := models.Post{MongoID: "b", Content: "new"}
	out := ReplacePost(posts, "b", updated)

	assert.Equal(t, "new", out[1].Content)
	assert.Equal(t, "", posts[1].Content)
}

func TestReplacePost_MatchesRequestedID(t *testing.T) {
	t.Parallel()

	posts := []models.Post{{MongoID: "a"}, {MongoID: "b", Content: "old"}}

	tests := []struct {
		name    string
		id      models.ID
		updated models.Post
		want    []string
	}{
		{"response without id", "b", models.Post{Content: "liked"}, []string{"", "liked"}},
		{"response with other id", "a", models.Post{MongoID: "b", Content: "liked"}, []string{"liked", "old"}},
		{"empty id", "", models.Post{Content: "liked"}, []string{"", "old"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := ReplacePost(posts, tt.id, tt.updated)
			got := make([]string, len(out))
			for i, p := range out {
				got[i] = p.Content
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplySaveToggle(t *testing.T) {
	t.Parallel()

	orig := NewSavedSet("p1", "p2")

	once := ApplySaveToggle(orig, "p3")
	assert.True(t, IsSaved("p3", once))
	assert.False(t, IsSaved("p3", orig), "input set must not change")

	twice := ApplySaveToggle(once, "p3")
	assert.Equal(t, orig, twice)

	removed := ApplySaveToggle(orig, "p1")
	assert.False(t, IsSaved("p1", removed))
	assert.Equal(t, orig, ApplySaveToggle(removed, "p1"))
}

func TestSavedSetFromPosts(t *testing.T) {
	t.Parallel()

	set := SavedSetFromPosts([]models.Post{{MongoID: "p1"}, {ID: "p2"}, {}})
	assert.Len(t, set, 2)
	assert.True(t, IsSaved("p2", set))
	assert.True(t, IsSavedBy(models.Post{Saves: []models.Ref{{User: &models.User{UserID: "u9"}}}}, "u9"))
}
