package actions

import (
	"context"
	"testing"
	"time"

	"toolbox/internal/api"
	"toolbox/internal/apitest"
	"toolbox/internal/history"
	"toolbox/internal/models"
	"toolbox/internal/session"
	"toolbox/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var yes = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

type world struct {
	backend *apitest.Backend
	client  *api.Client
	sess    *session.Session
	alice   models.User
	bob     models.User
}

func newWorld(t *testing.T) *world {
	t.Helper()
	backend, url := apitest.NewServer(t)
	alice, err := backend.AddUser("alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	bob, err := backend.AddUser("bob", "bob@example.com", "secret2")
	require.NoError(t, err)
	sess := session.New(nil)
	return &world{
		backend: backend,
		client:  api.New(url, sess, api.WithRetries(0, time.Millisecond)),
		sess:    sess,
		alice:   alice,
		bob:     bob,
	}
}

func (w *world) signIn(t *testing.T, u models.User) {
	t.Helper()
	_, err := w.sess.Set(context.Background(), w.backend.TokenFor(u.MongoID))
	require.NoError(t, err)
}

func TestCommentsView_AgainstBackend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)
	post := w.backend.AddPost(w.bob.MongoID, "Which steel grade for a cantilever?")
	bobs := w.backend.AddComment(post.Key(), w.bob.MongoID, "S355 usually", "")
	w.signIn(t, w.alice)

	v := NewCommentsView(w.client, w.sess, yes, post.Key())
	require.NoError(t, v.Load(ctx))
	require.Len(t, v.Threads(), 1)
	assert.False(t, v.CanModify(v.Threads()[0].Comment))

	require.NoError(t, v.Reply(ctx, bobs.Key(), "Agreed, check deflection too"))
	require.NoError(t, v.Create(ctx, "What span?"))
	threads := v.Threads()
	require.Len(t, threads, 2)
	require.Len(t, threads[0].Replies, 1)
	reply := threads[0].Replies[0]
	assert.True(t, v.CanModify(reply))
	assert.Equal(t, "alice", v.DisplayName(reply))

	require.NoError(t, v.Edit(ctx, reply.Key(), "Agreed, check deflection"))
	edited, ok := func() (models.Comment, bool) {
		for _, r := range v.Threads()[0].Replies {
			if r.Key() == reply.Key() {
				return r, true
			}
		}
		return models.Comment{}, false
	}()
	require.True(t, ok)
	assert.True(t, edited.IsEdited)

	deleted, err := v.Delete(ctx, reply.Key())
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, v.Threads()[0].Replies)
	assert.Equal(t, 2, w.backend.CommentCount(post.Key()))

	_, err = v.Delete(ctx, bobs.Key())
	require.Error(t, err)
	assert.Equal(t, "You can only change your own comments", v.LastError())
	assert.Equal(t, 0, w.backend.Calls("DELETE", "/comments/"+string(post.Key())+"/"+string(bobs.Key())))
}

func TestPostView_AgainstBackend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)
	w.signIn(t, w.alice)

	created, err := NewPostForm(w.client, w.sess).Submit(ctx, "", "Bolt preload table", "#bolts, #torque")
	require.NoError(t, err)
	assert.Equal(t, []string{"bolts", "torque"}, created.Tags)

	v := NewPostView(w.client, w.sess, yes)
	require.NoError(t, v.Load(ctx, created.Key()))
	assert.True(t, v.IsOwner())
	assert.False(t, v.IsLiked())
	assert.False(t, v.IsSaved())

	require.NoError(t, v.Like(ctx))
	assert.True(t, v.IsLiked())
	require.NoError(t, v.Save(ctx))
	assert.True(t, v.IsSaved())

	reloaded := NewPostView(w.client, w.sess, nil)
	require.NoError(t, reloaded.Load(ctx, created.Key()))
	assert.True(t, reloaded.IsSaved())

	feed := NewFeedView(w.client, w.sess, yes)
	require.NoError(t, feed.Load(ctx, FeedSaved))
	require.Len(t, feed.Posts(), 1)
	require.NoError(t, feed.Save(ctx, created.Key()))
	assert.Empty(t, feed.Posts(), "saved feed reloads after unsaving")

	deleted, err := v.Delete(ctx)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Nil(t, v.Post())
	_, ok := w.backend.Post(created.Key())
	assert.False(t, ok)
}

func TestPostView_NotFound(t *testing.T) {
	t.Parallel()
	w := newWorld(t)
	v := NewPostView(w.client, w.sess, nil)
	require.Error(t, v.Load(context.Background(), "missing"))
	assert.Equal(t, "Post not found", v.LastError())
	assert.Nil(t, v.Post())
}

func TestFormulaView_CalculateAndHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	db, err := history.Open(":memory:")
	require.NoError(t, err)
	repo := history.NewRepository(db)

	v := NewFormulaView(w.client, w.sess, WithHistory(repo))
	require.NoError(t, v.LoadList(ctx, models.FormulaFilter{Category: "ALL"}))
	assert.Len(t, v.List(), 5)

	require.NoError(t, v.Select(ctx, apitest.OhmsLawID))
	assert.Equal(t, "V", v.Option().OutputVariable)
	assert.Equal(t, map[string]string{"I": "", "R": ""}, v.Inputs())

	v.SetInput("I", "2")
	v.SetInput("R", "0")
	_, err = v.Calculate(ctx)
	require.Error(t, err)
	assert.Equal(t, "Resistance must be > 0", v.LastError())
	assert.Equal(t, 0, w.backend.Calls("POST", "/formulas/calculate"))

	v.SetInput("R", "5")
	got, err := v.Calculate(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, got, 1e-9)
	require.NotNil(t, v.Result())
	assert.Equal(t, "Ohm's Law", v.Result().FormulaName)

	recs, err := repo.List(ctx, history.KindFormula, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "V", recs[0].OutputVariable)
	assert.InDelta(t, 10.0, recs[0].Result, 1e-9)

	require.NoError(t, v.ChooseOutput("I"))
	assert.Equal(t, map[string]string{"V": "", "R": "5"}, v.Inputs())
	assert.Nil(t, v.Result())
	require.Error(t, v.ChooseOutput("Q"))
}

func TestProfileView_AgainstBackend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	v := NewProfileView(w.client, w.sess)
	require.Error(t, v.Load(ctx))
	assert.Equal(t, SignInToView, v.LastError())

	w.signIn(t, w.alice)
	w.backend.AddPost(w.alice.MongoID, "first")
	require.NoError(t, v.Load(ctx))
	assert.Equal(t, "alice", v.Profile().Username)
	require.NotNil(t, v.Stats())
	assert.Equal(t, 1, v.Stats().Posts)

	err := v.Update(ctx, models.ProfileUpdate{Username: "al"})
	require.Error(t, err)
	assert.Equal(t, validation.FormInvalidMessage, v.LastError())
	assert.Equal(t, "Username must be at least 3 characters", v.FieldErrors()["username"])
	assert.Equal(t, 0, w.backend.Calls("PATCH", "/profile/me"))

	err = v.Update(ctx, models.ProfileUpdate{Username: "bob"})
	require.Error(t, err)
	assert.Equal(t, "Username is already taken", v.LastError())

	require.NoError(t, v.Update(ctx, models.ProfileUpdate{Username: "alice", Bio: "Structural engineer"}))
	assert.Empty(t, v.FieldErrors())
	assert.Equal(t, "Structural engineer", v.Profile().Bio)

	require.NoError(t, v.LoadPublic(ctx, w.bob.MongoID))
	assert.Equal(t, "bob", v.Public().User.Username)
}

func TestChatViews_AgainstBackend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	list := NewChatsView(w.client, w.sess)
	_, err := list.Start(ctx, w.bob.MongoID)
	require.Error(t, err)
	assert.Equal(t, SignInToChat, list.LastError())

	w.signIn(t, w.alice)
	chat, err := list.Start(ctx, w.bob.MongoID)
	require.NoError(t, err)
	require.Len(t, list.Chats(), 1)
	assert.Equal(t, "bob", list.OtherParticipant(list.Chats()[0]).Username)

	v := NewChatView(w.client, w.sess)
	require.NoError(t, v.Load(ctx, chat.Key()))
	require.Error(t, v.Send(ctx, " "))
	assert.Equal(t, "Message cannot be empty", v.LastError())

	require.NoError(t, v.Send(ctx, "Can you check my beam calc?"))
	require.Len(t, v.Chat().Messages, 1)
	assert.Equal(t, "Can you check my beam calc?", v.Chat().Messages[0].Content)
	assert.Equal(t, "bob", v.OtherParticipant().Username)
}

func TestAuthForm_AgainstBackend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)
	f := NewAuthForm(w.client, w.sess)

	_, err := f.SignIn(ctx, models.Credentials{Username: "alice", Password: "wrong-pass"})
	require.Error(t, err)
	assert.Equal(t, "Invalid username or password. Please try again.", f.LastError())
	assert.Nil(t, w.sess.User())

	u, err := f.SignIn(ctx, models.Credentials{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.NotNil(t, w.sess.User())

	require.NoError(t, f.SignOut(ctx))
	assert.Nil(t, w.sess.User())
}
