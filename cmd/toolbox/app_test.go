package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"toolbox/internal/actions"
	"toolbox/internal/apitest"
	"toolbox/internal/config"
	"toolbox/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t       *testing.T
	backend *apitest.Backend
	cfg     *config.Config
	alice   models.User
	bob     models.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend, url := apitest.NewServer(t)
	alice, err := backend.AddUser("alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	bob, err := backend.AddUser("bob", "bob@example.com", "secret2")
	require.NoError(t, err)

	dir := t.TempDir()
	return &harness{
		t:       t,
		backend: backend,
		alice:   alice,
		bob:     bob,
		cfg: &config.Config{
			BackendURL:      url,
			RequestTimeout:  5 * time.Second,
			SessionStore:    config.SessionStoreFile,
			TokenFile:       filepath.Join(dir, "token"),
			HistoryDB:       filepath.Join(dir, "history.db"),
			FormulaCacheTTL: time.Minute,
			FeatureFlags:    "comment_replies=on",
		},
	}
}

type result struct {
	stdout string
	stderr string
	code   int
}

func (h *harness) run(stdin string, args ...string) result {
	h.t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), h.cfg, stdio{in: strings.NewReader(stdin), out: &out, errOut: &errOut}, args)
	return result{stdout: out.String(), stderr: errOut.String(), code: code}
}

func (h *harness) signIn(user, password string) {
	h.t.Helper()
	r := h.run("", "signin", "-username", user, "-password", password)
	require.Equal(h.t, 0, r.code, r.stderr)
}

type profileJSON struct {
	User models.User `json:"user"`
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

func TestRun_UsageErrors(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	r := h.run("")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, "Commands:")

	r = h.run("", "frobnicate")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, "unknown command: frobnicate")

	r = h.run("", "-o", "xml", "posts")
	assert.Equal(t, 2, r.code)

	r = h.run("", "post")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, "usage: toolbox post <postId>")

	r = h.run("", "help")
	assert.Equal(t, 0, r.code)
}

func TestRun_SessionPersistsBetweenInvocations(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	r := h.run("", "signin", "-username", "alice", "-password", "wrong")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "Invalid username or password. Please try again.")

	h.signIn("alice", "secret1")
	_, err := os.Stat(h.cfg.TokenFile)
	require.NoError(t, err)

	r = h.run("", "-o", "json", "whoami")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "alice", decode[profileJSON](t, r.stdout).User.Username)

	r = h.run("", "signout")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "Signed out\n", r.stdout)

	r = h.run("", "whoami")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, actions.SignInToView)
}

func TestRun_PersonalFeedNeedsSignIn(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	r := h.run("", "posts", "-mine")
	assert.Equal(t, 1, r.code)
	assert.Equal(t, "Error: "+actions.SignInToView+"\n", r.stderr)
	assert.Equal(t, 0, h.backend.Calls("GET", "/posts"))

	r = h.run("", "posts", "-mine", "-saved")
	assert.Equal(t, 2, r.code)
}

func TestRun_PostLifecycle(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.backend.AddPost(h.bob.MongoID, "Torque chart for M12 bolts", "bolts")
	h.signIn("alice", "secret1")

	r := h.run("", "-o", "json", "new-post", "-tags", "#beams, #steel", "Deflection", "of", "a", "cantilever")
	require.Equal(t, 0, r.code, r.stderr)
	created := decode[models.Post](t, r.stdout)
	assert.Equal(t, "Deflection of a cantilever", created.Content)
	assert.Equal(t, []string{"beams", "steel"}, created.Tags)
	id := string(created.Key())

	r = h.run("", "-o", "json", "posts", "-mine")
	require.Equal(t, 0, r.code, r.stderr)
	mine := decode[[]models.Post](t, r.stdout)
	require.Len(t, mine, 1)
	assert.Equal(t, created.Key(), mine[0].Key())

	r = h.run("", "posts")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Engineering ToolBox Posts")
	assert.Contains(t, r.stdout, "Torque chart for M12 bolts")

	r = h.run("", "like", id)
	require.Equal(t, 0, r.code, r.stderr)
	r = h.run("", "save", id)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "Post saved\n", r.stdout)

	r = h.run("", "-o", "json", "posts", "-saved")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Len(t, decode[[]models.Post](t, r.stdout), 1)

	r = h.run("", "-o", "json", "edit-post", "-tags", "#beams", id, "Deflection", "of", "a", "simply", "supported", "beam")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "Deflection of a simply supported beam", decode[models.Post](t, r.stdout).Content)

	r = h.run("", "new-post", "   ")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "Post content cannot be empty")
}

func TestRun_DeleteAsksFirst(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	post := h.backend.AddPost(h.alice.MongoID, "Old notes")
	h.signIn("alice", "secret1")
	path := "/posts/" + string(post.Key()) + "/delete"

	r := h.run("n\n", "delete-post", string(post.Key()))
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "Cancelled\n", r.stdout)
	assert.Contains(t, r.stderr, "Are you sure you want to delete this post? [y/N]")
	assert.Equal(t, 0, h.backend.Calls("DELETE", path))

	r = h.run("", "delete-post", string(post.Key()))
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "Cancelled\n", r.stdout, "EOF on stdin declines")
	assert.Equal(t, 0, h.backend.Calls("DELETE", path))

	r = h.run("y\n", "delete-post", string(post.Key()))
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "Post deleted\n", r.stdout)
	assert.Equal(t, 1, h.backend.Calls("DELETE", path))
	_, ok := h.backend.Post(post.Key())
	assert.False(t, ok)
}

func TestRun_CommentThread(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	post := h.backend.AddPost(h.bob.MongoID, "Which steel grade for a cantilever?")
	bobs := h.backend.AddComment(post.Key(), h.bob.MongoID, "S355 usually", "")
	h.signIn("alice", "secret1")
	pid := string(post.Key())

	r := h.run("", "reply", pid, string(bobs.Key()), "Agreed")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "    ↳ ")
	assert.Contains(t, r.stdout, "Agreed")

	r = h.run("", "-o", "json", "comment", pid, "What", "span?")
	require.Equal(t, 0, r.code, r.stderr)
	threads := decode[[]models.Thread](t, r.stdout)
	require.Len(t, threads, 2)
	require.Len(t, threads[0].Replies, 1)
	mine := threads[1].Key()

	r = h.run("", "edit-comment", pid, string(mine), "What", "span", "length?")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "(edited)")

	r = h.run("", "-yes", "delete-comment", pid, string(bobs.Key()))
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "You can only change your own comments")

	r = h.run("", "-yes", "delete-comment", pid, string(mine))
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "Comment deleted\n", r.stdout)
	assert.Equal(t, 2, h.backend.CommentCount(post.Key()))
}

func TestRun_RepliesFlaggedOff(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.cfg.FeatureFlags = "comment_replies=off"
	post := h.backend.AddPost(h.bob.MongoID, "Pump sizing")
	c := h.backend.AddComment(post.Key(), h.bob.MongoID, "Head first", "")
	h.signIn("alice", "secret1")

	r := h.run("", "reply", string(post.Key()), string(c.Key()), "sure")
	assert.Equal(t, 1, r.code)
	assert.Equal(t, 0, h.backend.Calls("POST", "/comments/"+string(post.Key())+"/"+string(c.Key())+"/reply"))
}

func TestRun_ChatsAndProfile(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signIn("alice", "secret1")

	r := h.run("", "-o", "json", "start-chat", string(h.bob.MongoID))
	require.Equal(t, 0, r.code, r.stderr)
	chat := decode[models.Chat](t, r.stdout)

	r = h.run("", "send", string(chat.Key()), "Hello", "Bob")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Hello Bob")

	r = h.run("", "send", string(chat.Key()), " ")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "Message cannot be empty")

	r = h.run("", "chats")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "bob")

	r = h.run("", "profile-edit", "-bio", "Structural engineer")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Structural engineer")

	r = h.run("", "profile-edit", "-username", "al")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "username:")

	r = h.run("", "-o", "yaml", "profile")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "username: alice")
	assert.Contains(t, r.stdout, "bio: Structural engineer")

	r = h.run("", "user", string(h.bob.MongoID))
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "bob")
}

func TestRun_CalculatorsAndHistory(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	r := h.run("", "calc", string(apitest.OhmsLawID), "V", "I=2", "R=0")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "Resistance must be > 0")
	assert.Equal(t, 0, h.backend.Calls("POST", "/formulas/calculate"))

	r = h.run("", "calc", string(apitest.OhmsLawID), "V", "I=2", "R=5")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "  I = 2 A\n  R = 5 Ω\nV = 10 V\n", r.stdout)

	r = h.run("", "calc", string(apitest.OhmsLawID), "Q")
	assert.Equal(t, 2, r.code)

	r = h.run("", "basic", "12", "+", "3", "=")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "12 + 3 = 15\n", r.stdout)

	r = h.run("", "-o", "json", "history")
	require.Equal(t, 0, r.code, r.stderr)
	recs := decode[[]map[string]any](t, r.stdout)
	require.Len(t, recs, 2)
	assert.Equal(t, "basic", recs[0]["kind"])
	assert.Equal(t, "formula", recs[1]["kind"])

	r = h.run("", "-o", "json", "history", "-kind", "formula")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Len(t, decode[[]map[string]any](t, r.stdout), 1)

	r = h.run("", "history", "-clear")
	require.Equal(t, 0, r.code, r.stderr)
	r = h.run("", "history")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "No calculations yet.\n", r.stdout)
}

func TestRun_FormulaCatalogue(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	r := h.run("", "-o", "json", "formulas", "-category", "ELECTRICAL")
	require.Equal(t, 0, r.code, r.stderr)
	list := decode[[]models.Formula](t, r.stdout)
	require.NotEmpty(t, list)
	for _, f := range list {
		assert.Equal(t, "ELECTRICAL", f.Category)
	}

	r = h.run("", "formulas", "-categories")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "FLUID_MECHANICS")

	r = h.run("", "formula", string(apitest.OhmsLawID))
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Ohm's Law")
	assert.Contains(t, r.stdout, "Solve for:")
}

func TestRun_RedisSessionAndFormulaCache(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	mr := miniredis.RunT(t)
	h.cfg.SessionStore = config.SessionStoreRedis
	h.cfg.RedisURL = mr.Addr()
	h.cfg.FeatureFlags = "formula_cache=on"

	h.signIn("bob", "secret2")
	r := h.run("", "-o", "json", "whoami")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "bob", decode[profileJSON](t, r.stdout).User.Username)
	_, err := os.Stat(h.cfg.TokenFile)
	assert.True(t, os.IsNotExist(err))

	path := "/formulas/" + string(apitest.OhmsLawID)
	for range 2 {
		r = h.run("", "formula", string(apitest.OhmsLawID))
		require.Equal(t, 0, r.code, r.stderr)
	}
	assert.Equal(t, 1, h.backend.Calls("GET", path))
}

func TestRun_RedisSessionUnreachable(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	mr := miniredis.RunT(t)
	h.cfg.SessionStore = config.SessionStoreRedis
	h.cfg.RedisURL = mr.Addr()
	mr.Close()

	r := h.run("", "posts")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "connect to redis session store")
}

func TestRun_MetricsFile(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	file := filepath.Join(t.TempDir(), "toolbox.prom")

	r := h.run("", "-metrics-file", file, "posts")
	require.Equal(t, 0, r.code, r.stderr)

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), `toolbox_api_requests_total{endpoint="/posts",status="200"} 1`)
}
