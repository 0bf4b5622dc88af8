package actions

import (
	"context"
	"slices"

	"toolbox/internal/engagement"
	"toolbox/internal/identity"
	"toolbox/internal/models"
	"toolbox/internal/validation"
)

// PostsAPI is the part of the API client the post views use.
type PostsAPI interface {
	ListPosts(ctx context.Context, f models.PostFilter) ([]models.Post, error)
	GetPost(ctx context.Context, id models.ID) (*models.Post, error)
	CreatePost(ctx context.Context, in models.PostInput) (*models.Post, error)
	UpdatePost(ctx context.Context, id models.ID, in models.PostInput) (*models.Post, error)
	DeletePost(ctx context.Context, id models.ID) error
	LikePost(ctx context.Context, id models.ID) (*models.Post, error)
	SavePost(ctx context.Context, id models.ID) (*models.Ack, error)
	SavedPosts(ctx context.Context) ([]models.Post, error)
}

const (
	msgFetchPosts = "Failed to fetch posts"
	msgLoadPost   = "Failed to load post."
	msgLikePost   = "Failed to like post"
	msgSavePost   = "Failed to save post"
	msgDeletePost = "Failed to delete post"
	msgCreatePost = "Failed to create post. Please try again."
	msgUpdatePost = "Failed to save changes"
	msgNoPost     = "No post loaded"

	promptDeletePost = "Are you sure you want to delete this post?"
)

// Feed selects which posts a FeedView lists.
type Feed string

const (
	FeedAll   Feed = ""
	FeedMine  Feed = "mine"
	FeedLiked Feed = "liked"
	FeedSaved Feed = "saved"
)

// Title is the heading shown above the feed.
func (f Feed) Title() string {
	switch f {
	case FeedMine:
		return "Your Posts"
	case FeedLiked:
		return "Liked Posts"
	case FeedSaved:
		return "Favourite Posts"
	default:
		return "Engineering ToolBox Posts"
	}
}

// engager implements like and save for the post views. Likes take the
// server's post; saves flip the local set once acknowledged.
type engager struct {
	api   PostsAPI
	saved engagement.SavedSet
}

func (e *engager) like(ctx context.Context, id models.ID) (*models.Post, error) {
	return e.api.LikePost(ctx, id)
}

func (e *engager) save(ctx context.Context, id models.ID) error {
	ack, err := e.api.SavePost(ctx, id)
	if err != nil {
		return err
	}
	if ack != nil && !ack.Success && ack.Message != "" {
		return models.NewValidationError(ack.Message)
	}
	return nil
}

// loadSaved seeds the saved set. A failure keeps the previous set.
func (e *engager) loadSaved(ctx context.Context) (engagement.SavedSet, error) {
	posts, err := e.api.SavedPosts(ctx)
	if err != nil {
		return nil, err
	}
	return engagement.SavedSetFromPosts(posts), nil
}

// FeedView lists posts.
type FeedView struct {
	view
	eng     engager
	confirm Confirmer

	feed  Feed
	posts []models.Post
}

// NewFeedView returns an empty feed.
func NewFeedView(p PostsAPI, users CurrentUser, confirm Confirmer) *FeedView {
	v := &FeedView{eng: engager{api: p, saved: engagement.NewSavedSet()}, confirm: confirm}
	v.init(users, "feed")
	return v
}

// Load fetches feed. Personal feeds need a signed-in user.
func (v *FeedView) Load(ctx context.Context, feed Feed) error {
	uid := models.ID(v.userID())
	var filter models.PostFilter
	switch feed {
	case FeedMine:
		filter.Author = uid
	case FeedLiked:
		filter.LikedBy = uid
	case FeedSaved:
		filter.SavedBy = uid
	}
	if feed != FeedAll && uid == "" {
		return v.prompt(SignInToView)
	}

	ticket := v.begin()
	posts, err := v.eng.api.ListPosts(ctx, filter)
	if err != nil {
		return v.failLoad(ctx, ticket, "load_posts", err, msgFetchPosts)
	}
	var saved engagement.SavedSet
	if uid != "" {
		if saved, err = v.eng.loadSaved(ctx); err != nil {
			v.log.LogError(ctx, "GET", "/posts/users/saved-posts", err)
		}
	}
	v.commit(ticket, func() {
		v.feed = feed
		v.posts = posts
		if saved != nil {
			v.eng.saved = saved
		}
		v.err = ""
	})
	return nil
}

// Posts returns the listed posts.
func (v *FeedView) Posts() []models.Post {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.posts)
}

// Feed returns the feed last loaded.
func (v *FeedView) Feed() Feed {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.feed
}

// IsLiked reports whether the current user likes p.
func (v *FeedView) IsLiked(p models.Post) bool {
	return engagement.IsLiked(p, v.userID())
}

// IsSaved reports whether the current user saved id.
func (v *FeedView) IsSaved(id models.ID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return engagement.IsSaved(id, v.eng.saved)
}

// DisplayName resolves the author shown for p.
func (v *FeedView) DisplayName(p models.Post) string {
	return identity.DisplayName(p, v.user())
}

// Like toggles the user's like and swaps in the server's copy of the post.
// On failure the listed post is left as it was.
func (v *FeedView) Like(ctx context.Context, id models.ID) error {
	if v.user() == nil {
		return v.prompt(SignInToLike)
	}
	post, err := v.eng.like(ctx, id)
	if err != nil {
		return v.fail(ctx, "like_post", err, msgLikePost)
	}
	if post != nil {
		v.update(func() { v.posts = engagement.ReplacePost(v.posts, id, *post) })
	}
	v.ok(ctx, "like_post")
	return nil
}

// Save toggles the user's save. The set flips only after the server
// acknowledges; the saved feed is reloaded since its membership changed.
func (v *FeedView) Save(ctx context.Context, id models.ID) error {
	if v.user() == nil {
		return v.prompt(SignInToSave)
	}
	if err := v.eng.save(ctx, id); err != nil {
		return v.fail(ctx, "save_post", err, msgSavePost)
	}
	var feed Feed
	v.update(func() {
		v.eng.saved = engagement.ApplySaveToggle(v.eng.saved, id)
		feed = v.feed
	})
	v.ok(ctx, "save_post")
	if feed == FeedSaved {
		return v.Load(ctx, feed)
	}
	return nil
}

// Delete removes one of the user's posts after confirmation and reloads the
// feed.
func (v *FeedView) Delete(ctx context.Context, id models.ID) (bool, error) {
	if v.user() == nil {
		return false, v.prompt(SignInToDelete)
	}
	if !v.approved(ctx, v.confirm, promptDeletePost) {
		return false, nil
	}
	if err := v.eng.api.DeletePost(ctx, id); err != nil {
		return false, v.fail(ctx, "delete_post", err, msgDeletePost)
	}
	v.ok(ctx, "delete_post")
	return true, v.Load(ctx, v.Feed())
}

// PostView shows one post.
type PostView struct {
	view
	eng     engager
	confirm Confirmer

	post  *models.Post
	saved bool
}

// NewPostView returns an empty post view.
func NewPostView(p PostsAPI, users CurrentUser, confirm Confirmer) *PostView {
	v := &PostView{eng: engager{api: p}, confirm: confirm}
	v.init(users, "post")
	return v
}

// Load fetches post id and, when signed in, whether the user saved it.
func (v *PostView) Load(ctx context.Context, id models.ID) error {
	ticket := v.begin()
	post, err := v.eng.api.GetPost(ctx, id)
	if err != nil {
		return v.failLoad(ctx, ticket, "load_post", err, msgLoadPost)
	}
	uid := v.userID()
	saved := engagement.IsSavedBy(*post, uid)
	if uid != "" && !saved {
		if set, err := v.eng.loadSaved(ctx); err == nil {
			saved = engagement.IsSaved(id, set)
		}
	}
	v.commit(ticket, func() {
		v.post = post
		v.saved = saved
		v.err = ""
	})
	return nil
}

// Post returns the loaded post, or nil.
func (v *PostView) Post() *models.Post {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.post == nil {
		return nil
	}
	p := *v.post
	return &p
}

// IsLiked reports whether the current user likes the post.
func (v *PostView) IsLiked() bool {
	p := v.Post()
	return p != nil && engagement.IsLiked(*p, v.userID())
}

// IsSaved reports whether the current user saved the post.
func (v *PostView) IsSaved() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.saved
}

// IsOwner reports whether the current user wrote the post.
func (v *PostView) IsOwner() bool {
	p := v.Post()
	return p != nil && identity.IsOwner(*p, v.user())
}

func (v *PostView) loaded() (models.ID, bool) {
	p := v.Post()
	if p == nil {
		return "", false
	}
	return p.Key(), true
}

// target returns the id a mutation acts on. A signed-out user gets signIn;
// a signed-in user with nothing loaded gets msgNoPost.
func (v *PostView) target(ctx context.Context, action, signIn string) (models.ID, error) {
	if v.user() == nil {
		return "", v.prompt(signIn)
	}
	id, ok := v.loaded()
	if !ok {
		return "", v.fail(ctx, action, models.NewValidationError(msgNoPost), msgNoPost)
	}
	return id, nil
}

// Like toggles the user's like and takes the server's copy of the post.
func (v *PostView) Like(ctx context.Context) error {
	id, err := v.target(ctx, "like_post", SignInToLike)
	if err != nil {
		return err
	}
	post, err := v.eng.like(ctx, id)
	if err != nil {
		return v.fail(ctx, "like_post", err, msgLikePost)
	}
	v.update(func() {
		if v.post != nil {
			next := engagement.ApplyLikeToggle(*v.post, post)
			v.post = &next
		}
	})
	v.ok(ctx, "like_post")
	return nil
}

// Save toggles the user's save once the server acknowledges.
func (v *PostView) Save(ctx context.Context) error {
	id, err := v.target(ctx, "save_post", SignInToSave)
	if err != nil {
		return err
	}
	if err := v.eng.save(ctx, id); err != nil {
		return v.fail(ctx, "save_post", err, msgSavePost)
	}
	v.update(func() { v.saved = !v.saved })
	v.ok(ctx, "save_post")
	return nil
}

// Delete removes the post after confirmation. The view is empty afterwards.
func (v *PostView) Delete(ctx context.Context) (bool, error) {
	id, err := v.target(ctx, "delete_post", SignInToDelete)
	if err != nil {
		return false, err
	}
	if !v.approved(ctx, v.confirm, promptDeletePost) {
		return false, nil
	}
	if err := v.eng.api.DeletePost(ctx, id); err != nil {
		return false, v.fail(ctx, "delete_post", err, msgDeletePost)
	}
	v.update(func() { v.post = nil })
	v.ok(ctx, "delete_post")
	return true, nil
}

// PostForm creates or edits a post.
type PostForm struct {
	view
	api PostsAPI
}

// NewPostForm returns a post form.
func NewPostForm(p PostsAPI, users CurrentUser) *PostForm {
	f := &PostForm{api: p}
	f.init(users, "post_form")
	return f
}

// Submit creates a post, or updates editing when it is non-empty. rawTags is
// free text such as "#beams, #steel".
func (f *PostForm) Submit(ctx context.Context, editing models.ID, content, rawTags string) (*models.Post, error) {
	if f.user() == nil {
		return nil, f.prompt(SignInToPost)
	}
	fallback := msgCreatePost
	if editing != "" {
		fallback = msgUpdatePost
	}
	content, err := validation.Content(content, "Post content")
	if err != nil {
		return nil, f.fail(ctx, "submit_post", err, fallback)
	}
	in := models.PostInput{Content: content, Tags: validation.ParseTags(rawTags)}

	var post *models.Post
	if editing == "" {
		post, err = f.api.CreatePost(ctx, in)
	} else {
		post, err = f.api.UpdatePost(ctx, editing, in)
	}
	if err != nil {
		return nil, f.fail(ctx, "submit_post", err, fallback)
	}
	f.ok(ctx, "submit_post")
	return post, nil
}
