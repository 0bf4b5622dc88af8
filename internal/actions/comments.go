package actions

import (
	"context"
	"slices"

	"toolbox/internal/featureflags"
	"toolbox/internal/identity"
	"toolbox/internal/models"
	"toolbox/internal/thread"
	"toolbox/internal/validation"
)

// CommentsAPI is the part of the API client the comments view uses.
type CommentsAPI interface {
	ListComments(ctx context.Context, postID models.ID) ([]models.Comment, error)
	CreateComment(ctx context.Context, postID models.ID, in models.CommentInput) (*models.Comment, error)
	UpdateComment(ctx context.Context, postID, commentID models.ID, in models.CommentInput) (*models.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID models.ID) error
	ReplyToComment(ctx context.Context, postID, commentID models.ID, in models.CommentInput) (*models.Comment, error)
}

const (
	msgLoadComments   = "Failed to load comments. Please try again."
	msgCreateComment  = "Failed to post comment. Please try again."
	msgEditComment    = "Failed to edit comment. Please try again."
	msgDeleteComment  = "Failed to delete comment. Please try again."
	msgCreateReply    = "Failed to create reply"
	msgRepliesOff     = "Replies are not available"
	msgNotYourComment = "You can only change your own comments"
	msgNoSuchComment  = "Comment not found"
)

// CommentsView shows the threaded discussion of one post.
type CommentsView struct {
	view
	api     CommentsAPI
	confirm Confirmer
	flags   *featureflags.Manager
	postID  models.ID
	opts    []thread.Option

	threads []models.Thread
}

// CommentsOption configures a CommentsView.
type CommentsOption func(*CommentsView)

// WithThreadOptions passes options to thread.Assemble, e.g. the orphan
// policy.
func WithThreadOptions(opts ...thread.Option) CommentsOption {
	return func(v *CommentsView) { v.opts = append(v.opts, opts...) }
}

// WithCommentFlags gates replies behind the comment_replies flag.
func WithCommentFlags(m *featureflags.Manager) CommentsOption {
	return func(v *CommentsView) { v.flags = m }
}

// NewCommentsView returns a view of postID's comments.
func NewCommentsView(c CommentsAPI, users CurrentUser, confirm Confirmer, postID models.ID, opts ...CommentsOption) *CommentsView {
	v := &CommentsView{api: c, confirm: confirm, postID: postID}
	v.init(users, "comments")
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Load fetches the flat comment list and threads it.
func (v *CommentsView) Load(ctx context.Context) error {
	ticket := v.begin()
	flat, err := v.api.ListComments(ctx, v.postID)
	if err != nil {
		return v.failLoad(ctx, ticket, "load_comments", err, msgLoadComments)
	}
	threads := thread.Assemble(flat, v.opts...)
	v.commit(ticket, func() {
		v.threads = threads
		v.err = ""
	})
	return nil
}

// Threads returns the current threads.
func (v *CommentsView) Threads() []models.Thread {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.threads)
}

// RepliesEnabled reports whether the current user may reply.
func (v *CommentsView) RepliesEnabled() bool {
	return v.flags == nil || v.flags.Enabled(featureflags.CommentReplies, v.userID())
}

// CanModify reports whether the current user wrote c.
func (v *CommentsView) CanModify(c models.Comment) bool {
	return identity.IsOwner(c, v.user())
}

// DisplayName resolves the author shown for c.
func (v *CommentsView) DisplayName(c models.Comment) string {
	return identity.DisplayName(c, v.user())
}

func (v *CommentsView) find(id models.ID) (models.Comment, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return thread.Find(v.threads, id)
}

// Create posts a top-level comment and reloads the thread.
func (v *CommentsView) Create(ctx context.Context, content string) error {
	if v.user() == nil {
		return v.prompt(SignInToComment)
	}
	content, err := validation.Content(content, "Comment")
	if err != nil {
		return v.fail(ctx, "create_comment", err, msgCreateComment)
	}
	if _, err := v.api.CreateComment(ctx, v.postID, models.CommentInput{Content: content}); err != nil {
		return v.fail(ctx, "create_comment", err, msgCreateComment)
	}
	v.ok(ctx, "create_comment")
	return v.Load(ctx)
}

// Reply answers parentID and reloads the thread.
func (v *CommentsView) Reply(ctx context.Context, parentID models.ID, content string) error {
	if v.user() == nil {
		return v.prompt(SignInToComment)
	}
	if !v.RepliesEnabled() {
		return v.fail(ctx, "reply_comment", models.NewValidationError(msgRepliesOff), msgCreateReply)
	}
	content, err := validation.Content(content, "Reply")
	if err != nil {
		return v.fail(ctx, "reply_comment", err, msgCreateReply)
	}
	if _, err := v.api.ReplyToComment(ctx, v.postID, parentID, models.CommentInput{Content: content}); err != nil {
		return v.fail(ctx, "reply_comment", err, msgCreateReply)
	}
	v.ok(ctx, "reply_comment")
	return v.Load(ctx)
}

// owned checks that id is a loaded comment written by the current user.
func (v *CommentsView) owned(ctx context.Context, action string, id models.ID, fallback string) (models.Comment, error) {
	if v.user() == nil {
		return models.Comment{}, v.prompt(SignInToComment)
	}
	c, ok := v.find(id)
	if !ok {
		return c, v.fail(ctx, action, models.NewNotFoundError("Comment", id), msgNoSuchComment)
	}
	if !v.CanModify(c) {
		return c, v.fail(ctx, action, models.NewUnauthorizedError(msgNotYourComment), fallback)
	}
	return c, nil
}

// Edit replaces the content of one of the user's comments and reloads.
func (v *CommentsView) Edit(ctx context.Context, id models.ID, content string) error {
	if _, err := v.owned(ctx, "edit_comment", id, msgEditComment); err != nil {
		return err
	}
	content, err := validation.Content(content, "Comment")
	if err != nil {
		return v.fail(ctx, "edit_comment", err, msgEditComment)
	}
	if _, err := v.api.UpdateComment(ctx, v.postID, id, models.CommentInput{Content: content}); err != nil {
		return v.fail(ctx, "edit_comment", err, msgEditComment)
	}
	v.ok(ctx, "edit_comment")
	return v.Load(ctx)
}

// Delete removes one of the user's comments after confirmation and reloads.
// It reports whether the comment was deleted; a declined confirmation is not
// an error.
func (v *CommentsView) Delete(ctx context.Context, id models.ID) (bool, error) {
	c, err := v.owned(ctx, "delete_comment", id, msgDeleteComment)
	if err != nil {
		return false, err
	}
	prompt := "Are you sure you want to delete this comment?"
	if c.IsReply() {
		prompt = "Are you sure you want to delete this reply?"
	}
	if !v.approved(ctx, v.confirm, prompt) {
		return false, nil
	}
	if err := v.api.DeleteComment(ctx, v.postID, id); err != nil {
		return false, v.fail(ctx, "delete_comment", err, msgDeleteComment)
	}
	v.ok(ctx, "delete_comment")
	return true, v.Load(ctx)
}
