package api

import (
	"context"
	"net/http"
	"net/url"

	"toolbox/internal/models"
)

// ListComments returns a post's comments flat, in server order, with authors
// populated where the server supports it.
func (c *Client) ListComments(ctx context.Context, postID models.ID) ([]models.Comment, error) {
	req := get("/comments/:postId", "/comments/"+pathID(postID), authNone)
	req.query = url.Values{"populate": {"author"}}
	body, err := c.doRaw(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Comment](body)
}

// CreateComment adds a top-level comment. The server takes the author from
// the token.
func (c *Client) CreateComment(ctx context.Context, postID models.ID, in models.CommentInput) (*models.Comment, error) {
	req := send(http.MethodPost, "/comments/:postId/new", "/comments/"+pathID(postID)+"/new", in)
	req.fallback = "Failed to create comment"
	var out models.Comment
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateComment edits a comment.
func (c *Client) UpdateComment(ctx context.Context, postID, commentID models.ID, in models.CommentInput) (*models.Comment, error) {
	req := send(http.MethodPut, "/comments/:postId/:commentId/update",
		"/comments/"+pathID(postID)+"/"+pathID(commentID)+"/update", in)
	req.fallback = "Failed to update comment"
	var out models.Comment
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteComment removes a comment.
func (c *Client) DeleteComment(ctx context.Context, postID, commentID models.ID) error {
	req := send(http.MethodDelete, "/comments/:postId/:commentId",
		"/comments/"+pathID(postID)+"/"+pathID(commentID), nil)
	req.fallback = "Failed to delete comment"
	return c.do(ctx, req, nil)
}

// ReplyToComment posts a reply under commentID.
func (c *Client) ReplyToComment(ctx context.Context, postID, commentID models.ID, in models.CommentInput) (*models.Comment, error) {
	req := send(http.MethodPost, "/comments/:postId/:commentId/reply",
		"/comments/"+pathID(postID)+"/"+pathID(commentID)+"/reply", in)
	req.fallback = "Failed to create reply"
	var out models.Comment
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
