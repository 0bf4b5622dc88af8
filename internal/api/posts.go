package api

import (
	"context"
	"net/http"
	"net/url"

	"toolbox/internal/models"
)

// ListPosts returns the feed, optionally narrowed to one author or to posts
// liked or saved by a user.
func (c *Client) ListPosts(ctx context.Context, f models.PostFilter) ([]models.Post, error) {
	req := get("/posts", "/posts", authOptional)
	q := url.Values{}
	if f.Author != "" {
		q.Set("author", string(f.Author))
	}
	if f.LikedBy != "" {
		q.Set("likedBy", string(f.LikedBy))
	}
	if f.SavedBy != "" {
		q.Set("savedBy", string(f.SavedBy))
	}
	req.query = q
	body, err := c.doRaw(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Post](body)
}

// GetPost fetches one post.
func (c *Client) GetPost(ctx context.Context, id models.ID) (*models.Post, error) {
	var p models.Post
	if err := c.do(ctx, get("/posts/:id", "/posts/"+pathID(id), authOptional), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePost publishes a new post.
func (c *Client) CreatePost(ctx context.Context, in models.PostInput) (*models.Post, error) {
	var p models.Post
	if err := c.do(ctx, send(http.MethodPost, "/posts/new", "/posts/new", in), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePost replaces a post's content and tags.
func (c *Client) UpdatePost(ctx context.Context, id models.ID, in models.PostInput) (*models.Post, error) {
	var p models.Post
	if err := c.do(ctx, send(http.MethodPut, "/posts/:id/update", "/posts/"+pathID(id)+"/update", in), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, id models.ID) error {
	return c.do(ctx, send(http.MethodDelete, "/posts/:id/delete", "/posts/"+pathID(id)+"/delete", nil), nil)
}

// LikePost toggles the user's like and returns the post as the server now
// has it.
func (c *Client) LikePost(ctx context.Context, id models.ID) (*models.Post, error) {
	var p models.Post
	if err := c.do(ctx, send(http.MethodPost, "/posts/:id/like", "/posts/"+pathID(id)+"/like", nil), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePost toggles the user's save. The server only acknowledges.
func (c *Client) SavePost(ctx context.Context, id models.ID) (*models.Ack, error) {
	var ack models.Ack
	if err := c.do(ctx, send(http.MethodPost, "/posts/:id/save", "/posts/"+pathID(id)+"/save", nil), &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// LikedPosts lists the posts the user liked.
func (c *Client) LikedPosts(ctx context.Context) ([]models.Post, error) {
	body, err := c.doRaw(ctx, get("/posts/users/liked-posts", "/posts/users/liked-posts", authRequired))
	if err != nil {
		return nil, err
	}
	return decodeList[models.Post](body)
}

// SavedPosts lists the posts the user saved.
func (c *Client) SavedPosts(ctx context.Context) ([]models.Post, error) {
	body, err := c.doRaw(ctx, get("/posts/users/saved-posts", "/posts/users/saved-posts", authRequired))
	if err != nil {
		return nil, err
	}
	return decodeList[models.Post](body)
}
