package models

// Attribution is the author-related part of a post or comment: the author
// reference (if any) plus the denormalized name fields some endpoints add.
type Attribution struct {
	Author         *Ref
	Username       string
	AuthorName     string
	AuthorUsername string
}

// Post represents a forum post.
type Post struct {
	MongoID        ID        `json:"_id,omitempty"`
	ID             ID        `json:"id,omitempty"`
	Author         *Ref      `json:"author,omitempty"`
	Username       string    `json:"username,omitempty"`
	AuthorName     string    `json:"authorName,omitempty"`
	AuthorUsername string    `json:"authorUsername,omitempty"`
	Content        string    `json:"content"`
	Tags           []string  `json:"tags,omitempty"`
	Likes          []Ref     `json:"likes,omitempty"`
	LikesCount     *int      `json:"likes_count,omitempty"`
	Saves          []Ref     `json:"saves,omitempty"`
	CreatedAt      Timestamp `json:"createdAt"`
	UpdatedAt      Timestamp `json:"updatedAt"`
}

// Key returns the post id.
func (p Post) Key() ID { return FirstID(p.MongoID, p.ID) }

// Attribution implements identity.Authored.
func (p Post) Attribution() Attribution {
	return Attribution{
		Author:         p.Author,
		Username:       p.Username,
		AuthorName:     p.AuthorName,
		AuthorUsername: p.AuthorUsername,
	}
}

// PostInput is the create/update payload.
type PostInput struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// PostFilter narrows GET /posts.
type PostFilter struct {
	Author  ID
	LikedBy ID
	SavedBy ID
}

// Ack is the bare acknowledgement some endpoints return instead of an entity.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
