package models

// Comment represents a comment on a post. The author may be carried by
// `user_id` or `author`; `parent_id` is null for top-level comments.
type Comment struct {
	MongoID        ID        `json:"_id,omitempty"`
	ID             ID        `json:"id,omitempty"`
	PostID         ID        `json:"postId,omitempty"`
	Author         *Ref      `json:"author,omitempty"`
	UserRef        *Ref      `json:"user_id,omitempty"`
	Username       string    `json:"username,omitempty"`
	AuthorName     string    `json:"authorName,omitempty"`
	AuthorUsername string    `json:"authorUsername,omitempty"`
	Content        string    `json:"content"`
	ParentID       *Ref      `json:"parent_id,omitempty"`
	IsEdited       bool      `json:"is_edited,omitempty"`
	CreatedAt      Timestamp `json:"createdAt"`
}

// Key returns the comment id.
func (c Comment) Key() ID { return FirstID(c.MongoID, c.ID) }

// AuthorRef returns the author reference, preferring `user_id`.
func (c Comment) AuthorRef() *Ref {
	if !c.UserRef.Empty() {
		return c.UserRef
	}
	if !c.Author.Empty() {
		return c.Author
	}
	return nil
}

// IsReply reports whether the comment declares a parent.
func (c Comment) IsReply() bool { return !c.ParentID.Empty() }

// Attribution implements identity.Authored.
func (c Comment) Attribution() Attribution {
	return Attribution{
		Author:         c.AuthorRef(),
		Username:       c.Username,
		AuthorName:     c.AuthorName,
		AuthorUsername: c.AuthorUsername,
	}
}

// Thread is a root comment with its replies in arrival order.
type Thread struct {
	Comment
	Replies []Comment `json:"replies"`
}

// CommentInput is the create/update/reply payload.
type CommentInput struct {
	Content string `json:"content"`
}
