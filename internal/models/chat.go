package models

// Chat is a private conversation between two users.
type Chat struct {
	MongoID      ID        `json:"_id,omitempty"`
	ID           ID        `json:"id,omitempty"`
	Participants []User    `json:"participants"`
	Messages     []Message `json:"messages"`
	CreatedAt    Timestamp `json:"createdAt"`
	UpdatedAt    Timestamp `json:"updatedAt"`
}

// Key returns the chat id.
func (c Chat) Key() ID { return FirstID(c.MongoID, c.ID) }

// Message is a single chat message.
type Message struct {
	MongoID   ID        `json:"_id,omitempty"`
	Sender    *Ref      `json:"sender,omitempty"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
	CreatedAt Timestamp `json:"createdAt"`
}

// SentAt returns the message time, preferring `timestamp`.
func (m Message) SentAt() Timestamp {
	if !m.Timestamp.IsZero() {
		return m.Timestamp
	}
	return m.CreatedAt
}
