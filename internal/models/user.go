package models

// User represents an account as the API returns it. The id may sit under
// `_id`, `id` or `userId` depending on the endpoint; none is guaranteed.
type User struct {
	MongoID     ID        `json:"_id,omitempty"`
	ID          ID        `json:"id,omitempty"`
	UserID      ID        `json:"userId,omitempty"`
	Username    string    `json:"username,omitempty"`
	Email       string    `json:"email,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Title       string    `json:"title,omitempty"`
	ContactInfo string    `json:"contactInfo,omitempty"`
	Name        string    `json:"name,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	CreatedAt   Timestamp `json:"createdAt"`
}

// IDs returns the user's id fields in canonical priority order.
func (u *User) IDs() []ID {
	if u == nil {
		return nil
	}
	return []ID{u.MongoID, u.ID, u.UserID}
}

// ProfileUpdate is the PATCH /profile/me payload.
type ProfileUpdate struct {
	Username    string `json:"username"`
	Bio         string `json:"bio"`
	ContactInfo string `json:"contactInfo"`
	Title       string `json:"title"`
	Avatar      string `json:"avatar,omitempty"`
}

// UserStats holds per-user activity counters.
type UserStats struct {
	Posts         int `json:"posts"`
	Comments      int `json:"comments"`
	LikesReceived int `json:"likesReceived"`
	SavedPosts    int `json:"savedPosts"`
}

// PublicProfile is the GET /profile/:id or /users/profile/:id payload.
type PublicProfile struct {
	User
	Posts []Post     `json:"posts,omitempty"`
	Stats *UserStats `json:"stats,omitempty"`
}

// Credentials is the sign-in payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the sign-up payload.
type Registration struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	PasswordConf string `json:"passwordConf"`
}
