package apitest

import (
	"fmt"
	"strings"

	"toolbox/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

// AddUser creates an account and returns its public record with email.
func (b *Backend) AddUser(username, email, password string) (models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findAccount(username, email) != nil {
		return models.User{}, fmt.Errorf("apitest: user %q already exists", username)
	}
	acc, err := b.addAccount(username, email, password)
	if err != nil {
		return models.User{}, err
	}
	return acc.user, nil
}

// AddPost publishes a post as author.
func (b *Backend) AddPost(author models.ID, content string, tags ...string) models.Post {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.postView(b.insertPost(author, content, tags))
}

// AddComment stores a comment; a non-empty parent makes it a reply. The
// parent does not have to exist.
func (b *Backend) AddComment(postID, author models.ID, content string, parent models.ID) models.Comment {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.insertComment(postID, author, content, parent)
}

// Post returns the stored post as the API renders it.
func (b *Backend) Post(id models.ID) (models.Post, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.findPost(string(id))
	if p == nil {
		return models.Post{}, false
	}
	return b.postView(p), true
}

// CommentCount returns how many comments post id has.
func (b *Backend) CommentCount(id models.ID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.comments[id])
}

// Seed fills the backend with fake users, posts, comments and likes. The same
// seed always produces the same content.
func (b *Backend) Seed(seed int64, users, posts int) ([]models.User, error) {
	faker := gofakeit.New(seed)

	created := make([]models.User, 0, users)
	for len(created) < users {
		name := strings.ToLower(faker.Username())
		if len(name) > 20 {
			name = name[:20]
		}
		u, err := b.AddUser(name, faker.Email(), DemoPassword)
		if err != nil {
			continue
		}
		created = append(created, u)
	}
	if len(created) == 0 {
		return created, nil
	}

	pick := func() models.ID { return created[faker.Number(0, len(created)-1)].MongoID }
	for range posts {
		post := b.AddPost(pick(), faker.Paragraph(1, 2, 12, " "), faker.Word(), faker.Word())
		var roots []models.ID
		for range faker.Number(0, 4) {
			parent := models.ID("")
			if len(roots) > 0 && faker.Bool() {
				parent = roots[faker.Number(0, len(roots)-1)]
			}
			c := b.AddComment(post.MongoID, pick(), faker.Sentence(8), parent)
			if parent == "" {
				roots = append(roots, c.MongoID)
			}
		}
		b.mu.Lock()
		p := b.findPost(string(post.MongoID))
		for _, u := range created {
			if faker.Number(0, 2) == 0 {
				p.Likes = append(p.Likes, models.Ref{ID: u.MongoID})
			}
		}
		b.mu.Unlock()
	}
	return created, nil
}
