package apitest

import (
	"slices"
	"strings"

	"toolbox/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func (b *Backend) routes() {
	app := b.app

	auth := app.Group("/auth")
	auth.Post("/sign-up", b.signUp)
	auth.Post("/sign-in", b.signIn)

	posts := app.Group("/posts")
	posts.Get("/", b.optionalUser, b.listPosts)
	posts.Get("/users/liked-posts", b.authRequired, b.likedPosts)
	posts.Get("/users/saved-posts", b.authRequired, b.savedPosts)
	posts.Post("/new", b.authRequired, b.createPost)
	posts.Get("/:id", b.optionalUser, b.getPost)
	posts.Put("/:id/update", b.authRequired, b.updatePost)
	posts.Delete("/:id/delete", b.authRequired, b.deletePost)
	posts.Post("/:id/like", b.authRequired, b.likePost)
	posts.Post("/:id/save", b.authRequired, b.savePost)

	comments := app.Group("/comments")
	comments.Get("/:postId", b.listComments)
	comments.Post("/:postId/new", b.authRequired, b.createComment)
	comments.Put("/:postId/:commentId/update", b.authRequired, b.updateComment)
	comments.Delete("/:postId/:commentId", b.authRequired, b.deleteComment)
	comments.Post("/:postId/:commentId/reply", b.authRequired, b.replyToComment)

	chats := app.Group("/chats", b.authRequired)
	chats.Get("/", b.listChats)
	chats.Post("/", b.startChat)
	chats.Get("/:id", b.getChat)
	chats.Post("/:id/messages", b.sendMessage)

	profile := app.Group("/profile")
	profile.Get("/me", b.authRequired, b.getProfile)
	profile.Patch("/me", b.authRequired, b.updateProfile)
	profile.Get("/:id", b.publicProfile)

	users := app.Group("/users", b.authRequired)
	users.Get("/stats", b.userStats)
	users.Get("/currentUser", b.getCurrentUser)
	users.Get("/profile/:id", b.publicProfile)

	formulas := app.Group("/formulas")
	formulas.Get("/", b.listFormulas)
	formulas.Post("/calculate", b.optionalUser, b.calculate)
	formulas.Get("/category/:category", b.formulasByCategory)
	formulas.Get("/:id/calculation-options", b.calculationOptions)
	formulas.Get("/:id", b.getFormula)
}

// --- auth ---

func (b *Backend) signUp(c *fiber.Ctx) error {
	var req models.Registration
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return respondError(c, fiber.StatusBadRequest, "Username, email, and password are required")
	}
	if req.PasswordConf != "" && req.PasswordConf != req.Password {
		return respondError(c, fiber.StatusBadRequest, "Passwords do not match")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findAccount(req.Username, req.Email) != nil {
		return respondError(c, fiber.StatusConflict, "User already exists")
	}
	acc, err := b.addAccount(req.Username, req.Email, req.Password)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, err.Error())
	}
	token, err := b.sign(acc.user)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"token": token, "user": acc.user})
}

func (b *Backend) signIn(c *fiber.Ctx) error {
	var req models.Credentials
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	b.mu.Lock()
	acc := b.findAccount(req.Username, "")
	b.mu.Unlock()
	if acc == nil || bcrypt.CompareHashAndPassword(acc.hash, []byte(req.Password)) != nil {
		return respondError(c, fiber.StatusUnauthorized, "Invalid credentials")
	}
	token, err := b.sign(acc.user)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"token": token, "user": acc.user})
}

// findAccount matches username or email case-insensitively. Callers hold mu.
func (b *Backend) findAccount(username, email string) *account {
	for _, acc := range b.accounts {
		if username != "" && strings.EqualFold(acc.user.Username, username) {
			return acc
		}
		if email != "" && strings.EqualFold(acc.user.Email, email) {
			return acc
		}
	}
	return nil
}

// addAccount creates a user. Callers hold mu.
func (b *Backend) addAccount(username, email, password string) (*account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	acc := &account{
		user: models.User{
			MongoID:   models.ID(uuid.NewString()),
			Username:  username,
			Email:     email,
			CreatedAt: models.At(b.now()),
		},
		hash: hash,
	}
	b.accounts[acc.user.MongoID] = acc
	return acc, nil
}

// publicUser strips private fields. Callers hold mu.
func (b *Backend) publicUser(id models.ID) models.User {
	acc := b.accounts[id]
	if acc == nil {
		return models.User{MongoID: id}
	}
	u := acc.user
	u.Email = ""
	return u
}

// --- posts ---

// postView renders a stored post with its like count. Callers hold mu.
func (b *Backend) postView(p *models.Post) models.Post {
	out := *p
	out.Likes = slices.Clone(p.Likes)
	n := len(p.Likes)
	out.LikesCount = &n
	if id := refID(p.Author); id != "" {
		out.Author = models.RefToUser(b.publicUser(id))
	}
	return out
}

func refID(r *models.Ref) models.ID {
	switch {
	case r == nil:
		return ""
	case r.User != nil:
		return r.User.MongoID
	default:
		return r.ID
	}
}

func likedBy(p *models.Post, user models.ID) bool {
	return slices.ContainsFunc(p.Likes, func(r models.Ref) bool { return r.ID == user })
}

func (b *Backend) findPost(id string) *models.Post {
	for _, p := range b.posts {
		if string(p.MongoID) == id {
			return p
		}
	}
	return nil
}

func (b *Backend) listPosts(c *fiber.Ctx) error {
	author, liked, saved := models.ID(c.Query("author")), models.ID(c.Query("likedBy")), models.ID(c.Query("savedBy"))

	b.mu.Lock()
	defer b.mu.Unlock()
	var savedSet []models.ID
	if saved != "" {
		if acc := b.accounts[saved]; acc != nil {
			savedSet = acc.saved
		}
	}
	out := make([]models.Post, 0, len(b.posts))
	for _, p := range b.posts {
		if author != "" && refID(p.Author) != author {
			continue
		}
		if liked != "" && !likedBy(p, liked) {
			continue
		}
		if saved != "" && !slices.Contains(savedSet, p.MongoID) {
			continue
		}
		out = append(out, b.postView(p))
	}
	return c.JSON(out)
}

func (b *Backend) likedPosts(c *fiber.Ctx) error {
	me := currentUser(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Post{}
	for _, p := range b.posts {
		if likedBy(p, me) {
			out = append(out, b.postView(p))
		}
	}
	return c.JSON(fiber.Map{"posts": out})
}

func (b *Backend) savedPosts(c *fiber.Ctx) error {
	me := currentUser(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Post{}
	for _, id := range b.accounts[me].saved {
		if p := b.findPost(string(id)); p != nil {
			out = append(out, b.postView(p))
		}
	}
	return c.JSON(fiber.Map{"posts": out})
}

func (b *Backend) getPost(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.findPost(c.Params("id"))
	if p == nil {
		return respondError(c, fiber.StatusNotFound, "Post not found")
	}
	return c.JSON(b.postView(p))
}

func (b *Backend) createPost(c *fiber.Ctx) error {
	var in models.PostInput
	if err := c.BodyParser(&in); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(in.Content) == "" {
		return respondError(c, fiber.StatusBadRequest, "Content is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.insertPost(currentUser(c), in.Content, in.Tags)
	return c.Status(fiber.StatusCreated).JSON(b.postView(p))
}

// insertPost stores a post at the top of the feed. Callers hold mu.
func (b *Backend) insertPost(author models.ID, content string, tags []string) *models.Post {
	now := models.At(b.now())
	p := &models.Post{
		MongoID:   models.ID(uuid.NewString()),
		Author:    models.RefTo(author),
		Content:   content,
		Tags:      tags,
		Likes:     []models.Ref{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.posts = append([]*models.Post{p}, b.posts...)
	return p
}

// ownedPost loads the post in :id and checks the caller wrote it. It writes
// the error response itself and returns nil on failure. Callers hold mu.
func (b *Backend) ownedPost(c *fiber.Ctx, verb string) (*models.Post, error) {
	p := b.findPost(c.Params("id"))
	if p == nil {
		return nil, respondError(c, fiber.StatusNotFound, "Post not found")
	}
	if refID(p.Author) != currentUser(c) {
		return nil, respondError(c, fiber.StatusForbidden, "Not authorized to "+verb+" this post")
	}
	return p, nil
}

func (b *Backend) updatePost(c *fiber.Ctx) error {
	var in models.PostInput
	if err := c.BodyParser(&in); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.ownedPost(c, "update")
	if p == nil {
		return err
	}
	if strings.TrimSpace(in.Content) == "" {
		return respondError(c, fiber.StatusBadRequest, "Content is required")
	}
	p.Content = in.Content
	p.Tags = in.Tags
	p.UpdatedAt = models.At(b.now())
	return c.JSON(b.postView(p))
}

func (b *Backend) deletePost(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.ownedPost(c, "delete")
	if p == nil {
		return err
	}
	b.posts = slices.DeleteFunc(b.posts, func(q *models.Post) bool { return q == p })
	delete(b.comments, p.MongoID)
	for _, acc := range b.accounts {
		acc.saved = slices.DeleteFunc(acc.saved, func(id models.ID) bool { return id == p.MongoID })
	}
	return c.JSON(fiber.Map{"success": true, "message": "Post deleted"})
}

func (b *Backend) likePost(c *fiber.Ctx) error {
	me := currentUser(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.findPost(c.Params("id"))
	if p == nil {
		return respondError(c, fiber.StatusNotFound, "Post not found")
	}
	if likedBy(p, me) {
		p.Likes = slices.DeleteFunc(p.Likes, func(r models.Ref) bool { return r.ID == me })
	} else {
		p.Likes = append(p.Likes, models.Ref{ID: me})
	}
	return c.JSON(b.postView(p))
}

func (b *Backend) savePost(c *fiber.Ctx) error {
	me := currentUser(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.findPost(c.Params("id"))
	if p == nil {
		return respondError(c, fiber.StatusNotFound, "Post not found")
	}
	acc := b.accounts[me]
	if slices.Contains(acc.saved, p.MongoID) {
		acc.saved = slices.DeleteFunc(acc.saved, func(id models.ID) bool { return id == p.MongoID })
		return c.JSON(fiber.Map{"success": true, "message": "Post unsaved"})
	}
	acc.saved = append(acc.saved, p.MongoID)
	return c.JSON(fiber.Map{"success": true, "message": "Post saved"})
}

// --- comments ---

// commentView embeds the author when populate=author. Callers hold mu.
func (b *Backend) commentView(cm *models.Comment, populate bool) models.Comment {
	out := *cm
	if populate {
		out.UserRef = models.RefToUser(b.publicUser(refID(cm.UserRef)))
	}
	return out
}

func (b *Backend) listComments(c *fiber.Ctx) error {
	populate := c.Query("populate") == "author"
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.comments[models.ID(c.Params("postId"))]
	out := make([]models.Comment, 0, len(list))
	for _, cm := range list {
		out = append(out, b.commentView(cm, populate))
	}
	return c.JSON(fiber.Map{"comments": out})
}

// insertComment appends a comment. Callers hold mu.
func (b *Backend) insertComment(postID, author models.ID, content string, parent models.ID) *models.Comment {
	cm := &models.Comment{
		MongoID:   models.ID(uuid.NewString()),
		PostID:    postID,
		UserRef:   models.RefTo(author),
		Content:   content,
		CreatedAt: models.At(b.now()),
	}
	if parent != "" {
		cm.ParentID = models.RefTo(parent)
	}
	b.comments[postID] = append(b.comments[postID], cm)
	return cm
}

func (b *Backend) findComment(postID, id string) *models.Comment {
	for _, cm := range b.comments[models.ID(postID)] {
		if string(cm.MongoID) == id {
			return cm
		}
	}
	return nil
}

func (b *Backend) createComment(c *fiber.Ctx) error {
	var in models.CommentInput
	if err := c.BodyParser(&in); err != nil || strings.TrimSpace(in.Content) == "" {
		return respondError(c, fiber.StatusBadRequest, "Comment content is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findPost(c.Params("postId")) == nil {
		return respondError(c, fiber.StatusNotFound, "Post not found")
	}
	cm := b.insertComment(models.ID(c.Params("postId")), currentUser(c), in.Content, "")
	return c.Status(fiber.StatusCreated).JSON(b.commentView(cm, true))
}

func (b *Backend) replyToComment(c *fiber.Ctx) error {
	var in models.CommentInput
	if err := c.BodyParser(&in); err != nil || strings.TrimSpace(in.Content) == "" {
		return respondError(c, fiber.StatusBadRequest, "Reply content is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	parent := b.findComment(c.Params("postId"), c.Params("commentId"))
	if parent == nil {
		return respondError(c, fiber.StatusNotFound, "Comment not found")
	}
	cm := b.insertComment(parent.PostID, currentUser(c), in.Content, parent.MongoID)
	return c.Status(fiber.StatusCreated).JSON(b.commentView(cm, true))
}

func (b *Backend) updateComment(c *fiber.Ctx) error {
	var in models.CommentInput
	if err := c.BodyParser(&in); err != nil || strings.TrimSpace(in.Content) == "" {
		return respondError(c, fiber.StatusBadRequest, "Comment content is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cm := b.findComment(c.Params("postId"), c.Params("commentId"))
	if cm == nil {
		return respondError(c, fiber.StatusNotFound, "Comment not found")
	}
	if refID(cm.UserRef) != currentUser(c) {
		return respondError(c, fiber.StatusForbidden, "Not authorized to update this comment")
	}
	cm.Content = in.Content
	cm.IsEdited = true
	return c.JSON(b.commentView(cm, true))
}

func (b *Backend) deleteComment(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cm := b.findComment(c.Params("postId"), c.Params("commentId"))
	if cm == nil {
		return respondError(c, fiber.StatusNotFound, "Comment not found")
	}
	if refID(cm.UserRef) != currentUser(c) {
		return respondError(c, fiber.StatusForbidden, "Not authorized to delete this comment")
	}
	b.comments[cm.PostID] = slices.DeleteFunc(b.comments[cm.PostID], func(x *models.Comment) bool { return x == cm })
	return c.JSON(fiber.Map{"success": true, "message": "Comment deleted"})
}

// --- chats ---

// chatView renders participants as public users. Callers hold mu.
func (b *Backend) chatView(ch *models.Chat) models.Chat {
	out := *ch
	out.Participants = make([]models.User, 0, len(ch.Participants))
	for _, p := range ch.Participants {
		out.Participants = append(out.Participants, b.publicUser(p.MongoID))
	}
	out.Messages = slices.Clone(ch.Messages)
	if out.Messages == nil {
		out.Messages = []models.Message{}
	}
	return out
}

func hasParticipant(ch *models.Chat, id models.ID) bool {
	return slices.ContainsFunc(ch.Participants, func(u models.User) bool { return u.MongoID == id })
}

func (b *Backend) listChats(c *fiber.Ctx) error {
	me := currentUser(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Chat{}
	for _, ch := range b.chats {
		if hasParticipant(ch, me) {
			out = append(out, b.chatView(ch))
		}
	}
	return c.JSON(out)
}

func (b *Backend) ownChat(c *fiber.Ctx) *models.Chat {
	me := currentUser(c)
	for _, ch := range b.chats {
		if string(ch.MongoID) == c.Params("id") && hasParticipant(ch, me) {
			return ch
		}
	}
	return nil
}

func (b *Backend) getChat(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := b.ownChat(c)
	if ch == nil {
		return respondError(c, fiber.StatusNotFound, "Chat not found")
	}
	return c.JSON(b.chatView(ch))
}

func (b *Backend) startChat(c *fiber.Ctx) error {
	var req struct {
		ParticipantID models.ID `json:"participantId"`
	}
	if err := c.BodyParser(&req); err != nil || req.ParticipantID == "" {
		return respondError(c, fiber.StatusBadRequest, "participantId is required")
	}
	me := currentUser(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	if req.ParticipantID == me {
		return respondError(c, fiber.StatusBadRequest, "Cannot start a chat with yourself")
	}
	if b.accounts[req.ParticipantID] == nil {
		return respondError(c, fiber.StatusNotFound, "User not found")
	}
	for _, ch := range b.chats {
		if len(ch.Participants) == 2 && hasParticipant(ch, me) && hasParticipant(ch, req.ParticipantID) {
			return c.JSON(b.chatView(ch))
		}
	}
	now := models.At(b.now())
	ch := &models.Chat{
		MongoID:      models.ID(uuid.NewString()),
		Participants: []models.User{{MongoID: me}, {MongoID: req.ParticipantID}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	b.chats = append(b.chats, ch)
	return c.Status(fiber.StatusCreated).JSON(b.chatView(ch))
}

func (b *Backend) sendMessage(c *fiber.Ctx) error {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		return respondError(c, fiber.StatusBadRequest, "Message content is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := b.ownChat(c)
	if ch == nil {
		return respondError(c, fiber.StatusNotFound, "Chat not found")
	}
	now := models.At(b.now())
	ch.Messages = append(ch.Messages, models.Message{
		MongoID:   models.ID(uuid.NewString()),
		Sender:    models.RefTo(currentUser(c)),
		Content:   req.Content,
		Timestamp: now,
	})
	ch.UpdatedAt = now
	return c.JSON(b.chatView(ch))
}

// --- profile and users ---

func (b *Backend) getProfile(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(fiber.Map{"user": b.accounts[currentUser(c)].user})
}

func (b *Backend) updateProfile(c *fiber.Ctx) error {
	var in models.ProfileUpdate
	if err := c.BodyParser(&in); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if len(strings.TrimSpace(in.Username)) < 3 {
		return respondError(c, fiber.StatusBadRequest, "Username must be at least 3 characters")
	}
	me := currentUser(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	if other := b.findAccount(in.Username, ""); other != nil && other.user.MongoID != me {
		return respondError(c, fiber.StatusConflict, "Username is already taken")
	}
	u := &b.accounts[me].user
	u.Username = strings.TrimSpace(in.Username)
	u.Bio = in.Bio
	u.Title = in.Title
	u.ContactInfo = in.ContactInfo
	if in.Avatar != "" {
		u.Avatar = in.Avatar
	}
	return c.JSON(fiber.Map{"user": *u})
}

// statsFor counts a user's activity. Callers hold mu.
func (b *Backend) statsFor(id models.ID) models.UserStats {
	var s models.UserStats
	for _, p := range b.posts {
		if refID(p.Author) == id {
			s.Posts++
			s.LikesReceived += len(p.Likes)
		}
	}
	for _, list := range b.comments {
		for _, cm := range list {
			if refID(cm.UserRef) == id {
				s.Comments++
			}
		}
	}
	if acc := b.accounts[id]; acc != nil {
		s.SavedPosts = len(acc.saved)
	}
	return s
}

func (b *Backend) publicProfile(c *fiber.Ctx) error {
	id := models.ID(c.Params("id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.accounts[id] == nil {
		return respondError(c, fiber.StatusNotFound, "User not found")
	}
	posts := []models.Post{}
	for _, p := range b.posts {
		if refID(p.Author) == id {
			posts = append(posts, b.postView(p))
		}
	}
	stats := b.statsFor(id)
	return c.JSON(fiber.Map{"user": b.publicUser(id), "posts": posts, "stats": stats})
}

func (b *Backend) userStats(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(b.statsFor(currentUser(c)))
}

func (b *Backend) getCurrentUser(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(b.accounts[currentUser(c)].user)
}
