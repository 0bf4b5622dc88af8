package actions

import (
	"context"
	"slices"

	"toolbox/internal/identity"
	"toolbox/internal/models"
	"toolbox/internal/validation"
)

// ChatsAPI is the part of the API client the chat views use.
type ChatsAPI interface {
	ListChats(ctx context.Context) ([]models.Chat, error)
	GetChat(ctx context.Context, id models.ID) (*models.Chat, error)
	StartChat(ctx context.Context, userID models.ID) (*models.Chat, error)
	SendMessage(ctx context.Context, chatID models.ID, content string) (*models.Chat, error)
}

const (
	msgLoadChats   = "Failed to load chats"
	msgLoadChat    = "Failed to load chat"
	msgStartChat   = "Failed to start chat."
	msgSendMessage = "Failed to send message"
)

// OtherParticipant returns the participant of chat who is not me. With no
// such participant it returns the zero User.
func OtherParticipant(chat models.Chat, me *models.User) models.User {
	for _, p := range chat.Participants {
		if !identity.SameUser(&p, me) {
			return p
		}
	}
	return models.User{}
}

// ChatsView lists the user's chats.
type ChatsView struct {
	view
	api   ChatsAPI
	chats []models.Chat
}

// NewChatsView returns an empty chat list.
func NewChatsView(c ChatsAPI, users CurrentUser) *ChatsView {
	v := &ChatsView{api: c}
	v.init(users, "chats")
	return v
}

// Load fetches the chat list.
func (v *ChatsView) Load(ctx context.Context) error {
	if v.user() == nil {
		return v.prompt(SignInToChat)
	}
	ticket := v.begin()
	chats, err := v.api.ListChats(ctx)
	if err != nil {
		return v.failLoad(ctx, ticket, "load_chats", err, msgLoadChats)
	}
	v.commit(ticket, func() {
		v.chats = chats
		v.err = ""
	})
	return nil
}

// Chats returns the listed chats.
func (v *ChatsView) Chats() []models.Chat {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.chats)
}

// OtherParticipant names the counterpart in chat.
func (v *ChatsView) OtherParticipant(chat models.Chat) models.User {
	return OtherParticipant(chat, v.user())
}

// Start opens a chat with userID, or returns the existing one, and reloads
// the list.
func (v *ChatsView) Start(ctx context.Context, userID models.ID) (*models.Chat, error) {
	if v.user() == nil {
		return nil, v.prompt(SignInToChat)
	}
	chat, err := v.api.StartChat(ctx, userID)
	if err != nil {
		return nil, v.fail(ctx, "start_chat", err, msgStartChat)
	}
	v.ok(ctx, "start_chat")
	return chat, v.Load(ctx)
}

// ChatView shows one conversation.
type ChatView struct {
	view
	api  ChatsAPI
	chat *models.Chat
}

// NewChatView returns an empty conversation view.
func NewChatView(c ChatsAPI, users CurrentUser) *ChatView {
	v := &ChatView{api: c}
	v.init(users, "chat")
	return v
}

// Load fetches chat id.
func (v *ChatView) Load(ctx context.Context, id models.ID) error {
	if v.user() == nil {
		return v.prompt(SignInToChat)
	}
	ticket := v.begin()
	chat, err := v.api.GetChat(ctx, id)
	if err != nil {
		return v.failLoad(ctx, ticket, "load_chat", err, msgLoadChat)
	}
	v.commit(ticket, func() {
		v.chat = chat
		v.err = ""
	})
	return nil
}

// Chat returns the loaded chat, or nil.
func (v *ChatView) Chat() *models.Chat {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.chat == nil {
		return nil
	}
	c := *v.chat
	c.Messages = slices.Clone(v.chat.Messages)
	return &c
}

// OtherParticipant names the counterpart in the loaded chat.
func (v *ChatView) OtherParticipant() models.User {
	c := v.Chat()
	if c == nil {
		return models.User{}
	}
	return OtherParticipant(*c, v.user())
}

// Send posts a message and takes the server's updated chat.
func (v *ChatView) Send(ctx context.Context, content string) error {
	c := v.Chat()
	if v.user() == nil || c == nil {
		return v.prompt(SignInToChat)
	}
	content, err := validation.Content(content, "Message")
	if err != nil {
		return v.fail(ctx, "send_message", err, msgSendMessage)
	}
	updated, err := v.api.SendMessage(ctx, c.Key(), content)
	if err != nil {
		return v.fail(ctx, "send_message", err, msgSendMessage)
	}
	v.update(func() { v.chat = updated })
	v.ok(ctx, "send_message")
	return nil
}
