package api

import (
	"context"
	"net/http"

	"toolbox/internal/models"
)

// ListChats returns the user's private chats.
func (c *Client) ListChats(ctx context.Context) ([]models.Chat, error) {
	body, err := c.doRaw(ctx, get("/chats", "/chats", authRequired))
	if err != nil {
		return nil, err
	}
	return decodeList[models.Chat](body)
}

// GetChat fetches one chat with its messages.
func (c *Client) GetChat(ctx context.Context, id models.ID) (*models.Chat, error) {
	var chat models.Chat
	if err := c.do(ctx, get("/chats/:id", "/chats/"+pathID(id), authRequired), &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

type startChatInput struct {
	ParticipantID models.ID `json:"participantId"`
}

// StartChat opens (or returns the existing) chat with another user.
func (c *Client) StartChat(ctx context.Context, userID models.ID) (*models.Chat, error) {
	var chat models.Chat
	if err := c.do(ctx, send(http.MethodPost, "/chats", "/chats", startChatInput{ParticipantID: userID}), &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

type messageInput struct {
	Content string `json:"content"`
}

// SendMessage posts a message and returns the updated chat.
func (c *Client) SendMessage(ctx context.Context, chatID models.ID, content string) (*models.Chat, error) {
	var chat models.Chat
	req := send(http.MethodPost, "/chats/:id/messages", "/chats/"+pathID(chatID)+"/messages", messageInput{Content: content})
	if err := c.do(ctx, req, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}
