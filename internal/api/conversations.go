package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Message is one turn of a conversation.
type Message struct {
	ID        int64      `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	SQL       string     `json:"sql,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Conversation is a chat thread with a bot.
type Conversation struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Bot       int64      `json:"bot"`
	Messages  []Message  `json:"messages,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ChatRequest sends a message to a bot. Without ConversationID the
// backend starts a new conversation.
type ChatRequest struct {
	BotID          int64  `json:"bot_id" validate:"gt=0"`
	Message        string `json:"message" validate:"required"`
	ConversationID *int64 `json:"conversation_id,omitempty"`
}

// ChatResponse carries both sides of the exchange as stored by the
// backend.
type ChatResponse struct {
	ConversationID   int64   `json:"conversation_id"`
	UserMessage      Message `json:"user_message"`
	AssistantMessage Message `json:"assistant_message"`
}

// ListConversations returns conversations, limited to one bot when botID
// is non-zero.
func (c *Client) ListConversations(ctx context.Context, botID int64) ([]Conversation, error) {
	var query url.Values
	if botID != 0 {
		query = url.Values{"bot_id": {strconv.FormatInt(botID, 10)}}
	}
	var p page[Conversation]
	if err := c.get(ctx, "/api/conversations/", query, &p); err != nil {
		return nil, err
	}
	return p.items(), nil
}

// GetConversation returns a conversation with its messages.
func (c *Client) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	var conv Conversation
	if err := c.get(ctx, conversationPath(id), nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// RenameConversation sets the conversation title.
func (c *Client) RenameConversation(ctx context.Context, id int64, title string) (*Conversation, error) {
	var conv Conversation
	if err := c.patch(ctx, conversationPath(id), map[string]string{"title": title}, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// DeleteConversation removes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, id int64) error {
	return c.del(ctx, conversationPath(id))
}

// SendChatMessage asks a bot a question and waits for the answer.
func (c *Client) SendChatMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.post(ctx, "/api/chat/send/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func conversationPath(id int64) string {
	return fmt.Sprintf("/api/conversations/%d/", id)
}
