package api

import (
	"context"
	"fmt"
	"time"
)

// Bot answers questions over one data source.
type Bot struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	DataSource   int64      `json:"data_source"`
	SystemPrompt string     `json:"system_prompt,omitempty"`
	Temperature  float64    `json:"temperature"`
	MaxTokens    int        `json:"max_tokens"`
	RowLimit     int        `json:"row_limit"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// BotInput creates a bot.
type BotInput struct {
	Name         string  `json:"name" validate:"required,max=100"`
	Description  string  `json:"description,omitempty"`
	DataSource   int64   `json:"data_source" validate:"gt=0"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Temperature  float64 `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens    int     `json:"max_tokens" validate:"gt=0"`
	RowLimit     int     `json:"row_limit" validate:"gt=0"`
}

// ListBots returns the organization's bots.
func (c *Client) ListBots(ctx context.Context) ([]Bot, error) {
	var p page[Bot]
	if err := c.get(ctx, "/api/bots/", nil, &p); err != nil {
		return nil, err
	}
	return p.items(), nil
}

// GetBot returns one bot.
func (c *Client) GetBot(ctx context.Context, id int64) (*Bot, error) {
	var b Bot
	if err := c.get(ctx, botPath(id), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBot creates a bot.
func (c *Client) CreateBot(ctx context.Context, in BotInput) (*Bot, error) {
	var b Bot
	if err := c.post(ctx, "/api/bots/", in, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// DeleteBot removes a bot.
func (c *Client) DeleteBot(ctx context.Context, id int64) error {
	return c.del(ctx, botPath(id))
}

func botPath(id int64) string {
	return fmt.Sprintf("/api/bots/%d/", id)
}
