package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/botctl/internal/session"
)

// Price is a plan price. The backend serializes decimals as strings; some
// deployments send plain numbers.
type Price string

// UnmarshalJSON accepts a JSON string, number or null.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("price: %w", err)
		}
		*p = Price(n.String())
	}
	return nil
}

// Float returns the numeric value of the price.
func (p Price) Float() (float64, bool) {
	f, err := strconv.ParseFloat(string(p), 64)
	return f, err == nil
}

// Entitlements are the limits granted by the active plan. Nil fields are
// unlimited or unknown.
type Entitlements struct {
	MaxBots         *int `json:"max_bots,omitempty"`
	MaxDataSources  *int `json:"max_datasources,omitempty"`
	MaxUsers        *int `json:"max_users,omitempty"`
	MonthlyMessages *int `json:"monthly_messages,omitempty"`
}

// Subscription is the organization's billing state.
type Subscription struct {
	Plan             string        `json:"plan"`
	Status           string        `json:"status"`
	CurrentPeriodEnd *time.Time    `json:"current_period_end,omitempty"`
	CancelAtEnd      bool          `json:"cancel_at_period_end"`
	Entitlements     *Entitlements `json:"entitlements,omitempty"`
}

// Plan is a plan offered by the backend.
type Plan struct {
	Code         string        `json:"code"`
	Name         string        `json:"name"`
	Price        Price         `json:"price"`
	Currency     string        `json:"currency,omitempty"`
	Interval     string        `json:"interval,omitempty"`
	Features     []string      `json:"features,omitempty"`
	Entitlements *Entitlements `json:"entitlements,omitempty"`
}

const subscriptionPath = "/api/billing/subscription/"

// GetSubscription returns the organization's subscription.
func (c *Client) GetSubscription(ctx context.Context) (*Subscription, error) {
	var sub Subscription
	if err := c.get(ctx, subscriptionPath, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListPlans returns the plans offered by the backend.
func (c *Client) ListPlans(ctx context.Context) ([]Plan, error) {
	var p page[Plan]
	if err := c.get(ctx, "/api/billing/plans/", nil, &p); err != nil {
		return nil, err
	}
	return p.items(), nil
}

// UpdateSubscription switches the organization to planCode and records
// the new plan in the cached profile.
func (c *Client) UpdateSubscription(ctx context.Context, planCode string) (*Subscription, error) {
	var sub Subscription
	if err := c.post(ctx, subscriptionPath, map[string]string{"plan_code": planCode}, &sub); err != nil {
		return nil, err
	}

	plan := sub.Plan
	if plan == "" {
		plan = planCode
	}
	if _, err := c.session.UpdateProfile(ctx, session.ProfilePatch{Plan: &plan}); err != nil && !errors.Is(err, session.ErrNoProfile) {
		return nil, fmt.Errorf("storing profile: %w", err)
	}
	return &sub, nil
}
