package ux

import (
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/botctl/internal/api"
	"github.com/felixgeelhaar/botctl/internal/billing"
	"github.com/felixgeelhaar/botctl/internal/session"
)

// Details is a single record shown as field/value pairs.
type Details [][2]string

// Header implements Tabular.
func (d Details) Header() []string { return []string{"FIELD", "VALUE"} }

// Rows implements Tabular.
func (d Details) Rows() [][]string {
	rows := make([][]string, len(d))
	for i, kv := range d {
		rows[i] = []string{kv[0], kv[1]}
	}
	return rows
}

// DataSources renders data sources.
type DataSources []api.DataSource

func (d DataSources) Header() []string {
	return []string{"ID", "NAME", "ENGINE", "HOST", "DATABASE"}
}

func (d DataSources) Rows() [][]string {
	rows := make([][]string, 0, len(d))
	for _, ds := range d {
		host := ds.Host
		if ds.Port != 0 {
			host += ":" + strconv.Itoa(ds.Port)
		}
		rows = append(rows, []string{id(ds.ID), ds.Name, ds.Engine, dash(host), dash(ds.Database)})
	}
	return rows
}

// Bots renders bots.
type Bots []api.Bot

func (b Bots) Header() []string {
	return []string{"ID", "NAME", "DATA SOURCE", "TEMPERATURE", "MAX TOKENS", "ROW LIMIT"}
}

func (b Bots) Rows() [][]string {
	rows := make([][]string, 0, len(b))
	for _, bot := range b {
		rows = append(rows, []string{
			id(bot.ID),
			bot.Name,
			id(bot.DataSource),
			strconv.FormatFloat(bot.Temperature, 'f', -1, 64),
			strconv.Itoa(bot.MaxTokens),
			strconv.Itoa(bot.RowLimit),
		})
	}
	return rows
}

// Conversations renders conversation summaries.
type Conversations []api.Conversation

func (c Conversations) Header() []string {
	return []string{"ID", "TITLE", "BOT", "UPDATED"}
}

func (c Conversations) Rows() [][]string {
	rows := make([][]string, 0, len(c))
	for _, conv := range c {
		updated := conv.UpdatedAt
		if updated == nil {
			updated = conv.CreatedAt
		}
		rows = append(rows, []string{id(conv.ID), dash(conv.Title), id(conv.Bot), timestamp(updated)})
	}
	return rows
}

// Messages renders the turns of a conversation.
type Messages []api.Message

func (m Messages) Header() []string {
	return []string{"ROLE", "MESSAGE"}
}

func (m Messages) Rows() [][]string {
	rows := make([][]string, 0, len(m))
	for _, msg := range m {
		content := msg.Content
		if msg.SQL != "" {
			content += "\n\n" + msg.SQL
		}
		rows = append(rows, []string{msg.Role, content})
	}
	return rows
}

// Members renders organization users.
type Members []api.OrgUser

func (m Members) Header() []string {
	return []string{"ID", "USERNAME", "EMAIL", "ROLE", "VERIFIED"}
}

func (m Members) Rows() [][]string {
	rows := make([][]string, 0, len(m))
	for _, u := range m {
		role := "member"
		if u.IsOrgOwner {
			role = "owner"
		}
		rows = append(rows, []string{id(u.ID), u.Username, u.Email, role, yesNo(u.EmailVerified)})
	}
	return rows
}

// Plans renders plan tiers.
type Plans []billing.Tier

func (p Plans) Header() []string {
	return []string{"CODE", "PLAN", "PRICE", "BOTS", "DATA SOURCES", "MESSAGES"}
}

func (p Plans) Rows() [][]string {
	rows := make([][]string, 0, len(p))
	for _, t := range p {
		rows = append(rows, []string{t.Code, t.Name, t.Price, dash(t.Limits[0]), dash(t.Limits[1]), dash(t.Limits[2])})
	}
	return rows
}

// SubscriptionDetails describes a subscription with its plan limits.
func SubscriptionDetails(sub *api.Subscription) Details {
	tier := billing.Describe(sub.Plan, sub.Entitlements)
	d := Details{
		{"Plan", tier.Name + " (" + sub.Plan + ")"},
		{"Status", dash(sub.Status)},
		{"Renews", timestamp(sub.CurrentPeriodEnd)},
		{"Bots", dash(tier.Limits[0])},
		{"Data sources", dash(tier.Limits[1])},
		{"Messages", dash(tier.Limits[2])},
	}
	if sub.CancelAtEnd {
		d[2] = [2]string{"Ends", timestamp(sub.CurrentPeriodEnd)}
	}
	return d
}

// ProfileDetails describes the signed-in user.
func ProfileDetails(p *session.Profile) Details {
	org := "-"
	if p.OrganizationName != nil {
		org = *p.OrganizationName
	}
	if p.OrganizationID != nil {
		org += " (" + id(*p.OrganizationID) + ")"
	}
	return Details{
		{"Username", p.Username},
		{"Email", p.Email},
		{"Email verified", yesNo(p.EmailVerified)},
		{"Organization", org},
		{"Owner", yesNo(p.IsOrgOwner)},
		{"Plan", dash(p.PlanCode())},
	}
}

// BotDetails describes one bot.
func BotDetails(b *api.Bot) Details {
	return Details{
		{"ID", id(b.ID)},
		{"Name", b.Name},
		{"Description", dash(b.Description)},
		{"Data source", id(b.DataSource)},
		{"Temperature", strconv.FormatFloat(b.Temperature, 'f', -1, 64)},
		{"Max tokens", strconv.Itoa(b.MaxTokens)},
		{"Row limit", strconv.Itoa(b.RowLimit)},
		{"System prompt", dash(b.SystemPrompt)},
	}
}

// DataSourceDetails describes one data source.
func DataSourceDetails(ds *api.DataSource) Details {
	port := "-"
	if ds.Port != 0 {
		port = strconv.Itoa(ds.Port)
	}
	return Details{
		{"ID", id(ds.ID)},
		{"Name", ds.Name},
		{"Engine", ds.Engine},
		{"Host", dash(ds.Host)},
		{"Port", port},
		{"Database", dash(ds.Database)},
		{"Username", dash(ds.Username)},
		{"Created", timestamp(ds.CreatedAt)},
	}
}

func id(n int64) string { return strconv.FormatInt(n, 10) }

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func timestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
