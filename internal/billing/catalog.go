// Package billing holds the static plan catalog shown when the backend
// does not describe its plans in full.
package billing

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/felixgeelhaar/botctl/internal/api"
)

// Tier is one entry of the plan catalog. Limits are display strings in
// the order bots, data sources, monthly messages.
type Tier struct {
	Code   string    `json:"code" yaml:"code"`
	Name   string    `json:"name" yaml:"name"`
	Price  string    `json:"price" yaml:"price"`
	Limits [3]string `json:"limits" yaml:"limits"`
}

var catalog = []Tier{
	{
		Code:   "free",
		Name:   "Free",
		Price:  "$0/mo",
		Limits: [3]string{"1 bot", "1 data source", "100 messages/mo"},
	},
	{
		Code:   "starter",
		Name:   "Starter",
		Price:  "$29/mo",
		Limits: [3]string{"3 bots", "3 data sources", "2,000 messages/mo"},
	},
	{
		Code:   "pro",
		Name:   "Pro",
		Price:  "$99/mo",
		Limits: [3]string{"25 bots", "10 data sources", "20,000 messages/mo"},
	},
	{
		Code:   "enterprise",
		Name:   "Enterprise",
		Price:  "Contact sales",
		Limits: [3]string{"Unlimited bots", "Unlimited data sources", "Unlimited messages"},
	},
}

// Catalog returns the plan tiers in display order.
func Catalog() []Tier {
	out := make([]Tier, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a tier by code.
func Lookup(code string) (Tier, bool) {
	for _, t := range catalog {
		if t.Code == code {
			return t, true
		}
	}
	return Tier{}, false
}

// Codes returns the plan codes in display order.
func Codes() []string {
	codes := make([]string, len(catalog))
	for i, t := range catalog {
		codes[i] = t.Code
	}
	return codes
}

// IsPlanCode reports whether code names a catalog tier.
func IsPlanCode(code string) bool {
	_, ok := Lookup(code)
	return ok
}

// Describe returns the tier for code with its limits replaced by the
// backend entitlements where they are known. Unknown codes yield a tier
// named after the code with empty limits.
func Describe(code string, ent *api.Entitlements) Tier {
	t, ok := Lookup(code)
	if !ok {
		t = Tier{Code: code, Name: titleCase(code)}
	}
	if ent == nil {
		return t
	}
	if ent.MaxBots != nil {
		t.Limits[0] = countLabel(*ent.MaxBots, "bot", "bots")
	}
	if ent.MaxDataSources != nil {
		t.Limits[1] = countLabel(*ent.MaxDataSources, "data source", "data sources")
	}
	if ent.MonthlyMessages != nil {
		t.Limits[2] = countLabel(*ent.MonthlyMessages, "message/mo", "messages/mo")
	}
	return t
}

// Merge combines the plans reported by the backend with the catalog. The
// backend order wins; catalog tiers fill in missing names and prices, and
// entitlements override the static limits. An empty list yields the
// catalog itself.
func Merge(plans []api.Plan) []Tier {
	if len(plans) == 0 {
		return Catalog()
	}

	out := make([]Tier, 0, len(plans))
	for _, p := range plans {
		t := Describe(p.Code, p.Entitlements)
		if p.Name != "" {
			t.Name = p.Name
		}
		if price := formatPrice(p); price != "" {
			t.Price = price
		}
		out = append(out, t)
	}
	return out
}

func formatPrice(p api.Plan) string {
	amount, ok := p.Price.Float()
	if !ok {
		return ""
	}

	symbol := "$"
	if p.Currency != "" && !strings.EqualFold(p.Currency, "usd") {
		symbol = strings.ToUpper(p.Currency) + " "
	}
	interval := "mo"
	if p.Interval == "year" || p.Interval == "yearly" {
		interval = "yr"
	}
	return fmt.Sprintf("%s%s/%s", symbol, humanize.CommafWithDigits(amount, 2), interval)
}

// countLabel renders a limit. Negative values mean unlimited.
func countLabel(n int, singular, plural string) string {
	switch {
	case n < 0:
		return "Unlimited " + strings.TrimSuffix(plural, "/mo")
	case n == 1:
		return "1 " + singular
	default:
		return humanize.Comma(int64(n)) + " " + plural
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
