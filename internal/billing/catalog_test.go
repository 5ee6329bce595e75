package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/botctl/internal/api"
)

func intPtr(n int) *int { return &n }

func TestCatalog(t *testing.T) {
	tiers := Catalog()
	require.Len(t, tiers, 4)
	assert.Equal(t, []string{"free", "starter", "pro", "enterprise"}, Codes())

	seen := map[string]bool{}
	for _, tier := range tiers {
		assert.False(t, seen[tier.Code], "duplicate code %s", tier.Code)
		seen[tier.Code] = true
		for _, limit := range tier.Limits {
			assert.NotEmpty(t, limit)
		}
	}

	tiers[0].Name = "changed"
	assert.Equal(t, "Free", Catalog()[0].Name, "catalog must not be mutable through the returned slice")
}

func TestLookup(t *testing.T) {
	tier, ok := Lookup("pro")
	require.True(t, ok)
	assert.Equal(t, "Pro", tier.Name)

	_, ok = Lookup("platinum")
	assert.False(t, ok)
	assert.True(t, IsPlanCode("starter"))
	assert.False(t, IsPlanCode(""))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		code string
		ent  *api.Entitlements
		want [3]string
	}{
		{
			name: "catalog fallback",
			code: "starter",
			want: [3]string{"3 bots", "3 data sources", "2,000 messages/mo"},
		},
		{
			name: "entitlements override",
			code: "pro",
			ent:  &api.Entitlements{MaxBots: intPtr(50), MonthlyMessages: intPtr(100000)},
			want: [3]string{"50 bots", "10 data sources", "100,000 messages/mo"},
		},
		{
			name: "singular and unlimited",
			code: "free",
			ent:  &api.Entitlements{MaxBots: intPtr(1), MaxDataSources: intPtr(-1)},
			want: [3]string{"1 bot", "Unlimited data sources", "100 messages/mo"},
		},
		{
			name: "unknown plan",
			code: "custom",
			ent:  &api.Entitlements{MaxBots: intPtr(7)},
			want: [3]string{"7 bots", "", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.code, tt.ent).Limits)
		})
	}

	assert.Equal(t, "Custom", Describe("custom", nil).Name)
}

func TestMerge(t *testing.T) {
	assert.Equal(t, Catalog(), Merge(nil))

	tiers := Merge([]api.Plan{
		{Code: "pro", Name: "Pro (annual)", Price: "990.00", Interval: "year"},
		{Code: "starter", Price: "29.00", Entitlements: &api.Entitlements{MaxBots: intPtr(5)}},
		{Code: "enterprise"},
		{Code: "team", Name: "Team", Price: "1500", Currency: "eur"},
	})
	require.Len(t, tiers, 4)

	assert.Equal(t, "Pro (annual)", tiers[0].Name)
	assert.Equal(t, "$990/yr", tiers[0].Price)

	assert.Equal(t, "Starter", tiers[1].Name)
	assert.Equal(t, "$29/mo", tiers[1].Price)
	assert.Equal(t, "5 bots", tiers[1].Limits[0])

	assert.Equal(t, "Contact sales", tiers[2].Price, "missing price falls back to the catalog")

	assert.Equal(t, "EUR 1,500/mo", tiers[3].Price)
}
