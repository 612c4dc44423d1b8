package policy_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Traslados-api/internal/domain/policy"
)

func pct(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func loc(id int64) *int64 { return &id }

func TestResolve_Precedence(t *testing.T) {
	rules := []policy.Rule{
		{ID: 1, Percent: pct("2")},
		{ID: 2, LocationID: loc(10), Percent: pct("3")},
		{ID: 3, CategoryID: "frozen", Percent: pct("1")},
		{ID: 4, LocationID: loc(10), CategoryID: "frozen", Percent: pct("0.5")},
	}
	cases := []struct {
		name string
		q    policy.Query
		want int64
	}{
		{"categoría y ubicación", policy.Query{LocationID: 10, CategoryID: "frozen"}, 4},
		{"solo categoría", policy.Query{LocationID: 11, CategoryID: "frozen"}, 3},
		{"solo ubicación", policy.Query{LocationID: 10, CategoryID: "dry"}, 2},
		{"por defecto", policy.Query{LocationID: 99}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, ok := policy.Resolve(rules, tc.q)
			require.True(t, ok)
			assert.Equal(t, tc.want, r.ID)
		})
	}
}

func TestStaticProvider_NoDefault(t *testing.T) {
	p := policy.NewStaticProvider(nil, map[int64]decimal.Decimal{5: pct("4")}, nil)
	_, found, err := p.Tolerance(context.Background(), policy.Query{LocationID: 6})
	require.NoError(t, err)
	assert.False(t, found)

	v, found, err := p.Tolerance(context.Background(), policy.Query{LocationID: 5})
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, pct("4").Equal(v))
}

func TestParseOverrides(t *testing.T) {
	byLoc, err := policy.ParseLocationOverrides(" 12:2.5, 14:1 ")
	require.NoError(t, err)
	assert.True(t, pct("2.5").Equal(byLoc[12]))
	assert.True(t, pct("1").Equal(byLoc[14]))

	byCat, err := policy.ParseCategoryOverrides("frozen:1")
	require.NoError(t, err)
	assert.True(t, pct("1").Equal(byCat["frozen"]))

	_, err = policy.ParseLocationOverrides("x:1")
	assert.Error(t, err)
	_, err = policy.ParseCategoryOverrides("frozen:-1")
	assert.Error(t, err)
	_, err = policy.ParseCategoryOverrides("frozen")
	assert.Error(t, err)

	empty, err := policy.ParseLocationOverrides("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
