package roster

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esgarath/wardenlevel/pkg/logger"
	"github.com/esgarath/wardenlevel/pkg/store"
)

func viewController(players []Player) *Controller {
	c := NewController(nil, store.NewStateTracker(0), nil, logger.NewNop(), Config{WriterID: "user-view"})
	c.players = players
	return c
}

func TestMasterViewOrdering(t *testing.T) {
	c := viewController([]Player{
		{ID: 1, Name: "zara", Online: false},
		{ID: 2, Name: "Aria", Online: false},
		{ID: 3, Name: "bran", Online: true},
		{ID: 4, Name: "Cole", Online: true},
	})

	out := c.MasterView("", false)
	require.Len(t, out, 4)
	// Online first, then case-insensitive name ascending.
	assert.Equal(t, []string{"bran", "Cole", "Aria", "zara"}, names(out))
}

func TestMasterViewFilters(t *testing.T) {
	c := viewController([]Player{
		{ID: 1, Name: "Aria", Online: true},
		{ID: 2, Name: "Ariadne", Online: false},
		{ID: 3, Name: "Bran", Online: true},
	})

	assert.Equal(t, []string{"Aria", "Ariadne"}, names(c.MasterView("ari", false)))
	assert.Equal(t, []string{"Aria", "Bran"}, names(c.MasterView("", true)))
	assert.Equal(t, []string{"Aria"}, names(c.MasterView("ARIA", true)))
	assert.Empty(t, names(c.MasterView("nobody", false)))
}

func TestMasterViewIdempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("re-filtering a filtered view changes nothing", prop.ForAll(
		func(rawNames []string, online []bool) bool {
			players := make([]Player, 0, len(rawNames))
			for i, n := range rawNames {
				if n == "" {
					continue
				}
				players = append(players, Player{
					ID:     int64(i),
					Name:   n,
					Online: i < len(online) && online[i],
				})
			}
			c := viewController(players)

			once := c.MasterView("", false)
			c2 := viewController(once)
			twice := c2.MasterView("", false)

			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i].ID != twice[i].ID {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProfessionViewOrdering(t *testing.T) {
	c := viewController([]Player{
		{ID: 1, Name: "Aria", Online: false, Tiers: map[string]int{"Mining": 9}},
		{ID: 2, Name: "Bran", Online: true, Tiers: map[string]int{"Mining": 3}},
		{ID: 3, Name: "Cole", Online: true, Tiers: map[string]int{"Mining": 7}},
		{ID: 4, Name: "Dara", Online: true},
		{ID: 5, Name: "Erin", Online: false, Tiers: map[string]int{"Mining": 0}},
	})

	out := c.ProfessionView("Mining", false)
	// Online status dominates even a maxed tier; unset sorts last within
	// each presence group.
	assert.Equal(t, []string{"Cole", "Bran", "Dara", "Aria", "Erin"}, names(out))

	out = c.ProfessionView("Mining", true)
	assert.Equal(t, []string{"Cole", "Bran", "Dara"}, names(out))
}

func TestProfessionViewTieBreaksByName(t *testing.T) {
	c := viewController([]Player{
		{ID: 1, Name: "cole", Online: true, Tiers: map[string]int{"Fishing": 4}},
		{ID: 2, Name: "Bran", Online: true, Tiers: map[string]int{"Fishing": 4}},
	})

	assert.Equal(t, []string{"Bran", "cole"}, names(c.ProfessionView("Fishing", false)))
}

func names(players []Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.Name
	}
	return out
}
