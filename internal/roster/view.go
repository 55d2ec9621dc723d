package roster

import (
	"sort"
	"strings"
)

// MasterView returns all players, optionally filtered by case-insensitive
// substring match on name and by online status, sorted online-first with
// locale-aware name ascending as the secondary key.
func (c *Controller) MasterView(search string, onlineOnly bool) []Player {
	c.mu.Lock()
	defer c.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]Player, 0, len(c.players))
	for _, p := range c.players {
		if onlineOnly && !p.Online {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Online != out[j].Online {
			return out[i].Online
		}
		return c.coll.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}

// ProfessionView returns players ranked for one profession: online status
// dominates all other ordering, then the selected tier descending (unset
// sorts last), then name ascending. Text search does not apply here; the
// profession view is not searchable.
func (c *Controller) ProfessionView(profession string, onlineOnly bool) []Player {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Player, 0, len(c.players))
	for _, p := range c.players {
		if onlineOnly && !p.Online {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Online != out[j].Online {
			return out[i].Online
		}
		ti, tj := out[i].Tier(profession), out[j].Tier(profession)
		if ti != tj {
			return ti > tj
		}
		return c.coll.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}
