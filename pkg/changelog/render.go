package changelog

import (
	"fmt"
	"strings"
)

// Render formats an event as a single human-readable line. Every known type
// has exactly one formatting rule; unknown types render as empty content.
func Render(e Event) string {
	switch d := e.Details.(type) {
	case PlayerAdded:
		return fmt.Sprintf("%s added %s", e.User, d.Player)
	case PlayerDeleted:
		return fmt.Sprintf("%s removed %s", e.User, d.Player)
	case StatusChanged:
		status := "offline"
		if d.Online {
			status = "online"
		}
		return fmt.Sprintf("%s marked %s %s", e.User, d.Player, status)
	case TiersUpdated:
		parts := make([]string, len(d.Changes))
		for i, c := range d.Changes {
			parts[i] = fmt.Sprintf("%s %d to %d", c.Profession, c.OldTier, c.NewTier)
		}
		return fmt.Sprintf("%s updated %s: %s", e.User, d.Player, strings.Join(parts, ", "))
	default:
		return ""
	}
}
