package tier

import "strconv"

const (
	// Min is the lowest tier value; it doubles as the "unset" marker.
	Min = 0
	// Max is the highest reachable tier.
	Max = 9
)

// DefaultProfessions is the fixed profession set, in display order.
var DefaultProfessions = []string{
	"Carpentry",
	"Forestry",
	"Mining",
	"Farming",
	"Hunting",
	"Scholar",
	"Fishing",
	"Leatherworking",
	"Smithing",
	"Foraging",
	"Masonry",
	"Tailoring",
}

// Description describes how a tier value should be presented.
type Description struct {
	Label    string `json:"label"`
	Category string `json:"category"`
}

// Clamp maps any integer onto the valid tier range [Min, Max].
func Clamp(raw int) int {
	if raw < Min {
		return Min
	}
	if raw > Max {
		return Max
	}
	return raw
}

// ClampString parses raw as an integer and clamps it. Non-numeric input
// maps to Min.
func ClampString(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return Min
	}
	return Clamp(n)
}

// Describe returns the presentation for a tier value. Tier 0 maps to the
// distinguished unset category; every other tier has its own category.
// Out-of-range input is clamped first, so Describe is total.
func Describe(t int) Description {
	t = Clamp(t)
	if t == Min {
		return Description{Label: "Unset", Category: "tier-unset"}
	}
	return Description{
		Label:    "Tier " + strconv.Itoa(t),
		Category: "tier-" + strconv.Itoa(t),
	}
}
