package roster

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/esgarath/wardenlevel/pkg/store"
)

// FreshnessWindow is how long after its last accepted write a player counts
// as recently updated, for UI highlighting only.
const FreshnessWindow = 5000 * time.Millisecond

// Player is one roster member, mirrored from the remote players collection.
// The document body carries the local numeric id; the store key that
// addresses the document lives outside the body in ExternalKey.
type Player struct {
	ID          int64          `bson:"id" json:"id"`
	ExternalKey string         `bson:"-" json:"external_key"`
	Name        string         `bson:"name" json:"name"`
	Online      bool           `bson:"online" json:"online"`
	Tiers       map[string]int `bson:"tiers" json:"tiers"`
	LastUpdated int64          `bson:"last_updated" json:"last_updated"`
	UpdatedBy   string         `bson:"updated_by" json:"updated_by"`
}

// Tier reads a profession's tier, treating missing keys as 0.
func (p Player) Tier(profession string) int {
	return p.Tiers[profession]
}

// RecentlyUpdated reports whether the player's last write falls inside the
// freshness window at the given instant (Unix milliseconds).
func (p Player) RecentlyUpdated(nowMillis int64) bool {
	return nowMillis-p.LastUpdated <= FreshnessWindow.Milliseconds()
}

// normalizeTiers fills in an entry for every profession so the tiers map is
// never partial, and drops nothing: unknown keys already present survive.
func (p *Player) normalizeTiers(professions []string) {
	if p.Tiers == nil {
		p.Tiers = make(map[string]int, len(professions))
	}
	for _, prof := range professions {
		if _, ok := p.Tiers[prof]; !ok {
			p.Tiers[prof] = 0
		}
	}
}

// newPlayer builds a roster entry with every profession at tier 0.
func newPlayer(name, writerID string, professions []string) Player {
	now := time.Now().UnixMilli()
	p := Player{
		ID:          now,
		Name:        name,
		Online:      false,
		Tiers:       make(map[string]int, len(professions)),
		LastUpdated: now,
		UpdatedBy:   writerID,
	}
	p.normalizeTiers(professions)
	return p
}

// decodePlayer turns a snapshot document into a Player.
func decodePlayer(doc store.Document, professions []string) (Player, error) {
	var p Player
	if err := bson.Unmarshal(doc.Data, &p); err != nil {
		return Player{}, err
	}
	p.ExternalKey = doc.ID
	p.normalizeTiers(professions)
	return p, nil
}
