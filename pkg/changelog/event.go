package changelog

import (
	"time"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
)

// Type discriminates the change event payload shape.
type Type string

const (
	TypePlayerAdded   Type = "player_added"
	TypePlayerDeleted Type = "player_deleted"
	TypeStatusChanged Type = "status_changed"
	TypeTiersUpdated  Type = "tiers_updated"
)

// TierChange records a single profession tier moving from one value to another.
type TierChange struct {
	Profession string `bson:"profession" json:"profession"`
	OldTier    int    `bson:"old_tier" json:"old_tier"`
	NewTier    int    `bson:"new_tier" json:"new_tier"`
}

// Details is the variant payload of an Event, one shape per Type.
type Details interface {
	eventType() Type
}

// PlayerAdded is recorded when a new player joins the roster.
type PlayerAdded struct {
	Player string
}

// PlayerDeleted is recorded when a player is removed.
type PlayerDeleted struct {
	Player string
}

// StatusChanged is recorded when a player's online flag flips.
type StatusChanged struct {
	Player string
	Online bool
}

// TiersUpdated is recorded when a committed edit changed at least one tier.
type TiersUpdated struct {
	Player  string
	Changes []TierChange
}

func (PlayerAdded) eventType() Type   { return TypePlayerAdded }
func (PlayerDeleted) eventType() Type { return TypePlayerDeleted }
func (StatusChanged) eventType() Type { return TypeStatusChanged }
func (TiersUpdated) eventType() Type  { return TypeTiersUpdated }

// Event is an immutable record of a committed mutation. Events are stored in
// the remote changes collection and read back newest-first; the Timestamp is
// the writer's clock in Unix milliseconds.
type Event struct {
	Type      Type
	User      string
	Timestamp int64
	Details   Details
}

// Record builds an Event for the given payload, stamped with the current
// time. Persisting the event is the caller's responsibility.
func Record(details Details, user string) Event {
	return Event{
		Type:      details.eventType(),
		User:      user,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// Project returns at most limit events from the front of events. The store
// delivers events already ordered by timestamp descending; no re-sort is
// performed here.
func Project(events []Event, limit int) []Event {
	if limit < 0 {
		limit = 0
	}
	if len(events) <= limit {
		return events
	}
	return events[:limit]
}

// document is the flat wire shape shared by all event types.
type document struct {
	Type      Type         `bson:"type" json:"type"`
	User      string       `bson:"user" json:"user"`
	Timestamp int64        `bson:"timestamp" json:"timestamp"`
	Player    string       `bson:"player,omitempty" json:"player,omitempty"`
	Online    *bool        `bson:"online,omitempty" json:"online,omitempty"`
	Changes   []TierChange `bson:"changes,omitempty" json:"changes,omitempty"`
}

func (e Event) document() document {
	doc := document{Type: e.Type, User: e.User, Timestamp: e.Timestamp}
	switch d := e.Details.(type) {
	case PlayerAdded:
		doc.Player = d.Player
	case PlayerDeleted:
		doc.Player = d.Player
	case StatusChanged:
		doc.Player = d.Player
		doc.Online = &d.Online
	case TiersUpdated:
		doc.Player = d.Player
		doc.Changes = d.Changes
	}
	return doc
}

func fromDocument(doc document) Event {
	e := Event{Type: doc.Type, User: doc.User, Timestamp: doc.Timestamp}
	switch doc.Type {
	case TypePlayerAdded:
		e.Details = PlayerAdded{Player: doc.Player}
	case TypePlayerDeleted:
		e.Details = PlayerDeleted{Player: doc.Player}
	case TypeStatusChanged:
		online := false
		if doc.Online != nil {
			online = *doc.Online
		}
		e.Details = StatusChanged{Player: doc.Player, Online: online}
	case TypeTiersUpdated:
		e.Details = TiersUpdated{Player: doc.Player, Changes: doc.Changes}
	default:
		// Unknown types survive decoding with a nil payload; Render
		// produces empty content for them.
	}
	return e
}

// MarshalBSON implements bson.Marshaler.
func (e Event) MarshalBSON() ([]byte, error) {
	return bson.Marshal(e.document())
}

// UnmarshalBSON implements bson.Unmarshaler.
func (e *Event) UnmarshalBSON(data []byte) error {
	var doc document
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	*e = fromDocument(doc)
	return nil
}

// MarshalJSON implements json.Marshaler for Kafka envelopes and API payloads.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.document())
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Event) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*e = fromDocument(doc)
	return nil
}
