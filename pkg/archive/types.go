package archive

import "time"

// Record is one change event flattened for long-term storage in PostgreSQL.
// ID is the store-assigned change document key, which makes archive writes
// idempotent under Kafka redelivery.
type Record struct {
	ID          string    `db:"id"`
	EventType   string    `db:"event_type"`
	Writer      string    `db:"writer"`
	Player      string    `db:"player"`
	Online      *bool     `db:"online"`
	TierChanges []byte    `db:"tier_changes"`
	OccurredAt  time.Time `db:"occurred_at"`
}
