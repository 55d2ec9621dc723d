package archiver

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/esgarath/wardenlevel/pkg/archive"
	"github.com/esgarath/wardenlevel/pkg/changelog"
	"github.com/esgarath/wardenlevel/pkg/export"
)

// ParseEnvelope deserializes a Kafka message value into an archive Record.
// The envelope id becomes the archive primary key, so redelivered messages
// land as no-ops.
func ParseEnvelope(data []byte) (archive.Record, error) {
	var env export.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return archive.Record{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	if env.ID == "" {
		return archive.Record{}, fmt.Errorf("missing envelope id")
	}
	if env.Event.Type == "" {
		return archive.Record{}, fmt.Errorf("missing event type")
	}

	record := archive.Record{
		ID:         env.ID,
		EventType:  string(env.Event.Type),
		Writer:     env.Event.User,
		OccurredAt: time.UnixMilli(env.Event.Timestamp).UTC(),
	}

	switch d := env.Event.Details.(type) {
	case changelog.PlayerAdded:
		record.Player = d.Player
	case changelog.PlayerDeleted:
		record.Player = d.Player
	case changelog.StatusChanged:
		record.Player = d.Player
		online := d.Online
		record.Online = &online
	case changelog.TiersUpdated:
		record.Player = d.Player
		changes, err := json.Marshal(d.Changes)
		if err != nil {
			return archive.Record{}, fmt.Errorf("failed to serialize tier changes: %w", err)
		}
		record.TierChanges = changes
	default:
		return archive.Record{}, fmt.Errorf("unknown event type %q", env.Event.Type)
	}

	return record, nil
}
