// Package roster is the orchestration layer: the only place that touches
// both the change log and the document store, and the only place business
// rules live. The controller owns a local mirror of the remote collections
// that is replaced wholesale on every snapshot delivery; edits are
// optimistic against that point-in-time mirror, not against a lock, so two
// writers editing the same player race with last-writer-wins semantics.
package roster

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/esgarath/wardenlevel/pkg/changelog"
	"github.com/esgarath/wardenlevel/pkg/export"
	"github.com/esgarath/wardenlevel/pkg/logger"
	"github.com/esgarath/wardenlevel/pkg/metrics"
	"github.com/esgarath/wardenlevel/pkg/store"
	"github.com/esgarath/wardenlevel/pkg/tier"
)

const (
	playersCollection = "players"
	changesCollection = "changes"

	// DefaultChangeLimit is the read-side display window for recent
	// changes. Older events still exist server-side.
	DefaultChangeLimit = 20
)

// Validation rejections. These never reach the store.
var (
	ErrEmptyName         = errors.New("roster: player name must not be empty")
	ErrNotConfirmed      = errors.New("roster: deletion requires confirmation")
	ErrUnknownPlayer     = errors.New("roster: no such player")
	ErrNoActiveEdit      = errors.New("roster: no edit in progress")
	ErrUnknownProfession = errors.New("roster: unknown profession")
)

// Config carries the controller's fixed parameters.
type Config struct {
	WriterID    string
	Professions []string
	ChangeLimit int
}

type editBuffer struct {
	playerID int64
	tiers    map[string]int
}

// Controller orchestrates optimistic local edits against the document store
// and derives the filtered, sorted views consumed by presentation.
type Controller struct {
	store    store.Store
	state    *store.StateTracker
	export   export.Publisher
	logger   *logger.Logger
	writerID string

	professions []string
	changeLimit int

	mu      sync.Mutex
	players []Player
	changes []changelog.Event
	edit    *editBuffer
	coll    *collate.Collator
	unsubs  []store.Unsubscribe
}

// NewController creates a Controller. The export publisher may be nil to
// disable the Kafka audit mirror.
func NewController(s store.Store, st *store.StateTracker, pub export.Publisher, l *logger.Logger, cfg Config) *Controller {
	professions := cfg.Professions
	if len(professions) == 0 {
		professions = tier.DefaultProfessions
	}
	limit := cfg.ChangeLimit
	if limit <= 0 {
		limit = DefaultChangeLimit
	}
	return &Controller{
		store:       s,
		state:       st,
		export:      pub,
		logger:      l,
		writerID:    cfg.WriterID,
		professions: professions,
		changeLimit: limit,
		coll:        collate.New(language.Und, collate.IgnoreCase),
	}
}

// Start registers the live subscriptions. The players subscription drives
// the connection state; the changes subscription only feeds the recent
// activity view.
func (c *Controller) Start(ctx context.Context) error {
	c.state.Subscribing()

	unsubPlayers, err := c.store.SubscribeCollection(ctx, playersCollection, c.onPlayersSnapshot, c.onStreamError)
	if err != nil {
		c.state.Failed()
		return err
	}

	unsubChanges, err := c.store.SubscribeOrderedLimited(ctx, changesCollection, "timestamp", true, int64(c.changeLimit), c.onChangesSnapshot, c.onStreamError)
	if err != nil {
		unsubPlayers()
		c.state.Failed()
		return err
	}

	c.mu.Lock()
	c.unsubs = []store.Unsubscribe{unsubPlayers, unsubChanges}
	c.mu.Unlock()
	return nil
}

// Stop tears down the subscriptions. Each unsubscribe handle is invoked
// exactly once; Unsubscribe itself guards against double calls.
func (c *Controller) Stop() {
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	c.state.Disconnected()
}

func (c *Controller) onPlayersSnapshot(docs []store.Document) {
	players := make([]Player, 0, len(docs))
	for _, doc := range docs {
		p, err := decodePlayer(doc, c.professions)
		if err != nil {
			c.logger.Warn("skipping undecodable player document",
				zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		players = append(players, p)
	}

	c.mu.Lock()
	c.players = players
	c.mu.Unlock()

	c.state.SnapshotDelivered()
	metrics.TrackerSnapshotsTotal.WithLabelValues(playersCollection).Inc()
}

func (c *Controller) onChangesSnapshot(docs []store.Document) {
	events := make([]changelog.Event, 0, len(docs))
	for _, doc := range docs {
		var ev changelog.Event
		if err := bson.Unmarshal(doc.Data, &ev); err != nil {
			c.logger.Warn("skipping undecodable change event",
				zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		events = append(events, ev)
	}

	c.mu.Lock()
	c.changes = events
	c.mu.Unlock()

	metrics.TrackerSnapshotsTotal.WithLabelValues(changesCollection).Inc()
}

func (c *Controller) onStreamError(err error) {
	c.logger.Error("subscription failed, entering read-only mode", err)
	c.state.Failed()
}

// guard rejects mutating commands unless the connection is established.
func (c *Controller) guard() error {
	if !c.state.CanWrite() {
		metrics.TrackerGuardRejectionsTotal.Inc()
		return store.ErrNotConnected
	}
	return nil
}

func (c *Controller) writeFailed(msg string, err error) {
	c.logger.Error(msg, err)
	metrics.TrackerWriteErrorsTotal.Inc()
	c.state.Failed()
}

// AddPlayer creates a roster entry with every profession at tier 0 and
// online false. Empty or whitespace-only names are rejected before any
// network call.
func (c *Controller) AddPlayer(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if err := c.guard(); err != nil {
		return err
	}

	p := newPlayer(name, c.writerID, c.professions)

	c.state.WriteBegan()
	metrics.TrackerWritesTotal.WithLabelValues("append").Inc()
	if _, err := c.store.Append(ctx, playersCollection, p); err != nil {
		c.writeFailed("failed to add player", err)
		return err
	}

	if err := c.recordChange(ctx, changelog.PlayerAdded{Player: name}); err != nil {
		return err
	}
	c.state.WriteAcked()
	return nil
}

// DeletePlayer removes a player by local id. Confirmation is delegated to
// the caller; an unconfirmed call is a no-op.
func (c *Controller) DeletePlayer(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := c.guard(); err != nil {
		return err
	}

	p, ok := c.lookup(id)
	if !ok {
		return ErrUnknownPlayer
	}

	c.state.WriteBegan()
	metrics.TrackerWritesTotal.WithLabelValues("delete").Inc()
	if err := c.store.Delete(ctx, playersCollection, p.ExternalKey); err != nil {
		c.writeFailed("failed to delete player", err)
		return err
	}

	if err := c.recordChange(ctx, changelog.PlayerDeleted{Player: p.Name}); err != nil {
		return err
	}
	c.state.WriteAcked()
	return nil
}

// ToggleOnline flips a player's presence flag with a full-document replace.
func (c *Controller) ToggleOnline(ctx context.Context, id int64) error {
	if err := c.guard(); err != nil {
		return err
	}

	p, ok := c.lookup(id)
	if !ok {
		return ErrUnknownPlayer
	}

	updated := p
	updated.Online = !p.Online
	updated.Tiers = cloneTiers(p.Tiers)
	updated.LastUpdated = time.Now().UnixMilli()
	updated.UpdatedBy = c.writerID

	c.state.WriteBegan()
	metrics.TrackerWritesTotal.WithLabelValues("upsert").Inc()
	if err := c.store.Upsert(ctx, playersCollection, p.ExternalKey, updated); err != nil {
		c.writeFailed("failed to toggle online status", err)
		return err
	}

	if err := c.recordChange(ctx, changelog.StatusChanged{Player: p.Name, Online: updated.Online}); err != nil {
		return err
	}
	c.state.WriteAcked()
	return nil
}

// BeginEdit opens a local edit buffer seeded from the player's current
// tiers. It does not touch the store.
func (c *Controller) BeginEdit(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.players {
		if p.ID == id {
			c.edit = &editBuffer{playerID: id, tiers: cloneTiers(p.Tiers)}
			return nil
		}
	}
	return ErrUnknownPlayer
}

// UpdateEditBuffer clamps raw into the valid tier range and stores it in
// the buffer. Pure local mutation, no store call.
func (c *Controller) UpdateEditBuffer(profession, raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.edit == nil {
		return ErrNoActiveEdit
	}
	if !c.knownProfession(profession) {
		return ErrUnknownProfession
	}
	c.edit.tiers[profession] = tier.ClampString(raw)
	return nil
}

// CancelEdit discards the edit buffer without writing.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	c.edit = nil
	c.mu.Unlock()
}

// EditBuffer returns a copy of the open edit buffer, if any.
func (c *Controller) EditBuffer() (map[string]int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.edit == nil {
		return nil, false
	}
	return cloneTiers(c.edit.tiers), true
}

// CommitEdit diffs the edit buffer against the last known server tiers and,
// when something changed, replaces the whole player document using the
// controller's own snapshot. This deliberately overwrites concurrent
// writes to other fields: last-writer-wins, no merge, no version check.
// A failed write preserves the buffer so the user can retry manually; an
// empty diff skips the write entirely.
func (c *Controller) CommitEdit(ctx context.Context) error {
	c.mu.Lock()
	if c.edit == nil {
		c.mu.Unlock()
		return nil
	}
	if !c.state.CanWrite() {
		c.mu.Unlock()
		metrics.TrackerGuardRejectionsTotal.Inc()
		return store.ErrNotConnected
	}

	var current Player
	found := false
	for _, p := range c.players {
		if p.ID == c.edit.playerID {
			current = p
			found = true
			break
		}
	}
	if !found {
		// The player vanished under the edit, likely deleted by
		// another writer. Nothing left to write against.
		c.edit = nil
		c.mu.Unlock()
		return ErrUnknownPlayer
	}

	var diffs []changelog.TierChange
	for _, prof := range c.professions {
		oldTier := current.Tier(prof)
		newTier := c.edit.tiers[prof]
		if oldTier != newTier {
			diffs = append(diffs, changelog.TierChange{
				Profession: prof,
				OldTier:    oldTier,
				NewTier:    newTier,
			})
		}
	}
	if len(diffs) == 0 {
		// Only write when something changed: avoids the syncing
		// flicker of a no-op replace.
		c.edit = nil
		c.mu.Unlock()
		return nil
	}

	updated := current
	updated.Tiers = cloneTiers(c.edit.tiers)
	updated.LastUpdated = time.Now().UnixMilli()
	updated.UpdatedBy = c.writerID
	c.mu.Unlock()

	c.state.WriteBegan()
	metrics.TrackerWritesTotal.WithLabelValues("upsert").Inc()
	if err := c.store.Upsert(ctx, playersCollection, current.ExternalKey, updated); err != nil {
		c.writeFailed("failed to commit tier edit", err)
		return err
	}

	c.mu.Lock()
	c.edit = nil
	c.mu.Unlock()

	if err := c.recordChange(ctx, changelog.TiersUpdated{Player: current.Name, Changes: diffs}); err != nil {
		return err
	}
	c.state.WriteAcked()
	return nil
}

// recordChange persists a change event through the store and mirrors it to
// the audit topic. The Kafka leg is best-effort and never surfaces.
func (c *Controller) recordChange(ctx context.Context, details changelog.Details) error {
	ev := changelog.Record(details, c.writerID)

	metrics.TrackerWritesTotal.WithLabelValues("append").Inc()
	id, err := c.store.Append(ctx, changesCollection, ev)
	if err != nil {
		c.writeFailed("failed to record change event", err)
		return err
	}

	c.exportEvent(id, ev)
	return nil
}

func (c *Controller) exportEvent(id string, ev changelog.Event) {
	if c.export == nil {
		return
	}
	data, err := json.Marshal(export.Envelope{ID: id, Event: ev})
	if err != nil {
		c.logger.Warn("failed to serialize change event for export", zap.Error(err))
		return
	}

	results := c.export.PublishAsync(context.Background(), []byte(id), data)
	go func() {
		if res := <-results; res.Error != nil {
			metrics.TrackerExportErrorsTotal.Inc()
			c.logger.Warn("change event export failed", zap.Error(res.Error))
		}
	}()
}

// Players returns a copy of the mirrored roster, unfiltered and unsorted.
func (c *Controller) Players() []Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Player, len(c.players))
	copy(out, c.players)
	return out
}

// Changes returns the recent-changes projection, at most the configured
// display limit, in the store's newest-first order.
func (c *Controller) Changes() []changelog.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return changelog.Project(c.changes, c.changeLimit)
}

// ConnectionState reports the current client-observed connection state.
func (c *Controller) ConnectionState() store.State {
	return c.state.Current()
}

// WriterID reports this session's writer identity.
func (c *Controller) WriterID() string {
	return c.writerID
}

// Professions returns the fixed profession set in display order.
func (c *Controller) Professions() []string {
	out := make([]string, len(c.professions))
	copy(out, c.professions)
	return out
}

func (c *Controller) lookup(id int64) (Player, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

func (c *Controller) knownProfession(profession string) bool {
	for _, p := range c.professions {
		if p == profession {
			return true
		}
	}
	return false
}

func cloneTiers(tiers map[string]int) map[string]int {
	out := make(map[string]int, len(tiers))
	for k, v := range tiers {
		out[k] = v
	}
	return out
}
