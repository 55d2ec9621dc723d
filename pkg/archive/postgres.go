package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/esgarath/wardenlevel/pkg/logger"
)

// copyThreshold is the batch size above which the COPY protocol beats
// per-row inserts.
const copyThreshold = 100

// PostgresWriter writes batches of archived change events.
type PostgresWriter interface {
	// WriteBatch writes a batch of records. Uses the COPY protocol for
	// large batches, per-row inserts for small ones. Change events are
	// immutable, so redelivered ids are skipped rather than updated.
	WriteBatch(ctx context.Context, records []Record) error

	// Close closes the database connection pool.
	Close() error
}

// PGWriter implements PostgresWriter using pgxpool.
type PGWriter struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// PostgresConfig holds database connection settings.
type PostgresConfig struct {
	URI      string
	MinConns int32
	MaxConns int32
}

// NewPostgresWriter creates a PGWriter and verifies the connection.
func NewPostgresWriter(ctx context.Context, cfg PostgresConfig, l *logger.Logger) (*PGWriter, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PGWriter{pool: pool, logger: l}, nil
}

// WriteBatch writes the records using the best available protocol.
func (w *PGWriter) WriteBatch(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	if len(records) >= copyThreshold {
		return w.writeBatchCopy(ctx, records)
	}
	return w.writeBatchInsert(ctx, records)
}

func (w *PGWriter) writeBatchInsert(ctx context.Context, records []Record) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO change_events (id, event_type, writer, player, online, tier_changes, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	for _, r := range records {
		tag, err := tx.Exec(ctx, query, r.ID, r.EventType, r.Writer, r.Player, r.Online, r.TierChanges, r.OccurredAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			w.logger.Debug("skipping redelivered change event", zap.String("id", r.ID))
		}
	}
	return tx.Commit(ctx)
}

func (w *PGWriter) writeBatchCopy(ctx context.Context, records []Record) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "CREATE TEMP TABLE change_events_temp (LIKE change_events) ON COMMIT DROP")
	if err != nil {
		return fmt.Errorf("failed to create temp table: %w", err)
	}

	rows := make([][]interface{}, len(records))
	for i, r := range records {
		rows[i] = []interface{}{r.ID, r.EventType, r.Writer, r.Player, r.Online, r.TierChanges, r.OccurredAt}
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"change_events_temp"},
		[]string{"id", "event_type", "writer", "player", "online", "tier_changes", "occurred_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy from failed: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO change_events SELECT * FROM change_events_temp
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("insert from temp table failed: %w", err)
	}

	return tx.Commit(ctx)
}

// Close closes the pool.
func (w *PGWriter) Close() error {
	w.pool.Close()
	return nil
}

// ShouldUseCopy is exported for testing protocol selection.
func (w *PGWriter) ShouldUseCopy(records []Record) bool {
	return len(records) >= copyThreshold
}
