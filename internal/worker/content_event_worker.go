package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/practice-backend/internal/config"
	"github.com/stemsi/practice-backend/internal/events"
	"github.com/stemsi/practice-backend/internal/metrics"
)

const (
	EventBatchSize    = 50
	EventBatchTimeout = 2 * time.Second
	EventPollTimeout  = 1 * time.Second
)

// Execer is the slice of *pgxpool.Pool the worker writes through.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ContentEventWorker drains the content events queue into content_change_log.
type ContentEventWorker struct {
	db  Execer
	rdb *redis.Client
	log zerolog.Logger
}

func NewContentEventWorker(db Execer, rdb *redis.Client, log zerolog.Logger) *ContentEventWorker {
	return &ContentEventWorker{
		db:  db,
		rdb: rdb,
		log: log.With().Str("component", "content_event_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ContentEventWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ContentEventWorker started")

	batch := make([]*events.ContentChanged, 0, EventBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= EventBatchSize || time.Since(lastFlush) >= EventBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, EventPollTimeout, config.WorkerKey.ContentEventsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var e events.ContentChanged
			if err := json.Unmarshal([]byte(item[1]), &e); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &e)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert wrapper
// ----------------------------------------------------------------

func (w *ContentEventWorker) flushSafe(ctx context.Context, batch []*events.ContentChanged) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk event insert failed, using fallback")

		for _, e := range batch {
			if err := w.persistSingle(ctx, e); err != nil {
				w.log.Error().Err(err).Str("event_id", e.EventID.String()).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(e)
				w.rdb.RPush(ctx, config.WorkerKey.ContentEventsQueue, raw)
				continue
			}
			metrics.EventsFlushed.Inc()
		}
		return
	}
	metrics.EventsFlushed.Add(float64(len(batch)))
}

// ----------------------------------------------------------------
// BULK PostgreSQL INSERT using UNNEST
// ----------------------------------------------------------------

func (w *ContentEventWorker) bulkInsert(ctx context.Context, batch []*events.ContentChanged) error {
	n := len(batch)

	eventIDs := make([]uuid.UUID, 0, n)
	kinds := make([]string, 0, n)
	actions := make([]string, 0, n)
	originals := make([]uuid.UUID, 0, n)
	nodes := make([]uuid.UUID, 0, n)
	actors := make([]uuid.UUID, 0, n)
	occurred := make([]time.Time, 0, n)

	for _, e := range batch {
		eventIDs = append(eventIDs, e.EventID)
		kinds = append(kinds, e.Kind)
		actions = append(actions, string(e.Action))
		originals = append(originals, e.OriginalID)
		nodes = append(nodes, e.NodeID)
		actors = append(actors, e.ActorID)
		occurred = append(occurred, e.OccurredAt)
	}

	query := `
		INSERT INTO content_change_log (event_id, kind, action, original_id, node_id, actor_id, occurred_at)
		SELECT * FROM UNNEST(
			$1::uuid[],
			$2::text[],
			$3::text[],
			$4::uuid[],
			$5::uuid[],
			$6::uuid[],
			$7::timestamptz[]
		)
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err := w.db.Exec(ctx, query, eventIDs, kinds, actions, originals, nodes, actors, occurred)
	return err
}

// ----------------------------------------------------------------
// FALLBACK single insert
// ----------------------------------------------------------------

func (w *ContentEventWorker) persistSingle(ctx context.Context, e *events.ContentChanged) error {
	_, err := w.db.Exec(ctx,
		`INSERT INTO content_change_log (event_id, kind, action, original_id, node_id, actor_id, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (event_id) DO NOTHING`,
		e.EventID, e.Kind, string(e.Action), e.OriginalID, e.NodeID, e.ActorID, e.OccurredAt,
	)
	return err
}
