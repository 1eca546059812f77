package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/circle/internal/models"
)

// InsertActivities persists a batch of activity records in a single transaction.
// Records already stored (same id) are ignored so a redelivered batch is harmless.
func (p *Postgres) InsertActivities(ctx context.Context, records []models.ActivityRecord) error {
	if len(records) == 0 {
		return nil
	}
	q := `
		INSERT INTO activity_log (id, actor_id, target_id, type, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if _, err := tx.Exec(ctx, q,
				rec.ID, rec.ActorID, rec.TargetID, rec.Type, time.UnixMilli(rec.Timestamp).UTC(),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert %d activity records: %w", len(records), err)
	}
	return nil
}
