package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AldairPetronilia/trading-project-sub002/internal/models"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/database"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/logging"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/metrics"
)

// BackfillProgressRepository provides durable storage for the backfill
// cursor, keyed by (area, data_type).
type BackfillProgressRepository interface {
	// GetProgress returns the cursor row, or NotFoundError when no backfill
	// has run for the key yet.
	GetProgress(ctx context.Context, area string, dataType models.DataType) (*models.BackfillProgress, error)
	// UpsertProgress writes the cursor row. Exactly one row exists per key;
	// writes never create duplicates.
	UpsertProgress(ctx context.Context, progress *models.BackfillProgress) error
	ListProgress(ctx context.Context) ([]*models.BackfillProgress, error)
}

// backfillProgressRepository implements BackfillProgressRepository
type backfillProgressRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewBackfillProgressRepository creates a new backfill progress repository
func NewBackfillProgressRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) BackfillProgressRepository {
	return &backfillProgressRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// GetProgress retrieves the cursor for one (area, data_type)
func (r *backfillProgressRepository) GetProgress(ctx context.Context, area string, dataType models.DataType) (*models.BackfillProgress, error) {
	query := `
		SELECT area, data_type, last_completed_timestamp, updated_at, status
		FROM backfill_progress
		WHERE area = $1 AND data_type = $2
	`

	var progress models.BackfillProgress
	err := r.db.GetContext(ctx, "get_backfill_progress", &progress, query, area, dataType)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "backfill_progress",
			ID:       fmt.Sprintf("%s:%s", area, dataType),
		}
	}

	if err != nil {
		return nil, classifyPgError("get_backfill_progress", err)
	}

	return &progress, nil
}

// UpsertProgress creates or updates the cursor row
func (r *backfillProgressRepository) UpsertProgress(ctx context.Context, progress *models.BackfillProgress) error {
	query := `
		INSERT INTO backfill_progress (area, data_type, last_completed_timestamp, updated_at, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (area, data_type) DO UPDATE SET
			last_completed_timestamp = EXCLUDED.last_completed_timestamp,
			updated_at = EXCLUDED.updated_at,
			status = EXCLUDED.status
	`

	_, err := r.db.ExecContext(ctx, "upsert_backfill_progress", query,
		progress.Area,
		progress.DataType,
		progress.LastCompletedTimestamp,
		progress.UpdatedAt,
		progress.Status,
	)
	if err != nil {
		return classifyPgError("upsert_backfill_progress", err)
	}

	r.metrics.BackfillCursorTime.WithLabelValues(progress.Area, string(progress.DataType)).
		Set(float64(progress.LastCompletedTimestamp.Unix()))

	r.logger.Debug(ctx, "[REPO_BACKFILL_CURSOR] Cursor persisted", logging.Fields{
		"area":      progress.Area,
		"data_type": progress.DataType,
		"cursor":    progress.LastCompletedTimestamp,
		"status":    progress.Status,
	})

	return nil
}

// ListProgress returns every cursor row
func (r *backfillProgressRepository) ListProgress(ctx context.Context) ([]*models.BackfillProgress, error) {
	query := `
		SELECT area, data_type, last_completed_timestamp, updated_at, status
		FROM backfill_progress
		ORDER BY area, data_type
	`

	var rows []*models.BackfillProgress
	if err := r.db.SelectContext(ctx, "list_backfill_progress", &rows, query); err != nil {
		return nil, classifyPgError("list_backfill_progress", err)
	}

	return rows, nil
}
