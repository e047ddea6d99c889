package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/AldairPetronilia/trading-project-sub002/internal/models"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/database"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/logging"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/metrics"
)

// EnergyRepository provides data access for canonical energy records
type EnergyRepository interface {
	// UpsertRecords writes a batch of canonical records in one transaction.
	// The write is all-or-nothing and idempotent on the natural key
	// (area, data_type, business_type, ts, document_id).
	UpsertRecords(ctx context.Context, records []*models.EnergyDataRecord) error
	GetRecords(ctx context.Context, filter RecordFilter) ([]*models.EnergyDataRecord, int, error)
	HealthCheck(ctx context.Context) error
}

// RecordFilter defines filters for querying canonical records
type RecordFilter struct {
	Area      *string
	DataType  *models.DataType
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// energyRepository implements EnergyRepository
type energyRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewEnergyRepository creates a new energy data repository
func NewEnergyRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) EnergyRepository {
	return &energyRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const upsertRecordQuery = `
	INSERT INTO energy_data (
		ts, area, data_type, business_type,
		quantity, unit, source, resolution, curve_type,
		document_id, revision, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (area, data_type, business_type, ts, document_id) DO UPDATE SET
		quantity = EXCLUDED.quantity,
		unit = EXCLUDED.unit,
		source = EXCLUDED.source,
		resolution = EXCLUDED.resolution,
		curve_type = EXCLUDED.curve_type,
		revision = EXCLUDED.revision
`

// UpsertRecords writes a batch of records in a single transaction
func (r *energyRepository) UpsertRecords(ctx context.Context, records []*models.EnergyDataRecord) error {
	if len(records) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		r.logger.Debug(ctx, "[REPO_UPSERT_BATCH] Batch upsert completed", logging.Fields{
			"count":       len(records),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return classifyPgError("upsert_records", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertRecordQuery)
	if err != nil {
		return classifyPgError("upsert_records", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.Timestamp,
			rec.Area,
			rec.DataType,
			rec.BusinessType,
			rec.Quantity,
			rec.Unit,
			rec.Source,
			rec.Resolution,
			rec.CurveType,
			rec.DocumentID,
			rec.Revision,
			rec.CreatedAt,
		)
		if err != nil {
			return classifyPgError("upsert_records", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classifyPgError("upsert_records_commit", err)
	}

	return nil
}

// GetRecords retrieves canonical records with filtering and pagination
func (r *energyRepository) GetRecords(ctx context.Context, filter RecordFilter) ([]*models.EnergyDataRecord, int, error) {
	query := `
		SELECT id, ts, area, data_type, business_type,
		       quantity, unit, source, resolution, curve_type,
		       document_id, revision, created_at
		FROM energy_data
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.Area != nil {
		query += fmt.Sprintf(" AND area = $%d", argNum)
		args = append(args, *filter.Area)
		argNum++
	}

	if filter.DataType != nil {
		query += fmt.Sprintf(" AND data_type = $%d", argNum)
		args = append(args, *filter.DataType)
		argNum++
	}

	if filter.StartTime != nil {
		query += fmt.Sprintf(" AND ts >= $%d", argNum)
		args = append(args, *filter.StartTime)
		argNum++
	}

	if filter.EndTime != nil {
		query += fmt.Sprintf(" AND ts < $%d", argNum)
		args = append(args, *filter.EndTime)
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	err := r.db.GetContext(ctx, "count_records", &totalCount, countQuery, args...)
	if err != nil {
		return nil, 0, classifyPgError("count_records", err)
	}

	query += " ORDER BY ts, area, business_type"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var records []*models.EnergyDataRecord
	err = r.db.SelectContext(ctx, "get_records", &records, query, args...)
	if err != nil {
		return nil, 0, classifyPgError("get_records", err)
	}

	return records, totalCount, nil
}

// HealthCheck performs a repository health check
func (r *energyRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// classifyPgError maps driver errors into the repository error taxonomy.
// Serialization failures and deadlocks become ConcurrencyError so callers
// can retry the losing transaction.
func classifyPgError(op string, err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "40001", "40P01":
			return &ConcurrencyError{Op: op, Err: err}
		}
	}
	return &RepositoryError{Op: op, Err: err}
}
