package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AldairPetronilia/trading-project-sub002/internal/models"
	"github.com/AldairPetronilia/trading-project-sub002/internal/repository"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/logging"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/metrics"
)

// maxBackfillWindow caps a single window so it never exceeds the upstream
// one-year request limit.
const maxBackfillWindow = 365 * 24 * time.Hour

// BackfillConfig configures the backfill engine
type BackfillConfig struct {
	// StartDate seeds the cursor when no progress row exists for a key
	StartDate time.Time
	// WindowSize bounds one collect-process-persist cycle
	WindowSize time.Duration
}

// WindowCollector is the slice of the collector the backfill engine drives
type WindowCollector interface {
	Collect(ctx context.Context, area string, dataType models.DataType, windowStart, windowEnd time.Time) *models.CollectionResult
}

// BackfillReport is the job status returned to the caller
type BackfillReport struct {
	JobID            string
	Area             string
	DataType         models.DataType
	Status           models.BackfillStatus
	WindowsCompleted int
	RecordsWritten   int
	Cursor           time.Time
	// RetryAfter carries a backoff hint when Status is RATE_LIMITED
	RetryAfter time.Duration
	Errors     []string
}

// BackfillService performs resumable historical catch-up. A single job
// processes its windows strictly in chronological order and persists the
// cursor only after a window's write committed, so resumption after a crash
// restarts exactly at the last committed boundary. Independent (area,
// data_type) jobs may run concurrently; the repository is the only shared
// resource.
type BackfillService struct {
	collector    WindowCollector
	processor    *Processor
	repo         repository.EnergyRepository
	progressRepo repository.BackfillProgressRepository
	config       BackfillConfig
	logger       *logging.StructuredLogger
	metrics      *metrics.Collector
}

// NewBackfillService creates a new backfill engine
func NewBackfillService(
	collector WindowCollector,
	processor *Processor,
	repo repository.EnergyRepository,
	progressRepo repository.BackfillProgressRepository,
	config BackfillConfig,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *BackfillService {
	if config.WindowSize <= 0 || config.WindowSize > maxBackfillWindow {
		config.WindowSize = 30 * 24 * time.Hour
	}
	return &BackfillService{
		collector:    collector,
		processor:    processor,
		repo:         repo,
		progressRepo: progressRepo,
		config:       config,
		logger:       logger,
		metrics:      metricsCollector,
	}
}

// Run drives one (area, data_type) backfill job up to targetEnd. The
// returned report always describes the job outcome; collection failures are
// reported in it, not raised. Cancellation takes effect only at window
// boundaries.
func (s *BackfillService) Run(ctx context.Context, area string, dataType models.DataType, targetEnd time.Time) (*BackfillReport, error) {
	jobID := uuid.NewString()
	ctx = logging.WithJobID(ctx, jobID)

	report := &BackfillReport{
		JobID:    jobID,
		Area:     area,
		DataType: dataType,
		Status:   models.BackfillPending,
		Errors:   make([]string, 0),
	}

	cursor, err := s.loadCursor(ctx, area, dataType)
	if err != nil {
		report.Status = models.BackfillFailed
		report.Errors = append(report.Errors, err.Error())
		return report, err
	}
	report.Cursor = cursor

	s.logger.Info(ctx, "[BACKFILL_START] Starting backfill job", logging.Fields{
		"area":        area,
		"data_type":   dataType,
		"cursor":      cursor,
		"target_end":  targetEnd,
		"window_size": s.config.WindowSize.String(),
	})

	if !cursor.Before(targetEnd) {
		report.Status = models.BackfillCompleted
		return report, nil
	}

	report.Status = models.BackfillRunning
	if err := s.persistCursor(ctx, area, dataType, cursor, models.BackfillRunning); err != nil {
		report.Status = models.BackfillFailed
		report.Errors = append(report.Errors, err.Error())
		return report, err
	}

	for cursor.Before(targetEnd) {
		// Cancellation is only honored here, never mid-window, so committed
		// progress stays consistent with the cursor.
		if ctx.Err() != nil {
			s.logger.Info(ctx, "[BACKFILL_CANCELLED] Job cancelled at window boundary", logging.Fields{
				"area":      area,
				"data_type": dataType,
				"cursor":    cursor,
			})
			report.Status = models.BackfillPending
			report.Cursor = cursor
			s.persistCursorBestEffort(area, dataType, cursor, models.BackfillPending)
			return report, nil
		}

		windowEnd := cursor.Add(s.config.WindowSize)
		if windowEnd.After(targetEnd) {
			windowEnd = targetEnd
		}

		done, err := s.processWindow(ctx, report, area, dataType, cursor, windowEnd)
		if err != nil || done {
			return report, err
		}

		cursor = windowEnd
		report.Cursor = cursor
		report.WindowsCompleted++
	}

	report.Status = models.BackfillCompleted
	if err := s.persistCursor(ctx, area, dataType, cursor, models.BackfillCompleted); err != nil {
		report.Status = models.BackfillFailed
		report.Errors = append(report.Errors, err.Error())
		return report, err
	}

	s.logger.Info(ctx, "[BACKFILL_COMPLETE] Backfill job completed", logging.Fields{
		"area":              area,
		"data_type":         dataType,
		"windows_completed": report.WindowsCompleted,
		"records_written":   report.RecordsWritten,
		"cursor":            cursor,
	})

	return report, nil
}

// processWindow runs one collect-process-persist cycle. It returns done=true
// when the job must stop at this window (failure or rate limit pause).
func (s *BackfillService) processWindow(ctx context.Context, report *BackfillReport, area string, dataType models.DataType, windowStart, windowEnd time.Time) (bool, error) {
	timer := time.Now()
	defer func() {
		s.metrics.BackfillWindowSeconds.Observe(time.Since(timer).Seconds())
	}()

	result := s.collector.Collect(ctx, area, dataType, windowStart, windowEnd)

	switch result.Status {
	case models.StatusRateLimited:
		// Pause the whole job without advancing the cursor; the caller can
		// reschedule after the hinted backoff.
		report.Status = models.BackfillRateLimited
		report.RetryAfter = result.RetryAfter
		s.metrics.BackfillWindowsTotal.WithLabelValues("rate_limited").Inc()
		s.persistCursorBestEffort(area, dataType, windowStart, models.BackfillRateLimited)
		s.logger.Warn(ctx, "[BACKFILL_PAUSED] Job paused on upstream rate limit", logging.Fields{
			"area":        area,
			"data_type":   dataType,
			"cursor":      windowStart,
			"retry_after": result.RetryAfter.String(),
		})
		return true, nil

	case models.StatusFailed:
		report.Status = models.BackfillFailed
		report.Errors = append(report.Errors, result.Errors...)
		s.metrics.BackfillWindowsTotal.WithLabelValues("failed").Inc()
		s.persistCursorBestEffort(area, dataType, windowStart, models.BackfillFailed)
		s.logger.Error(ctx, "[BACKFILL_WINDOW_FAILED] Window failed, job halted", logging.Fields{
			"area":         area,
			"data_type":    dataType,
			"window_start": windowStart,
			"window_end":   windowEnd,
			"errors":       result.Errors,
		}, errors.New(firstOr(result.Errors, "window collection failed")))
		return true, nil
	}

	// SUCCESS, PARTIAL_SUCCESS or NO_DATA_AVAILABLE: persist whatever was
	// collected in one all-or-nothing transaction, then advance the cursor.
	report.Errors = append(report.Errors, result.Errors...)

	records := s.processor.ToRecords(result.Points)
	if err := s.repo.UpsertRecords(ctx, records); err != nil {
		report.Status = models.BackfillFailed
		report.Errors = append(report.Errors, err.Error())
		s.metrics.BackfillWindowsTotal.WithLabelValues("write_failed").Inc()
		s.persistCursorBestEffort(area, dataType, windowStart, models.BackfillFailed)
		s.logger.Error(ctx, "[BACKFILL_WRITE_FAILED] Window write failed, job halted", logging.Fields{
			"area":         area,
			"data_type":    dataType,
			"window_start": windowStart,
			"record_count": len(records),
		}, err)
		return true, nil
	}

	if err := s.persistCursor(ctx, area, dataType, windowEnd, models.BackfillRunning); err != nil {
		report.Status = models.BackfillFailed
		report.Errors = append(report.Errors, err.Error())
		return true, err
	}

	report.RecordsWritten += len(records)
	s.metrics.BackfillRecordsTotal.Add(float64(len(records)))
	s.metrics.BackfillWindowsTotal.WithLabelValues("completed").Inc()

	s.logger.Info(ctx, "[BACKFILL_WINDOW_COMPLETE] Window committed", logging.Fields{
		"area":         area,
		"data_type":    dataType,
		"window_start": windowStart,
		"window_end":   windowEnd,
		"records":      len(records),
		"status":       result.Status,
	})

	return false, nil
}

// loadCursor reads the durable cursor, falling back to the configured start
// date when no backfill has run for this key yet.
func (s *BackfillService) loadCursor(ctx context.Context, area string, dataType models.DataType) (time.Time, error) {
	progress, err := s.progressRepo.GetProgress(ctx, area, dataType)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			return s.config.StartDate.UTC(), nil
		}
		return time.Time{}, err
	}
	return progress.LastCompletedTimestamp.UTC(), nil
}

func (s *BackfillService) persistCursor(ctx context.Context, area string, dataType models.DataType, cursor time.Time, status models.BackfillStatus) error {
	return s.progressRepo.UpsertProgress(ctx, &models.BackfillProgress{
		Area:                   area,
		DataType:               dataType,
		LastCompletedTimestamp: cursor,
		UpdatedAt:              time.Now().UTC(),
		Status:                 status,
	})
}

// persistCursorBestEffort records a terminal/paused status without letting a
// secondary write failure shadow the primary outcome. Uses a fresh context
// so the status write still lands after cancellation.
func (s *BackfillService) persistCursorBestEffort(area string, dataType models.DataType, cursor time.Time, status models.BackfillStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.persistCursor(ctx, area, dataType, cursor, status); err != nil {
		s.logger.Error(ctx, "[BACKFILL_STATUS_WRITE_FAILED] Failed to persist job status", logging.Fields{
			"area":      area,
			"data_type": dataType,
			"status":    status,
		}, err)
	}
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}
