package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/AldairPetronilia/trading-project-sub002/internal/models"
	"github.com/AldairPetronilia/trading-project-sub002/internal/repository"
)

type collectedWindow struct {
	Start time.Time
	End   time.Time
}

// scriptedCollector returns one scripted result per window, in order
type scriptedCollector struct {
	windows []collectedWindow
	script  []func(windowStart, windowEnd time.Time) *models.CollectionResult
	// onWindow runs after every collect, e.g. to cancel the job context
	onWindow func(window int)
}

func (c *scriptedCollector) Collect(ctx context.Context, area string, dataType models.DataType, windowStart, windowEnd time.Time) *models.CollectionResult {
	index := len(c.windows)
	c.windows = append(c.windows, collectedWindow{Start: windowStart, End: windowEnd})

	var result *models.CollectionResult
	if index < len(c.script) {
		result = c.script[index](windowStart, windowEnd)
	} else {
		result = successResult(area, dataType, windowStart, windowEnd, 1)
	}

	if c.onWindow != nil {
		c.onWindow(index)
	}
	return result
}

func successResult(area string, dataType models.DataType, windowStart, windowEnd time.Time, pointCount int) *models.CollectionResult {
	result := models.NewCollectionResult(SourceENTSOE, area, dataType, windowStart, windowEnd)
	points := make([]models.RawDataPoint, 0, pointCount)
	for i := 0; i < pointCount; i++ {
		points = append(points, models.RawDataPoint{
			Timestamp: windowStart.Add(time.Duration(i) * 15 * time.Minute),
			Value:     float64(100 + i),
			Unit:      "MAW",
			Source:    SourceENTSOE,
			Area:      area,
			DataType:  dataType,
			Metadata:  map[string]string{"document_id": "doc-1", "revision": "1"},
		})
	}
	result.AddPoints(points)
	return result
}

type fakeEnergyRepo struct {
	upserts   [][]*models.EnergyDataRecord
	upsertErr error
}

func (r *fakeEnergyRepo) UpsertRecords(ctx context.Context, records []*models.EnergyDataRecord) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.upserts = append(r.upserts, records)
	return nil
}

func (r *fakeEnergyRepo) GetRecords(ctx context.Context, filter repository.RecordFilter) ([]*models.EnergyDataRecord, int, error) {
	return nil, 0, nil
}

func (r *fakeEnergyRepo) HealthCheck(ctx context.Context) error { return nil }

type fakeProgressRepo struct {
	rows     map[string]*models.BackfillProgress
	statuses []models.BackfillStatus
	getErr   error
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{rows: make(map[string]*models.BackfillProgress)}
}

func progressKey(area string, dataType models.DataType) string {
	return area + "|" + string(dataType)
}

func (r *fakeProgressRepo) GetProgress(ctx context.Context, area string, dataType models.DataType) (*models.BackfillProgress, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	row, ok := r.rows[progressKey(area, dataType)]
	if !ok {
		return nil, &repository.NotFoundError{Resource: "backfill progress", ID: progressKey(area, dataType)}
	}
	copied := *row
	return &copied, nil
}

func (r *fakeProgressRepo) UpsertProgress(ctx context.Context, progress *models.BackfillProgress) error {
	copied := *progress
	r.rows[progressKey(progress.Area, progress.DataType)] = &copied
	r.statuses = append(r.statuses, progress.Status)
	return nil
}

func (r *fakeProgressRepo) ListProgress(ctx context.Context) ([]*models.BackfillProgress, error) {
	out := make([]*models.BackfillProgress, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	return out, nil
}

var backfillStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newBackfill(collector WindowCollector, repo repository.EnergyRepository, progress repository.BackfillProgressRepository, windowSize time.Duration) *BackfillService {
	logger := testLogger()
	return NewBackfillService(collector, NewProcessor(logger), repo, progress, BackfillConfig{
		StartDate:  backfillStart,
		WindowSize: windowSize,
	}, logger, testMetrics)
}

func TestBackfillFreshRunCompletes(t *testing.T) {
	collector := &scriptedCollector{}
	repo := &fakeEnergyRepo{}
	progress := newFakeProgressRepo()

	service := newBackfill(collector, repo, progress, 10*24*time.Hour)
	targetEnd := backfillStart.Add(30 * 24 * time.Hour)

	report, err := service.Run(context.Background(), "DE", models.DataTypeLoad, targetEnd)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Status != models.BackfillCompleted {
		t.Errorf("Status = %v, want %v", report.Status, models.BackfillCompleted)
	}
	if report.WindowsCompleted != 3 {
		t.Errorf("WindowsCompleted = %d, want 3", report.WindowsCompleted)
	}
	if !report.Cursor.Equal(targetEnd) {
		t.Errorf("Cursor = %v, want %v", report.Cursor, targetEnd)
	}
	if report.JobID == "" {
		t.Error("report should carry a job ID")
	}

	// Windows must tile [start, targetEnd) without gaps or overlap
	wantWindows := []collectedWindow{
		{Start: backfillStart, End: backfillStart.Add(10 * 24 * time.Hour)},
		{Start: backfillStart.Add(10 * 24 * time.Hour), End: backfillStart.Add(20 * 24 * time.Hour)},
		{Start: backfillStart.Add(20 * 24 * time.Hour), End: targetEnd},
	}
	if len(collector.windows) != len(wantWindows) {
		t.Fatalf("collected %d windows, want %d", len(collector.windows), len(wantWindows))
	}
	for i, window := range collector.windows {
		if !window.Start.Equal(wantWindows[i].Start) || !window.End.Equal(wantWindows[i].End) {
			t.Errorf("window[%d] = %v..%v, want %v..%v", i, window.Start, window.End, wantWindows[i].Start, wantWindows[i].End)
		}
	}

	if len(repo.upserts) != 3 {
		t.Errorf("upsert batches = %d, want one per window", len(repo.upserts))
	}

	row := progress.rows[progressKey("DE", models.DataTypeLoad)]
	if row == nil {
		t.Fatal("cursor row should be persisted")
	}
	if row.Status != models.BackfillCompleted {
		t.Errorf("persisted status = %v, want %v", row.Status, models.BackfillCompleted)
	}
	if !row.LastCompletedTimestamp.Equal(targetEnd) {
		t.Errorf("persisted cursor = %v, want %v", row.LastCompletedTimestamp, targetEnd)
	}
}

func TestBackfillShortFinalWindow(t *testing.T) {
	collector := &scriptedCollector{}
	service := newBackfill(collector, &fakeEnergyRepo{}, newFakeProgressRepo(), 10*24*time.Hour)

	// 25 days: two full windows plus one 5-day remainder
	targetEnd := backfillStart.Add(25 * 24 * time.Hour)

	report, err := service.Run(context.Background(), "DE", models.DataTypeLoad, targetEnd)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.WindowsCompleted != 3 {
		t.Errorf("WindowsCompleted = %d, want 3", report.WindowsCompleted)
	}
	last := collector.windows[len(collector.windows)-1]
	if !last.End.Equal(targetEnd) {
		t.Errorf("final window end = %v, want clamped to %v", last.End, targetEnd)
	}
}

func TestBackfillResumesFromPersistedCursor(t *testing.T) {
	collector := &scriptedCollector{}
	progress := newFakeProgressRepo()

	cursor := backfillStart.Add(20 * 24 * time.Hour)
	progress.rows[progressKey("DE", models.DataTypeLoad)] = &models.BackfillProgress{
		Area:                   "DE",
		DataType:               models.DataTypeLoad,
		LastCompletedTimestamp: cursor,
		Status:                 models.BackfillRunning,
	}

	service := newBackfill(collector, &fakeEnergyRepo{}, progress, 10*24*time.Hour)
	targetEnd := backfillStart.Add(30 * 24 * time.Hour)

	report, err := service.Run(context.Background(), "DE", models.DataTypeLoad, targetEnd)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Status != models.BackfillCompleted {
		t.Errorf("Status = %v, want %v", report.Status, models.BackfillCompleted)
	}
	if len(collector.windows) != 1 {
		t.Fatalf("collected %d windows, want 1 (resume skips committed ones)", len(collector.windows))
	}
	if !collector.windows[0].Start.Equal(cursor) {
		t.Errorf("resumed window start = %v, want exactly the persisted cursor %v", collector.windows[0].Start, cursor)
	}
}

func TestBackfillAlreadyComplete(t *testing.T) {
	collector := &scriptedCollector{}
	progress := newFakeProgressRepo()

	targetEnd := backfillStart.Add(30 * 24 * time.Hour)
	progress.rows[progressKey("DE", models.DataTypeLoad)] = &models.BackfillProgress{
		Area:                   "DE",
		DataType:               models.DataTypeLoad,
		LastCompletedTimestamp: targetEnd,
		Status:                 models.BackfillCompleted,
	}

	service := newBackfill(collector, &fakeEnergyRepo{}, progress, 10*24*time.Hour)

	report, err := service.Run(context.Background(), "DE", models.DataTypeLoad, targetEnd)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Status != models.BackfillCompleted {
		t.Errorf("Status = %v, want %v", report.Status, models.BackfillCompleted)
	}
	if len(collector.windows) != 0 {
		t.Errorf("collected %d windows, want 0", len(collector.windows))
	}
}

func TestBackfillRateLimitPausesWithoutAdvancing(t *testing.T) {
	collector := &scriptedCollector{
		script: []func(time.Time, time.Time) *models.CollectionResult{
			func(start, end time.Time) *models.CollectionResult {
				return successResult("DE", models.DataTypeLoad, start, end, 2)
			},
			func(start, end time.Time) *models.CollectionResult {
				result := models.NewCollectionResult(SourceENTSOE, "DE", models.DataTypeLoad, start, end)
				result.SetStatus(models.StatusRateLimited)
				result.RetryAfter = 2 * time.Minute
				return result
			},
		},
	}
	progress := newFakeProgressRepo()

	service := newBackfill(collector, &fakeEnergyRepo{}, progress, 10*24*time.Hour)
	targetEnd := backfillStart.Add(30 * 24 * time.Hour)

	report, err := service.Run(context.Background(), "DE", models.DataTypeLoad, targetEnd)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Status != models.BackfillRateLimited {
		t.Errorf("Status = %v, want %v", report.Status, models.BackfillRateLimited)
	}
	if report.RetryAfter != 2*time.Minute {
		t.Errorf("RetryAfter = %v, want 2m", report.RetryAfter)
	}
	if report.WindowsCompleted != 1 {
		t.Errorf("WindowsCompleted = %d, want 1", report.WindowsCompleted)
	}

	// Cursor stays at the end of the last committed window
	row := progress.rows[progressKey("DE", models.DataTypeLoad)]
	wantCursor := backfillStart.Add(10 * 24 * time.Hour)
	if !row.LastCompletedTimestamp.Equal(wantCursor) {
		t.Errorf("persisted cursor = %v, want %v", row.LastCompletedTimestamp, wantCursor)
	}
	if row.Status != models.BackfillRateLimited {
		t.Errorf("persisted status = %v, want %v", row.Status, models.BackfillRateLimited)
	}
}

func TestBackfillWindowFailureHalts(t *testing.T) {
	collector := &scriptedCollector{
		script: []func(time.Time, time.Time) *models.CollectionResult{
			func(start, end time.Time) *models.CollectionResult {
				return successResult("DE", models.DataTypeLoad, start, end, 1)
			},
			func(start, end time.Time) *models.CollectionResult {
				result := models.NewCollectionResult(SourceENTSOE, "DE", models.DataTypeLoad, start, end)
				result.SetStatus(models.StatusFailed)
				result.RecordError("upstream rejected the request")
				return result
			},
		},
	}
	progress := newFakeProgressRepo()

	service := newBackfill(collector, &fakeEnergyRepo{}, progress, 10*24*time.Hour)
	targetEnd := backfillStart.Add(30 * 24 * time.Hour)

	report, err := service.Run(context.Background(), "DE", models.DataTypeLoad, targetEnd)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Status != models.BackfillFailed {
		t.Errorf("Status = %v, want %v", report.Status, models.BackfillFailed)
	}
	if len(collector.windows) != 2 {
		t.Errorf("collected %d windows, want 2 (halt on failure)", len(collector.windows))
	}
	if len(report.Errors) == 0 {
		t.Error("report should carry the window errors")
	}

	row := progress.rows[progressKey("DE", models.DataTypeLoad)]
	wantCursor := backfillStart.Add(10 * 24 * time.Hour)
	if !row.LastCompletedTimestamp.Equal(wantCursor) {
		t.Errorf("persisted cursor = %v, must not advance past the committed window", row.LastCompletedTimestamp)
	}
}

func TestBackfillWriteFailureHalts(t *testing.T) {
	collector := &scriptedCollector{}
	repo := &fakeEnergyRepo{upsertErr: fmt.Errorf("connection reset")}
	progress := newFakeProgressRepo()

	service := newBackfill(collector, repo, progress, 10*24*time.Hour)
	targetEnd := backfillStart.Add(30 * 24 * time.Hour)

	report, err := service.Run(context.Background(), "DE", models.DataTypeLoad, targetEnd)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Status != models.BackfillFailed {
		t.Errorf("Status = %v, want %v", report.Status, models.BackfillFailed)
	}
	if report.WindowsCompleted != 0 {
		t.Errorf("WindowsCompleted = %d, want 0", report.WindowsCompleted)
	}
	if report.RecordsWritten != 0 {
		t.Errorf("RecordsWritten = %d, want 0", report.RecordsWritten)
	}
}

func TestBackfillCancellationAtWindowBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	collector := &scriptedCollector{
		onWindow: func(window int) {
			if window == 0 {
				cancel()
			}
		},
	}
	progress := newFakeProgressRepo()

	service := newBackfill(collector, &fakeEnergyRepo{}, progress, 10*24*time.Hour)
	targetEnd := backfillStart.Add(30 * 24 * time.Hour)

	report, err := service.Run(ctx, "DE", models.DataTypeLoad, targetEnd)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Status != models.BackfillPending {
		t.Errorf("Status = %v, want %v", report.Status, models.BackfillPending)
	}
	// The in-flight window finishes and commits; only then is the job parked
	if report.WindowsCompleted != 1 {
		t.Errorf("WindowsCompleted = %d, want 1", report.WindowsCompleted)
	}
	if len(collector.windows) != 1 {
		t.Errorf("collected %d windows, want 1", len(collector.windows))
	}

	row := progress.rows[progressKey("DE", models.DataTypeLoad)]
	wantCursor := backfillStart.Add(10 * 24 * time.Hour)
	if !row.LastCompletedTimestamp.Equal(wantCursor) {
		t.Errorf("persisted cursor = %v, want %v", row.LastCompletedTimestamp, wantCursor)
	}
	if row.Status != models.BackfillPending {
		t.Errorf("persisted status = %v, want %v", row.Status, models.BackfillPending)
	}
}

func TestBackfillProgressReadFailure(t *testing.T) {
	progress := newFakeProgressRepo()
	progress.getErr = errors.New("db down")

	service := newBackfill(&scriptedCollector{}, &fakeEnergyRepo{}, progress, 10*24*time.Hour)

	report, err := service.Run(context.Background(), "DE", models.DataTypeLoad, backfillStart.Add(24*time.Hour))
	if err == nil {
		t.Fatal("Run() should surface cursor read failures")
	}
	if report.Status != models.BackfillFailed {
		t.Errorf("Status = %v, want %v", report.Status, models.BackfillFailed)
	}
}

func TestBackfillDefaultWindowSize(t *testing.T) {
	service := newBackfill(&scriptedCollector{}, &fakeEnergyRepo{}, newFakeProgressRepo(), 0)

	if service.config.WindowSize != 30*24*time.Hour {
		t.Errorf("WindowSize = %v, want 30d default", service.config.WindowSize)
	}

	oversized := newBackfill(&scriptedCollector{}, &fakeEnergyRepo{}, newFakeProgressRepo(), 400*24*time.Hour)
	if oversized.config.WindowSize != 30*24*time.Hour {
		t.Errorf("oversized WindowSize = %v, want clamped to 30d default", oversized.config.WindowSize)
	}
}
