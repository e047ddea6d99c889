package models

import (
	"testing"
	"time"
)

func newResult() *CollectionResult {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return NewCollectionResult("entsoe", "DE", DataTypeLoad, start, start.Add(24*time.Hour))
}

func TestCollectionResultStartsHealthy(t *testing.T) {
	result := newResult()

	if result.Status != StatusSuccess {
		t.Errorf("initial Status = %v, want %v", result.Status, StatusSuccess)
	}
	if len(result.Points) != 0 || len(result.Errors) != 0 || len(result.Warnings) != 0 {
		t.Error("new result should start empty")
	}
}

func TestRecordErrorDowngradesSuccess(t *testing.T) {
	result := newResult()

	result.RecordError("series 3 malformed")

	if result.Status != StatusPartialSuccess {
		t.Errorf("Status = %v, want %v", result.Status, StatusPartialSuccess)
	}
	if len(result.Errors) != 1 {
		t.Errorf("len(Errors) = %d, want 1", len(result.Errors))
	}
}

func TestRecordErrorDoesNotDowngradeWorseStatus(t *testing.T) {
	result := newResult()

	result.SetStatus(StatusFailed)
	result.RecordError("fetch failed")

	if result.Status != StatusFailed {
		t.Errorf("Status = %v, want %v", result.Status, StatusFailed)
	}
}

func TestRecordWarningKeepsStatus(t *testing.T) {
	result := newResult()

	result.RecordWarning("empty window")

	if result.Status != StatusSuccess {
		t.Errorf("Status = %v, want %v", result.Status, StatusSuccess)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("len(Warnings) = %d, want 1", len(result.Warnings))
	}
}

func TestSetStatusTransitions(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*CollectionResult)
		transition CollectionStatus
		want       CollectionStatus
	}{
		{
			name:       "success to no data",
			setup:      func(r *CollectionResult) {},
			transition: StatusNoDataAvailable,
			want:       StatusNoDataAvailable,
		},
		{
			name:       "success to failed",
			setup:      func(r *CollectionResult) {},
			transition: StatusFailed,
			want:       StatusFailed,
		},
		{
			name: "healthier transition allowed while clean",
			setup: func(r *CollectionResult) {
				r.SetStatus(StatusNoDataAvailable)
			},
			transition: StatusSuccess,
			want:       StatusSuccess,
		},
		{
			name: "healthier transition blocked once errors exist",
			setup: func(r *CollectionResult) {
				r.RecordError("broken series")
			},
			transition: StatusSuccess,
			want:       StatusPartialSuccess,
		},
		{
			name: "failed never reverts",
			setup: func(r *CollectionResult) {
				r.SetStatus(StatusFailed)
			},
			transition: StatusSuccess,
			want:       StatusFailed,
		},
		{
			name: "failed does not revert to partial",
			setup: func(r *CollectionResult) {
				r.SetStatus(StatusFailed)
			},
			transition: StatusPartialSuccess,
			want:       StatusFailed,
		},
		{
			name: "rate limited escalates to failed",
			setup: func(r *CollectionResult) {
				r.SetStatus(StatusRateLimited)
			},
			transition: StatusFailed,
			want:       StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := newResult()
			tt.setup(result)

			result.SetStatus(tt.transition)

			if result.Status != tt.want {
				t.Errorf("Status = %v, want %v", result.Status, tt.want)
			}
		})
	}
}

func TestAddPoints(t *testing.T) {
	result := newResult()

	points := []RawDataPoint{
		{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: 100},
		{Timestamp: time.Date(2024, 1, 1, 0, 15, 0, 0, time.UTC), Value: 110},
	}
	result.AddPoints(points)
	result.AddPoints(points[:1])

	if len(result.Points) != 3 {
		t.Errorf("len(Points) = %d, want 3", len(result.Points))
	}
}

func TestFinalizeStampsDuration(t *testing.T) {
	result := newResult()

	result.Finalize()

	if result.CollectionTime < 0 {
		t.Errorf("CollectionTime = %v, want non-negative", result.CollectionTime)
	}
}
