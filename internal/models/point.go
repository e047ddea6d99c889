package models

import (
	"time"
)

// DataType names a collected dataset for one area
type DataType string

const (
	DataTypeLoad          DataType = "load"
	DataTypeGeneration    DataType = "generation"
	DataTypeDayAheadPrice DataType = "day_ahead_price"
)

// RawDataPoint is a single normalized measurement produced by the processor
// from a parsed time series. Immutable after creation.
type RawDataPoint struct {
	Timestamp time.Time
	Value     float64
	Unit      string
	Source    string
	Area      string
	DataType  DataType
	Quality   string
	Metadata  map[string]string
}

// EnergyDataRecord is the canonical persisted record. The natural key
// (area, data_type, business_type, timestamp, document_id) is idempotent
// under repeated writes.
type EnergyDataRecord struct {
	ID           int64     `json:"id" db:"id"`
	Timestamp    time.Time `json:"timestamp" db:"ts"`
	Area         string    `json:"area" db:"area"`
	DataType     DataType  `json:"data_type" db:"data_type"`
	BusinessType string    `json:"business_type" db:"business_type"`
	Quantity     float64   `json:"quantity" db:"quantity"`
	Unit         string    `json:"unit" db:"unit"`
	Source       string    `json:"source" db:"source"`
	Resolution   string    `json:"resolution" db:"resolution"`
	CurveType    string    `json:"curve_type" db:"curve_type"`
	DocumentID   string    `json:"document_id" db:"document_id"`
	Revision     int       `json:"revision" db:"revision"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// BackfillStatus is the durable state of a backfill job
type BackfillStatus string

const (
	BackfillPending     BackfillStatus = "PENDING"
	BackfillRunning     BackfillStatus = "RUNNING"
	BackfillCompleted   BackfillStatus = "COMPLETED"
	BackfillFailed      BackfillStatus = "FAILED"
	BackfillRateLimited BackfillStatus = "RATE_LIMITED"
)

// BackfillProgress is the durable cursor for one (area, data_type) backfill.
// Exactly one row exists per key; writes are upserts, never duplicate
// inserts.
type BackfillProgress struct {
	Area                   string         `json:"area" db:"area"`
	DataType               DataType       `json:"data_type" db:"data_type"`
	LastCompletedTimestamp time.Time      `json:"last_completed_timestamp" db:"last_completed_timestamp"`
	UpdatedAt              time.Time      `json:"updated_at" db:"updated_at"`
	Status                 BackfillStatus `json:"status" db:"status"`
}

// CollectionStatus is the outcome of one collection call
type CollectionStatus string

const (
	StatusSuccess         CollectionStatus = "SUCCESS"
	StatusPartialSuccess  CollectionStatus = "PARTIAL_SUCCESS"
	StatusFailed          CollectionStatus = "FAILED"
	StatusRateLimited     CollectionStatus = "RATE_LIMITED"
	StatusNoDataAvailable CollectionStatus = "NO_DATA_AVAILABLE"
)

// severity orders statuses from healthiest to worst; once errors exist the
// status never silently reverts to a healthier value.
var statusSeverity = map[CollectionStatus]int{
	StatusSuccess:         0,
	StatusNoDataAvailable: 1,
	StatusPartialSuccess:  2,
	StatusRateLimited:     3,
	StatusFailed:          4,
}

// CollectionResult accumulates the outcome of one collection call. It is
// single-use: append points, errors and warnings, then finalize.
type CollectionResult struct {
	Source         string
	Area           string
	DataType       DataType
	Status         CollectionStatus
	Points         []RawDataPoint
	Errors         []string
	Warnings       []string
	WindowStart    time.Time
	WindowEnd      time.Time
	CollectedAt    time.Time
	CollectionTime time.Duration
	// RetryAfter carries a backoff hint when Status is RATE_LIMITED
	RetryAfter time.Duration
	Metadata   map[string]string

	started time.Time
}

// NewCollectionResult starts a result for one area/window
func NewCollectionResult(source, area string, dataType DataType, windowStart, windowEnd time.Time) *CollectionResult {
	now := time.Now().UTC()
	return &CollectionResult{
		Source:      source,
		Area:        area,
		DataType:    dataType,
		Status:      StatusSuccess,
		Points:      make([]RawDataPoint, 0),
		Errors:      make([]string, 0),
		Warnings:    make([]string, 0),
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		CollectedAt: now,
		Metadata:    make(map[string]string),
		started:     now,
	}
}

// AddPoints appends collected points
func (r *CollectionResult) AddPoints(points []RawDataPoint) {
	r.Points = append(r.Points, points...)
}

// RecordError appends an error. Recording an error while the status is
// SUCCESS downgrades it to PARTIAL_SUCCESS automatically.
func (r *CollectionResult) RecordError(msg string) {
	r.Errors = append(r.Errors, msg)
	if r.Status == StatusSuccess {
		r.Status = StatusPartialSuccess
	}
}

// RecordWarning appends a warning without affecting the status
func (r *CollectionResult) RecordWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// SetStatus transitions the result status. A transition to a healthier
// status is ignored once errors exist, and FAILED is never downgraded.
func (r *CollectionResult) SetStatus(status CollectionStatus) {
	if statusSeverity[status] >= statusSeverity[r.Status] {
		r.Status = status
		return
	}
	if len(r.Errors) == 0 && r.Status != StatusFailed {
		r.Status = status
	}
}

// Finalize stamps the collection duration
func (r *CollectionResult) Finalize() {
	r.CollectionTime = time.Since(r.started)
}
