package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AldairPetronilia/trading-project-sub002/internal/entsoe"
	"github.com/AldairPetronilia/trading-project-sub002/internal/models"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/logging"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/metrics"
)

// DocumentFetcher is the slice of the API client the collector depends on
type DocumentFetcher interface {
	Fetch(ctx context.Context, params entsoe.RequestParams) (entsoe.Document, error)
}

// queryFamily maps a data type to the document/process codes its query uses
type queryFamily struct {
	DocumentType string
	ProcessType  string
	// TwoDomains is set for query families that send identical in/out
	// domain identifiers (price queries).
	TwoDomains bool
}

var queryFamilies = map[models.DataType]queryFamily{
	models.DataTypeLoad:          {DocumentType: "A65", ProcessType: "A16"},
	models.DataTypeGeneration:    {DocumentType: "A75", ProcessType: "A16"},
	models.DataTypeDayAheadPrice: {DocumentType: "A44", ProcessType: "A01", TwoDomains: true},
}

// CollectorService invokes the API client per area/window and converts parsed
// documents into raw points. It always reports its outcome as a
// CollectionResult; transport failures are mapped into the result status,
// never raised to the caller.
type CollectorService struct {
	client    DocumentFetcher
	processor *Processor
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
	// rateLimitBackoff is the pause hint reported when the upstream rate
	// limit is exhausted and no Retry-After header was provided
	rateLimitBackoff time.Duration
}

// NewCollectorService creates a new collector service
func NewCollectorService(
	client DocumentFetcher,
	processor *Processor,
	rateLimitBackoff time.Duration,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *CollectorService {
	return &CollectorService{
		client:           client,
		processor:        processor,
		rateLimitBackoff: rateLimitBackoff,
		logger:           logger,
		metrics:          metricsCollector,
	}
}

// Collect fetches and normalizes one area/window
func (s *CollectorService) Collect(ctx context.Context, areaCode string, dataType models.DataType, windowStart, windowEnd time.Time) *models.CollectionResult {
	result := models.NewCollectionResult(SourceENTSOE, areaCode, dataType, windowStart, windowEnd)
	defer func() {
		result.Finalize()
		s.metrics.CollectionDuration.Observe(result.CollectionTime.Seconds())
		s.metrics.CollectionResultsTotal.WithLabelValues(areaCode, string(dataType), string(result.Status)).Inc()
	}()

	s.logger.Info(ctx, "[COLLECT_START] Starting collection", logging.Fields{
		"area":         areaCode,
		"data_type":    dataType,
		"window_start": windowStart,
		"window_end":   windowEnd,
	})

	family, ok := queryFamilies[dataType]
	if !ok {
		result.SetStatus(models.StatusFailed)
		result.RecordError(fmt.Sprintf("unsupported data type %q", dataType))
		s.metrics.RecordCollectionError("unsupported_data_type")
		return result
	}

	area, err := entsoe.AreaFromCode(areaCode)
	if err != nil {
		result.SetStatus(models.StatusFailed)
		result.RecordError(err.Error())
		s.metrics.RecordCollectionError("unknown_area")
		return result
	}

	params := entsoe.RequestParams{
		DocumentType: family.DocumentType,
		ProcessType:  family.ProcessType,
		InArea:       area,
		PeriodStart:  windowStart,
		PeriodEnd:    windowEnd,
	}
	if family.TwoDomains {
		params.OutArea = &area
	}

	doc, err := s.client.Fetch(ctx, params)
	if err != nil {
		return s.recordFetchFailure(ctx, result, err)
	}

	switch d := doc.(type) {
	case *entsoe.Acknowledgement:
		s.recordAcknowledgement(ctx, result, d)
	case *entsoe.MarketDocument:
		s.convertDocument(ctx, result, d, areaCode, dataType)
	default:
		result.SetStatus(models.StatusFailed)
		result.RecordError(fmt.Sprintf("unexpected document kind %s", doc.DocumentKind()))
		s.metrics.RecordCollectionError("unexpected_document")
	}

	s.logger.Info(ctx, "[COLLECT_COMPLETE] Collection finished", logging.Fields{
		"area":      areaCode,
		"data_type": dataType,
		"status":    result.Status,
		"points":    len(result.Points),
		"errors":    len(result.Errors),
		"warnings":  len(result.Warnings),
	})

	return result
}

// recordFetchFailure maps an already-classified transport or client error
// into the result. Rate limit exhaustion is a soft, reschedulable outcome.
func (s *CollectorService) recordFetchFailure(ctx context.Context, result *models.CollectionResult, err error) *models.CollectionResult {
	var httpErr *entsoe.HTTPError
	if errors.As(err, &httpErr) && httpErr.IsRateLimited() {
		result.SetStatus(models.StatusRateLimited)
		result.RecordWarning("upstream rate limit exhausted retries: " + err.Error())
		result.RetryAfter = s.rateLimitBackoff
		if httpErr.RetryAfter > 0 {
			result.RetryAfter = httpErr.RetryAfter
		}
		s.logger.Warn(ctx, "[COLLECT_RATE_LIMITED] Upstream rate limited", logging.Fields{
			"area":        result.Area,
			"data_type":   result.DataType,
			"retry_after": result.RetryAfter.String(),
		})
		return result
	}

	result.SetStatus(models.StatusFailed)
	result.RecordError(err.Error())
	s.metrics.RecordCollectionError("fetch_error")
	s.logger.Error(ctx, "[COLLECT_FETCH_ERROR] Fetch failed", logging.Fields{
		"area":      result.Area,
		"data_type": result.DataType,
	}, err)
	return result
}

// recordAcknowledgement maps an acknowledgement document into the result:
// reason 999 means an empty window, anything else is an upstream error.
func (s *CollectorService) recordAcknowledgement(ctx context.Context, result *models.CollectionResult, ack *entsoe.Acknowledgement) {
	result.Metadata["document_id"] = ack.ID
	result.Metadata["reason_code"] = ack.Reason.Code

	if ack.IsNoData() {
		result.SetStatus(models.StatusNoDataAvailable)
		result.RecordWarning("no data available for window: " + ack.Reason.Text)
		return
	}

	result.SetStatus(models.StatusFailed)
	result.RecordError(fmt.Sprintf("acknowledgement reason %s: %s", ack.Reason.Code, ack.Reason.Text))
	s.metrics.RecordCollectionError("acknowledgement_error")
}

// convertDocument expands every series into raw points. Series failures are
// isolated: one malformed series downgrades the result to PARTIAL_SUCCESS
// without discarding the rest.
func (s *CollectorService) convertDocument(ctx context.Context, result *models.CollectionResult, doc *entsoe.MarketDocument, areaCode string, dataType models.DataType) {
	result.Metadata["document_id"] = doc.ID
	result.Metadata["revision"] = fmt.Sprintf("%d", doc.Revision)

	for _, series := range doc.Series {
		points, err := s.processor.ExpandSeries(doc, series, areaCode, dataType)
		if err != nil {
			result.RecordError(err.Error())
			s.metrics.RecordCollectionError("series_conversion")
			s.logger.Warn(ctx, "[COLLECT_SERIES_SKIPPED] Series conversion failed", logging.Fields{
				"area":      areaCode,
				"data_type": dataType,
				"series_id": series.ID,
				"cause":     err.Error(),
			})
			continue
		}
		result.AddPoints(points)
	}

	s.metrics.PointsCollectedTotal.WithLabelValues(areaCode, string(dataType)).Add(float64(len(result.Points)))
}
