package services

import (
	"fmt"
	"strconv"
	"time"

	"github.com/AldairPetronilia/trading-project-sub002/internal/entsoe"
	"github.com/AldairPetronilia/trading-project-sub002/internal/models"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/logging"
)

// SourceENTSOE names the upstream API on every record derived from it
const SourceENTSOE = "entsoe"

// Metadata keys stamped onto raw points so they can be lifted into canonical
// records without re-reading the document.
const (
	metaBusinessType = "business_type"
	metaCurveType    = "curve_type"
	metaResolution   = "resolution"
	metaDocumentID   = "document_id"
	metaRevision     = "revision"
	metaSeriesID     = "series_id"
	metaDomain       = "domain"
)

// Processor expands parsed time series into timestamped points and converts
// them into canonical records.
type Processor struct {
	logger *logging.StructuredLogger
}

// NewProcessor creates a new processor
func NewProcessor(logger *logging.StructuredLogger) *Processor {
	return &Processor{logger: logger}
}

// ExpandSeries expands every period of one time series using
// timestamp(p) = interval.start + (p-1) * resolution, stamping document and
// series identity onto each derived point.
func (p *Processor) ExpandSeries(doc *entsoe.MarketDocument, series entsoe.TimeSeries, area string, dataType models.DataType) ([]models.RawDataPoint, error) {
	points := make([]models.RawDataPoint, 0)

	for _, period := range series.Periods {
		capacity := int(period.Interval.End.Sub(period.Interval.Start) / period.Resolution)
		seen := make(map[int]bool, len(period.Points))

		for _, point := range period.Points {
			if point.Position > capacity {
				return nil, fmt.Errorf("series %s: position %d exceeds period capacity %d", series.ID, point.Position, capacity)
			}
			if seen[point.Position] {
				return nil, fmt.Errorf("series %s: duplicate position %d", series.ID, point.Position)
			}
			seen[point.Position] = true

			timestamp := period.Interval.Start.Add(time.Duration(point.Position-1) * period.Resolution)

			points = append(points, models.RawDataPoint{
				Timestamp: timestamp,
				Value:     point.Value,
				Unit:      series.Unit,
				Source:    SourceENTSOE,
				Area:      area,
				DataType:  dataType,
				Quality:   qualityForProcess(doc.ProcessType.Code),
				Metadata: map[string]string{
					metaBusinessType: series.BusinessType.Code,
					metaCurveType:    series.CurveType.Code,
					metaResolution:   period.ResolutionText,
					metaDocumentID:   doc.ID,
					metaRevision:     strconv.Itoa(doc.Revision),
					metaSeriesID:     series.ID,
					metaDomain:       series.Domain,
				},
			})
		}
	}

	return points, nil
}

// ToRecords converts raw points into canonical records ready for persistence
func (p *Processor) ToRecords(points []models.RawDataPoint) []*models.EnergyDataRecord {
	records := make([]*models.EnergyDataRecord, 0, len(points))
	now := time.Now().UTC()

	for _, point := range points {
		revision, _ := strconv.Atoi(point.Metadata[metaRevision])

		records = append(records, &models.EnergyDataRecord{
			Timestamp:    point.Timestamp,
			Area:         point.Area,
			DataType:     point.DataType,
			BusinessType: point.Metadata[metaBusinessType],
			Quantity:     point.Value,
			Unit:         point.Unit,
			Source:       point.Source,
			Resolution:   point.Metadata[metaResolution],
			CurveType:    point.Metadata[metaCurveType],
			DocumentID:   point.Metadata[metaDocumentID],
			Revision:     revision,
			CreatedAt:    now,
		})
	}

	return records
}

// qualityForProcess derives a coarse quality flag from the market process:
// realised values are measured, everything else is a forecast.
func qualityForProcess(processType string) string {
	if processType == "A16" {
		return "measured"
	}
	return "forecast"
}
