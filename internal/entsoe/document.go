package entsoe

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Document is the typed result of a fetch: either a market document carrying
// time series data or an acknowledgement explaining the absence of data.
type Document interface {
	DocumentKind() DocumentType
}

// MarketParticipant identifies a sender or receiver party and its role
type MarketParticipant struct {
	ID   string
	Role MarketRole
}

// TimeInterval is a half-open [Start, End) interval in UTC
type TimeInterval struct {
	Start time.Time
	End   time.Time
}

// Point is a single value at a 1-based position within a period
type Point struct {
	Position int
	Value    float64
}

// Period holds ordered points at a fixed resolution. The point at position p
// maps to timestamp Interval.Start + (p-1)*Resolution.
type Period struct {
	Interval   TimeInterval
	Resolution time.Duration
	// ResolutionText preserves the ISO-8601 duration literal for persistence
	ResolutionText string
	Points         []Point
}

// TimeSeries is one series of a market document
type TimeSeries struct {
	ID           string
	BusinessType BusinessType
	Aggregation  ObjectAggregation
	Domain       string
	Unit         string
	CurveType    CurveType
	Periods      []Period
}

// MarketDocument is a parsed GL or Publication market document
type MarketDocument struct {
	Kind        DocumentType
	ID          string
	Revision    int
	Type        DocumentTypeCode
	ProcessType ProcessType
	Sender      MarketParticipant
	Receiver    MarketParticipant
	CreatedAt   time.Time
	Interval    TimeInterval
	Series      []TimeSeries
}

func (d *MarketDocument) DocumentKind() DocumentType { return d.Kind }

// Reason explains an acknowledgement: code "999" means no data matched the
// queried window, every other code is an upstream error.
type Reason struct {
	Code string
	Text string
}

// Acknowledgement is a parsed acknowledgement document
type Acknowledgement struct {
	ID        string
	CreatedAt time.Time
	Sender    MarketParticipant
	Receiver  MarketParticipant
	Reason    Reason
}

func (a *Acknowledgement) DocumentKind() DocumentType { return AcknowledgementDocument }

// IsNoData reports whether the acknowledgement means "no data for this
// window" rather than an error.
func (a *Acknowledgement) IsNoData() bool { return a.Reason.Code == "999" }

// Raw decode targets. GL and Publication documents differ only in the domain
// and unit element names and in quantity vs price.amount point values; one
// decode target covers both shapes.

type xmlTimeInterval struct {
	Start string `xml:"start"`
	End   string `xml:"end"`
}

type xmlPoint struct {
	Position string `xml:"position"`
	Quantity string `xml:"quantity"`
	Price    string `xml:"price.amount"`
}

type xmlPeriod struct {
	TimeInterval xmlTimeInterval `xml:"timeInterval"`
	Resolution   string          `xml:"resolution"`
	Points       []xmlPoint      `xml:"Point"`
}

type xmlTimeSeries struct {
	MRID              string      `xml:"mRID"`
	BusinessType      string      `xml:"businessType"`
	ObjectAggregation string      `xml:"objectAggregation"`
	InDomain          string      `xml:"in_Domain.mRID"`
	OutDomain         string      `xml:"out_Domain.mRID"`
	InBiddingZone     string      `xml:"inBiddingZone_Domain.mRID"`
	OutBiddingZone    string      `xml:"outBiddingZone_Domain.mRID"`
	QuantityUnit      string      `xml:"quantity_Measure_Unit.name"`
	PriceUnit         string      `xml:"price_Measure_Unit.name"`
	CurveType         string      `xml:"curveType"`
	Periods           []xmlPeriod `xml:"Period"`
}

type xmlMarketDocument struct {
	MRID           string          `xml:"mRID"`
	RevisionNumber string          `xml:"revisionNumber"`
	Type           string          `xml:"type"`
	ProcessType    string          `xml:"process.processType"`
	SenderID       string          `xml:"sender_MarketParticipant.mRID"`
	SenderRole     string          `xml:"sender_MarketParticipant.marketRole.type"`
	ReceiverID     string          `xml:"receiver_MarketParticipant.mRID"`
	ReceiverRole   string          `xml:"receiver_MarketParticipant.marketRole.type"`
	CreatedAt      string          `xml:"createdDateTime"`
	TimePeriod     xmlTimeInterval `xml:"time_Period.timeInterval"`
	PeriodInterval xmlTimeInterval `xml:"period.timeInterval"`
	Series         []xmlTimeSeries `xml:"TimeSeries"`
}

type xmlAcknowledgement struct {
	MRID         string `xml:"mRID"`
	CreatedAt    string `xml:"createdDateTime"`
	SenderID     string `xml:"sender_MarketParticipant.mRID"`
	SenderRole   string `xml:"sender_MarketParticipant.marketRole.type"`
	ReceiverID   string `xml:"receiver_MarketParticipant.mRID"`
	ReceiverRole string `xml:"receiver_MarketParticipant.marketRole.type"`
	Reason       struct {
		Code string `xml:"code"`
		Text string `xml:"text"`
	} `xml:"Reason"`
}

// ParseMarketDocument strictly decodes a GL or Publication market document.
// Any structural problem fails with a ParsingError naming the offending
// field; unlisted registry codes fail with UnknownCodeError.
func ParseMarketDocument(payload []byte, kind DocumentType) (*MarketDocument, error) {
	docName := string(kind)

	var raw xmlMarketDocument
	if err := xml.Unmarshal(payload, &raw); err != nil {
		return nil, &ParsingError{
			Document: docName,
			Field:    "document",
			Detail:   "malformed XML",
			Payload:  truncatePayload(payload),
			Err:      err,
		}
	}

	if raw.MRID == "" {
		return nil, missingField(docName, "mRID", payload)
	}
	if raw.RevisionNumber == "" {
		return nil, missingField(docName, "revisionNumber", payload)
	}
	revision, err := strconv.Atoi(strings.TrimSpace(raw.RevisionNumber))
	if err != nil {
		return nil, &ParsingError{Document: docName, Field: "revisionNumber", Detail: "not an integer", Payload: truncatePayload(payload), Err: err}
	}

	docType, err := DocumentTypeCodeFromCode(raw.Type)
	if err != nil {
		return nil, err
	}
	processType, err := ProcessTypeFromCode(raw.ProcessType)
	if err != nil {
		return nil, err
	}

	sender, err := parseParticipant(docName, "sender", raw.SenderID, raw.SenderRole, payload)
	if err != nil {
		return nil, err
	}
	receiver, err := parseParticipant(docName, "receiver", raw.ReceiverID, raw.ReceiverRole, payload)
	if err != nil {
		return nil, err
	}

	createdAt, err := parseTimeField(docName, "createdDateTime", raw.CreatedAt, payload)
	if err != nil {
		return nil, err
	}

	// GL documents carry time_Period.timeInterval, Publication documents
	// carry period.timeInterval.
	rawInterval := raw.TimePeriod
	if rawInterval.Start == "" && rawInterval.End == "" {
		rawInterval = raw.PeriodInterval
	}
	interval, err := parseInterval(docName, "timeInterval", rawInterval, payload)
	if err != nil {
		return nil, err
	}

	doc := &MarketDocument{
		Kind:        kind,
		ID:          raw.MRID,
		Revision:    revision,
		Type:        docType,
		ProcessType: processType,
		Sender:      sender,
		Receiver:    receiver,
		CreatedAt:   createdAt,
		Interval:    interval,
		Series:      make([]TimeSeries, 0, len(raw.Series)),
	}

	for i, rawSeries := range raw.Series {
		series, err := parseTimeSeries(docName, i, rawSeries, payload)
		if err != nil {
			return nil, err
		}
		doc.Series = append(doc.Series, series)
	}

	return doc, nil
}

// ParseAcknowledgement strictly decodes an acknowledgement document
func ParseAcknowledgement(payload []byte) (*Acknowledgement, error) {
	docName := string(AcknowledgementDocument)

	var raw xmlAcknowledgement
	if err := xml.Unmarshal(payload, &raw); err != nil {
		return nil, &ParsingError{
			Document: docName,
			Field:    "document",
			Detail:   "malformed XML",
			Payload:  truncatePayload(payload),
			Err:      err,
		}
	}

	if raw.MRID == "" {
		return nil, missingField(docName, "mRID", payload)
	}
	createdAt, err := parseTimeField(docName, "createdDateTime", raw.CreatedAt, payload)
	if err != nil {
		return nil, err
	}
	sender, err := parseParticipant(docName, "sender", raw.SenderID, raw.SenderRole, payload)
	if err != nil {
		return nil, err
	}
	receiver, err := parseParticipant(docName, "receiver", raw.ReceiverID, raw.ReceiverRole, payload)
	if err != nil {
		return nil, err
	}
	if raw.Reason.Code == "" {
		return nil, missingField(docName, "Reason.code", payload)
	}

	return &Acknowledgement{
		ID:        raw.MRID,
		CreatedAt: createdAt,
		Sender:    sender,
		Receiver:  receiver,
		Reason:    Reason{Code: raw.Reason.Code, Text: raw.Reason.Text},
	}, nil
}

func parseTimeSeries(docName string, index int, raw xmlTimeSeries, payload []byte) (TimeSeries, error) {
	prefix := fmt.Sprintf("TimeSeries[%d].", index)

	businessType, err := BusinessTypeFromCode(raw.BusinessType)
	if err != nil {
		return TimeSeries{}, err
	}
	aggregation, err := ObjectAggregationFromCode(raw.ObjectAggregation)
	if err != nil {
		return TimeSeries{}, err
	}
	curveType, err := CurveTypeFromCode(raw.CurveType)
	if err != nil {
		return TimeSeries{}, err
	}

	domain := firstNonEmpty(raw.OutBiddingZone, raw.InBiddingZone, raw.InDomain, raw.OutDomain)
	if domain == "" {
		return TimeSeries{}, missingField(docName, prefix+"domain", payload)
	}

	unit := firstNonEmpty(raw.QuantityUnit, raw.PriceUnit)
	if unit == "" {
		return TimeSeries{}, missingField(docName, prefix+"unit", payload)
	}

	if len(raw.Periods) == 0 {
		return TimeSeries{}, missingField(docName, prefix+"Period", payload)
	}

	series := TimeSeries{
		ID:           raw.MRID,
		BusinessType: businessType,
		Aggregation:  aggregation,
		Domain:       domain,
		Unit:         unit,
		CurveType:    curveType,
		Periods:      make([]Period, 0, len(raw.Periods)),
	}

	for j, rawPeriod := range raw.Periods {
		period, err := parsePeriod(docName, fmt.Sprintf("%sPeriod[%d].", prefix, j), rawPeriod, payload)
		if err != nil {
			return TimeSeries{}, err
		}
		series.Periods = append(series.Periods, period)
	}

	return series, nil
}

func parsePeriod(docName, prefix string, raw xmlPeriod, payload []byte) (Period, error) {
	interval, err := parseInterval(docName, prefix+"timeInterval", raw.TimeInterval, payload)
	if err != nil {
		return Period{}, err
	}

	resolution, err := ParseResolution(raw.Resolution)
	if err != nil {
		return Period{}, &ParsingError{
			Document: docName,
			Field:    prefix + "resolution",
			Detail:   "invalid resolution",
			Payload:  truncatePayload(payload),
			Err:      err,
		}
	}

	if len(raw.Points) == 0 {
		return Period{}, missingField(docName, prefix+"Point", payload)
	}

	period := Period{
		Interval:       interval,
		Resolution:     resolution,
		ResolutionText: strings.TrimSpace(raw.Resolution),
		Points:         make([]Point, 0, len(raw.Points)),
	}

	for k, rawPoint := range raw.Points {
		pointField := fmt.Sprintf("%sPoint[%d].", prefix, k)

		position, err := strconv.Atoi(strings.TrimSpace(rawPoint.Position))
		if err != nil || position < 1 {
			return Period{}, &ParsingError{
				Document: docName,
				Field:    pointField + "position",
				Detail:   "position must be a positive integer",
				Payload:  truncatePayload(payload),
				Err:      err,
			}
		}

		valueText := firstNonEmpty(rawPoint.Quantity, rawPoint.Price)
		if valueText == "" {
			return Period{}, missingField(docName, pointField+"quantity", payload)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(valueText), 64)
		if err != nil {
			return Period{}, &ParsingError{
				Document: docName,
				Field:    pointField + "quantity",
				Detail:   "not a number",
				Payload:  truncatePayload(payload),
				Err:      err,
			}
		}

		period.Points = append(period.Points, Point{Position: position, Value: value})
	}

	sort.Slice(period.Points, func(a, b int) bool {
		return period.Points[a].Position < period.Points[b].Position
	})

	return period, nil
}

func parseParticipant(docName, field, id, role string, payload []byte) (MarketParticipant, error) {
	if id == "" {
		return MarketParticipant{}, missingField(docName, field+"_MarketParticipant.mRID", payload)
	}
	marketRole, err := MarketRoleFromCode(role)
	if err != nil {
		return MarketParticipant{}, err
	}
	return MarketParticipant{ID: id, Role: marketRole}, nil
}

func parseInterval(docName, field string, raw xmlTimeInterval, payload []byte) (TimeInterval, error) {
	start, err := parseTimeField(docName, field+".start", raw.Start, payload)
	if err != nil {
		return TimeInterval{}, err
	}
	end, err := parseTimeField(docName, field+".end", raw.End, payload)
	if err != nil {
		return TimeInterval{}, err
	}
	return TimeInterval{Start: start, End: end}, nil
}

func parseTimeField(docName, field, text string, payload []byte) (time.Time, error) {
	if strings.TrimSpace(text) == "" {
		return time.Time{}, missingField(docName, field, payload)
	}
	t, err := DecodeTime(text)
	if err != nil {
		return time.Time{}, &ParsingError{
			Document: docName,
			Field:    field,
			Detail:   "invalid timestamp",
			Payload:  truncatePayload(payload),
			Err:      err,
		}
	}
	return t, nil
}

func missingField(docName, field string, payload []byte) *ParsingError {
	return &ParsingError{
		Document: docName,
		Field:    field,
		Detail:   "required field missing",
		Payload:  truncatePayload(payload),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

const maxDiagnosticPayload = 512

func truncatePayload(payload []byte) string {
	if len(payload) <= maxDiagnosticPayload {
		return string(payload)
	}
	return string(payload[:maxDiagnosticPayload]) + "..."
}
