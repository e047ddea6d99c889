package entsoe

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const glDocumentFixture = `<?xml version="1.0" encoding="UTF-8"?>
<GL_MarketDocument xmlns="urn:iec62325.351:tc57wg16:451-6:generationloaddocument:3:0">
	<mRID>doc-001</mRID>
	<revisionNumber>1</revisionNumber>
	<type>A65</type>
	<process.processType>A16</process.processType>
	<sender_MarketParticipant.mRID>10X1001A1001A450</sender_MarketParticipant.mRID>
	<sender_MarketParticipant.marketRole.type>A32</sender_MarketParticipant.marketRole.type>
	<receiver_MarketParticipant.mRID>10X1001A1001A39W</receiver_MarketParticipant.mRID>
	<receiver_MarketParticipant.marketRole.type>A33</receiver_MarketParticipant.marketRole.type>
	<createdDateTime>2024-01-02T08:00:00Z</createdDateTime>
	<time_Period.timeInterval>
		<start>2024-01-01T00:00Z</start>
		<end>2024-01-01T01:00Z</end>
	</time_Period.timeInterval>
	<TimeSeries>
		<mRID>1</mRID>
		<businessType>A04</businessType>
		<objectAggregation>A01</objectAggregation>
		<outBiddingZone_Domain.mRID>10Y1001A1001A82H</outBiddingZone_Domain.mRID>
		<quantity_Measure_Unit.name>MAW</quantity_Measure_Unit.name>
		<curveType>A01</curveType>
		<Period>
			<timeInterval>
				<start>2024-01-01T00:00Z</start>
				<end>2024-01-01T01:00Z</end>
			</timeInterval>
			<resolution>PT15M</resolution>
			<Point><position>1</position><quantity>100.5</quantity></Point>
			<Point><position>2</position><quantity>110.0</quantity></Point>
			<Point><position>4</position><quantity>130.25</quantity></Point>
			<Point><position>3</position><quantity>120.75</quantity></Point>
		</Period>
	</TimeSeries>
</GL_MarketDocument>`

const publicationDocumentFixture = `<?xml version="1.0" encoding="UTF-8"?>
<Publication_MarketDocument xmlns="urn:iec62325.351:tc57wg16:451-3:publicationdocument:7:0">
	<mRID>pub-001</mRID>
	<revisionNumber>2</revisionNumber>
	<type>A44</type>
	<process.processType>A01</process.processType>
	<sender_MarketParticipant.mRID>10X1001A1001A450</sender_MarketParticipant.mRID>
	<sender_MarketParticipant.marketRole.type>A32</sender_MarketParticipant.marketRole.type>
	<receiver_MarketParticipant.mRID>10X1001A1001A39W</receiver_MarketParticipant.mRID>
	<receiver_MarketParticipant.marketRole.type>A33</receiver_MarketParticipant.marketRole.type>
	<createdDateTime>2024-01-02T08:00:00Z</createdDateTime>
	<period.timeInterval>
		<start>2024-01-01T00:00Z</start>
		<end>2024-01-01T02:00Z</end>
	</period.timeInterval>
	<TimeSeries>
		<mRID>1</mRID>
		<businessType>A62</businessType>
		<objectAggregation>A01</objectAggregation>
		<in_Domain.mRID>10Y1001A1001A82H</in_Domain.mRID>
		<out_Domain.mRID>10Y1001A1001A82H</out_Domain.mRID>
		<price_Measure_Unit.name>EUR</price_Measure_Unit.name>
		<curveType>A01</curveType>
		<Period>
			<timeInterval>
				<start>2024-01-01T00:00Z</start>
				<end>2024-01-01T02:00Z</end>
			</timeInterval>
			<resolution>PT60M</resolution>
			<Point><position>1</position><price.amount>85.01</price.amount></Point>
			<Point><position>2</position><price.amount>79.50</price.amount></Point>
		</Period>
	</TimeSeries>
</Publication_MarketDocument>`

const acknowledgementFixture = `<?xml version="1.0" encoding="UTF-8"?>
<Acknowledgement_MarketDocument xmlns="urn:iec62325.351:tc57wg16:451-1:acknowledgementdocument:8:1">
	<mRID>ack-001</mRID>
	<createdDateTime>2024-01-02T08:00:00Z</createdDateTime>
	<sender_MarketParticipant.mRID>10X1001A1001A450</sender_MarketParticipant.mRID>
	<sender_MarketParticipant.marketRole.type>A32</sender_MarketParticipant.marketRole.type>
	<receiver_MarketParticipant.mRID>10X1001A1001A39W</receiver_MarketParticipant.mRID>
	<receiver_MarketParticipant.marketRole.type>A33</receiver_MarketParticipant.marketRole.type>
	<Reason>
		<code>999</code>
		<text>No matching data found</text>
	</Reason>
</Acknowledgement_MarketDocument>`

func TestParseMarketDocumentGL(t *testing.T) {
	doc, err := ParseMarketDocument([]byte(glDocumentFixture), DataDocument)
	if err != nil {
		t.Fatalf("ParseMarketDocument() error = %v", err)
	}

	if doc.ID != "doc-001" {
		t.Errorf("ID = %q, want %q", doc.ID, "doc-001")
	}
	if doc.Revision != 1 {
		t.Errorf("Revision = %d, want 1", doc.Revision)
	}
	if doc.Type.Code != "A65" {
		t.Errorf("Type = %q, want A65", doc.Type.Code)
	}
	if doc.ProcessType.Code != "A16" {
		t.Errorf("ProcessType = %q, want A16", doc.ProcessType.Code)
	}
	if doc.Sender.Role.Code != "A32" {
		t.Errorf("Sender role = %q, want A32", doc.Sender.Role.Code)
	}
	if doc.DocumentKind() != DataDocument {
		t.Errorf("DocumentKind() = %v, want %v", doc.DocumentKind(), DataDocument)
	}

	wantStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !doc.Interval.Start.Equal(wantStart) {
		t.Errorf("Interval.Start = %v, want %v", doc.Interval.Start, wantStart)
	}

	if len(doc.Series) != 1 {
		t.Fatalf("len(Series) = %d, want 1", len(doc.Series))
	}

	series := doc.Series[0]
	if series.BusinessType.Code != "A04" {
		t.Errorf("BusinessType = %q, want A04", series.BusinessType.Code)
	}
	if series.Domain != "10Y1001A1001A82H" {
		t.Errorf("Domain = %q, want 10Y1001A1001A82H", series.Domain)
	}
	if series.Unit != "MAW" {
		t.Errorf("Unit = %q, want MAW", series.Unit)
	}

	if len(series.Periods) != 1 {
		t.Fatalf("len(Periods) = %d, want 1", len(series.Periods))
	}

	period := series.Periods[0]
	if period.Resolution != 15*time.Minute {
		t.Errorf("Resolution = %v, want 15m", period.Resolution)
	}
	if period.ResolutionText != "PT15M" {
		t.Errorf("ResolutionText = %q, want PT15M", period.ResolutionText)
	}

	// Out-of-order positions in the payload must come back sorted
	wantPositions := []int{1, 2, 3, 4}
	wantValues := []float64{100.5, 110.0, 120.75, 130.25}
	if len(period.Points) != len(wantPositions) {
		t.Fatalf("len(Points) = %d, want %d", len(period.Points), len(wantPositions))
	}
	for i, point := range period.Points {
		if point.Position != wantPositions[i] {
			t.Errorf("Points[%d].Position = %d, want %d", i, point.Position, wantPositions[i])
		}
		if point.Value != wantValues[i] {
			t.Errorf("Points[%d].Value = %v, want %v", i, point.Value, wantValues[i])
		}
	}
}

func TestParseMarketDocumentPublication(t *testing.T) {
	doc, err := ParseMarketDocument([]byte(publicationDocumentFixture), PublicationDocument)
	if err != nil {
		t.Fatalf("ParseMarketDocument() error = %v", err)
	}

	if doc.Kind != PublicationDocument {
		t.Errorf("Kind = %v, want %v", doc.Kind, PublicationDocument)
	}
	if doc.Revision != 2 {
		t.Errorf("Revision = %d, want 2", doc.Revision)
	}

	// Publication documents carry the interval under period.timeInterval
	wantEnd := time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC)
	if !doc.Interval.End.Equal(wantEnd) {
		t.Errorf("Interval.End = %v, want %v", doc.Interval.End, wantEnd)
	}

	series := doc.Series[0]
	if series.BusinessType.Code != "A62" {
		t.Errorf("BusinessType = %q, want A62", series.BusinessType.Code)
	}
	if series.Unit != "EUR" {
		t.Errorf("Unit = %q, want EUR", series.Unit)
	}

	points := series.Periods[0].Points
	if len(points) != 2 {
		t.Fatalf("len(Points) = %d, want 2", len(points))
	}
	if points[0].Value != 85.01 {
		t.Errorf("Points[0].Value = %v, want 85.01", points[0].Value)
	}
}

func TestParseMarketDocumentErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(string) string
		wantField string
		wantCode  bool
	}{
		{
			name:      "missing mRID",
			mutate:    func(s string) string { return strings.Replace(s, "<mRID>doc-001</mRID>", "", 1) },
			wantField: "mRID",
		},
		{
			name:      "missing revision",
			mutate:    func(s string) string { return strings.Replace(s, "<revisionNumber>1</revisionNumber>", "", 1) },
			wantField: "revisionNumber",
		},
		{
			name:     "unknown business type",
			mutate:   func(s string) string { return strings.Replace(s, "<businessType>A04</businessType>", "<businessType>Z04</businessType>", 1) },
			wantCode: true,
		},
		{
			name:     "unknown curve type",
			mutate:   func(s string) string { return strings.Replace(s, "<curveType>A01</curveType>", "<curveType>A99</curveType>", 1) },
			wantCode: true,
		},
		{
			name:      "invalid resolution",
			mutate:    func(s string) string { return strings.Replace(s, "PT15M", "P1M", 1) },
			wantField: "resolution",
		},
		{
			name: "non-numeric quantity",
			mutate: func(s string) string {
				return strings.Replace(s, "<quantity>100.5</quantity>", "<quantity>abc</quantity>", 1)
			},
			wantField: "quantity",
		},
		{
			name: "zero position",
			mutate: func(s string) string {
				return strings.Replace(s, "<position>1</position>", "<position>0</position>", 1)
			},
			wantField: "position",
		},
		{
			name: "invalid created timestamp",
			mutate: func(s string) string {
				return strings.Replace(s, "2024-01-02T08:00:00Z", "yesterday", 1)
			},
			wantField: "createdDateTime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := tt.mutate(glDocumentFixture)
			_, err := ParseMarketDocument([]byte(payload), DataDocument)
			if err == nil {
				t.Fatal("ParseMarketDocument() should fail")
			}

			if tt.wantCode {
				var codeErr *UnknownCodeError
				if !errors.As(err, &codeErr) {
					t.Errorf("error = %T, want *UnknownCodeError", err)
				}
				return
			}

			var parseErr *ParsingError
			if !errors.As(err, &parseErr) {
				t.Fatalf("error = %T, want *ParsingError", err)
			}
			if !strings.Contains(parseErr.Field, tt.wantField) {
				t.Errorf("Field = %q, want it to contain %q", parseErr.Field, tt.wantField)
			}
		})
	}
}

func TestParseAcknowledgement(t *testing.T) {
	ack, err := ParseAcknowledgement([]byte(acknowledgementFixture))
	if err != nil {
		t.Fatalf("ParseAcknowledgement() error = %v", err)
	}

	if ack.ID != "ack-001" {
		t.Errorf("ID = %q, want ack-001", ack.ID)
	}
	if ack.Reason.Code != "999" {
		t.Errorf("Reason.Code = %q, want 999", ack.Reason.Code)
	}
	if !ack.IsNoData() {
		t.Error("reason 999 should classify as no data")
	}
	if ack.DocumentKind() != AcknowledgementDocument {
		t.Errorf("DocumentKind() = %v, want %v", ack.DocumentKind(), AcknowledgementDocument)
	}
}

func TestParseAcknowledgementErrorReason(t *testing.T) {
	payload := strings.Replace(acknowledgementFixture, "<code>999</code>", "<code>A95</code>", 1)

	ack, err := ParseAcknowledgement([]byte(payload))
	if err != nil {
		t.Fatalf("ParseAcknowledgement() error = %v", err)
	}
	if ack.IsNoData() {
		t.Error("non-999 reason should not classify as no data")
	}
}

func TestParseAcknowledgementMissingReason(t *testing.T) {
	payload := strings.Replace(acknowledgementFixture, "<code>999</code>", "", 1)

	_, err := ParseAcknowledgement([]byte(payload))

	var parseErr *ParsingError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %T, want *ParsingError", err)
	}
	if !strings.Contains(parseErr.Field, "Reason.code") {
		t.Errorf("Field = %q, want Reason.code", parseErr.Field)
	}
}
