package entsoe

import (
	"fmt"
	"net/url"
	"time"
)

// periodFormat is the compact UTC timestamp format the API query contract
// requires for periodStart/periodEnd.
const periodFormat = "200601021504"

// maxRequestRange is the largest window the API accepts per request
const maxRequestRange = 365 * 24 * time.Hour

// RequestParams describes one query against the API
type RequestParams struct {
	DocumentType string
	ProcessType  string
	// InArea is the primary domain of the query
	InArea Area
	// OutArea is set for queries that take two domain identifiers
	// (e.g. price queries use identical in/out domains)
	OutArea     *Area
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// requiredAreaTypes maps document type codes to the area type their query
// family requires of the domain.
var requiredAreaTypes = map[string]AreaType{
	"A44": AreaTypeBiddingZone,
	"A65": AreaTypeBiddingZone,
	"A71": AreaTypeBiddingZone,
	"A73": AreaTypeBiddingZone,
	"A75": AreaTypeBiddingZone,
	"A61": AreaTypeBiddingZone,
	"A25": AreaTypeBiddingZone,
	"A11": AreaTypeBiddingZone,
}

// AlignQuarterHour rounds a timestamp to a 15-minute boundary. offset 0
// rounds down, offset 1 rounds up to the next boundary, carrying into
// hour/day/month/year on overflow (23:50 rounded up lands on 00:00 of the
// next day).
func AlignQuarterHour(t time.Time, offset int) time.Time {
	aligned := t.UTC().Truncate(15 * time.Minute)
	if offset > 0 && aligned.Before(t.UTC()) {
		aligned = aligned.Add(15 * time.Minute)
	}
	return aligned
}

// FormatPeriod serializes an aligned timestamp in the compact yyyyMMddHHmm
// UTC form.
func FormatPeriod(t time.Time) string {
	return t.UTC().Format(periodFormat)
}

// BuildRequest validates the query parameters, performs quarter-hour
// alignment and serializes everything into URL query values. The security
// token is added by the client, not here.
func BuildRequest(p RequestParams) (url.Values, error) {
	if _, err := DocumentTypeCodeFromCode(p.DocumentType); err != nil {
		return nil, &ValidationError{Field: "documentType", Value: p.DocumentType, Message: "unknown document type code"}
	}
	if p.ProcessType != "" {
		if _, err := ProcessTypeFromCode(p.ProcessType); err != nil {
			return nil, &ValidationError{Field: "processType", Value: p.ProcessType, Message: "unknown process type code"}
		}
	}

	if p.InArea.EIC == "" {
		return nil, &ValidationError{Field: "in_Domain", Message: "domain is required"}
	}
	if required, ok := requiredAreaTypes[p.DocumentType]; ok {
		if !p.InArea.SupportsType(required) {
			return nil, &ValidationError{
				Field:   "in_Domain",
				Value:   p.InArea.Code,
				Message: fmt.Sprintf("area does not support area type %s required by document type %s", required, p.DocumentType),
			}
		}
		if p.OutArea != nil && !p.OutArea.SupportsType(required) {
			return nil, &ValidationError{
				Field:   "out_Domain",
				Value:   p.OutArea.Code,
				Message: fmt.Sprintf("area does not support area type %s required by document type %s", required, p.DocumentType),
			}
		}
	}

	if p.PeriodStart.IsZero() || p.PeriodEnd.IsZero() {
		return nil, &ValidationError{Field: "period", Message: "periodStart and periodEnd are required"}
	}
	if !p.PeriodStart.Before(p.PeriodEnd) {
		return nil, &ValidationError{Field: "period", Message: "periodStart must be strictly before periodEnd"}
	}
	if p.PeriodEnd.Sub(p.PeriodStart) > maxRequestRange {
		return nil, &ValidationError{Field: "period", Message: "requested range exceeds one year"}
	}

	start := AlignQuarterHour(p.PeriodStart, 0)
	end := AlignQuarterHour(p.PeriodEnd, 1)

	values := url.Values{}
	values.Set("documentType", p.DocumentType)
	if p.ProcessType != "" {
		values.Set("processType", p.ProcessType)
	}
	values.Set("in_Domain", p.InArea.EIC)
	if p.OutArea != nil {
		values.Set("out_Domain", p.OutArea.EIC)
	}
	values.Set("periodStart", FormatPeriod(start))
	values.Set("periodEnd", FormatPeriod(end))

	return values, nil
}
