package entsoe

// Closed code registries mirroring the ENTSO-E transparency platform's
// published code lists. Each registry is a static table of (code,
// description) pairs; a lookup miss fails with UnknownCodeError.

// BusinessType classifies the quantity represented by a time series
type BusinessType struct {
	Code        string
	Description string
}

var businessTypes = map[string]string{
	"A01": "Production",
	"A04": "Consumption",
	"A14": "Aggregated energy data",
	"A29": "Already allocated capacity",
	"A37": "Installed generation",
	"A60": "Minimum possible",
	"A61": "Maximum available",
	"A62": "Day-ahead prices",
	"B33": "Area control error",
}

// BusinessTypeFromCode resolves a business type code
func BusinessTypeFromCode(code string) (BusinessType, error) {
	desc, ok := businessTypes[code]
	if !ok {
		return BusinessType{}, &UnknownCodeError{Category: "business type", Code: code}
	}
	return BusinessType{Code: code, Description: desc}, nil
}

// ProcessType identifies the market process a document belongs to
type ProcessType struct {
	Code        string
	Description string
}

var processTypes = map[string]string{
	"A01": "Day ahead",
	"A02": "Intra day incremental",
	"A16": "Realised",
	"A18": "Intraday total",
	"A31": "Week ahead",
	"A32": "Month ahead",
	"A33": "Year ahead",
}

// ProcessTypeFromCode resolves a process type code
func ProcessTypeFromCode(code string) (ProcessType, error) {
	desc, ok := processTypes[code]
	if !ok {
		return ProcessType{}, &UnknownCodeError{Category: "process type", Code: code}
	}
	return ProcessType{Code: code, Description: desc}, nil
}

// DocumentTypeCode identifies the kind of market document requested
type DocumentTypeCode struct {
	Code        string
	Description string
}

var documentTypeCodes = map[string]string{
	"A11": "Aggregated energy data report",
	"A25": "Allocation result document",
	"A44": "Price document",
	"A61": "Estimated net transfer capacity",
	"A65": "System total load",
	"A71": "Generation forecast",
	"A73": "Actual generation",
	"A75": "Actual generation per type",
}

// DocumentTypeCodeFromCode resolves a document type code
func DocumentTypeCodeFromCode(code string) (DocumentTypeCode, error) {
	desc, ok := documentTypeCodes[code]
	if !ok {
		return DocumentTypeCode{}, &UnknownCodeError{Category: "document type", Code: code}
	}
	return DocumentTypeCode{Code: code, Description: desc}, nil
}

// CurveType describes the point layout convention of a time series
type CurveType struct {
	Code        string
	Description string
}

var curveTypes = map[string]string{
	"A01": "Sequential fixed size block",
	"A02": "Point to point",
	"A03": "Variable sized block",
}

// CurveTypeFromCode resolves a curve type code
func CurveTypeFromCode(code string) (CurveType, error) {
	desc, ok := curveTypes[code]
	if !ok {
		return CurveType{}, &UnknownCodeError{Category: "curve type", Code: code}
	}
	return CurveType{Code: code, Description: desc}, nil
}

// MarketRole identifies the role of a sender or receiver party
type MarketRole struct {
	Code        string
	Description string
}

var marketRoles = map[string]string{
	"A04": "System operator",
	"A32": "Market information aggregator",
	"A33": "Information receiver",
	"A36": "Capacity coordinator",
	"A39": "Data provider",
}

// MarketRoleFromCode resolves a market role code
func MarketRoleFromCode(code string) (MarketRole, error) {
	desc, ok := marketRoles[code]
	if !ok {
		return MarketRole{}, &UnknownCodeError{Category: "market role", Code: code}
	}
	return MarketRole{Code: code, Description: desc}, nil
}

// ObjectAggregation describes the aggregation level of a time series
type ObjectAggregation struct {
	Code        string
	Description string
}

var objectAggregations = map[string]string{
	"A01": "Area",
	"A02": "Metering point",
	"A03": "Party",
	"A06": "Resource type",
}

// ObjectAggregationFromCode resolves an object aggregation code
func ObjectAggregationFromCode(code string) (ObjectAggregation, error) {
	desc, ok := objectAggregations[code]
	if !ok {
		return ObjectAggregation{}, &UnknownCodeError{Category: "object aggregation", Code: code}
	}
	return ObjectAggregation{Code: code, Description: desc}, nil
}

// AreaType classifies what a domain identifier denotes
type AreaType string

const (
	AreaTypeBiddingZone       AreaType = "BZN"
	AreaTypeControlArea       AreaType = "CTA"
	AreaTypeCountry           AreaType = "CTY"
	AreaTypeMarketBalanceArea AreaType = "MBA"
)

var areaTypeDescriptions = map[AreaType]string{
	AreaTypeBiddingZone:       "Bidding zone",
	AreaTypeControlArea:       "Control area",
	AreaTypeCountry:           "Country",
	AreaTypeMarketBalanceArea: "Market balance area",
}

// AreaTypeFromCode resolves an area type code
func AreaTypeFromCode(code string) (AreaType, error) {
	t := AreaType(code)
	if _, ok := areaTypeDescriptions[t]; !ok {
		return "", &UnknownCodeError{Category: "area type", Code: code}
	}
	return t, nil
}

// Area identifies a bidding zone or control area in the monitored grid,
// along with the EIC domain identifier the API expects.
type Area struct {
	Code  string
	EIC   string
	Name  string
	Types []AreaType
}

// SupportsType reports whether the area can serve queries requiring the
// given area type.
func (a Area) SupportsType(t AreaType) bool {
	for _, at := range a.Types {
		if at == t {
			return true
		}
	}
	return false
}

var areas = map[string]Area{
	"DE": {Code: "DE", EIC: "10Y1001A1001A82H", Name: "Germany-Luxembourg", Types: []AreaType{AreaTypeBiddingZone, AreaTypeMarketBalanceArea}},
	"FR": {Code: "FR", EIC: "10YFR-RTE------C", Name: "France", Types: []AreaType{AreaTypeBiddingZone, AreaTypeControlArea, AreaTypeCountry}},
	"NL": {Code: "NL", EIC: "10YNL----------L", Name: "Netherlands", Types: []AreaType{AreaTypeBiddingZone, AreaTypeControlArea, AreaTypeCountry}},
	"BE": {Code: "BE", EIC: "10YBE----------2", Name: "Belgium", Types: []AreaType{AreaTypeBiddingZone, AreaTypeControlArea, AreaTypeCountry}},
	"AT": {Code: "AT", EIC: "10YAT-APG------L", Name: "Austria", Types: []AreaType{AreaTypeBiddingZone, AreaTypeControlArea, AreaTypeCountry}},
	"CH": {Code: "CH", EIC: "10YCH-SWISSGRIDZ", Name: "Switzerland", Types: []AreaType{AreaTypeBiddingZone, AreaTypeControlArea, AreaTypeCountry}},
	"PL": {Code: "PL", EIC: "10YPL-AREA-----S", Name: "Poland", Types: []AreaType{AreaTypeBiddingZone, AreaTypeControlArea, AreaTypeCountry}},
	"ES": {Code: "ES", EIC: "10YES-REE------0", Name: "Spain", Types: []AreaType{AreaTypeBiddingZone, AreaTypeControlArea, AreaTypeCountry}},
	"IT": {Code: "IT", EIC: "10YIT-GRTN-----B", Name: "Italy", Types: []AreaType{AreaTypeControlArea, AreaTypeCountry}},
}

// AreaFromCode resolves a human area code (e.g. DE, FR) to its registry entry
func AreaFromCode(code string) (Area, error) {
	a, ok := areas[code]
	if !ok {
		return Area{}, &UnknownCodeError{Category: "area", Code: code}
	}
	return a, nil
}

// Areas returns every registered area, for serving area listings
func Areas() []Area {
	out := make([]Area, 0, len(areas))
	for _, a := range areas {
		out = append(out, a)
	}
	return out
}
