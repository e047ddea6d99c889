package entsoe

import (
	"errors"
	"testing"
	"time"
)

func TestAlignQuarterHour(t *testing.T) {
	tests := []struct {
		name   string
		input  time.Time
		offset int
		want   time.Time
	}{
		{
			name:   "round down mid-quarter",
			input:  time.Date(2024, 1, 1, 10, 7, 30, 0, time.UTC),
			offset: 0,
			want:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:   "round up mid-quarter",
			input:  time.Date(2024, 1, 1, 11, 52, 45, 0, time.UTC),
			offset: 1,
			want:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name:   "already aligned stays put rounding down",
			input:  time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC),
			offset: 0,
			want:   time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC),
		},
		{
			name:   "already aligned stays put rounding up",
			input:  time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC),
			offset: 1,
			want:   time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC),
		},
		{
			name:   "round up carries into next day",
			input:  time.Date(2024, 1, 1, 23, 50, 0, 0, time.UTC),
			offset: 1,
			want:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "round up carries across year boundary",
			input:  time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC),
			offset: 1,
			want:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "non-UTC input is normalized",
			input:  time.Date(2024, 1, 1, 10, 7, 0, 0, time.FixedZone("CET", 3600)),
			offset: 0,
			want:   time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AlignQuarterHour(tt.input, tt.offset)
			if !got.Equal(tt.want) {
				t.Errorf("AlignQuarterHour() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatPeriod(t *testing.T) {
	ts := time.Date(2024, 3, 15, 9, 45, 0, 0, time.UTC)
	if got := FormatPeriod(ts); got != "202403150945" {
		t.Errorf("FormatPeriod() = %q, want %q", got, "202403150945")
	}
}

func TestBuildRequest(t *testing.T) {
	de, _ := AreaFromCode("DE")
	it, _ := AreaFromCode("IT")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		params    RequestParams
		wantErr   bool
		wantField string
		check     func(*testing.T, map[string][]string)
	}{
		{
			name: "load query",
			params: RequestParams{
				DocumentType: "A65",
				ProcessType:  "A16",
				InArea:       de,
				PeriodStart:  start,
				PeriodEnd:    end,
			},
			check: func(t *testing.T, values map[string][]string) {
				if got := values["documentType"][0]; got != "A65" {
					t.Errorf("documentType = %q, want A65", got)
				}
				if got := values["in_Domain"][0]; got != "10Y1001A1001A82H" {
					t.Errorf("in_Domain = %q", got)
				}
				if got := values["periodStart"][0]; got != "202401010000" {
					t.Errorf("periodStart = %q, want 202401010000", got)
				}
				if got := values["periodEnd"][0]; got != "202401020000" {
					t.Errorf("periodEnd = %q, want 202401020000", got)
				}
				if _, ok := values["out_Domain"]; ok {
					t.Error("out_Domain should be absent for single-domain queries")
				}
				if _, ok := values["securityToken"]; ok {
					t.Error("securityToken must never be set by the builder")
				}
			},
		},
		{
			name: "price query with two domains",
			params: RequestParams{
				DocumentType: "A44",
				ProcessType:  "A01",
				InArea:       de,
				OutArea:      &de,
				PeriodStart:  start,
				PeriodEnd:    end,
			},
			check: func(t *testing.T, values map[string][]string) {
				if got := values["out_Domain"][0]; got != de.EIC {
					t.Errorf("out_Domain = %q, want %q", got, de.EIC)
				}
			},
		},
		{
			name: "unaligned boundaries widen the window",
			params: RequestParams{
				DocumentType: "A65",
				ProcessType:  "A16",
				InArea:       de,
				PeriodStart:  time.Date(2024, 1, 1, 10, 7, 30, 0, time.UTC),
				PeriodEnd:    time.Date(2024, 1, 1, 11, 52, 45, 0, time.UTC),
			},
			check: func(t *testing.T, values map[string][]string) {
				if got := values["periodStart"][0]; got != "202401011000" {
					t.Errorf("periodStart = %q, want 202401011000", got)
				}
				if got := values["periodEnd"][0]; got != "202401011200" {
					t.Errorf("periodEnd = %q, want 202401011200", got)
				}
			},
		},
		{
			name: "unknown document type",
			params: RequestParams{
				DocumentType: "A99",
				InArea:       de,
				PeriodStart:  start,
				PeriodEnd:    end,
			},
			wantErr:   true,
			wantField: "documentType",
		},
		{
			name: "unknown process type",
			params: RequestParams{
				DocumentType: "A65",
				ProcessType:  "Z16",
				InArea:       de,
				PeriodStart:  start,
				PeriodEnd:    end,
			},
			wantErr:   true,
			wantField: "processType",
		},
		{
			name: "area without required bidding zone type",
			params: RequestParams{
				DocumentType: "A65",
				ProcessType:  "A16",
				InArea:       it,
				PeriodStart:  start,
				PeriodEnd:    end,
			},
			wantErr:   true,
			wantField: "in_Domain",
		},
		{
			name: "missing domain",
			params: RequestParams{
				DocumentType: "A65",
				ProcessType:  "A16",
				PeriodStart:  start,
				PeriodEnd:    end,
			},
			wantErr:   true,
			wantField: "in_Domain",
		},
		{
			name: "start not before end",
			params: RequestParams{
				DocumentType: "A65",
				ProcessType:  "A16",
				InArea:       de,
				PeriodStart:  end,
				PeriodEnd:    start,
			},
			wantErr:   true,
			wantField: "period",
		},
		{
			name: "range beyond one year",
			params: RequestParams{
				DocumentType: "A65",
				ProcessType:  "A16",
				InArea:       de,
				PeriodStart:  start,
				PeriodEnd:    start.Add(366 * 24 * time.Hour),
			},
			wantErr:   true,
			wantField: "period",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := BuildRequest(tt.params)

			if (err != nil) != tt.wantErr {
				t.Errorf("BuildRequest() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				var valErr *ValidationError
				if !errors.As(err, &valErr) {
					t.Fatalf("error = %T, want *ValidationError", err)
				}
				if valErr.Field != tt.wantField {
					t.Errorf("Field = %q, want %q", valErr.Field, tt.wantField)
				}
				return
			}

			if tt.check != nil {
				tt.check(t, values)
			}
		})
	}
}
