package repository

import (
	"os"
	"regexp"
	"strings"
	"testing"
)

// The natural key that makes record writes idempotent. The upsert statement
// and the schema's unique constraint must both target exactly these columns,
// in this order, or replayed collection windows would insert duplicates
// instead of updating in place.
var naturalKeyColumns = []string{"area", "data_type", "business_type", "ts", "document_id"}

func TestUpsertConflictTargetMatchesNaturalKey(t *testing.T) {
	target := extractParenList(t, upsertRecordQuery, `ON CONFLICT\s*\(([^)]+)\)`)
	if !equalColumns(target, naturalKeyColumns) {
		t.Errorf("upsert conflict target = %v, want %v", target, naturalKeyColumns)
	}

	if !strings.Contains(upsertRecordQuery, "DO UPDATE SET") {
		t.Error("upsert must update on conflict, not skip the row")
	}
	if !strings.Contains(upsertRecordQuery, "quantity = EXCLUDED.quantity") {
		t.Error("conflicting rows must take the replayed quantity")
	}
	if !strings.Contains(upsertRecordQuery, "revision = EXCLUDED.revision") {
		t.Error("conflicting rows must take the replayed revision")
	}
}

func TestSchemaUniqueConstraintMatchesNaturalKey(t *testing.T) {
	schema, err := os.ReadFile("../../migrations/001_create_schema.up.sql")
	if err != nil {
		t.Fatalf("reading schema migration: %v", err)
	}

	constraint := extractParenList(t, string(schema), `CONSTRAINT uq_energy_data_natural_key\s+UNIQUE\s*\(([^)]+)\)`)
	if !equalColumns(constraint, naturalKeyColumns) {
		t.Errorf("schema unique constraint = %v, want %v", constraint, naturalKeyColumns)
	}
}

func extractParenList(t *testing.T, text, pattern string) []string {
	t.Helper()

	m := regexp.MustCompile(pattern).FindStringSubmatch(text)
	if m == nil {
		t.Fatalf("pattern %q not found", pattern)
	}

	parts := strings.Split(m[1], ",")
	columns := make([]string, 0, len(parts))
	for _, p := range parts {
		columns = append(columns, strings.TrimSpace(p))
	}
	return columns
}

func equalColumns(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
