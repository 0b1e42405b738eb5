package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// columnLine finds the DDL line declaring a column inside the CREATE
// TABLE statement for the given table.
func columnLine(t *testing.T, table, column string) string {
	t.Helper()

	for _, stmt := range schemaStatements {
		if !strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS "+table+" ") {
			continue
		}
		for _, line := range strings.Split(stmt, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), column+" ") {
				return line
			}
		}
	}

	t.Fatalf("column %s.%s not found in schema", table, column)
	return ""
}

func TestSchemaKeepsOptionalColumnsNullable(t *testing.T) {
	// The stores bind absent slugs, countries and promo codes as SQL
	// NULL, so these columns must not carry a NOT NULL constraint.
	for _, tc := range []struct {
		table  string
		column string
	}{
		{"events", "campaign_slug"},
		{"events", "geo_country"},
		{"orders", "promo_code"},
	} {
		line := columnLine(t, tc.table, tc.column)
		require.NotContains(t, line, "NOT NULL", "%s.%s must accept NULL", tc.table, tc.column)
	}
}

func TestSchemaRequiredColumnsStayConstrained(t *testing.T) {
	for _, tc := range []struct {
		table  string
		column string
	}{
		{"events", "event_type"},
		{"events", "occurred_at"},
		{"orders", "external_order_id"},
		{"orders", "currency"},
	} {
		line := columnLine(t, tc.table, tc.column)
		require.Contains(t, line, "NOT NULL", "%s.%s must stay required", tc.table, tc.column)
	}
}
