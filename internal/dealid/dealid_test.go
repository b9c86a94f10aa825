package dealid

import (
	"testing"
	"time"

	"exchange-ledger/internal/models"

	"github.com/stretchr/testify/assert"
)

func rowsOn(dates ...string) []models.Transaction {
	rows := make([]models.Transaction, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, models.Transaction{TxDate: d})
	}
	return rows
}

func fixedClock() time.Time {
	return time.Date(2026, time.March, 9, 15, 0, 0, 0, time.Local)
}

func TestGenerate(t *testing.T) {
	g := &Generator{Clock: fixedClock}

	tests := []struct {
		name     string
		customer string
		date     string
		existing []models.Transaction
		expected string
	}{
		{
			name:     "first deal of the day",
			customer: "Acme Corp",
			date:     "2025-12-05",
			expected: "ACME-051225-001",
		},
		{
			name:     "two prior rows on the same day",
			customer: "Acme Corp",
			date:     "2025-12-05",
			existing: rowsOn("2025-12-05", "2025-12-05", "2025-12-04"),
			expected: "ACME-051225-003",
		},
		{
			name:     "timestamped rows count by calendar day",
			customer: "Acme Corp",
			date:     "2025-12-05",
			existing: rowsOn("2025-12-05T08:00:00Z"),
			expected: "ACME-051225-002",
		},
		{
			name:     "short name is padded",
			customer: "Al",
			date:     "2024-01-31",
			expected: "ALXX-310124-001",
		},
		{
			name:     "no letters falls back",
			customer: "123 !!",
			date:     "2024-01-31",
			expected: "DEAL-310124-001",
		},
		{
			name:     "missing date uses clock",
			customer: "Zeta",
			date:     "",
			existing: rowsOn("2026-03-09"),
			expected: "ZETA-090326-002",
		},
		{
			name:     "unparsable date uses clock",
			customer: "Zeta",
			date:     "yesterday",
			expected: "ZETA-090326-001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, g.Generate(tt.customer, tt.date, tt.existing))
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	g := &Generator{Clock: fixedClock}
	snapshot := rowsOn("2025-12-05", "2025-12-06")

	first := g.Generate("Acme Corp", "2025-12-05", snapshot)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, g.Generate("Acme Corp", "2025-12-05", snapshot))
	}
}

func TestPrefix(t *testing.T) {
	tests := map[string]string{
		"Acme Corp":   "ACME",
		"acme":        "ACME",
		"Bo":          "BOXX",
		"O'Neil & Co": "ONEI",
		"Ünal":        "NALX",
		"":            "DEAL",
		"42":          "DEAL",
	}

	for input, expected := range tests {
		assert.Equal(t, expected, Prefix(input), "Prefix(%q)", input)
	}
}

func TestDateCode(t *testing.T) {
	assert.Equal(t, "051225", DateCode(time.Date(2025, time.December, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "010100", DateCode(time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)))
}
