package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"exchange-ledger/internal/aggregator"
	"exchange-ledger/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

func sampleTransactions() []models.Transaction {
	return []models.Transaction{
		{
			DealID: "ACME-051225-001", TxDate: "2025-12-05", Type: models.TransactionTypeInflow, TypeLabel: "inflow",
			Customer: "Acme Corp", BaseCurrency: "USD", Amount: models.Valid(decimal.NewFromInt(1000)), Source: models.SourceRemote,
		},
		{
			DealID: "ACME-051225-001", TxDate: "2025-12-06", Type: models.TransactionTypeConversion, TypeLabel: "conversion",
			Customer: "Acme Corp", BaseCurrency: "RMB", TargetCurrency: "USD",
			Amount: models.Valid(decimal.NewFromInt(700)), TraderRate: models.Valid(decimal.NewFromInt(7)),
			Payable: models.Valid(decimal.NewFromInt(100)), Source: models.SourceLocal, RecordID: "rec-1",
		},
		{
			DealID: "BETA-061225-001", TxDate: "2025-12-06", Type: models.TransactionTypeOutflow, TypeLabel: "outflow",
			Customer: "Beta", BaseCurrency: "USD", Amount: models.Null(), Source: models.SourceRemote,
		},
	}
}

func sampleSummary() *aggregator.Summary {
	summary := aggregator.Summarize(sampleTransactions(), language.English)
	summary.Diagnostics = []string{"failed to load remote dataset"}
	return summary
}

func TestNewReportGenerator(t *testing.T) {
	tests := []struct {
		name        string
		config      *ReportConfig
		expectError bool
	}{
		{
			name:        "default config",
			config:      nil,
			expectError: false,
		},
		{
			name:        "valid config",
			config:      DefaultReportConfig(),
			expectError: false,
		},
		{
			name:        "invalid format",
			config:      &ReportConfig{Format: "invalid"},
			expectError: true,
		},
		{
			name:        "negative limit",
			config:      &ReportConfig{Format: FormatConsole, MaxTransactions: -1},
			expectError: true,
		},
		{
			name:        "bad locale",
			config:      &ReportConfig{Format: FormatConsole, Locale: "not a locale!"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := NewReportGenerator(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if generator == nil {
					t.Errorf("expected generator but got nil")
				}
			}
		})
	}
}

func TestOutputFormatValidation(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{FormatConsole, true},
		{FormatJSON, true},
		{FormatCSV, true},
		{FormatMarkdown, true},
		{"invalid", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if tt.format.IsValid() != tt.valid {
				t.Errorf("expected IsValid() = %v for format %s", tt.valid, tt.format)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	summary := sampleSummary()

	tests := []struct {
		name     string
		format   OutputFormat
		view     View
		contains []string
	}{
		{
			name:     "console dashboard",
			format:   FormatConsole,
			view:     ViewDashboard,
			contains: []string{"DASHBOARD", "Total Deals:", "2", "=== SOURCES ===", "REMOTE:", "LOCAL:", "=== VOLUME BY BASE CURRENCY ===", "1,000", "=== DIAGNOSTICS ===", "! failed to load remote dataset"},
		},
		{
			name:     "console deals",
			format:   FormatConsole,
			view:     ViewDeals,
			contains: []string{"DEALS (2)", "ACME-051225-001", "Acme Corp", "1,700", "BETA-061225-001"},
		},
		{
			name:     "console transactions",
			format:   FormatConsole,
			view:     ViewTransactions,
			contains: []string{"TRANSACTIONS (3)", "inflow – 1,000 USD", "conversion – 700 RMB", "LOCAL"},
		},
		{
			name:     "markdown deals",
			format:   FormatMarkdown,
			view:     ViewDeals,
			contains: []string{"# Deals (2)", "| Deal", "| Customer", "ACME-051225-001", "1,700"},
		},
		{
			name:     "markdown dashboard",
			format:   FormatMarkdown,
			view:     ViewDashboard,
			contains: []string{"# Dashboard", "## Sources", "## Volume by Base Currency", "## Diagnostics"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := NewReportGenerator(&ReportConfig{Format: tt.format})
			if err != nil {
				t.Fatalf("failed to create generator: %v", err)
			}

			var buf bytes.Buffer
			if err := generator.Generate(tt.view, summary, &buf); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			output := buf.String()
			for _, expected := range tt.contains {
				if !strings.Contains(output, expected) {
					t.Errorf("expected output to contain %q, got:\n%s", expected, output)
				}
			}
		})
	}
}

func TestGenerate_Errors(t *testing.T) {
	generator, _ := NewReportGenerator(nil)

	if err := generator.Generate(ViewDeals, nil, &bytes.Buffer{}); err == nil {
		t.Error("expected error for nil summary")
	}
	if err := generator.Generate("charts", sampleSummary(), &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown view")
	}
}

func TestJSONOutput(t *testing.T) {
	generator, _ := NewReportGenerator(&ReportConfig{Format: FormatJSON})
	summary := sampleSummary()

	var buf bytes.Buffer
	if err := generator.Generate(ViewDashboard, summary, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["total_deals"] != float64(2) {
		t.Errorf("expected total_deals 2, got %v", decoded["total_deals"])
	}

	buf.Reset()
	if err := generator.Generate(ViewTransactions, summary, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var txs []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &txs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}
	if txs[2]["amount"] != nil {
		t.Errorf("expected null amount for unparsable value, got %v", txs[2]["amount"])
	}
}

func TestCSVFormatting(t *testing.T) {
	tests := []struct {
		name         string
		view         View
		headers      bool
		delimiter    rune
		expectedRows int
		firstCell    string
	}{
		{"deals with headers", ViewDeals, true, ',', 3, "Deal_ID"},
		{"deals without headers", ViewDeals, false, ',', 2, "ACME-051225-001"},
		{"transactions semicolon", ViewTransactions, true, ';', 4, "Deal_ID"},
		{"dashboard metrics", ViewDashboard, true, ',', 7, "Metric"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := NewReportGenerator(&ReportConfig{
				Format:       FormatCSV,
				CSVHeaders:   tt.headers,
				CSVDelimiter: tt.delimiter,
			})
			if err != nil {
				t.Fatalf("failed to create generator: %v", err)
			}

			var buf bytes.Buffer
			if err := generator.Generate(tt.view, sampleSummary(), &buf); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			reader := csv.NewReader(&buf)
			reader.Comma = tt.delimiter
			reader.FieldsPerRecord = -1
			records, err := reader.ReadAll()
			if err != nil {
				t.Fatalf("invalid CSV: %v", err)
			}

			if len(records) != tt.expectedRows {
				t.Errorf("expected %d rows, got %d: %v", tt.expectedRows, len(records), records)
			}
			if records[0][0] != tt.firstCell {
				t.Errorf("expected first cell %q, got %q", tt.firstCell, records[0][0])
			}
		})
	}
}

func TestMaxTransactions(t *testing.T) {
	generator, _ := NewReportGenerator(&ReportConfig{Format: FormatConsole, MaxTransactions: 1})

	var buf bytes.Buffer
	if err := generator.Generate(ViewTransactions, sampleSummary(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "... 2 more") {
		t.Errorf("expected truncation notice, got:\n%s", buf.String())
	}
}

func TestPrettyMarkdown(t *testing.T) {
	generator, _ := NewReportGenerator(&ReportConfig{Format: FormatMarkdown, Pretty: true, PrettyStyle: "notty"})

	var buf bytes.Buffer
	if err := generator.Generate(ViewDeals, sampleSummary(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if output == generator.MarkdownView(ViewDeals, sampleSummary()) {
		t.Errorf("expected rendered output to differ from raw markdown")
	}
	if !strings.Contains(output, "ACME-051225-001") {
		t.Errorf("expected deal id in rendered output, got:\n%s", output)
	}
}

func TestUpdateConfiguration(t *testing.T) {
	generator, _ := NewReportGenerator(nil)

	if err := generator.UpdateConfiguration(&ReportConfig{Format: "xml"}); err == nil {
		t.Error("expected error for invalid configuration")
	}

	newConfig := &ReportConfig{Format: FormatJSON, Locale: "de"}
	if err := generator.UpdateConfiguration(newConfig); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if generator.GetConfiguration().Format != FormatJSON {
		t.Errorf("expected format to be updated")
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestSafeReportGenerator(t *testing.T) {
	srg, err := NewSafeReportGenerator(&ReportConfig{Format: FormatMarkdown, Pretty: true, PrettyStyle: "/no/such/style.json"}, nil)
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	var buf bytes.Buffer
	if err := srg.GenerateSafely(ViewDeals, sampleSummary(), &buf); err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if !strings.Contains(buf.String(), "NOTE: Report generated in fallback format") {
		t.Errorf("expected fallback notice, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "DEALS (2)") {
		t.Errorf("expected console output after fallback, got:\n%s", buf.String())
	}

	if err := srg.GenerateSafely(ViewDeals, sampleSummary(), failingWriter{}); err == nil {
		t.Error("expected error from failing writer")
	}

	if _, err := NewSafeReportGenerator(&ReportConfig{Format: "xml"}, nil); err == nil {
		t.Error("expected configuration error")
	}
}

func TestGenerateBackupPath(t *testing.T) {
	if got := generateBackupPath("/tmp/out/deals.csv"); got != "/tmp/out/deals_backup.csv" {
		t.Errorf("unexpected backup path %q", got)
	}
}
