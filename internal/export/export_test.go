package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rovshanmuradov/solana-middleware/internal/storage/csvstore"
	"github.com/rovshanmuradov/solana-middleware/internal/storage/models"
	"go.uber.org/zap"
)

func TestExportCSV(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	tempDir := t.TempDir()

	outputPath, err := exporter.Export(generateTestSubmissions(), Options{
		Format:    FormatCSV,
		OutputDir: tempDir,
	})
	if err != nil {
		t.Fatalf("Failed to export submissions: %v", err)
	}

	file, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("Failed to open export file: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("Expected header + 5 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(csvstore.Header, ",") {
		t.Errorf("Unexpected header: %v", records[0])
	}
	// Строки упорядочены по времени
	if records[1][1] != "sub-1" || records[5][1] != "sub-5" {
		t.Errorf("Rows are not sorted by time: first %s, last %s", records[1][1], records[5][1])
	}
}

func TestExportJSON(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	tempDir := t.TempDir()

	outputPath, err := exporter.Export(generateTestSubmissions(), Options{
		Format:    FormatJSON,
		OutputDir: tempDir,
	})
	if err != nil {
		t.Fatalf("Failed to export submissions: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read export file: %v", err)
	}

	var decoded struct {
		Count   int     `json:"count"`
		Summary Summary `json:"summary"`
	}
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("Failed to decode export: %v", err)
	}
	if decoded.Count != 5 {
		t.Errorf("Expected 5 submissions, got %d", decoded.Count)
	}
	if decoded.Summary.Confirmed != 2 {
		t.Errorf("Expected 2 confirmed, got %d", decoded.Summary.Confirmed)
	}
}

func TestExportFilters(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	rows := generateTestSubmissions()

	tests := []struct {
		name    string
		options Options
		want    int
	}{
		{"time window", Options{StartTime: time.Now().Add(-35 * time.Minute), EndTime: time.Now().Add(-15 * time.Minute)}, 2},
		{"method", Options{Method: "add_whitelisted_hook"}, 2},
		{"only confirmed", Options{OnlyConfirmed: true}, 2},
		{"method and confirmed", Options{Method: "initialize", OnlyConfirmed: true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exporter.filter(rows, tt.options)
			if len(got) != tt.want {
				t.Errorf("Expected %d rows, got %d", tt.want, len(got))
			}
		})
	}

	_, err := exporter.Export(rows, Options{Format: FormatCSV, Method: "missing", OutputDir: t.TempDir()})
	if err == nil {
		t.Error("Expected error when nothing matches")
	}

	_, err = exporter.Export(rows, Options{Format: "xml", OutputDir: t.TempDir()})
	if err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestSummarize(t *testing.T) {
	rows := generateTestSubmissions()
	summary := Summarize(rows)

	if summary.Total != 5 {
		t.Errorf("Expected 5 total, got %d", summary.Total)
	}
	if summary.Confirmed != 2 || summary.Rejected != 1 || summary.TimedOut != 1 || summary.Failed != 1 {
		t.Errorf("Unexpected outcome split: %+v", summary)
	}
	if summary.FallbackUsed != 1 {
		t.Errorf("Expected 1 fallback, got %d", summary.FallbackUsed)
	}
	if summary.ByMethod["add_whitelisted_hook"] != 2 {
		t.Errorf("Expected 2 add_whitelisted_hook, got %d", summary.ByMethod["add_whitelisted_hook"])
	}
	if summary.ByErrorKind["simulation_rejected"] != 1 {
		t.Errorf("Expected 1 simulation_rejected, got %d", summary.ByErrorKind["simulation_rejected"])
	}
	if summary.AvgExecutionTime != 2.0 {
		t.Errorf("Expected avg execution time 2.0, got %.2f", summary.AvgExecutionTime)
	}
	if !summary.StartDate.Equal(rows[0].CreatedAt) {
		t.Errorf("Unexpected start date %v", summary.StartDate)
	}

	empty := Summarize(nil)
	if empty.Total != 0 || empty.AvgExecutionTime != 0 {
		t.Errorf("Expected empty summary, got %+v", empty)
	}
}

func TestFilenameGeneration(t *testing.T) {
	exporter := NewExporter(zap.NewNop())

	tests := []struct {
		options  Options
		expected string
	}{
		{Options{Format: FormatCSV}, "submissions_all"},
		{Options{Format: FormatJSON, Method: "initialize"}, "submissions_initialize"},
	}
	for _, tt := range tests {
		filename := exporter.filename(tt.options)
		if !strings.HasPrefix(filename, tt.expected) {
			t.Errorf("Expected filename to start with %s, got %s", tt.expected, filename)
		}
		if !strings.HasSuffix(filename, "."+string(tt.options.Format)) {
			t.Errorf("Expected filename to end with .%s, got %s", tt.options.Format, filename)
		}
	}
}

// generateTestSubmissions строки истории в обратном порядке времени
func generateTestSubmissions() []*models.Submission {
	now := time.Now()
	row := func(id, method, outcome, kind string, ago time.Duration) *models.Submission {
		s := &models.Submission{
			SubmissionID:  id,
			Method:        method,
			Outcome:       outcome,
			ErrorKind:     kind,
			ExecutionTime: 2.0,
		}
		s.CreatedAt = now.Add(-ago)
		return s
	}

	rows := []*models.Submission{
		row("sub-5", "execute_swap_with_hook_check", "", "network_failure", 5*time.Minute),
		row("sub-4", "add_whitelisted_hook", "timed_out", "timeout", 20*time.Minute),
		row("sub-3", "add_whitelisted_hook", "rejected", "simulation_rejected", 30*time.Minute),
		row("sub-2", "check_transfer_hook", "confirmed", "", 45*time.Minute),
		row("sub-1", "initialize", "confirmed", "", time.Hour),
	}
	rows[1].FallbackUsed = true
	return rows
}
