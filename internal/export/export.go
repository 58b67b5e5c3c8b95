package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rovshanmuradov/solana-middleware/internal/storage/csvstore"
	"github.com/rovshanmuradov/solana-middleware/internal/storage/models"
	"go.uber.org/zap"
)

// Format represents the export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Options configures the export behavior
type Options struct {
	Format        Format
	StartTime     time.Time
	EndTime       time.Time
	Method        string // Filter by program method
	OnlyConfirmed bool
	OutputDir     string
}

// Exporter writes submission history to files
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates a new history exporter
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger.Named("export")}
}

// Export filters submissions and writes them in the requested format.
// Returns the path of the written file.
func (e *Exporter) Export(rows []*models.Submission, options Options) (string, error) {
	filtered := e.filter(rows, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no submissions match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	if options.OutputDir == "" {
		options.OutputDir = "."
	}
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, e.filename(options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = e.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = e.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("Submissions exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (e *Exporter) filter(rows []*models.Submission, options Options) []*models.Submission {
	var filtered []*models.Submission
	for _, row := range rows {
		if !options.StartTime.IsZero() && row.CreatedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && row.CreatedAt.After(options.EndTime) {
			continue
		}
		if options.Method != "" && row.Method != options.Method {
			continue
		}
		if options.OnlyConfirmed && row.Outcome != "confirmed" {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered
}

func (e *Exporter) filename(options Options) string {
	prefix := "submissions_all"
	if options.Method != "" {
		prefix = "submissions_" + options.Method
	}
	return fmt.Sprintf("%s_%s.%s", prefix, time.Now().Format("20060102_150405"), options.Format)
}

func (e *Exporter) exportToCSV(rows []*models.Submission, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvstore.Header); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(csvstore.Record(row, row.CreatedAt)); err != nil {
			return fmt.Errorf("failed to write submission: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (e *Exporter) exportToJSON(rows []*models.Submission, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime  time.Time            `json:"export_time"`
		Count       int                  `json:"count"`
		Summary     Summary              `json:"summary"`
		Submissions []*models.Submission `json:"submissions"`
	}{
		ExportTime:  time.Now(),
		Count:       len(rows),
		Summary:     Summarize(rows),
		Submissions: rows,
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary aggregates outcomes of exported submissions
type Summary struct {
	Total            int            `json:"total"`
	Confirmed        int            `json:"confirmed"`
	Rejected         int            `json:"rejected"`
	TimedOut         int            `json:"timed_out"`
	Failed           int            `json:"failed"` // нет итога: ошибка до отправки или сеть
	FallbackUsed     int            `json:"fallback_used"`
	ByMethod         map[string]int `json:"by_method"`
	ByErrorKind      map[string]int `json:"by_error_kind"`
	AvgExecutionTime float64        `json:"avg_execution_time"`
	StartDate        time.Time      `json:"start_date"`
	EndDate          time.Time      `json:"end_date"`
}

// Summarize computes summary statistics; rows are expected in time order
func Summarize(rows []*models.Submission) Summary {
	summary := Summary{
		Total:       len(rows),
		ByMethod:    make(map[string]int),
		ByErrorKind: make(map[string]int),
	}
	if len(rows) == 0 {
		return summary
	}

	summary.StartDate = rows[0].CreatedAt
	summary.EndDate = rows[len(rows)-1].CreatedAt

	var totalTime float64
	for _, row := range rows {
		summary.ByMethod[row.Method]++
		if row.ErrorKind != "" {
			summary.ByErrorKind[row.ErrorKind]++
		}
		if row.FallbackUsed {
			summary.FallbackUsed++
		}
		switch row.Outcome {
		case "confirmed":
			summary.Confirmed++
		case "rejected":
			summary.Rejected++
		case "timed_out":
			summary.TimedOut++
		default:
			summary.Failed++
		}
		totalTime += row.ExecutionTime
	}
	summary.AvgExecutionTime = totalTime / float64(len(rows))
	return summary
}
