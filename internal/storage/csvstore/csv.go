// internal/storage/csvstore/csv.go
package csvstore

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rovshanmuradov/solana-middleware/internal/storage"
	"github.com/rovshanmuradov/solana-middleware/internal/storage/models"
	"go.uber.org/zap"
)

// Header колонки файла истории
var Header = []string{
	"timestamp", "submission_id", "authority", "method", "selector", "state",
	"outcome", "signature", "slot", "fallback", "error_kind", "error",
}

// Recorder пишет историю отправок в CSV; безопасен для конкурентного использования
type Recorder struct {
	mu       sync.Mutex
	writer   *csv.Writer
	file     *os.File
	ticker   *time.Ticker
	done     chan struct{}
	logger   *zap.Logger
	filePath string

	// Stats
	writtenRecords uint64
	flushCount     uint64
}

var _ storage.Recorder = (*Recorder)(nil)

// NewRecorder открывает файл в режиме добавления и пишет заголовок в пустой файл
func NewRecorder(filePath string, flushInterval time.Duration, logger *zap.Logger) (*Recorder, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	r := &Recorder{
		writer:   csv.NewWriter(file),
		file:     file,
		ticker:   time.NewTicker(flushInterval),
		done:     make(chan struct{}),
		logger:   logger.Named("csv-history"),
		filePath: filePath,
	}

	if stat.Size() == 0 {
		if err := r.writer.Write(Header); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		r.writer.Flush()
	}

	go r.periodicFlush()

	return r, nil
}

// Record строка истории в порядке Header
func Record(sub *models.Submission, at time.Time) []string {
	return []string{
		at.UTC().Format(time.RFC3339),
		sub.SubmissionID,
		sub.Authority,
		sub.Method,
		sub.Selector,
		sub.State,
		sub.Outcome,
		sub.Signature,
		strconv.FormatUint(sub.Slot, 10),
		strconv.FormatBool(sub.FallbackUsed),
		sub.ErrorKind,
		sub.ErrorMessage,
	}
}

// SaveSubmission добавляет строку истории
func (r *Recorder) SaveSubmission(_ context.Context, sub *models.Submission) error {
	record := Record(sub, time.Now())

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	r.writtenRecords++
	return nil
}

// Flush forces a write of any buffered data
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	if err := r.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}

	r.flushCount++
	return nil
}

func (r *Recorder) periodicFlush() {
	for {
		select {
		case <-r.ticker.C:
			if err := r.Flush(); err != nil {
				r.logger.Error("Periodic CSV flush failed",
					zap.String("file", r.filePath),
					zap.Error(err))
			}
		case <-r.done:
			return
		}
	}
}

// Close останавливает периодический сброс и закрывает файл
func (r *Recorder) Close() error {
	close(r.done)
	r.ticker.Stop()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error on close: %w", err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	r.logger.Debug("CSV history closed",
		zap.String("file", r.filePath),
		zap.Uint64("written_records", r.writtenRecords),
		zap.Uint64("flush_count", r.flushCount))

	return nil
}

// Stats returns written records and flush count
func (r *Recorder) Stats() (records, flushes uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writtenRecords, r.flushCount
}
