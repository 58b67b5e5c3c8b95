// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/rovshanmuradov/solana-middleware/internal/storage/models"
)

// ErrNotFound возвращается, когда запись истории не найдена
var ErrNotFound = errors.New("submission not found")

// Recorder сохраняет историю отправок
type Recorder interface {
	SaveSubmission(ctx context.Context, sub *models.Submission) error
	Close() error
}

// Storage определяет интерфейс для работы с хранилищем
type Storage interface {
	Recorder

	GetSubmission(ctx context.Context, submissionID string) (*models.Submission, error)
	GetBySignature(ctx context.Context, signature string) (*models.Submission, error)
	ListSubmissions(ctx context.Context, authority string, limit, offset int) ([]*models.Submission, error)
	UpdateSubmissionStatus(ctx context.Context, signature string, state string, errorMsg string) error

	// Миграции
	RunMigrations() error
}
