// internal/logger/logger.go
package logger

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	LogFile    string // пусто: только консоль
	MaxSize    int    // мегабайты
	MaxAge     int    // дни
	MaxBackups int    // количество файлов
	Compress   bool   // сжимать ротированные файлы
	Debug      bool
	Pretty     bool // человекочитаемая консоль вместо полного вывода полей
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		LogFile:    "middleware.log",
		MaxSize:    100,  // 100 MB
		MaxAge:     7,    // 7 дней
		MaxBackups: 3,    // 3 файла
		Compress:   true, // сжимать старые логи
		Pretty:     true,
	}
}

// New создает логгер: консоль + JSON файл с ротацией через lumberjack.
func New(cfg *Config) (*zap.Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}

	var consoleCore zapcore.Core
	if cfg.Pretty {
		consoleCore = &FieldFilterCore{core: zapcore.NewCore(
			PrettyEncoder(),
			zapcore.AddSync(zapcore.Lock(os.Stdout)),
			level,
		)}
	} else {
		consoleCore = zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig(cfg.Debug)),
			zapcore.AddSync(zapcore.Lock(os.Stdout)),
			level,
		)
	}

	cores := []zapcore.Core{consoleCore}
	if cfg.LogFile != "" {
		// Настройка ротации логов
		logRotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		// В файл всегда пишем debug: консоль остаётся чистой
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig(cfg.Debug)),
			zapcore.AddSync(logRotator),
			zapcore.DebugLevel,
		))
	}

	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

func encoderConfig(debug bool) zapcore.EncoderConfig {
	encoderConfig := zap.NewProductionEncoderConfig()
	if debug {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	return encoderConfig
}

// WithSubmission добавляет идентификатор отправки к логам
func WithSubmission(l *zap.Logger, submissionID string) *zap.Logger {
	return l.With(zap.String("submission_id", submissionID))
}

// WithOperation создает логгер для конкретной операции
func WithOperation(l *zap.Logger, operation string) *zap.Logger {
	return l.With(
		zap.String("operation", operation),
		zap.String("correlation_id", uuid.New().String()),
		zap.Time("start_time", time.Now().UTC()),
	)
}

// TrackPerformance отслеживает производительность операции
func TrackPerformance(l *zap.Logger, operation string) (end func()) {
	start := time.Now()
	opLogger := WithOperation(l, operation)

	opLogger.Debug("Starting operation")

	return func() {
		duration := time.Since(start)
		opLogger.Debug("Operation completed",
			zap.Duration("duration", duration),
			zap.Float64("duration_ms", float64(duration.Microseconds())/1000),
		)
	}
}

// Sync сбрасывает буферы, игнорируя ошибки sync для терминала
func Sync(l *zap.Logger) error {
	err := l.Sync()
	if err != nil && (errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)) {
		return nil
	}
	return err
}
