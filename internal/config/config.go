// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения (MIDDLEWARE_RPC_LIST и т.д.)
const EnvPrefix = "MIDDLEWARE"

type Config struct {
	RPCList        []string                     `mapstructure:"rpc_list"`
	ProgramID      string                       `mapstructure:"program_id"`
	AMMProgramID   string                       `mapstructure:"amm_program_id"`
	Keypair        string                       `mapstructure:"keypair"`
	Commitment     string                       `mapstructure:"commitment"`
	PollInterval   time.Duration                `mapstructure:"poll_interval"`
	ConfirmTimeout time.Duration                `mapstructure:"confirm_timeout"`
	RetryElapsed   time.Duration                `mapstructure:"retry_elapsed"`
	ComputeUnits   uint32                       `mapstructure:"compute_units"`
	ComputePrice   uint64                       `mapstructure:"compute_unit_price"`
	SkipPreflight  bool                         `mapstructure:"skip_preflight"`
	DebugLogging   bool                         `mapstructure:"debug_logging"`
	LogFile        string                       `mapstructure:"log_file"`
	PostgresURL    string                       `mapstructure:"postgres_url"`
	HistoryCSV     string                       `mapstructure:"history_csv"`
	MetricsAddr    string                       `mapstructure:"metrics_addr"`
	SwapPresets    map[string]map[string]string `mapstructure:"swap_presets"`
}

const (
	DefaultProgramID      = "7rPx2YD8zuQG1owdEp7mYtqgTzDpwe9qt8rnPVJAFc4D"
	DefaultAMMProgramID   = "DRaya7Kj3aMWQSy19kSjvmuwq9docCHofyP9kanQGaav"
	DefaultCommitment     = "confirmed"
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultConfirmTimeout = 60 * time.Second
	DefaultRetryElapsed   = 10 * time.Second
	DefaultComputeUnits   = 300_000
	DefaultComputePrice   = 1_000
	DefaultLogFile        = "middleware.log"
)

var envOnce sync.Once

// LoadConfig читает файл конфигурации (JSON/YAML/TOML по расширению),
// затем применяет .env и переменные окружения MIDDLEWARE_*.
// Пустой path означает конфигурацию только из окружения.
func LoadConfig(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()

	defaults := map[string]interface{}{
		"rpc_list":           []string{rpc.DevNet_RPC},
		"program_id":         DefaultProgramID,
		"amm_program_id":     DefaultAMMProgramID,
		"commitment":         DefaultCommitment,
		"poll_interval":      DefaultPollInterval,
		"confirm_timeout":    DefaultConfirmTimeout,
		"retry_elapsed":      DefaultRetryElapsed,
		"compute_units":      DefaultComputeUnits,
		"compute_unit_price": DefaultComputePrice,
		"log_file":           DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	bindEnvironment(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Списки из окружения приходят строкой через запятую
	cfg.RPCList = splitList(strings.Join(cfg.RPCList, ","))

	return &cfg, validateConfig(&cfg)
}

// loadDotEnv загружает .env из рабочей директории, если он есть. Уже заданные
// переменные окружения не перезаписываются.
func loadDotEnv() {
	envOnce.Do(func() {
		if _, err := os.Stat(".env"); err == nil {
			_ = godotenv.Load(".env")
		}
	})
}

func bindEnvironment(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv не видит ключи без значения по умолчанию при Unmarshal
	for _, key := range []string{
		"keypair", "skip_preflight", "debug_logging", "postgres_url",
		"history_csv", "metrics_addr",
	} {
		_ = v.BindEnv(key)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if clean := strings.TrimSpace(item); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", rpcURL, err)
		}
	}
	if _, err := solana.PublicKeyFromBase58(cfg.ProgramID); err != nil {
		return fmt.Errorf("invalid program_id: %w", err)
	}
	if cfg.AMMProgramID != "" {
		if _, err := solana.PublicKeyFromBase58(cfg.AMMProgramID); err != nil {
			return fmt.Errorf("invalid amm_program_id: %w", err)
		}
	}
	switch rpc.CommitmentType(cfg.Commitment) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return fmt.Errorf("invalid commitment %q", cfg.Commitment)
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if cfg.PostgresURL != "" {
		if err := validateURLWithCache(cfg.PostgresURL, "postgres"); err != nil {
			return errors.New("postgres_url must use postgres:// scheme")
		}
	}
	for name, roles := range cfg.SwapPresets {
		if len(roles) == 0 {
			return fmt.Errorf("swap preset %q is empty", name)
		}
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.PollInterval <= 0 {
		return errors.New("invalid poll_interval")
	}
	if cfg.ConfirmTimeout < cfg.PollInterval {
		return errors.New("confirm_timeout must not be shorter than poll_interval")
	}
	if cfg.RetryElapsed < 0 {
		return errors.New("invalid retry_elapsed")
	}
	if cfg.ComputeUnits > 1_400_000 {
		return errors.New("compute_units exceeds 1400000")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// Program возвращает ID программы middleware
func (c *Config) Program() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.ProgramID)
}

// AMMProgram возвращает ID программы AMM или нулевой ключ
func (c *Config) AMMProgram() solana.PublicKey {
	if c.AMMProgramID == "" {
		return solana.PublicKey{}
	}
	return solana.MustPublicKeyFromBase58(c.AMMProgramID)
}

// CommitmentType возвращает уровень подтверждения RPC
func (c *Config) CommitmentType() rpc.CommitmentType {
	return rpc.CommitmentType(c.Commitment)
}
