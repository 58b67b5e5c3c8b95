// internal/blockchain/computebudget/computebudget.go
package computebudget

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/gagliardetto/solana-go"
	cb "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// ProgramID программы ComputeBudget
var ProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

// Профили по умолчанию
const (
	DefaultUnits     uint32 = 300_000
	DefaultUnitPrice uint64 = 1_000
	MaxUnits         uint32 = 1_400_000

	microLamportsPerLamport = 1_000_000
)

// Config подсказки бюджета вычислений для транзакции.
// Нулевые значения означают "не добавлять инструкцию".
type Config struct {
	Units     uint32
	UnitPrice uint64 // micro-lamports за compute unit
}

// NewDefaultConfig создает конфигурацию по умолчанию
func NewDefaultConfig() Config {
	return Config{
		Units:     DefaultUnits,
		UnitPrice: DefaultUnitPrice,
	}
}

// Validate проверяет лимиты
func (c Config) Validate() error {
	if c.Units > MaxUnits {
		return fmt.Errorf("compute unit limit %d exceeds maximum %d", c.Units, MaxUnits)
	}
	return nil
}

// Empty сообщает, что подсказки не заданы
func (c Config) Empty() bool {
	return c.Units == 0 && c.UnitPrice == 0
}

// BuildInstructions создает инструкции бюджета; они должны идти первыми в транзакции.
func BuildInstructions(config Config) ([]solana.Instruction, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var instructions []solana.Instruction
	if config.Units > 0 {
		limit, err := cb.NewSetComputeUnitLimitInstruction(config.Units).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("failed to build compute unit limit instruction: %w", err)
		}
		instructions = append(instructions, limit)
	}
	if config.UnitPrice > 0 {
		price, err := cb.NewSetComputeUnitPriceInstruction(config.UnitPrice).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("failed to build compute unit price instruction: %w", err)
		}
		instructions = append(instructions, price)
	}
	return instructions, nil
}

// PriorityFeeLamports оценка приоритетной комиссии в лампортах.
// Произведение считается в 128 битах; результат больше uint64 насыщается.
func PriorityFeeLamports(config Config) uint64 {
	hi, lo := bits.Mul64(uint64(config.Units), config.UnitPrice)
	if hi >= microLamportsPerLamport {
		return math.MaxUint64
	}
	fee, _ := bits.Div64(hi, lo, microLamportsPerLamport)
	return fee
}
