// internal/service/amounts.go
package service

import (
	"fmt"
	"math"
	"math/big"

	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
	"github.com/shopspring/decimal"
)

// ToBaseUnits переводит сумму в единицах токена ("1.5") в минимальные единицы
// с учётом decimals. Дробный остаток после сдвига считается ошибкой.
func ToBaseUnits(amount string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, blockchain.NewError(blockchain.KindEncoding, fmt.Errorf("invalid amount %q: %w", amount, err))
	}
	if d.IsNegative() {
		return 0, blockchain.Errorf(blockchain.KindEncoding, "amount %s is negative", amount)
	}

	shifted := d.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return 0, blockchain.Errorf(blockchain.KindEncoding,
			"amount %s has more than %d decimal places", amount, decimals)
	}
	if shifted.GreaterThan(decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)) {
		return 0, blockchain.Errorf(blockchain.KindEncoding, "amount %s overflows u64", amount)
	}
	return shifted.BigInt().Uint64(), nil
}

// FromBaseUnits форматирует минимальные единицы как сумму токена
func FromBaseUnits(units uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), 0).Shift(-int32(decimals)).String()
}
