// =============================
// File: internal/middleware/pda.go
// =============================
package middleware

import (
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
)

// Derive находит адрес, принадлежащий программе, для набора сидов.
//
// Перебирает bump от 255 до 0 и возвращает первый кандидат
// sha256(seeds || bump || programID || "ProgramDerivedAddress"), лежащий вне кривой ed25519.
// Функция чистая и безопасна для конкурентного вызова.
func Derive(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	if programID.IsZero() {
		return solana.PublicKey{}, 0, blockchain.Errorf(blockchain.KindValidation, "program id is not set")
	}
	if len(seeds) > solana.MaxSeeds {
		return solana.PublicKey{}, 0, blockchain.Errorf(blockchain.KindValidation,
			"too many seeds: %d > %d", len(seeds), solana.MaxSeeds)
	}
	for i, seed := range seeds {
		if len(seed) > solana.MaxSeedLength {
			return solana.PublicKey{}, 0, blockchain.Errorf(blockchain.KindValidation,
				"seed %d is too long: %d > %d", i, len(seed), solana.MaxSeedLength)
		}
	}

	addr, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		// Повторять с другими сидами бессмысленно: результат детерминирован.
		return solana.PublicKey{}, 0, blockchain.NewError(blockchain.KindDerivationExhausted, err)
	}
	return addr, bump, nil
}

// MiddlewarePDA выводит адрес состояния программы middleware.
func MiddlewarePDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return Derive(MiddlewareSeeds(), programID)
}
