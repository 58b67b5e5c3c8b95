// =============================
// File: internal/middleware/state.go
// =============================
package middleware

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
)

// MiddlewareAccountSize дискриминатор + authority + whitelisted_hooks.
const MiddlewareAccountSize = 8 + 32 + 8

// MiddlewareAccount состояние программы по адресу PDA.
type MiddlewareAccount struct {
	Discriminator    [8]byte          `borsh:"discriminator"`
	Authority        solana.PublicKey `borsh:"authority"`
	WhitelistedHooks uint64           `borsh:"whitelisted_hooks"`
}

// ParseMiddlewareAccount декодирует данные аккаунта состояния.
func ParseMiddlewareAccount(data []byte) (*MiddlewareAccount, error) {
	if len(data) < MiddlewareAccountSize {
		return nil, fmt.Errorf("middleware account data too short: %d bytes, need %d", len(data), MiddlewareAccountSize)
	}
	if !bytes.Equal(data[:8], MiddlewareAccountDiscriminator[:]) {
		return nil, fmt.Errorf("invalid middleware account discriminator %x", data[:8])
	}

	var account MiddlewareAccount
	if err := borsh.Deserialize(&account, data[:MiddlewareAccountSize]); err != nil {
		return nil, fmt.Errorf("failed to decode middleware account: %w", err)
	}
	return &account, nil
}

// Serialize кодирует состояние обратно; используется в тестах и для сверки.
func (a *MiddlewareAccount) Serialize() ([]byte, error) {
	return borsh.Serialize(*a)
}
