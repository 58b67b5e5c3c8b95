// =============================
// File: internal/middleware/constants.go
// =============================
package middleware

import (
	"encoding/hex"

	"github.com/gagliardetto/solana-go"
)

// Известные адреса протокола
var (
	// DefaultProgramID задеплоенной программы middleware
	DefaultProgramID = solana.MustPublicKeyFromBase58("7rPx2YD8zuQG1owdEp7mYtqgTzDpwe9qt8rnPVJAFc4D")

	// RaydiumAMMProgramID Raydium AMM v4 (devnet), которому программа делегирует своп
	RaydiumAMMProgramID = solana.MustPublicKeyFromBase58("DRaya7Kj3aMWQSy19kSjvmuwq9docCHofyP9kanQGaav")

	// SysvarRentPubkey sysvar аренды
	SysvarRentPubkey = solana.SysVarRentPubkey
)

// MiddlewareSeed единственный сид PDA программы.
const MiddlewareSeed = "middleware"

// MiddlewareSeeds возвращает набор сидов PDA программы.
func MiddlewareSeeds() [][]byte {
	return [][]byte{[]byte(MiddlewareSeed)}
}

// Method имя удалённого вызова программы.
type Method string

const (
	MethodInitialize         Method = "initialize"
	MethodAddWhitelistedHook Method = "add_whitelisted_hook"
	MethodCheckTransferHook  Method = "check_transfer_hook"
	MethodExecuteSwap        Method = "execute_swap_with_hook_check"
)

// Methods перечисляет вызовы в порядке объявления в программе.
var Methods = []Method{
	MethodInitialize,
	MethodAddWhitelistedHook,
	MethodCheckTransferHook,
	MethodExecuteSwap,
}

// Selector 8-байтовый дискриминатор Anchor: sha256("global:<name>")[:8].
type Selector [8]byte

// String возвращает селектор в hex.
func (s Selector) String() string {
	return hex.EncodeToString(s[:])
}

// LayoutVersion текущая версия таблиц селекторов и шаблонов аккаунтов.
// Перестановка слотов или смена селектора требует новой версии.
const LayoutVersion = "v1"

// Selectors таблицы селекторов по версиям раскладки
var Selectors = map[string]map[Method]Selector{
	"v1": {
		MethodInitialize:         {0xaf, 0xaf, 0x6d, 0x1f, 0x0d, 0x98, 0x9b, 0xed},
		MethodAddWhitelistedHook: {0x21, 0xb4, 0xf0, 0xa1, 0x6e, 0xbc, 0x5f, 0x73},
		MethodCheckTransferHook:  {0xd7, 0x27, 0x6e, 0xd4, 0x97, 0x15, 0x54, 0x6f},
		MethodExecuteSwap:        {0x91, 0x0f, 0x55, 0x9c, 0x7a, 0x61, 0x63, 0x44},
	},
}

// MiddlewareAccountDiscriminator дискриминатор аккаунта MiddlewareAccount
var MiddlewareAccountDiscriminator = [8]byte{200, 74, 63, 227, 58, 10, 195, 232}

// SelectorFor возвращает селектор метода для текущей версии раскладки.
func SelectorFor(method Method) (Selector, bool) {
	table, ok := Selectors[LayoutVersion]
	if !ok {
		return Selector{}, false
	}
	sel, ok := table[method]
	return sel, ok
}

// MethodBySelector ищет метод по первым 8 байтам данных инструкции.
func MethodBySelector(data []byte) (Method, bool) {
	if len(data) < len(Selector{}) {
		return "", false
	}
	var sel Selector
	copy(sel[:], data[:8])
	for method, s := range Selectors[LayoutVersion] {
		if s == sel {
			return method, true
		}
	}
	return "", false
}
