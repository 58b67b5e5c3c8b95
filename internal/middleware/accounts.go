// =============================
// File: internal/middleware/accounts.go
// =============================
package middleware

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
)

// Role именованная роль аккаунта в вызове.
type Role string

const (
	RoleMiddlewarePDA Role = "middleware_pda"
	RoleAuthority     Role = "authority"
	RoleSystemProgram Role = "system_program"
	RoleRent          Role = "rent"
	RoleTokenProgram  Role = "token_program"

	RoleSource       Role = "source"
	RoleMint         Role = "mint"
	RoleDestination  Role = "destination"
	RoleHookProgram  Role = "hook_program"
	RoleAMMProgram   Role = "amm_program"
	RoleAMMAuthority Role = "amm_authority"

	RoleAMMOpenOrders   Role = "amm_open_orders"
	RoleAMMTargetOrders Role = "amm_target_orders"
	RolePoolSource      Role = "pool_source"
	RolePoolDestination Role = "pool_destination"
	RoleUserSource      Role = "user_source"
	RoleUserDestination Role = "user_destination"

	RoleSerumMarket      Role = "serum_market"
	RoleSerumEventQueue  Role = "serum_event_queue"
	RoleSerumBids        Role = "serum_bids"
	RoleSerumAsks        Role = "serum_asks"
	RoleSerumCoinVault   Role = "serum_coin_vault"
	RoleSerumPcVault     Role = "serum_pc_vault"
	RoleSerumVaultSigner Role = "serum_vault_signer"
)

// Slot фиксированная позиция в списке аккаунтов вызова.
type Slot struct {
	Role     Role
	Signer   bool
	Writable bool
}

// Template упорядоченный список слотов метода для версии раскладки.
type Template struct {
	Method  Method
	Version string
	Slots   []Slot
}

// Roles возвращает роли шаблона в порядке слотов.
func (t Template) Roles() []Role {
	roles := make([]Role, len(t.Slots))
	for i, s := range t.Slots {
		roles[i] = s.Role
	}
	return roles
}

// AccountRef аккаунт, занимающий позицию в вызове.
type AccountRef struct {
	Role     Role
	Address  solana.PublicKey
	Signer   bool
	Writable bool
}

// Meta преобразует ссылку в solana.AccountMeta.
func (a AccountRef) Meta() *solana.AccountMeta {
	return &solana.AccountMeta{PublicKey: a.Address, IsSigner: a.Signer, IsWritable: a.Writable}
}

// String возвращает "role=address[sw]" для логов и ошибок.
func (a AccountRef) String() string {
	flags := ""
	if a.Signer {
		flags += "s"
	}
	if a.Writable {
		flags += "w"
	}
	if flags == "" {
		flags = "r"
	}
	return fmt.Sprintf("%s=%s[%s]", a.Role, a.Address, flags)
}

// Templates таблицы шаблонов аккаунтов по версиям раскладки.
// Account list must be in the exact order expected by the program.
var Templates = map[string]map[Method]Template{
	"v1": {
		MethodInitialize: {
			Method:  MethodInitialize,
			Version: "v1",
			Slots: []Slot{
				{Role: RoleMiddlewarePDA, Writable: true},
				{Role: RoleAuthority, Signer: true, Writable: true},
				{Role: RoleSystemProgram},
				{Role: RoleRent},
			},
		},
		MethodAddWhitelistedHook: {
			Method:  MethodAddWhitelistedHook,
			Version: "v1",
			Slots: []Slot{
				{Role: RoleMiddlewarePDA, Writable: true},
				{Role: RoleAuthority, Signer: true},
			},
		},
		MethodCheckTransferHook: {
			Method:  MethodCheckTransferHook,
			Version: "v1",
			Slots: []Slot{
				{Role: RoleSource},
				{Role: RoleMint},
				{Role: RoleDestination},
				{Role: RoleAuthority, Signer: true},
				{Role: RoleHookProgram},
			},
		},
		MethodExecuteSwap: {
			Method:  MethodExecuteSwap,
			Version: "v1",
			Slots: []Slot{
				// Проверка transfer hook
				{Role: RoleSource},
				{Role: RoleMint},
				{Role: RoleDestination},
				{Role: RoleAuthority, Signer: true},
				{Role: RoleHookProgram},
				// Raydium AMM v4
				{Role: RoleAMMProgram},
				{Role: RoleAMMAuthority},
				{Role: RoleAMMOpenOrders, Writable: true},
				{Role: RoleAMMTargetOrders, Writable: true},
				{Role: RolePoolSource, Writable: true},
				{Role: RolePoolDestination, Writable: true},
				{Role: RoleUserSource, Writable: true},
				{Role: RoleUserDestination, Writable: true},
				// Serum market
				{Role: RoleSerumMarket, Writable: true},
				{Role: RoleSerumEventQueue, Writable: true},
				{Role: RoleSerumBids, Writable: true},
				{Role: RoleSerumAsks, Writable: true},
				{Role: RoleSerumCoinVault, Writable: true},
				{Role: RoleSerumPcVault, Writable: true},
				{Role: RoleSerumVaultSigner},
				{Role: RoleTokenProgram},
				{Role: RoleRent},
				// PDA программы всегда последний
				{Role: RoleMiddlewarePDA},
			},
		},
	},
}

// TemplateFor возвращает шаблон метода для текущей версии раскладки.
func TemplateFor(method Method) (Template, error) {
	table, ok := Templates[LayoutVersion]
	if !ok {
		return Template{}, blockchain.Errorf(blockchain.KindValidation, "layout version %s not found", LayoutVersion)
	}
	tmpl, ok := table[method]
	if !ok {
		return Template{}, blockchain.Errorf(blockchain.KindValidation,
			"no account template for method %q in layout %s", method, LayoutVersion)
	}
	return tmpl, nil
}

// Assemble раскладывает адреса по слотам шаблона.
// Порядок результата определяется шаблоном, а не порядком обхода карты ролей.
// Лишние роли игнорируются, отсутствующие в карте дают MissingAccountRole.
// Нулевой ключ считается переданным: это адрес System Program.
func Assemble(method Method, roles map[Role]solana.PublicKey) ([]AccountRef, error) {
	tmpl, err := TemplateFor(method)
	if err != nil {
		return nil, err
	}
	return tmpl.Assemble(roles)
}

// Assemble раскладывает адреса по слотам шаблона.
func (t Template) Assemble(roles map[Role]solana.PublicKey) ([]AccountRef, error) {
	refs := make([]AccountRef, 0, len(t.Slots))
	for i, slot := range t.Slots {
		addr, ok := roles[slot.Role]
		if !ok {
			e := blockchain.Errorf(blockchain.KindMissingAccountRole,
				"role %s (slot %d) is not provided", slot.Role, i)
			e.Method = string(t.Method)
			return nil, e
		}
		refs = append(refs, AccountRef{
			Role:     slot.Role,
			Address:  addr,
			Signer:   slot.Signer,
			Writable: slot.Writable,
		})
	}
	return refs, nil
}
