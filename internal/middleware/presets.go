// =============================
// File: internal/middleware/presets.go
// =============================
package middleware

import (
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
)

// SwapPreset набор заранее известных ролей свопа (пул, рынок Serum, хранилища).
// Пресет не вводит отдельного шаблона: это тот же execute_swap_with_hook_check,
// в котором часть ролей заполнена из конфигурации.
type SwapPreset struct {
	Name  string
	Roles map[Role]solana.PublicKey
}

// ParseSwapPreset разбирает пресет из карты "роль -> base58 адрес".
// Допускаются только роли из шаблона свопа.
func ParseSwapPreset(name string, raw map[string]string) (SwapPreset, error) {
	tmpl, err := TemplateFor(MethodExecuteSwap)
	if err != nil {
		return SwapPreset{}, err
	}
	allowed := make(map[Role]struct{}, len(tmpl.Slots))
	for _, s := range tmpl.Slots {
		allowed[s.Role] = struct{}{}
	}

	preset := SwapPreset{Name: name, Roles: make(map[Role]solana.PublicKey, len(raw))}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		role := Role(k)
		if _, ok := allowed[role]; !ok {
			return SwapPreset{}, fmt.Errorf("preset %s: unknown swap role %q", name, k)
		}
		if role == RoleAuthority || role == RoleMiddlewarePDA {
			return SwapPreset{}, fmt.Errorf("preset %s: role %q cannot be preset", name, k)
		}
		addr, err := solana.PublicKeyFromBase58(raw[k])
		if err != nil {
			return SwapPreset{}, fmt.Errorf("preset %s: invalid address for %s: %w", name, k, err)
		}
		preset.Roles[role] = addr
	}
	return preset, nil
}

// Apply объединяет пресет с ролями вызывающего; переданные явно роли имеют приоритет.
func (p SwapPreset) Apply(roles map[Role]solana.PublicKey) map[Role]solana.PublicKey {
	out := make(map[Role]solana.PublicKey, len(p.Roles)+len(roles))
	for role, addr := range p.Roles {
		out[role] = addr
	}
	for role, addr := range roles {
		out[role] = addr
	}
	return out
}
