// =============================
// File: internal/middleware/builder.go
// =============================
package middleware

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
)

// Call готовый к включению в транзакцию вызов программы.
// Неизменяем: все аксессоры возвращают копии.
type Call struct {
	method    Method
	selector  Selector
	version   string
	programID solana.PublicKey
	data      []byte
	refs      []AccountRef
}

func (c *Call) Method() Method { return c.method }
func (c *Call) Selector() Selector { return c.selector }
func (c *Call) Version() string { return c.version }
func (c *Call) ProgramID() solana.PublicKey { return c.programID }

// Data реализует solana.Instruction.
func (c *Call) Data() ([]byte, error) {
	out := make([]byte, len(c.data))
	copy(out, c.data)
	return out, nil
}

// Accounts реализует solana.Instruction.
func (c *Call) Accounts() []*solana.AccountMeta {
	metas := make([]*solana.AccountMeta, len(c.refs))
	for i, ref := range c.refs {
		metas[i] = ref.Meta()
	}
	return metas
}

// Refs возвращает список аккаунтов с ролями.
func (c *Call) Refs() []AccountRef {
	out := make([]AccountRef, len(c.refs))
	copy(out, c.refs)
	return out
}

// DataLen длина закодированных данных.
func (c *Call) DataLen() int { return len(c.data) }

// Signers возвращает адреса, которые должны подписать вызов.
func (c *Call) Signers() []solana.PublicKey {
	var out []solana.PublicKey
	for _, ref := range c.refs {
		if ref.Signer {
			out = append(out, ref.Address)
		}
	}
	return out
}

// AccountStrings список аккаунтов в виде "role=address[flags]".
func (c *Call) AccountStrings() []string {
	out := make([]string, len(c.refs))
	for i, ref := range c.refs {
		out[i] = ref.String()
	}
	return out
}

// Args декодирует аргументы вызова обратно из данных.
func (c *Call) Args() (Args, error) {
	return Decode(c.method, c.data)
}

// Info описание вызова для логов и контекста ошибок.
func (c *Call) Info() blockchain.CallInfo {
	return blockchain.CallInfo{
		Method:   string(c.method),
		Selector: c.selector.String(),
		Accounts: c.AccountStrings(),
		DataLen:  len(c.data),
	}
}

// Гарантируем, что Call реализует интерфейс solana.Instruction.
var _ solana.Instruction = (*Call)(nil)

// Builder собирает вызовы для одной программы middleware.
// PDA выводится один раз при создании и дальше только читается.
type Builder struct {
	programID    solana.PublicKey
	ammProgramID solana.PublicKey
	pda          solana.PublicKey
	bump         uint8
}

// NewBuilder создаёт Builder для программы и AMM, которому делегируется своп.
func NewBuilder(programID, ammProgramID solana.PublicKey) (*Builder, error) {
	pda, bump, err := MiddlewarePDA(programID)
	if err != nil {
		return nil, err
	}
	if ammProgramID.IsZero() {
		ammProgramID = RaydiumAMMProgramID
	}
	return &Builder{
		programID:    programID,
		ammProgramID: ammProgramID,
		pda:          pda,
		bump:         bump,
	}, nil
}

// ProgramID адрес программы middleware.
func (b *Builder) ProgramID() solana.PublicKey { return b.programID }

// PDA адрес состояния программы и его bump.
func (b *Builder) PDA() (solana.PublicKey, uint8) { return b.pda, b.bump }

// Build кодирует аргументы и раскладывает аккаунты метода.
//
// Шаг 1: известные роли (system program, rent, token program, AMM, PDA) подставляются,
// если вызывающий их не передал.
// Шаг 2: переданный PDA или bump сверяются со свежим выводом.
// Шаг 3: кодирование и раскладка по шаблону.
func (b *Builder) Build(method Method, args Args, roles map[Role]solana.PublicKey) (*Call, error) {
	sel, ok := SelectorFor(method)
	if !ok {
		return nil, blockchain.Errorf(blockchain.KindValidation, "unknown method %q", method)
	}
	tmpl, err := TemplateFor(method)
	if err != nil {
		return nil, err
	}

	// Шаг 1
	filled := make(map[Role]solana.PublicKey, len(tmpl.Slots))
	for role, addr := range roles {
		filled[role] = addr
	}
	if err := b.prefill(method, filled); err != nil {
		return nil, err
	}

	// Шаг 2
	callArgs := make(Args, len(args)+1)
	for k, v := range args {
		callArgs[k] = v
	}
	if method == MethodInitialize {
		if err := b.checkBump(callArgs); err != nil {
			return nil, err
		}
	}

	// Шаг 3
	data, err := Encode(method, callArgs)
	if err != nil {
		return nil, err
	}
	refs, err := tmpl.Assemble(filled)
	if err != nil {
		return nil, err
	}

	return &Call{
		method:    method,
		selector:  sel,
		version:   tmpl.Version,
		programID: b.programID,
		data:      data,
		refs:      refs,
	}, nil
}

func (b *Builder) prefill(method Method, roles map[Role]solana.PublicKey) error {
	if supplied, ok := roles[RoleMiddlewarePDA]; ok && !supplied.Equals(b.pda) {
		e := blockchain.Errorf(blockchain.KindValidation,
			"stale middleware PDA %s, derived %s", supplied, b.pda)
		e.Method = string(method)
		return e
	}

	defaults := map[Role]solana.PublicKey{
		RoleMiddlewarePDA: b.pda,
		RoleSystemProgram: solana.SystemProgramID,
		RoleRent:          SysvarRentPubkey,
		RoleTokenProgram:  solana.TokenProgramID,
		RoleAMMProgram:    b.ammProgramID,
	}
	for role, addr := range defaults {
		if _, ok := roles[role]; !ok {
			roles[role] = addr
		}
	}
	return nil
}

func (b *Builder) checkBump(args Args) error {
	raw, ok := args[ArgBump]
	if !ok || raw == nil {
		args[ArgBump] = b.bump
		return nil
	}
	v, err := normalizeValue(FieldU8, raw)
	if err != nil {
		return encodingErr(MethodInitialize, "argument %s: %v", ArgBump, err)
	}
	if v.(uint8) != b.bump {
		e := blockchain.NewError(blockchain.KindValidation,
			fmt.Errorf("stale bump %d, derived %d", v.(uint8), b.bump))
		e.Method = string(MethodInitialize)
		return e
	}
	args[ArgBump] = b.bump
	return nil
}
