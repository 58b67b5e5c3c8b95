// =============================
// File: internal/middleware/methods.go
// =============================
package middleware

// FieldKind тип поля в раскладке аргументов.
type FieldKind int

const (
	FieldU8 FieldKind = iota
	FieldU32
	FieldU64
	FieldPublicKey
)

// Size возвращает размер поля в байтах.
func (k FieldKind) Size() int {
	switch k {
	case FieldU8:
		return 1
	case FieldU32:
		return 4
	case FieldU64:
		return 8
	case FieldPublicKey:
		return 32
	default:
		return 0
	}
}

func (k FieldKind) String() string {
	switch k {
	case FieldU8:
		return "u8"
	case FieldU32:
		return "u32"
	case FieldU64:
		return "u64"
	case FieldPublicKey:
		return "pubkey"
	default:
		return "unknown"
	}
}

// Field одно поле аргументов метода.
type Field struct {
	Name string
	Kind FieldKind
}

// Имена аргументов
const (
	ArgBump         = "bump"
	ArgHookProgram  = "hook_program"
	ArgAmount       = "amount"
	ArgDecimals     = "decimals"
	ArgAmountIn     = "amount_in"
	ArgMinAmountOut = "min_amount_out"
)

// Schemas объявленный порядок полей каждого метода.
// Поля пишутся подряд после селектора, без префиксов длины.
var Schemas = map[Method][]Field{
	// Программа не читает bump, но клиент всегда дописывает его после селектора.
	MethodInitialize: {
		{Name: ArgBump, Kind: FieldU8},
	},
	MethodAddWhitelistedHook: {
		{Name: ArgHookProgram, Kind: FieldPublicKey},
	},
	MethodCheckTransferHook: {
		{Name: ArgAmount, Kind: FieldU64},
		{Name: ArgDecimals, Kind: FieldU8},
	},
	MethodExecuteSwap: {
		{Name: ArgAmountIn, Kind: FieldU64},
		{Name: ArgMinAmountOut, Kind: FieldU64},
		{Name: ArgDecimals, Kind: FieldU8},
	},
}

// DataSize возвращает длину данных инструкции: селектор плюс все поля.
func DataSize(fields []Field) int {
	n := len(Selector{})
	for _, f := range fields {
		n += f.Kind.Size()
	}
	return n
}
