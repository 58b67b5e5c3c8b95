// =============================
// File: internal/middleware/codec.go
// =============================
package middleware

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
	"github.com/shopspring/decimal"
)

// Args аргументы вызова по имени поля.
// Значения могут приходить слабо типизированными; Normalize приводит их к
// uint8/uint32/uint64/solana.PublicKey согласно схеме.
type Args map[string]interface{}

// Encode сериализует вызов: селектор, затем поля в объявленном порядке.
// При любой ошибке возвращается nil, частичный буфер наружу не отдаётся.
func Encode(method Method, args Args) ([]byte, error) {
	sel, fields, err := lookup(method)
	if err != nil {
		return nil, err
	}
	return encodeFields(method, sel, fields, args)
}

// Decode разбирает данные инструкции обратно в аргументы.
// Селектор должен совпадать, длина должна быть точной.
func Decode(method Method, data []byte) (Args, error) {
	sel, fields, err := lookup(method)
	if err != nil {
		return nil, err
	}
	return decodeFields(method, sel, fields, data)
}

// Normalize приводит аргументы к каноническим типам схемы без сериализации.
func Normalize(method Method, args Args) (Args, error) {
	_, fields, err := lookup(method)
	if err != nil {
		return nil, err
	}
	return normalizeFields(method, fields, args)
}

// EncodeInitialize кодирует initialize(bump).
func EncodeInitialize(bump uint8) ([]byte, error) {
	return Encode(MethodInitialize, Args{ArgBump: bump})
}

// EncodeAddWhitelistedHook кодирует add_whitelisted_hook(hook_program).
func EncodeAddWhitelistedHook(hookProgram solana.PublicKey) ([]byte, error) {
	return Encode(MethodAddWhitelistedHook, Args{ArgHookProgram: hookProgram})
}

// EncodeCheckTransferHook кодирует check_transfer_hook(amount, decimals).
func EncodeCheckTransferHook(amount uint64, decimals uint8) ([]byte, error) {
	return Encode(MethodCheckTransferHook, Args{ArgAmount: amount, ArgDecimals: decimals})
}

// EncodeExecuteSwap кодирует execute_swap_with_hook_check(amount_in, min_amount_out, decimals).
func EncodeExecuteSwap(amountIn, minAmountOut uint64, decimals uint8) ([]byte, error) {
	return Encode(MethodExecuteSwap, Args{
		ArgAmountIn:     amountIn,
		ArgMinAmountOut: minAmountOut,
		ArgDecimals:     decimals,
	})
}

func lookup(method Method) (Selector, []Field, error) {
	sel, ok := SelectorFor(method)
	if !ok {
		return Selector{}, nil, blockchain.Errorf(blockchain.KindValidation,
			"unknown method %q for layout %s", method, LayoutVersion)
	}
	fields, ok := Schemas[method]
	if !ok {
		return Selector{}, nil, blockchain.Errorf(blockchain.KindValidation, "no schema for method %q", method)
	}
	return sel, fields, nil
}

func encodingErr(method Method, format string, args ...interface{}) error {
	e := blockchain.Errorf(blockchain.KindEncoding, format, args...)
	e.Method = string(method)
	return e
}

func encodeFields(method Method, sel Selector, fields []Field, args Args) ([]byte, error) {
	// Сначала валидируем всё, потом пишем: ошибка не должна оставить полбуфера.
	values, err := normalizeFields(method, fields, args)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	buf.Grow(DataSize(fields))
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(sel[:], false); err != nil {
		return nil, encodingErr(method, "write selector: %v", err)
	}
	for _, f := range fields {
		if err := writeField(enc, f, values[f.Name]); err != nil {
			return nil, encodingErr(method, "write field %s: %v", f.Name, err)
		}
	}
	return buf.Bytes(), nil
}

func writeField(enc *bin.Encoder, f Field, v interface{}) error {
	switch f.Kind {
	case FieldU8:
		return enc.WriteUint8(v.(uint8))
	case FieldU32:
		return enc.WriteUint32(v.(uint32), binary.LittleEndian)
	case FieldU64:
		return enc.WriteUint64(v.(uint64), binary.LittleEndian)
	case FieldPublicKey:
		key := v.(solana.PublicKey)
		return enc.WriteBytes(key[:], false)
	default:
		return fmt.Errorf("unsupported field kind %d", f.Kind)
	}
}

func decodeFields(method Method, sel Selector, fields []Field, data []byte) (Args, error) {
	if want := DataSize(fields); len(data) != want {
		return nil, encodingErr(method, "data length %d, expected %d", len(data), want)
	}
	dec := bin.NewBorshDecoder(data)

	head, err := dec.ReadNBytes(len(sel))
	if err != nil {
		return nil, encodingErr(method, "read selector: %v", err)
	}
	if !bytes.Equal(head, sel[:]) {
		return nil, encodingErr(method, "selector mismatch: got %x, expected %s", head, sel)
	}

	out := make(Args, len(fields))
	for _, f := range fields {
		var v interface{}
		switch f.Kind {
		case FieldU8:
			v, err = dec.ReadUint8()
		case FieldU32:
			v, err = dec.ReadUint32(binary.LittleEndian)
		case FieldU64:
			v, err = dec.ReadUint64(binary.LittleEndian)
		case FieldPublicKey:
			var raw []byte
			raw, err = dec.ReadNBytes(32)
			if err == nil {
				v = solana.PublicKeyFromBytes(raw)
			}
		default:
			err = fmt.Errorf("unsupported field kind %d", f.Kind)
		}
		if err != nil {
			return nil, encodingErr(method, "read field %s: %v", f.Name, err)
		}
		out[f.Name] = v
	}
	return out, nil
}

func normalizeFields(method Method, fields []Field, args Args) (Args, error) {
	known := make(map[string]struct{}, len(fields))
	out := make(Args, len(fields))
	for _, f := range fields {
		known[f.Name] = struct{}{}
		raw, ok := args[f.Name]
		if !ok || raw == nil {
			return nil, encodingErr(method, "missing argument %s (%s)", f.Name, f.Kind)
		}
		v, err := normalizeValue(f.Kind, raw)
		if err != nil {
			return nil, encodingErr(method, "argument %s: %v", f.Name, err)
		}
		out[f.Name] = v
	}
	for name := range args {
		if _, ok := known[name]; !ok {
			return nil, encodingErr(method, "unexpected argument %s", name)
		}
	}
	return out, nil
}

func normalizeValue(kind FieldKind, raw interface{}) (interface{}, error) {
	if kind == FieldPublicKey {
		return toPublicKey(raw)
	}

	n, err := toBigInt(raw)
	if err != nil {
		return nil, err
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s", n)
	}
	bits := kind.Size() * 8
	if n.BitLen() > bits {
		return nil, fmt.Errorf("value %s exceeds %s range", n, kind)
	}

	u := n.Uint64()
	switch kind {
	case FieldU8:
		return uint8(u), nil
	case FieldU32:
		return uint32(u), nil
	case FieldU64:
		return u, nil
	default:
		return nil, fmt.Errorf("unsupported field kind %d", kind)
	}
}

// toBigInt приводит числовое значение к целому без потери точности.
func toBigInt(raw interface{}) (*big.Int, error) {
	switch v := raw.(type) {
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case uint:
		return new(big.Int).SetUint64(uint64(v)), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	case float32:
		return floatToBigInt(float64(v))
	case float64:
		return floatToBigInt(v)
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil value")
		}
		return new(big.Int).Set(v), nil
	case decimal.Decimal:
		return decimalToBigInt(v)
	case json.Number:
		return stringToBigInt(v.String())
	case string:
		return stringToBigInt(v)
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

func floatToBigInt(f float64) (*big.Int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite value %v", f)
	}
	return decimalToBigInt(decimal.NewFromFloat(f))
}

func stringToBigInt(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("not a number %q", s)
	}
	return decimalToBigInt(d)
}

func decimalToBigInt(d decimal.Decimal) (*big.Int, error) {
	if !d.IsInteger() {
		return nil, fmt.Errorf("fractional value %s", d)
	}
	return d.BigInt(), nil
}

func toPublicKey(raw interface{}) (solana.PublicKey, error) {
	switch v := raw.(type) {
	case solana.PublicKey:
		return v, nil
	case *solana.PublicKey:
		if v == nil {
			return solana.PublicKey{}, fmt.Errorf("nil public key")
		}
		return *v, nil
	case [32]byte:
		return solana.PublicKeyFromBytes(v[:]), nil
	case []byte:
		if len(v) != 32 {
			return solana.PublicKey{}, fmt.Errorf("public key must be 32 bytes, got %d", len(v))
		}
		return solana.PublicKeyFromBytes(v), nil
	case string:
		key, err := solana.PublicKeyFromBase58(strings.TrimSpace(v))
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("invalid base58 public key: %w", err)
		}
		return key, nil
	default:
		return solana.PublicKey{}, fmt.Errorf("unsupported public key type %T", raw)
	}
}
