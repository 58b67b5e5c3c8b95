package middleware

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"math"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-middleware/internal/blockchain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectorsMatchAnchorDiscriminators(t *testing.T) {
	for method, sel := range Selectors[LayoutVersion] {
		sum := sha256.Sum256([]byte("global:" + string(method)))
		assert.Equal(t, sum[:8], sel[:], "selector mismatch for %s", method)
	}
}

func TestMiddlewareAccountDiscriminator(t *testing.T) {
	sum := sha256.Sum256([]byte("account:MiddlewareAccount"))
	assert.Equal(t, sum[:8], MiddlewareAccountDiscriminator[:])
}

func TestEncodeExecuteSwapLayout(t *testing.T) {
	data, err := Encode(MethodExecuteSwap, Args{
		ArgAmountIn:     1_000_000,
		ArgMinAmountOut: 950_000,
		ArgDecimals:     6,
	})
	require.NoError(t, err)

	// 8 (селектор) + 8 + 8 + 1
	require.Len(t, data, 25)

	sel, _ := SelectorFor(MethodExecuteSwap)
	assert.Equal(t, sel[:], data[:8])
	assert.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(950_000), binary.LittleEndian.Uint64(data[16:24]))
	assert.Equal(t, byte(6), data[24])
}

func TestEncodeIsDeterministic(t *testing.T) {
	hook := solana.NewWallet().PublicKey()
	cases := map[Method]Args{
		MethodInitialize:         {ArgBump: uint8(254)},
		MethodAddWhitelistedHook: {ArgHookProgram: hook},
		MethodCheckTransferHook:  {ArgAmount: uint64(42), ArgDecimals: uint8(9)},
		MethodExecuteSwap:        {ArgAmountIn: uint64(1), ArgMinAmountOut: uint64(0), ArgDecimals: uint8(0)},
	}
	for method, args := range cases {
		first, err := Encode(method, args)
		require.NoError(t, err, method)
		second, err := Encode(method, args)
		require.NoError(t, err, method)
		assert.Equal(t, first, second, method)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	hook := solana.NewWallet().PublicKey()
	cases := map[Method]Args{
		MethodInitialize:         {ArgBump: uint8(255)},
		MethodAddWhitelistedHook: {ArgHookProgram: hook},
		MethodCheckTransferHook:  {ArgAmount: uint64(math.MaxUint64), ArgDecimals: uint8(255)},
		MethodExecuteSwap: {
			ArgAmountIn:     uint64(1_000_000),
			ArgMinAmountOut: uint64(950_000),
			ArgDecimals:     uint8(6),
		},
	}
	for method, args := range cases {
		data, err := Encode(method, args)
		require.NoError(t, err, method)
		assert.Len(t, data, DataSize(Schemas[method]), method)

		decoded, err := Decode(method, data)
		require.NoError(t, err, method)
		assert.Equal(t, args, decoded, method)
	}
}

func TestEncodeLooselyTypedArgs(t *testing.T) {
	canonical, err := EncodeExecuteSwap(1_000_000, 950_000, 6)
	require.NoError(t, err)

	loose := []Args{
		{ArgAmountIn: 1_000_000, ArgMinAmountOut: int64(950_000), ArgDecimals: 6},
		{ArgAmountIn: float64(1e6), ArgMinAmountOut: "950000", ArgDecimals: json.Number("6")},
		{ArgAmountIn: big.NewInt(1_000_000), ArgMinAmountOut: decimal.NewFromInt(950_000), ArgDecimals: uint(6)},
	}
	for i, args := range loose {
		data, err := Encode(MethodExecuteSwap, args)
		require.NoError(t, err, "case %d", i)
		assert.Equal(t, canonical, data, "case %d", i)
	}
}

func TestEncodeRejectsOutOfRange(t *testing.T) {
	overflow := new(big.Int).Lsh(big.NewInt(1), 64)

	tests := []struct {
		name  string
		value interface{}
	}{
		{"negative int", -1},
		{"negative string", "-5"},
		{"overflow big int", overflow},
		{"overflow string", "18446744073709551616"},
		{"fractional float", 1.5},
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
		{"garbage", "abc"},
		{"unsupported type", struct{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(MethodExecuteSwap, Args{
				ArgAmountIn:     tt.value,
				ArgMinAmountOut: 1,
				ArgDecimals:     6,
			})
			require.Error(t, err)
			assert.Nil(t, data, "no partial buffer on failure")
			assert.ErrorIs(t, err, blockchain.ErrEncoding)
		})
	}
}

func TestEncodeRejectsDecimalsOverflow(t *testing.T) {
	data, err := EncodeCheckTransferHook(0, 0)
	require.NoError(t, err)
	require.Len(t, data, 17)

	data, err = Encode(MethodCheckTransferHook, Args{ArgAmount: 1, ArgDecimals: 256})
	assert.Nil(t, data)
	assert.True(t, blockchain.IsKind(err, blockchain.KindEncoding))
}

func TestEncodeMissingAndUnexpectedArgs(t *testing.T) {
	_, err := Encode(MethodCheckTransferHook, Args{ArgAmount: 1})
	assert.ErrorIs(t, err, blockchain.ErrEncoding)

	_, err = Encode(MethodCheckTransferHook, Args{ArgAmount: 1, ArgDecimals: 6, "amout": 2})
	assert.ErrorIs(t, err, blockchain.ErrEncoding)

	_, err = Encode(Method("unknown"), Args{})
	assert.ErrorIs(t, err, blockchain.ErrValidation)
}

func TestEncodeAddWhitelistedHookFromBase58(t *testing.T) {
	hook := solana.NewWallet().PublicKey()

	data, err := Encode(MethodAddWhitelistedHook, Args{ArgHookProgram: hook.String()})
	require.NoError(t, err)
	require.Len(t, data, 40)
	assert.Equal(t, hook[:], data[8:])

	_, err = Encode(MethodAddWhitelistedHook, Args{ArgHookProgram: "not-a-key"})
	assert.ErrorIs(t, err, blockchain.ErrEncoding)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	data, err := EncodeExecuteSwap(10, 5, 6)
	require.NoError(t, err)

	_, err = Decode(MethodExecuteSwap, data[:24])
	assert.ErrorIs(t, err, blockchain.ErrEncoding)

	_, err = Decode(MethodCheckTransferHook, data[:17])
	assert.ErrorIs(t, err, blockchain.ErrEncoding, "selector of another method")
}

func TestU32FieldLayout(t *testing.T) {
	fields := []Field{{Name: "n", Kind: FieldU32}}
	sel := Selector{1, 2, 3, 4, 5, 6, 7, 8}

	data, err := encodeFields("custom", sel, fields, Args{"n": 0x01020304})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 0x04, 0x03, 0x02, 0x01}, data)

	_, err = encodeFields("custom", sel, fields, Args{"n": uint64(math.MaxUint32) + 1})
	assert.ErrorIs(t, err, blockchain.ErrEncoding)

	args, err := decodeFields("custom", sel, fields, data)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), args["n"])
}

func TestMethodBySelector(t *testing.T) {
	data, err := EncodeInitialize(1)
	require.NoError(t, err)

	method, ok := MethodBySelector(data)
	require.True(t, ok)
	assert.Equal(t, MethodInitialize, method)

	_, ok = MethodBySelector([]byte{1, 2})
	assert.False(t, ok)
}
