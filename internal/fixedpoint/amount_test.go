package fixedpoint

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var maxAmount = MustParse("115792089237316195423570985008687907853269984665640564039457584007913129639935")

func TestArithmetic(t *testing.T) {
	a := FromUint64(1000)
	b := FromUint64(7)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "1007", sum.String())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, "993", diff.String())

	prod, err := a.Mul(b)
	require.NoError(t, err)
	assert.Equal(t, "7000", prod.String())

	quo, err := a.Div(b)
	require.NoError(t, err)
	assert.Equal(t, "142", quo.String(), "division must floor")

	ceil, err := a.DivCeil(b)
	require.NoError(t, err)
	assert.Equal(t, "143", ceil.String())

	exact, err := FromUint64(1400).DivCeil(b)
	require.NoError(t, err)
	assert.Equal(t, "200", exact.String())

	md, err := a.MulDiv(FromUint64(500), FromUint64(10000))
	require.NoError(t, err)
	assert.Equal(t, "50", md.String())
}

func TestErrors(t *testing.T) {
	_, err := FromUint64(1).Sub(FromUint64(2))
	assert.ErrorIs(t, err, ErrUnderflow)

	_, err = maxAmount.Add(FromUint64(1))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = maxAmount.Mul(FromUint64(2))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = FromUint64(1).Div(Zero())
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = FromUint64(1).DivCeil(Zero())
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = FromUint64(2).Pow(256)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = FromUint64(1 << 40).Uint64()
	assert.NoError(t, err)
	_, err = maxAmount.Uint64()
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestPow(t *testing.T) {
	tests := []struct {
		base uint64
		exp  uint64
		want string
	}{
		{base: 0, exp: 0, want: "1"},
		{base: 0, exp: 5, want: "0"},
		{base: 3, exp: 0, want: "1"},
		{base: 3, exp: 1, want: "3"},
		{base: 3, exp: 13, want: "1594323"},
		{base: 2, exp: 255, want: new(big.Int).Lsh(big.NewInt(1), 255).String()},
	}
	for _, tt := range tests {
		got, err := FromUint64(tt.base).Pow(tt.exp)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.String(), "%d^%d", tt.base, tt.exp)
	}
}

func TestSqrtFloors(t *testing.T) {
	assert.Equal(t, "0", Zero().Sqrt().String())
	assert.Equal(t, "3", FromUint64(15).Sqrt().String())
	assert.Equal(t, "4", FromUint64(16).Sqrt().String())
	assert.Equal(t, "1000000000", FromUint64(1_000_000_000_000_000_000).Sqrt().String())
}

func TestParse(t *testing.T) {
	a, err := Parse(" 1_000_000 ")
	require.NoError(t, err)
	assert.Equal(t, FromUint64(1_000_000), a)

	_, err = Parse("-5")
	assert.ErrorIs(t, err, ErrUnderflow)

	_, err = Parse("")
	assert.Error(t, err)

	_, err = Parse("12abc")
	assert.Error(t, err)

	_, err = Parse("115792089237316195423570985008687907853269984665640564039457584007913129639936")
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestFromBig(t *testing.T) {
	a, err := FromBig(big.NewInt(42))
	require.NoError(t, err)
	assert.Equal(t, "42", a.String())

	_, err = FromBig(big.NewInt(-1))
	assert.ErrorIs(t, err, ErrUnderflow)

	_, err = FromBig(new(big.Int).Lsh(big.NewInt(1), 256))
	assert.ErrorIs(t, err, ErrOverflow)

	assert.Equal(t, 0, a.Big().Cmp(big.NewInt(42)))
}

func TestComparisons(t *testing.T) {
	one, two := FromUint64(1), FromUint64(2)
	assert.True(t, one.Lt(two))
	assert.True(t, two.Gt(one))
	assert.True(t, one.Lte(one))
	assert.True(t, two.Gte(one))
	assert.True(t, one.Eq(FromUint64(1)))
	assert.Equal(t, one, Min(one, two))
	assert.Equal(t, two, Max(one, two))
	assert.True(t, Zero().IsZero())
}

func TestOperandsAreNotModified(t *testing.T) {
	a := FromUint64(10)
	b := FromUint64(3)
	_, _ = a.Add(b)
	_, _ = a.Mul(b)
	_, _ = a.Sub(b)
	_, _ = a.Div(b)
	_, _ = a.Pow(3)
	assert.Equal(t, "10", a.String())
	assert.Equal(t, "3", b.String())
}

func TestJSONRoundTripAsString(t *testing.T) {
	type payload struct {
		Reserves Amount `json:"reserves"`
	}
	in := payload{Reserves: MustParse("340282366920938463463374607431768211456")}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"reserves":"340282366920938463463374607431768211456"}`, string(data))

	var out payload
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, in.Reserves.Eq(out.Reserves))
}
