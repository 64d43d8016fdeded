package state

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-core/internal/indicators"
)

func ptr(v float64) *float64 { return &v }

func sampleMaps() map[Kind]Map {
	return map[Kind]Map{
		KindSMA: {
			"AMETHYSTS": {Kind: KindSMA, History: indicators.NewWindow([]float64{10, 8, 9.5})},
			"STARFRUIT": NewProduct(KindSMA),
		},
		KindAdaptiveSMA: {
			"AMETHYSTS": {Kind: KindAdaptiveSMA, History: indicators.NewWindow([]float64{5040.5, 5041})},
		},
		KindEMA: {
			"AMETHYSTS": {Kind: KindEMA, EMA: indicators.EMA{Value: 93.33333333333333, Initialized: true}},
			"STARFRUIT": NewProduct(KindEMA),
		},
		KindCrossover: {
			"AMETHYSTS": {Kind: KindCrossover, History: indicators.NewWindow([]float64{1, 2, 3}), Support: ptr(1), Resistance: ptr(3)},
			"STARFRUIT": NewProduct(KindCrossover),
		},
	}
}

func TestRoundTrip(t *testing.T) {
	for kind, m := range sampleMaps() {
		t.Run(string(kind), func(t *testing.T) {
			c := NewCodec(kind, nil)
			blob, err := c.Encode(m)
			require.NoError(t, err)

			got, err := c.DecodeStrict(blob)
			require.NoError(t, err)
			assert.Equal(t, m, got)

			again, err := c.Encode(got)
			require.NoError(t, err)
			assert.JSONEq(t, blob, again)
		})
	}
}

func TestWireFormat(t *testing.T) {
	sma := NewCodec(KindSMA, nil)
	blob, err := sma.Encode(Map{"P": {Kind: KindSMA, History: indicators.NewWindow([]float64{10, 8})}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"P": [10, 8]}`, blob)

	ema := NewCodec(KindEMA, nil)
	blob, err = ema.Encode(Map{"P": {Kind: KindEMA, EMA: indicators.EMA{Value: 100, Initialized: true}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"P": {"ema": 100, "initialized": true}}`, blob)

	cross := NewCodec(KindCrossover, nil)
	blob, err = cross.Encode(Map{"P": NewProduct(KindCrossover)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"P": {"price_history": [], "support": null, "resistance": null}}`, blob)
}

func TestDecodeTolerance(t *testing.T) {
	c := NewCodec(KindSMA, nil)

	for _, blob := range []string{"", "   ", "null", "{}"} {
		m, err := c.DecodeStrict(blob)
		require.NoError(t, err, "blob %q", blob)
		assert.Empty(t, m)
	}

	for _, blob := range []string{"not json", "[1,2,3]", `"text"`, "{"} {
		_, err := c.DecodeStrict(blob)
		assert.ErrorIs(t, err, ErrDecode, "blob %q", blob)
		assert.Empty(t, c.Decode(blob), "blob %q", blob)
	}
}

func TestDecodeDropsOnlyBadEntries(t *testing.T) {
	c := NewCodec(KindSMA, nil)
	m, err := c.DecodeStrict(`{"GOOD": [1, 2], "BAD": {"ema": 3}}`)
	assert.ErrorIs(t, err, ErrDecode)
	require.Contains(t, m, "GOOD")
	assert.NotContains(t, m, "BAD")
	assert.Equal(t, []float64{1, 2}, m["GOOD"].History.Values())
}

func TestEncodeRejectsNaN(t *testing.T) {
	c := NewCodec(KindEMA, nil)
	m := Map{"P": {Kind: KindEMA, EMA: indicators.EMA{Value: math.NaN(), Initialized: true}}}

	blob, err := c.Encode(m)
	assert.ErrorIs(t, err, ErrEncode)
	assert.Empty(t, blob)
}

func TestCloneIsDeep(t *testing.T) {
	orig := Map{"P": {Kind: KindCrossover, History: indicators.NewWindow([]float64{1}), Support: ptr(1)}}
	cp := orig.Clone()

	p := cp["P"]
	p.History.Append(2, 10)
	*p.Support = 7

	assert.Equal(t, []float64{1}, orig["P"].History.Values())
	assert.Equal(t, 1.0, *orig["P"].Support)
}

func TestKindValid(t *testing.T) {
	assert.True(t, KindEMA.Valid())
	assert.False(t, Kind("rsi").Valid())
}
