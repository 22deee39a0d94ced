package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/predictor/internal/indicator"
)

func TestBuildFeatures_WindowsAndWarmup(t *testing.T) {
	candles := linearCandles(30)
	specs := testSpecs()

	type call struct {
		kind indicator.Kind
		w    indicator.Window
	}
	var calls []call
	lib := indicator.FuncLibrary{}
	for _, kind := range indicator.Kinds {
		k := kind
		lib[k] = func(w indicator.Window) (float64, error) {
			calls = append(calls, call{k, w})
			return w.Close[w.Len()-1] * float64(k+1), nil
		}
	}

	fm, err := BuildFeatures(candles, specs, lib)
	require.NoError(t, err)

	for _, spec := range specs {
		series := fm.Series[spec.Kind]
		require.Len(t, series, len(candles))

		for t2 := 0; t2 < spec.Lookback; t2++ {
			assert.Zero(t, series[t2], "%s 워밍업 위치 %d", spec.Kind, t2)
		}
		for t2 := spec.Lookback; t2 < len(candles); t2++ {
			assert.Equal(t, candles[t2-1].Close*float64(spec.Kind+1), series[t2])
		}

		want := Range{
			Min: candles[spec.Lookback-1].Close * float64(spec.Kind+1),
			Max: candles[len(candles)-2].Close * float64(spec.Kind+1),
		}
		assert.Equal(t, want, fm.Registry.Indicators[spec.Kind])
		assert.Equal(t, len(candles)-spec.Lookback, fm.Stats.Computed[spec.Kind])
	}

	// 윈도우는 [t-W, t), 고저가는 ADX에만 전달
	for _, c := range calls {
		lookback := specs[c.kind].Lookback
		assert.Equal(t, lookback, c.w.Len())
		if c.kind == indicator.ADX {
			assert.Len(t, c.w.High, lookback)
			assert.Len(t, c.w.Low, lookback)
			assert.Equal(t, c.w.Close[0]+1, c.w.High[0])
		} else {
			assert.Nil(t, c.w.High)
		}
	}

	assert.Equal(t, Range{Min: candles[0].Close, Max: candles[29].Close}, fm.Registry.Close)
}

func TestBuildFeatures_FailuresAreZeroAndExcludedFromRange(t *testing.T) {
	candles := linearCandles(20)
	lib := scaledLastClose()
	lib[indicator.EMA] = func(w indicator.Window) (float64, error) {
		last := w.Close[w.Len()-1]
		if last > 105 {
			return 0, indicator.ErrNoValue
		}
		return last, nil
	}

	fm, err := BuildFeatures(candles, testSpecs(), lib)
	require.NoError(t, err)

	ema := fm.Series[indicator.EMA]
	for i := 2; i < len(candles); i++ {
		if candles[i-1].Close > 105 {
			assert.Zero(t, ema[i])
		} else {
			assert.Equal(t, candles[i-1].Close, ema[i])
		}
	}
	assert.Equal(t, 105.0, fm.Registry.Indicators[indicator.EMA].Max)
	assert.Equal(t, 8, fm.Stats.Failures[indicator.EMA])
	assert.Equal(t, 8, fm.Stats.TotalFailures())
}

func TestBuildFeatures_Validation(t *testing.T) {
	_, err := BuildFeatures(linearCandles(10), testSpecs()[:3], scaledLastClose())
	assert.Error(t, err)

	_, err = BuildFeatures(linearCandles(10), testSpecs(), nil)
	var vErr *indicator.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestBuildFeatures_ShortInputLeavesSeriesEmpty(t *testing.T) {
	fm, err := BuildFeatures(linearCandles(5), testSpecs(), scaledLastClose())
	require.NoError(t, err)

	assert.True(t, fm.Registry.Indicators[indicator.MABlack].Empty())
	for _, v := range fm.Series[indicator.MABlack] {
		assert.Zero(t, v)
	}
}

func TestBuildFeatures_ConstantPriceWithTALib(t *testing.T) {
	candles := constantCandles(150, 42)

	assert.NotPanics(t, func() {
		fm, err := BuildFeatures(candles, indicator.DefaultSpecs(DefaultChunkShift), indicator.NewTALib())
		require.NoError(t, err)
		assert.True(t, fm.Registry.Close.Degenerate())
		assert.Equal(t, NormOffset, fm.Registry.Close.Normalize(42))
	})
}
