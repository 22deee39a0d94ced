package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/predictor/internal/indicator"
)

func TestCutoff(t *testing.T) {
	seriesOf := func(vals ...[]float64) [indicator.KindCount][]float64 {
		var s [indicator.KindCount][]float64
		for i := range s {
			s[i] = vals[i%len(vals)]
		}
		return s
	}

	tests := []struct {
		name    string
		series  [indicator.KindCount][]float64
		want    int
		wantErr bool
	}{
		{
			name:   "모든 시리즈가 같은 위치에서 시작",
			series: seriesOf([]float64{0, 0, 1, 2, 3}),
			want:   2,
		},
		{
			name: "가장 늦게 시작하는 시리즈 기준",
			series: seriesOf(
				[]float64{0, 1, 1, 1, 1, 1},
				[]float64{0, 0, 0, 0, 5, 5},
				[]float64{0, 0, 2, 2, 2, 2},
			),
			want: 4,
		},
		{
			name:   "0번 위치는 무시",
			series: seriesOf([]float64{7, 0, 0, 3}),
			want:   3,
		},
		{
			name:   "중간에 0이 다시 나와도 첫 유효 위치 사용",
			series: seriesOf([]float64{0, 4, 0, 0, 4}),
			want:   1,
		},
		{
			name: "유효값이 없는 시리즈",
			series: seriesOf(
				[]float64{0, 1, 1},
				[]float64{9, 0, 0},
			),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cutoff(tt.series)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInsufficientData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitLen(t *testing.T) {
	tests := []struct {
		n     int
		ratio float64
		want  int
	}{
		{88, 0.9, 79},
		{54, 0.5, 27},
		{10, 1.0, 10},
		{10, 0.0, 0},
		{5, 0.5, 3},
		{0, 0.9, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitLen(tt.n, tt.ratio), "n=%d ratio=%v", tt.n, tt.ratio)
	}
}

func TestPrepare_AlignAndSplit(t *testing.T) {
	candles := linearCandles(60)
	ds := mustPrepare(t, candles, 0.5)

	assert.Equal(t, 6, ds.CutoffIndex())
	assert.Equal(t, 54, ds.Len())
	assert.Equal(t, 27, ds.TrainLen())
	assert.Equal(t, 27, ds.TestLen())
	assert.Equal(t, ds.Len(), ds.TrainLen()+ds.TestLen())

	// 트리밍 후 인덱스 0은 원본 컷오프 위치
	assert.Equal(t, candles[6].Close, ds.Close(0))
	for _, kind := range indicator.Kinds {
		assert.Equal(t, candles[5].Close*float64(kind+1), ds.Value(kind, 0))
		assert.Equal(t, candles[58].Close*float64(kind+1), ds.Value(kind, ds.Len()-1))
	}

	train, test := ds.Train(), ds.Test()
	require.Len(t, train, 27)
	require.Len(t, test, 27)
	last, ok := train.GetLastCandle()
	require.True(t, ok)
	assert.Equal(t, candles[6+26].OpenTime, last.OpenTime)
	assert.Equal(t, candles[6+27].OpenTime, test[0].OpenTime)

	// 반환값은 복사본
	train[0].Close = -1
	assert.Equal(t, candles[6].Close, ds.Close(0))
	assert.Equal(t, candles[6].Close, ds.Train()[0].Close)
}

func TestPrepare_SplitExtremes(t *testing.T) {
	candles := linearCandles(40)

	all := mustPrepare(t, candles, 1.0)
	assert.Equal(t, all.Len(), all.TrainLen())
	assert.Zero(t, all.TestLen())
	assert.Empty(t, all.Test())

	none := mustPrepare(t, candles, 0.0)
	assert.Zero(t, none.TrainLen())
	assert.Equal(t, none.Len(), none.TestLen())
	assert.Empty(t, none.Train())
}

func TestPrepare_InvalidRatio(t *testing.T) {
	for _, ratio := range []float64{-0.1, 1.5} {
		_, err := Prepare(linearCandles(40), Options{SplitRatio: ratio, Specs: testSpecs(), Library: scaledLastClose()})
		var vErr *indicator.ValidationError
		assert.True(t, errors.As(err, &vErr), "ratio=%v", ratio)
	}
}

func TestPrepare_InsufficientData(t *testing.T) {
	_, err := Prepare(linearCandles(5), Options{SplitRatio: 0.9, Specs: testSpecs(), Library: scaledLastClose()})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Prepare(nil, Options{SplitRatio: 0.9, Specs: testSpecs(), Library: scaledLastClose()})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestPrepare_ConstantPrice(t *testing.T) {
	candles := constantCandles(60, 250)

	t.Run("클램프 정책은 고정값으로 정규화", func(t *testing.T) {
		ds, err := Prepare(candles, Options{SplitRatio: 0.9, Specs: testSpecs(), Library: scaledLastClose()})
		require.NoError(t, err)
		assert.True(t, ds.Registry().Close.Degenerate())
		assert.Len(t, ds.Registry().DegenerateSeries(), indicator.KindCount+1)
	})

	t.Run("실패 정책은 에러 반환", func(t *testing.T) {
		_, err := Prepare(candles, Options{
			SplitRatio: 0.9,
			Specs:      testSpecs(),
			Library:    scaledLastClose(),
			Degenerate: DegenerateFail,
		})
		assert.ErrorIs(t, err, ErrDegenerateRange)
	})

	t.Run("실제 지표 라이브러리", func(t *testing.T) {
		flat := constantCandles(200, 42)

		_, err := Prepare(flat, Options{SplitRatio: 0.9, Degenerate: DegenerateFail})
		assert.ErrorIs(t, err, ErrDegenerateRange)

		assert.NotPanics(t, func() {
			_, err := Prepare(flat, Options{SplitRatio: 0.9})
			if err != nil {
				assert.ErrorIs(t, err, ErrInsufficientData)
			}
		})
	})
}

func TestPrepare_DefaultsUseTALib(t *testing.T) {
	candles := linearCandles(200)

	ds, err := Prepare(candles, Options{SplitRatio: 0.9})
	require.NoError(t, err)

	// 가장 긴 룩백은 MACD (21+91)
	assert.Equal(t, 112, ds.CutoffIndex())
	assert.Equal(t, 88, ds.Len())
	assert.Equal(t, 79, ds.TrainLen())
	assert.Equal(t, 9, ds.TestLen())

	for _, kind := range indicator.Kinds {
		assert.NotZero(t, ds.Value(kind, 0), "%s", kind)
	}
	assert.Zero(t, ds.Stats().TotalFailures())
}
