package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/assist-by/predictor/internal/domain"
	"github.com/assist-by/predictor/internal/indicator"
)

// 테스트용 선형 상승 캔들 생성
func linearCandles(n int) domain.CandleList {
	baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make(domain.CandleList, n)
	for i := range candles {
		c := 100 + float64(i)*0.5
		candles[i] = domain.Candle{
			OpenTime:  baseTime.Add(time.Duration(i) * time.Hour),
			CloseTime: baseTime.Add(time.Duration(i+1)*time.Hour - time.Millisecond),
			Open:      c - 0.5,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
			Symbol:    "BTCUSDT",
			Interval:  domain.Interval1h,
		}
	}
	return candles
}

// 테스트용 횡보(상수 가격) 캔들 생성
func constantCandles(n int, price float64) domain.CandleList {
	candles := linearCandles(n)
	for i := range candles {
		candles[i].Open, candles[i].High, candles[i].Low, candles[i].Close = price, price, price, price
	}
	return candles
}

// scaledLastClose는 윈도우 마지막 종가 × (kind+1)을 반환하는 결정적 라이브러리입니다
// 위치 t의 값은 close[t-1] × (kind+1)
func scaledLastClose() indicator.FuncLibrary {
	lib := indicator.FuncLibrary{}
	for _, kind := range indicator.Kinds {
		k := kind
		lib[k] = func(w indicator.Window) (float64, error) {
			return w.Close[w.Len()-1] * float64(k+1), nil
		}
	}
	return lib
}

// 테스트용 짧은 룩백 구성 (컷오프 = 6)
func testSpecs() []indicator.Spec {
	return []indicator.Spec{
		{Kind: indicator.MACD, Lookback: 4},
		{Kind: indicator.RSI, Lookback: 3},
		{Kind: indicator.ADX, Lookback: 3, NeedsHL: true},
		{Kind: indicator.MABlack, Lookback: 6},
		{Kind: indicator.MAWhite, Lookback: 2},
		{Kind: indicator.EMA, Lookback: 2},
	}
}

func mustPrepare(t *testing.T, candles domain.CandleList, ratio float64) *Dataset {
	t.Helper()
	ds, err := Prepare(candles, Options{
		SplitRatio: ratio,
		Specs:      testSpecs(),
		Library:    scaledLastClose(),
	})
	require.NoError(t, err)
	return ds
}
