package csvfile

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/predictor/internal/domain"
)

func TestRead(t *testing.T) {
	input := `open_time,open,high,low,close,volume,close_time
1704070800000,101.5,103,100,102.25,7.5,1704074399999
1704067200000,100,102,99,101.5,12,1704070799999
`
	candles, err := Read(strings.NewReader(input), "BTCUSDT", domain.Interval1h)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	// 시간 오름차순 정렬
	assert.Equal(t, int64(1704067200000), candles[0].OpenTime.UnixMilli())
	assert.Equal(t, 101.5, candles[0].Close)
	assert.Equal(t, 102.25, candles[1].Close)
	assert.Equal(t, 7.5, candles[1].Volume)
	assert.Equal(t, "BTCUSDT", candles[1].Symbol)
	assert.Equal(t, domain.Interval1h, candles[1].Interval)
}

func TestRead_WithoutHeader(t *testing.T) {
	candles, err := Read(strings.NewReader("1704067200000,1,2,0.5,1.5,3,1704070799999\n"), "ETHUSDT", domain.Interval1h)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 1.5, candles[0].Close)
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"필드 수 부족", "1704067200000,1,2,0.5\n"},
		{"숫자가 아닌 가격", "1704067200000,1,x,0.5,1.5,3,1704070799999\n"},
		{"숫자가 아닌 시간", "yesterday,1,2,0.5,1.5,3,1704070799999\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input), "BTCUSDT", domain.Interval1h)
			assert.Error(t, err)
		})
	}
}

func TestWriteThenSource(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make(domain.CandleList, 5)
	for i := range candles {
		open := start.Add(time.Duration(i) * time.Hour)
		candles[i] = domain.Candle{
			OpenTime:  open,
			CloseTime: open.Add(time.Hour - time.Millisecond),
			Open:      100.125 + float64(i),
			High:      105,
			Low:       95,
			Close:     101.5 + float64(i),
			Volume:    0.001,
		}
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, candles))
	assert.True(t, strings.HasPrefix(buf.String(), "open_time,open,high,low,close,volume,close_time\n"))

	path := filepath.Join(t.TempDir(), "nested", "candles.csv")
	require.NoError(t, WriteFile(path, candles))

	src := NewSource(path)
	last, err := src.GetKlines(context.Background(), "BTCUSDT", domain.Interval1h, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, 104.5, last[1].Close)
	assert.Equal(t, 103.125, last[0].Open)

	all, err := src.GetKlines(context.Background(), "BTCUSDT", domain.Interval1h, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, err = NewSource(filepath.Join(t.TempDir(), "missing.csv")).GetKlines(context.Background(), "BTCUSDT", domain.Interval1h, 0)
	assert.Error(t, err)
}
