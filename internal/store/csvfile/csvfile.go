// Package csvfile은 캔들을 CSV로 읽고 씁니다
//
// 형식: open_time,open,high,low,close,volume,close_time (시간은 유닉스 밀리초)
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/assist-by/predictor/internal/domain"
	"github.com/assist-by/predictor/internal/exchange"
)

var header = []string{"open_time", "open", "high", "low", "close", "volume", "close_time"}

// Read는 CSV를 읽어 시간 오름차순 캔들 목록을 반환합니다
// 첫 줄이 헤더이면 건너뜁니다
func Read(r io.Reader, symbol string, interval domain.TimeInterval) (domain.CandleList, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(header)
	reader.TrimLeadingSpace = true

	var candles domain.CandleList
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CSV 읽기 실패: %w", err)
		}
		if line == 1 && record[0] == header[0] {
			continue
		}

		c, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%d번째 줄 파싱 실패: %w", line, err)
		}
		c.Symbol = symbol
		c.Interval = interval
		candles = append(candles, c)
	}

	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})
	return candles, nil
}

func parseRecord(record []string) (domain.Candle, error) {
	openMs, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("open_time: %w", err)
	}
	closeMs, err := strconv.ParseInt(record[6], 10, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("close_time: %w", err)
	}

	var values [5]float64
	for i := range values {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return domain.Candle{}, fmt.Errorf("%s: %w", header[i+1], err)
		}
		values[i] = v
	}

	return domain.Candle{
		OpenTime:  time.UnixMilli(openMs),
		CloseTime: time.UnixMilli(closeMs),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}

// Write는 캔들을 헤더와 함께 CSV로 씁니다
func Write(w io.Writer, candles domain.CandleList) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("CSV 헤더 쓰기 실패: %w", err)
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, c := range candles {
		record := []string{
			strconv.FormatInt(c.OpenTime.UnixMilli(), 10),
			format(c.Open),
			format(c.High),
			format(c.Low),
			format(c.Close),
			format(c.Volume),
			strconv.FormatInt(c.CloseTime.UnixMilli(), 10),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("CSV 쓰기 실패: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ReadFile은 파일에서 캔들을 읽습니다
func ReadFile(path, symbol string, interval domain.TimeInterval) (domain.CandleList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("CSV 파일 열기 실패: %w", err)
	}
	defer f.Close()
	return Read(f, symbol, interval)
}

// WriteFile은 캔들을 파일로 씁니다. 상위 디렉토리가 없으면 만듭니다
func WriteFile(path string, candles domain.CandleList) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("디렉토리 생성 실패: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("CSV 파일 생성 실패: %w", err)
	}
	if err := Write(f, candles); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Source는 CSV 파일 하나를 CandleSource로 제공합니다
type Source struct {
	path string
}

var _ exchange.CandleSource = (*Source)(nil)

// NewSource는 새로운 CSV 소스를 생성합니다
func NewSource(path string) *Source {
	return &Source{path: path}
}

// GetKlines는 파일의 마지막 limit개 캔들을 반환합니다. limit이 0 이하이면 전체입니다
func (s *Source) GetKlines(ctx context.Context, symbol string, interval domain.TimeInterval, limit int) (domain.CandleList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candles, err := ReadFile(s.path, symbol, interval)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}
