package domain

import "time"

// Candle은 캔들 데이터를 표현합니다
// 리스트 내 위치가 곧 시계열 인덱스입니다 (시간 오름차순, 공백 없음)
type Candle struct {
	OpenTime  time.Time    // 캔들 시작 시간
	CloseTime time.Time    // 캔들 종료 시간
	Open      float64      // 시가
	High      float64      // 고가
	Low       float64      // 저가
	Close     float64      // 종가
	Volume    float64      // 거래량
	Symbol    string       // 심볼 (예: BTCUSDT)
	Interval  TimeInterval // 시간 간격 (예: 15m, 1h)
}

// CandleList는 캔들 데이터 목록입니다
type CandleList []Candle

// GetLastCandle은 가장 최근 캔들을 반환합니다
func (cl CandleList) GetLastCandle() (Candle, bool) {
	if len(cl) == 0 {
		return Candle{}, false
	}
	return cl[len(cl)-1], true
}

// Clone은 원본과 메모리를 공유하지 않는 복사본을 반환합니다
func (cl CandleList) Clone() CandleList {
	if cl == nil {
		return nil
	}
	out := make(CandleList, len(cl))
	copy(out, cl)
	return out
}

// Closes는 [start, end) 구간의 종가 배열을 반환합니다
func (cl CandleList) Closes(start, end int) []float64 {
	out := make([]float64, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, cl[i].Close)
	}
	return out
}

// Highs는 [start, end) 구간의 고가 배열을 반환합니다
func (cl CandleList) Highs(start, end int) []float64 {
	out := make([]float64, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, cl[i].High)
	}
	return out
}

// Lows는 [start, end) 구간의 저가 배열을 반환합니다
func (cl CandleList) Lows(start, end int) []float64 {
	out := make([]float64, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, cl[i].Low)
	}
	return out
}
