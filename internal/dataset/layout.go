package dataset

import (
	"fmt"

	"github.com/assist-by/predictor/internal/indicator"
)

// Layout은 예제 텐서의 모양을 정의합니다
//
// 입력 채널 (타임스텝 t 기준, 오래된 순):
//
//	[0, 6K)        k*6+kind : 인덱스 t-K+k 의 지표값
//	[6K, 6K+P)     6K+p     : 인덱스 t-P+p 의 종가
//	6K+P                    : 인덱스 t-1 의 종가 (앵커)
//
// 레이블 채널: 예측 인덱스의 지표값 6개와 종가 1개
type Layout struct {
	Length           int // 예제의 타임스텝 수 (L)
	RecentIndicators int // 타임스텝마다 넣는 과거 지표 위치 수 (K)
	RecentCloses     int // 타임스텝마다 넣는 과거 종가 수 (P)
	Horizon          int // 레이블 예측 거리
}

// DefaultLayout은 기본 텐서 크기를 반환합니다
func DefaultLayout() Layout {
	return Layout{
		Length:           22,
		RecentIndicators: 5,
		RecentCloses:     5,
		Horizon:          3,
	}
}

// Validate는 레이아웃 값을 검증합니다
func (l Layout) Validate() error {
	if l.Length < 1 {
		return &indicator.ValidationError{Field: "Length", Err: fmt.Errorf("길이는 1 이상이어야 합니다: %d", l.Length)}
	}
	if l.RecentIndicators < 1 {
		return &indicator.ValidationError{Field: "RecentIndicators", Err: fmt.Errorf("1 이상이어야 합니다: %d", l.RecentIndicators)}
	}
	if l.RecentCloses < 1 {
		return &indicator.ValidationError{Field: "RecentCloses", Err: fmt.Errorf("1 이상이어야 합니다: %d", l.RecentCloses)}
	}
	if l.Horizon < 0 {
		return &indicator.ValidationError{Field: "Horizon", Err: fmt.Errorf("0 이상이어야 합니다: %d", l.Horizon)}
	}
	return nil
}

// InputColumns는 타임스텝당 입력 채널 수입니다
func (l Layout) InputColumns() int {
	return indicator.KindCount*l.RecentIndicators + l.RecentCloses + 1
}

// OutputColumns는 타임스텝당 레이블 채널 수입니다
func (l Layout) OutputColumns() int {
	return indicator.KindCount + 1
}

// History는 첫 타임스텝이 필요로 하는 과거 위치 수입니다
func (l Layout) History() int {
	return max(l.RecentIndicators, l.RecentCloses)
}

// Window는 오프셋 하나가 차지하는 위치 수 (L+1)입니다
func (l Layout) Window() int {
	return l.Length + 1
}

// StepIndex는 오프셋 offset의 step번째 타임스텝이 가리키는 시계열 인덱스입니다
func (l Layout) StepIndex(offset, step int) int {
	return offset + l.History() + step
}

// IndicatorIndex는 타임스텝 t에서 k번째(오래된 순) 과거 지표 위치입니다
func (l Layout) IndicatorIndex(t, k int) int {
	return t - l.RecentIndicators + k
}

// CloseIndex는 타임스텝 t에서 p번째(오래된 순) 과거 종가 위치입니다
func (l Layout) CloseIndex(t, p int) int {
	return t - l.RecentCloses + p
}

// IndicatorColumn은 k번째 과거 위치의 kind 지표 입력 채널입니다
func (l Layout) IndicatorColumn(k int, kind indicator.Kind) int {
	return k*indicator.KindCount + int(kind)
}

// CloseColumn은 p번째 과거 종가 입력 채널입니다
func (l Layout) CloseColumn(p int) int {
	return indicator.KindCount*l.RecentIndicators + p
}

// AnchorColumn은 가장 최근 종가 입력 채널입니다
func (l Layout) AnchorColumn() int {
	return indicator.KindCount*l.RecentIndicators + l.RecentCloses
}

// PredictIndex는 {t, t+1, ..., t+Horizon} 중 n-1을 넘지 않는 가장 큰 인덱스입니다
// t가 이미 n-1을 넘으면 n-1을 반환합니다
func (l Layout) PredictIndex(t, n int) int {
	return min(t+l.Horizon, n-1)
}
