package indicator

import (
	"errors"
	"fmt"
)

// ErrNoValue는 윈도우에서 지표값을 얻을 수 없을 때 반환됩니다 (데이터 부족, 내부 실패)
var ErrNoValue = errors.New("지표값 없음")

// ValidationError는 입력값 검증 에러를 정의합니다
type ValidationError struct {
	Field string
	Err   error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("유효하지 않은 %s: %v", e.Field, e.Err)
}

// Unwrap은 내부 에러를 반환합니다
func (e ValidationError) Unwrap() error {
	return e.Err
}

// Kind는 학습 데이터에 사용하는 지표 종류입니다
type Kind int

const (
	MACD    Kind = iota // 모멘텀 오실레이터
	RSI                 // 모멘텀 오실레이터
	ADX                 // 추세 강도
	MABlack             // 장기 삼각 이동평균
	MAWhite             // 단기 삼각 이동평균
	EMA                 // 지수 이동평균
)

// KindCount는 지표 종류의 수입니다
const KindCount = 6

// Kinds는 텐서 채널 순서대로 나열된 모든 지표 종류입니다
var Kinds = [KindCount]Kind{MACD, RSI, ADX, MABlack, MAWhite, EMA}

// String은 Kind의 문자열 표현을 반환합니다
func (k Kind) String() string {
	switch k {
	case MACD:
		return "MACD"
	case RSI:
		return "RSI"
	case ADX:
		return "ADX"
	case MABlack:
		return "MABlack"
	case MAWhite:
		return "MAWhite"
	case EMA:
		return "EMA"
	default:
		return "Unknown"
	}
}

// Window는 지표 한 번의 계산에 넘기는 고정 길이 구간입니다
// High/Low는 ADX처럼 고저가가 필요한 지표에서만 채워집니다
type Window struct {
	Close []float64
	High  []float64
	Low   []float64
}

// Len은 윈도우 길이를 반환합니다
func (w Window) Len() int {
	return len(w.Close)
}

// Library는 윈도우 하나를 가장 최근 지표값 하나로 바꾸는 함수 모음입니다
// 같은 윈도우에 대해서는 항상 같은 값을 반환해야 합니다
type Library interface {
	Compute(kind Kind, w Window) (float64, error)
}

// Func는 단일 지표 계산 함수입니다
type Func func(w Window) (float64, error)

// FuncLibrary는 Kind별 함수로 구성된 Library입니다
type FuncLibrary map[Kind]Func

// Compute는 kind에 등록된 함수를 호출합니다
func (l FuncLibrary) Compute(kind Kind, w Window) (float64, error) {
	fn, ok := l[kind]
	if !ok {
		return 0, &ValidationError{Field: "kind", Err: fmt.Errorf("등록되지 않은 지표: %s", kind)}
	}
	return fn(w)
}

// Spec은 지표 하나의 룩백 윈도우 크기를 정의합니다
type Spec struct {
	Kind     Kind
	Lookback int  // 위치 t의 값은 [t-Lookback, t) 구간으로 계산
	NeedsHL  bool // 고가/저가 윈도우 필요 여부
}

// DefaultSpecs는 기본 지표 구성을 반환합니다
// 오실레이터 계열은 chunkShift만큼 긴 윈도우로 계산합니다
func DefaultSpecs(chunkShift int) []Spec {
	return []Spec{
		{Kind: MACD, Lookback: MACDSlowPeriod + chunkShift},
		{Kind: RSI, Lookback: RSIPeriod + chunkShift},
		{Kind: ADX, Lookback: ADXPeriod + chunkShift, NeedsHL: true},
		{Kind: MABlack, Lookback: MABlackPeriod},
		{Kind: MAWhite, Lookback: MAWhitePeriod},
		{Kind: EMA, Lookback: EMAPeriod},
	}
}

// ValidateSpecs는 지표 구성이 모든 종류를 정확히 한 번씩 포함하는지 확인합니다
func ValidateSpecs(specs []Spec) error {
	if len(specs) != KindCount {
		return &ValidationError{
			Field: "specs",
			Err:   fmt.Errorf("지표 구성은 %d개여야 합니다: %d", KindCount, len(specs)),
		}
	}

	var seen [KindCount]bool
	for _, s := range specs {
		if s.Kind < 0 || int(s.Kind) >= KindCount {
			return &ValidationError{Field: "kind", Err: fmt.Errorf("알 수 없는 지표: %d", s.Kind)}
		}
		if seen[s.Kind] {
			return &ValidationError{Field: "kind", Err: fmt.Errorf("중복된 지표: %s", s.Kind)}
		}
		if s.Lookback < 1 {
			return &ValidationError{
				Field: "lookback",
				Err:   fmt.Errorf("%s 룩백은 1 이상이어야 합니다: %d", s.Kind, s.Lookback),
			}
		}
		seen[s.Kind] = true
	}
	return nil
}
