package indicator

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"
)

// 지표 기간 상수
const (
	MACDFastPeriod   = 7
	MACDSlowPeriod   = 21
	MACDSignalPeriod = 14
	RSIPeriod        = 14
	ADXPeriod        = 14
	MABlackPeriod    = 63
	MAWhitePeriod    = 7
	EMAPeriod        = 14
)

// TALib은 go-talib 기반 Library 구현체입니다
type TALib struct{}

// NewTALib은 새로운 TALib 인스턴스를 생성합니다
func NewTALib() *TALib {
	return &TALib{}
}

// MinWindow는 kind가 값을 하나 이상 내기 위해 필요한 최소 윈도우 길이입니다
func MinWindow(kind Kind) int {
	switch kind {
	case MACD:
		return MACDSlowPeriod + MACDSignalPeriod - 1
	case RSI:
		return RSIPeriod + 1
	case ADX:
		return 2 * ADXPeriod
	case MABlack:
		return MABlackPeriod
	case MAWhite:
		return MAWhitePeriod
	case EMA:
		return EMAPeriod
	default:
		return 0
	}
}

// Compute는 윈도우의 가장 최근 지표값을 계산합니다
func (t *TALib) Compute(kind Kind, w Window) (value float64, err error) {
	if err := validateWindow(kind, w); err != nil {
		return 0, err
	}

	// go-talib은 입력 길이가 맞지 않으면 패닉을 낼 수 있음
	defer func() {
		if r := recover(); r != nil {
			value, err = 0, fmt.Errorf("%s 계산 중 패닉: %v: %w", kind, r, ErrNoValue)
		}
	}()

	var out []float64
	switch kind {
	case MACD:
		out, _, _ = talib.Macd(w.Close, MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod)
	case RSI:
		out = talib.Rsi(w.Close, RSIPeriod)
	case ADX:
		out = talib.Adx(w.High, w.Low, w.Close, ADXPeriod)
	case MABlack:
		out = talib.Trima(w.Close, MABlackPeriod)
	case MAWhite:
		out = talib.Trima(w.Close, MAWhitePeriod)
	case EMA:
		out = talib.Ema(w.Close, EMAPeriod)
	default:
		return 0, &ValidationError{Field: "kind", Err: fmt.Errorf("지원하지 않는 지표: %d", kind)}
	}

	return lastValue(kind, out)
}

func validateWindow(kind Kind, w Window) error {
	need := MinWindow(kind)
	if need == 0 {
		return &ValidationError{Field: "kind", Err: fmt.Errorf("지원하지 않는 지표: %d", kind)}
	}
	if w.Len() < need {
		return fmt.Errorf("%s 데이터 부족. 필요: %d, 현재: %d: %w", kind, need, w.Len(), ErrNoValue)
	}
	if kind == ADX && (len(w.High) != w.Len() || len(w.Low) != w.Len()) {
		return &ValidationError{
			Field: "window",
			Err:   fmt.Errorf("ADX 고가/저가 길이 불일치: close=%d high=%d low=%d", w.Len(), len(w.High), len(w.Low)),
		}
	}
	return nil
}

func lastValue(kind Kind, out []float64) (float64, error) {
	if len(out) == 0 {
		return 0, fmt.Errorf("%s 결과 없음: %w", kind, ErrNoValue)
	}
	v := out[len(out)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s 결과가 유한하지 않음(%v): %w", kind, v, ErrNoValue)
	}
	return v, nil
}
