package dataset

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/assist-by/predictor/internal/indicator"
)

// 정규화 구간 상수: 값은 대략 (0.0001, 0.8001) 범위로 매핑됩니다
const (
	NormScale  = 0.8
	NormOffset = 0.0001
)

// Normalize는 x를 [min, max] 기준으로 정규화합니다. min == max 검사는 호출자 책임입니다
func Normalize(x, min, max float64) float64 {
	return (x-min)/(max-min)*NormScale + NormOffset
}

// DeNormalize는 Normalize의 역변환입니다
func DeNormalize(y, min, max float64) float64 {
	return min + (y-NormOffset)*(max-min)/NormScale
}

// DegeneratePolicy는 min == max 인 시리즈의 처리 방식입니다
type DegeneratePolicy int

const (
	// DegenerateClamp는 상수 시리즈를 NormOffset으로 정규화하고 min으로 복원합니다
	DegenerateClamp DegeneratePolicy = iota
	// DegenerateFail은 데이터셋 구성 단계에서 ErrDegenerateRange를 반환합니다
	DegenerateFail
)

// ParseDegeneratePolicy는 설정 문자열을 정책으로 변환합니다
func ParseDegeneratePolicy(s string) (DegeneratePolicy, error) {
	switch s {
	case "", "clamp":
		return DegenerateClamp, nil
	case "fail":
		return DegenerateFail, nil
	default:
		return DegenerateClamp, fmt.Errorf("알 수 없는 상수 구간 정책: %q", s)
	}
}

// Range는 한 시리즈의 (min, max) 쌍입니다
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// EmptyRange는 아직 관측값이 없는 구간을 반환합니다
func EmptyRange() Range {
	return Range{Min: math.Inf(1), Max: math.Inf(-1)}
}

// Observe는 v를 포함하도록 확장된 새 구간을 반환합니다
func (r Range) Observe(v float64) Range {
	if v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
	return r
}

// Empty는 관측값이 하나도 없었는지 여부입니다
func (r Range) Empty() bool {
	return r.Min > r.Max
}

// Degenerate는 나눗셈이 정의되지 않는 구간(비어있거나 min == max)인지 여부입니다
func (r Range) Degenerate() bool {
	return r.Empty() || r.Min == r.Max
}

// Normalize는 상수 구간을 보호하는 정규화입니다
func (r Range) Normalize(x float64) float64 {
	if r.Degenerate() {
		return NormOffset
	}
	return Normalize(x, r.Min, r.Max)
}

// DeNormalize는 상수 구간을 보호하는 역정규화입니다
func (r Range) DeNormalize(y float64) float64 {
	if r.Empty() {
		return 0
	}
	if r.Min == r.Max {
		return r.Min
	}
	return DeNormalize(y, r.Min, r.Max)
}

// MarshalJSON은 빈 구간을 null로 씁니다
func (r Range) MarshalJSON() ([]byte, error) {
	if r.Empty() {
		return []byte("null"), nil
	}
	type plain Range
	return json.Marshal(plain(r))
}

// UnmarshalJSON은 null을 빈 구간으로 읽습니다
func (r *Range) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = EmptyRange()
		return nil
	}
	type plain Range
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Range(p)
	return nil
}

// FoldRange는 values 전체에 대한 구간을 계산합니다
func FoldRange(values []float64) Range {
	r := EmptyRange()
	for _, v := range values {
		r = r.Observe(v)
	}
	return r
}

// Registry는 지표별, 종가의 전역 정규화 구간입니다
// 전체 캔들 목록에서 한 번 계산되어 학습/테스트 구간이 공유합니다
type Registry struct {
	Indicators [indicator.KindCount]Range `json:"indicators"`
	Close      Range                      `json:"close"`
}

// Indicator는 kind의 구간을 반환합니다
func (r Registry) Indicator(kind indicator.Kind) Range {
	return r.Indicators[kind]
}

// Check는 정책에 따라 상수 구간을 검사합니다
func (r Registry) Check(policy DegeneratePolicy) error {
	if policy != DegenerateFail {
		return nil
	}
	for _, kind := range indicator.Kinds {
		if r.Indicators[kind].Degenerate() {
			return fmt.Errorf("%s 구간 [%v, %v]: %w", kind, r.Indicators[kind].Min, r.Indicators[kind].Max, ErrDegenerateRange)
		}
	}
	if r.Close.Degenerate() {
		return fmt.Errorf("종가 구간 [%v, %v]: %w", r.Close.Min, r.Close.Max, ErrDegenerateRange)
	}
	return nil
}

// DegenerateSeries는 상수 구간인 시리즈 이름 목록을 반환합니다
func (r Registry) DegenerateSeries() []string {
	var names []string
	for _, kind := range indicator.Kinds {
		if r.Indicators[kind].Degenerate() {
			names = append(names, kind.String())
		}
	}
	if r.Close.Degenerate() {
		names = append(names, "Close")
	}
	return names
}
