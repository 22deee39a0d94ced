package dataset

import (
	"fmt"
	"math"

	"github.com/assist-by/predictor/internal/domain"
	"github.com/assist-by/predictor/internal/indicator"
)

// Options는 데이터셋 구성 옵션입니다
type Options struct {
	SplitRatio float64          // 학습 구간 비율 (0.0 ~ 1.0)
	Specs      []indicator.Spec // 지표별 룩백, 비어있으면 DefaultSpecs(DefaultChunkShift)
	Library    indicator.Library
	Degenerate DegeneratePolicy
}

// DefaultChunkShift는 오실레이터 계열 룩백에 더해지는 기본 시프트입니다
const DefaultChunkShift = 91

// Dataset은 정렬/트리밍이 끝난 읽기 전용 데이터입니다
// 캔들과 지표 시리즈는 같은 인덱스를 공유하며 [0, trainLen)이 학습, 나머지가 테스트 구간입니다
type Dataset struct {
	candles  domain.CandleList
	series   [indicator.KindCount][]float64
	registry Registry
	cutoff   int
	trainLen int
	stats    FeatureStats
}

// Cutoff는 모든 시리즈가 유효해지는 첫 인덱스를 찾습니다
// 시리즈마다 0번 이후 처음으로 0이 아닌 위치를 구하고 그 중 최대값을 반환합니다
func Cutoff(series [indicator.KindCount][]float64) (int, error) {
	cutoff := 0
	for _, kind := range indicator.Kinds {
		first := firstValid(series[kind])
		if first < 0 {
			return 0, fmt.Errorf("%s 시리즈에 유효한 값이 없습니다: %w", kind, ErrInsufficientData)
		}
		if first > cutoff {
			cutoff = first
		}
	}
	return cutoff, nil
}

func firstValid(values []float64) int {
	for j := 1; j < len(values); j++ {
		if values[j] != 0 {
			return j
		}
	}
	return -1
}

// SplitLen은 n개 중 학습 구간에 들어갈 개수(반올림)를 반환합니다
func SplitLen(n int, ratio float64) int {
	train := int(math.Round(float64(n) * ratio))
	if train < 0 {
		return 0
	}
	if train > n {
		return n
	}
	return train
}

// Prepare는 지표 계산, 정렬/트리밍, 학습/테스트 분할을 수행합니다
func Prepare(candles domain.CandleList, opts Options) (*Dataset, error) {
	if opts.SplitRatio < 0 || opts.SplitRatio > 1 || math.IsNaN(opts.SplitRatio) {
		return nil, &indicator.ValidationError{
			Field: "SplitRatio",
			Err:   fmt.Errorf("분할 비율은 0 이상 1 이하여야 합니다: %v", opts.SplitRatio),
		}
	}
	specs := opts.Specs
	if len(specs) == 0 {
		specs = indicator.DefaultSpecs(DefaultChunkShift)
	}
	lib := opts.Library
	if lib == nil {
		lib = indicator.NewTALib()
	}

	fm, err := BuildFeatures(candles, specs, lib)
	if err != nil {
		return nil, err
	}
	return fromFeatures(candles, fm, opts.SplitRatio, opts.Degenerate)
}

// fromFeatures는 이미 계산된 지표로 데이터셋을 구성합니다
func fromFeatures(candles domain.CandleList, fm *FeatureMatrix, ratio float64, policy DegeneratePolicy) (*Dataset, error) {
	if err := fm.Registry.Check(policy); err != nil {
		return nil, err
	}

	cutoff, err := Cutoff(fm.Series)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		candles:  candles[cutoff:].Clone(),
		registry: fm.Registry,
		cutoff:   cutoff,
		stats:    fm.Stats,
	}
	for _, kind := range indicator.Kinds {
		trimmed := make([]float64, len(candles)-cutoff)
		copy(trimmed, fm.Series[kind][cutoff:])
		ds.series[kind] = trimmed
	}
	ds.trainLen = SplitLen(len(ds.candles), ratio)

	return ds, nil
}

// Len은 트리밍 후 전체 캔들 수입니다
func (d *Dataset) Len() int { return len(d.candles) }

// TrainLen은 학습 구간 길이입니다
func (d *Dataset) TrainLen() int { return d.trainLen }

// TestLen은 테스트 구간 길이입니다
func (d *Dataset) TestLen() int { return len(d.candles) - d.trainLen }

// CutoffIndex는 원본 캔들 목록 기준 트리밍 시작 인덱스입니다
func (d *Dataset) CutoffIndex() int { return d.cutoff }

// Registry는 전역 정규화 구간을 반환합니다
func (d *Dataset) Registry() Registry { return d.registry }

// Stats는 지표 계산 통계를 반환합니다
func (d *Dataset) Stats() FeatureStats { return d.stats }

// Value는 트리밍된 인덱스 i의 지표값입니다
func (d *Dataset) Value(kind indicator.Kind, i int) float64 { return d.series[kind][i] }

// Close는 트리밍된 인덱스 i의 종가입니다
func (d *Dataset) Close(i int) float64 { return d.candles[i].Close }

// Train은 학습 구간 캔들의 복사본을 반환합니다
func (d *Dataset) Train() domain.CandleList { return d.candles[:d.trainLen].Clone() }

// Test는 테스트 구간 캔들의 복사본을 반환합니다
func (d *Dataset) Test() domain.CandleList { return d.candles[d.trainLen:].Clone() }
