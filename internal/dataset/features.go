package dataset

import (
	"fmt"
	"log"

	"github.com/assist-by/predictor/internal/domain"
	"github.com/assist-by/predictor/internal/indicator"
)

// FeatureMatrix는 캔들과 1:1로 정렬된 지표 시리즈와 전역 정규화 구간입니다
// 워밍업 이전 위치는 0(아직 유효하지 않음)입니다
type FeatureMatrix struct {
	Series   [indicator.KindCount][]float64
	Registry Registry
	Stats    FeatureStats
}

// FeatureStats는 지표 계산 실패 통계입니다
type FeatureStats struct {
	Computed [indicator.KindCount]int
	Failures [indicator.KindCount]int
}

// TotalFailures는 모든 지표의 실패 횟수 합입니다
func (s FeatureStats) TotalFailures() int {
	total := 0
	for _, n := range s.Failures {
		total += n
	}
	return total
}

// BuildFeatures는 지표별 룩백 윈도우로 캔들을 순회하며 지표 시리즈를 만듭니다
// 위치 t(t >= Lookback)의 값은 [t-Lookback, t) 윈도우로 계산됩니다
func BuildFeatures(candles domain.CandleList, specs []indicator.Spec, lib indicator.Library) (*FeatureMatrix, error) {
	if err := indicator.ValidateSpecs(specs); err != nil {
		return nil, fmt.Errorf("지표 구성 검증 실패: %w", err)
	}
	if lib == nil {
		return nil, &indicator.ValidationError{Field: "library", Err: fmt.Errorf("지표 라이브러리가 없습니다")}
	}

	fm := &FeatureMatrix{}
	for _, spec := range specs {
		series, rng, computed, failures := buildSeries(candles, spec, lib)
		fm.Series[spec.Kind] = series
		fm.Registry.Indicators[spec.Kind] = rng
		fm.Stats.Computed[spec.Kind] = computed
		fm.Stats.Failures[spec.Kind] = failures
	}
	fm.Registry.Close = FoldRange(candles.Closes(0, len(candles)))

	return fm, nil
}

// buildSeries는 지표 하나의 시리즈와 그 구간을 계산합니다
func buildSeries(candles domain.CandleList, spec indicator.Spec, lib indicator.Library) ([]float64, Range, int, int) {
	series := make([]float64, len(candles))
	rng := EmptyRange()
	computed, failures := 0, 0
	var firstErr error

	for t := spec.Lookback; t < len(candles); t++ {
		w := indicator.Window{Close: candles.Closes(t-spec.Lookback, t)}
		if spec.NeedsHL {
			w.High = candles.Highs(t-spec.Lookback, t)
			w.Low = candles.Lows(t-spec.Lookback, t)
		}

		v, err := lib.Compute(spec.Kind, w)
		if err != nil {
			// 실패한 위치는 0으로 남기고 구간에 반영하지 않음
			failures++
			if firstErr == nil {
				firstErr = fmt.Errorf("위치 %d: %w", t, err)
			}
			continue
		}

		series[t] = v
		rng = rng.Observe(v)
		computed++
	}

	if failures > 0 {
		log.Printf("지표 '%s' 계산 실패 %d건 (성공 %d건), 첫 에러: %v", spec.Kind, failures, computed, firstErr)
	}
	return series, rng, computed, failures
}
