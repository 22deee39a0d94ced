package dataset

import (
	"fmt"
	"math"

	"github.com/assist-by/predictor/internal/indicator"
)

// InferenceExample은 테스트 구간의 단일 타임스텝 입력과 기대 출력입니다
type InferenceExample struct {
	Index        int       // 트리밍된 시계열 기준 타임스텝 인덱스
	PredictIndex int       // 레이블이 가리키는 인덱스
	Input        []float64 // 입력 채널
	Label        []float64 // 지표 6개 + 종가 (정규화)
}

// InferenceExamples는 테스트 구간의 모든 타임스텝에 대한 추론 입력을 만듭니다
// 과거 룩백은 학습 구간까지 거슬러 올라갈 수 있지만 t 이후 값은 읽지 않습니다
func (d *Dataset) InferenceExamples(layout Layout) ([]InferenceExample, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	g := &Generator{ds: d, layout: layout, policy: BoundaryStrict, n: d.trainLen}
	start := max(d.trainLen, layout.History())
	out := make([]InferenceExample, 0, max(0, d.Len()-start))

	for t := start; t < d.Len(); t++ {
		ex := InferenceExample{
			Index:        t,
			PredictIndex: layout.PredictIndex(t, d.Len()),
			Input:        make([]float64, layout.InputColumns()),
			Label:        make([]float64, layout.OutputColumns()),
		}
		if truncated, badIdx := g.fillInputs(func(col int, v float64) { ex.Input[col] = v }, t, t); truncated {
			return nil, &WindowError{Offset: t, Step: 0, Index: badIdx, Err: ErrOutOfRange}
		}
		g.fillLabel(func(row int, v float64) { ex.Label[row] = v }, ex.PredictIndex)
		out = append(out, ex)
	}

	return out, nil
}

// Prediction은 역정규화된 모델 출력입니다
type Prediction struct {
	Indicators [indicator.KindCount]float64
	Close      float64
}

// DecodePrediction은 모델 출력 7개를 원래 단위로 되돌립니다
func DecodePrediction(out []float64, reg Registry) (Prediction, error) {
	if len(out) != indicator.KindCount+1 {
		return Prediction{}, &indicator.ValidationError{
			Field: "output",
			Err:   fmt.Errorf("출력은 %d개여야 합니다: %d", indicator.KindCount+1, len(out)),
		}
	}

	var p Prediction
	for _, kind := range indicator.Kinds {
		p.Indicators[kind] = reg.Indicator(kind).DeNormalize(out[kind])
	}
	p.Close = reg.Close.DeNormalize(out[indicator.KindCount])
	return p, nil
}

// Model은 단일 타임스텝 추론을 제공하는 외부 학습 모델입니다
type Model interface {
	Predict(input []float64) ([]float64, error)
}

// LastValueModel은 입력의 가장 최근 지표 값과 직전 종가를 그대로 출력하는 기준 모델입니다
// 학습 모델의 종가 오차를 비교할 하한선으로 사용합니다
type LastValueModel struct {
	Layout Layout
	Err    error
}

// Predict는 Model을 구현합니다
func (m LastValueModel) Predict(input []float64) ([]float64, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if len(input) != m.Layout.InputColumns() {
		return nil, &indicator.ValidationError{
			Field: "input",
			Err:   fmt.Errorf("입력은 %d개여야 합니다: %d", m.Layout.InputColumns(), len(input)),
		}
	}

	out := make([]float64, m.Layout.OutputColumns())
	for _, kind := range indicator.Kinds {
		out[kind] = input[m.Layout.IndicatorColumn(m.Layout.RecentIndicators-1, kind)]
	}
	out[indicator.KindCount] = input[m.Layout.AnchorColumn()]
	return out, nil
}

// Evaluation은 테스트 구간 종가 예측 결과입니다
type Evaluation struct {
	Count     int
	CloseMAE  float64
	Actual    []float64
	Predicted []float64
}

// Evaluate는 추론 예제 전체에 대해 모델을 실행하고 종가 오차를 계산합니다
func Evaluate(model Model, examples []InferenceExample, reg Registry) (*Evaluation, error) {
	ev := &Evaluation{
		Actual:    make([]float64, 0, len(examples)),
		Predicted: make([]float64, 0, len(examples)),
	}

	var sumAbs float64
	for _, ex := range examples {
		out, err := model.Predict(ex.Input)
		if err != nil {
			return nil, fmt.Errorf("인덱스 %d 추론 실패: %w", ex.Index, err)
		}
		pred, err := DecodePrediction(out, reg)
		if err != nil {
			return nil, fmt.Errorf("인덱스 %d 출력 해석 실패: %w", ex.Index, err)
		}

		actual := reg.Close.DeNormalize(ex.Label[indicator.KindCount])
		ev.Actual = append(ev.Actual, actual)
		ev.Predicted = append(ev.Predicted, pred.Close)
		sumAbs += math.Abs(pred.Close - actual)
	}

	ev.Count = len(examples)
	if ev.Count > 0 {
		ev.CloseMAE = sumAbs / float64(ev.Count)
	}
	return ev, nil
}
