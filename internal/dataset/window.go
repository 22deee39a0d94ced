package dataset

import (
	"fmt"

	"github.com/assist-by/predictor/internal/indicator"
)

// BoundaryPolicy는 과거 룩백 인덱스가 학습 구간 [0, n-1)을 벗어날 때의 처리 방식입니다
type BoundaryPolicy int

const (
	// BoundaryPartial은 해당 타임스텝의 채널 채우기를 그 지점에서 멈추고 나머지를 0으로 둡니다
	BoundaryPartial BoundaryPolicy = iota
	// BoundaryStrict는 ErrOutOfRange를 반환합니다
	BoundaryStrict
)

// ParseBoundaryPolicy는 설정 문자열을 정책으로 변환합니다
func ParseBoundaryPolicy(s string) (BoundaryPolicy, error) {
	switch s {
	case "", "partial":
		return BoundaryPartial, nil
	case "strict":
		return BoundaryStrict, nil
	default:
		return BoundaryPartial, fmt.Errorf("알 수 없는 경계 정책: %q", s)
	}
}

// Example은 학습 예제 하나입니다. 생성기는 반환 후 참조를 보관하지 않습니다
type Example struct {
	Offset    int
	Input     [][]float64 // [입력 채널][타임스텝]
	Label     [][]float64 // [레이블 채널][타임스텝]
	Truncated int         // 경계에 걸려 일부만 채워진 타임스텝 수
}

// Generator는 학습 구간에서 정규화된 윈도우 예제를 만듭니다
type Generator struct {
	ds     *Dataset
	layout Layout
	policy BoundaryPolicy
	n      int // 학습 구간 길이
}

// NewGenerator는 새로운 예제 생성기를 생성합니다
func NewGenerator(ds *Dataset, layout Layout, policy BoundaryPolicy) (*Generator, error) {
	if ds == nil {
		return nil, &indicator.ValidationError{Field: "dataset", Err: fmt.Errorf("데이터셋이 없습니다")}
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &Generator{ds: ds, layout: layout, policy: policy, n: ds.TrainLen()}, nil
}

// Layout은 생성기의 레이아웃을 반환합니다
func (g *Generator) Layout() Layout { return g.layout }

// OffsetCount는 유효한 시작 오프셋 수입니다
// BoundaryPartial은 trainLen - L - 1개, BoundaryStrict는 모든 타임스텝이 [0, n-1) 안에서
// 채워지는 오프셋만 포함합니다. 마지막 타임스텝 t = offset + History + L - 1의 룩백 t-1이
// n-2 이하여야 하므로 최대 n - History - L + 1개입니다
func (g *Generator) OffsetCount() int {
	count := g.n - g.layout.Window()
	if g.policy == BoundaryStrict {
		count = min(count, g.n-g.layout.History()-g.layout.Length+1)
	}
	return max(0, count)
}

// Example은 offset에서 시작하는 예제를 만듭니다
func (g *Generator) Example(offset int) (Example, error) {
	if offset < 0 || offset >= g.OffsetCount() {
		return Example{}, &WindowError{
			Offset: offset, Step: -1, Index: offset,
			Err: fmt.Errorf("유효한 오프셋은 [0, %d) 입니다: %w", g.OffsetCount(), ErrOutOfRange),
		}
	}

	l := g.layout
	ex := Example{
		Offset: offset,
		Input:  newMatrix(l.InputColumns(), l.Length),
		Label:  newMatrix(l.OutputColumns(), l.Length),
	}

	for step := 0; step < l.Length; step++ {
		t := l.StepIndex(offset, step)

		truncated, badIdx := g.fillInputs(func(col int, v float64) { ex.Input[col][step] = v }, t, g.n-1)
		if truncated {
			if g.policy == BoundaryStrict {
				return Example{}, &WindowError{Offset: offset, Step: step, Index: badIdx, Err: ErrOutOfRange}
			}
			ex.Truncated++
		}

		g.fillLabel(func(row int, v float64) { ex.Label[row][step] = v }, l.PredictIndex(t, g.n))
	}

	return ex, nil
}

// fillInputs는 타임스텝 t의 입력 채널을 채웁니다. 룩백 인덱스는 [0, bound) 안에 있어야 합니다
// 경계를 벗어나면 해당 채널을 멈추고 (true, 벗어난 인덱스)를 반환합니다
func (g *Generator) fillInputs(put func(col int, v float64), t, bound int) (bool, int) {
	l := g.layout
	reg := g.ds.registry
	valid := func(idx int) bool { return idx >= 0 && idx < bound }
	truncated, badIdx := false, -1
	mark := func(idx int) {
		if !truncated {
			truncated, badIdx = true, idx
		}
	}

	for k := 0; k < l.RecentIndicators; k++ {
		idx := l.IndicatorIndex(t, k)
		if !valid(idx) {
			mark(idx)
			break
		}
		for _, kind := range indicator.Kinds {
			put(l.IndicatorColumn(k, kind), reg.Indicator(kind).Normalize(g.ds.Value(kind, idx)))
		}
	}

	for p := 0; p < l.RecentCloses; p++ {
		idx := l.CloseIndex(t, p)
		if !valid(idx) {
			mark(idx)
			break
		}
		put(l.CloseColumn(p), reg.Close.Normalize(g.ds.Close(idx)))
	}

	if idx := t - 1; valid(idx) {
		put(l.AnchorColumn(), reg.Close.Normalize(g.ds.Close(idx)))
	} else {
		mark(idx)
	}

	return truncated, badIdx
}

// fillLabel은 예측 인덱스 pi의 지표값 6개와 종가를 채웁니다
func (g *Generator) fillLabel(put func(row int, v float64), pi int) {
	reg := g.ds.registry
	for _, kind := range indicator.Kinds {
		put(int(kind), reg.Indicator(kind).Normalize(g.ds.Value(kind, pi)))
	}
	put(indicator.KindCount, reg.Close.Normalize(g.ds.Close(pi)))
}

func newMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}
