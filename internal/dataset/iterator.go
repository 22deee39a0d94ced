package dataset

import (
	"fmt"

	"github.com/assist-by/predictor/internal/indicator"
)

// DefaultBatchSize는 기본 미니배치 크기입니다
const DefaultBatchSize = 32

// State는 Iterator의 상태입니다
type State int

const (
	Ready     State = iota // 남은 오프셋 있음
	Exhausted              // 오프셋 풀이 비었음
)

// String은 State의 문자열 표현을 반환합니다
func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Exhausted:
		return "Exhausted"
	default:
		return "Unknown"
	}
}

// Batch는 미니배치 텐서입니다
type Batch struct {
	Input     [][][]float64 // (배치, 입력 채널, 타임스텝)
	Label     [][][]float64 // (배치, 레이블 채널, 타임스텝)
	Offsets   []int
	Truncated int // 배치 내 부분 채움 타임스텝 수
}

// Size는 배치 내 예제 수입니다
func (b *Batch) Size() int {
	return len(b.Offsets)
}

// Iterator는 오프셋 풀을 소유하고 미니배치를 순차 제공합니다
// 동시 호출은 지원하지 않습니다
type Iterator struct {
	gen       *Generator
	batchSize int
	policy    BoundaryPolicy
	pool      []int
}

// IteratorOption은 Iterator의 옵션을 정의합니다
type IteratorOption func(*Iterator)

// WithBatchSize는 기본 배치 크기를 지정합니다
func WithBatchSize(n int) IteratorOption {
	return func(it *Iterator) {
		it.batchSize = n
	}
}

// WithBoundaryPolicy는 경계 정책을 지정합니다
func WithBoundaryPolicy(p BoundaryPolicy) IteratorOption {
	return func(it *Iterator) {
		it.policy = p
	}
}

// NewIterator는 학습 구간에 대한 새 Iterator를 생성합니다
func NewIterator(ds *Dataset, layout Layout, opts ...IteratorOption) (*Iterator, error) {
	it := &Iterator{
		batchSize: DefaultBatchSize,
		policy:    BoundaryPartial,
	}
	for _, opt := range opts {
		opt(it)
	}
	if it.batchSize < 1 {
		return nil, &indicator.ValidationError{Field: "batchSize", Err: fmt.Errorf("배치 크기는 1 이상이어야 합니다: %d", it.batchSize)}
	}

	gen, err := NewGenerator(ds, layout, it.policy)
	if err != nil {
		return nil, err
	}
	it.gen = gen
	it.Reset()

	return it, nil
}

// Reset은 오프셋 풀을 0부터 순서대로 다시 만듭니다
func (it *Iterator) Reset() {
	count := it.gen.OffsetCount()
	it.pool = make([]int, count)
	for i := range it.pool {
		it.pool[i] = i
	}
}

// State는 현재 상태를 반환합니다
func (it *Iterator) State() State {
	if len(it.pool) == 0 {
		return Exhausted
	}
	return Ready
}

// HasMore는 남은 오프셋이 있는지 여부입니다
func (it *Iterator) HasMore() bool {
	return it.State() == Ready
}

// Remaining은 남은 오프셋 수입니다
func (it *Iterator) Remaining() int {
	return len(it.pool)
}

// Next는 기본 배치 크기로 NextBatch를 호출합니다
func (it *Iterator) Next() (*Batch, error) {
	return it.NextBatch(it.batchSize)
}

// NextBatch는 최대 n개의 예제로 구성된 배치를 반환합니다
// 오프셋은 삽입 순서대로 정확히 한 번씩 소비됩니다. 예제 생성이 실패하면 풀은 변하지 않습니다
func (it *Iterator) NextBatch(n int) (*Batch, error) {
	if n < 1 {
		return nil, &indicator.ValidationError{Field: "n", Err: fmt.Errorf("배치 크기는 1 이상이어야 합니다: %d", n)}
	}
	if len(it.pool) == 0 {
		return nil, ErrExhausted
	}

	size := min(n, len(it.pool))
	batch := &Batch{
		Input:   make([][][]float64, 0, size),
		Label:   make([][][]float64, 0, size),
		Offsets: make([]int, 0, size),
	}
	for _, offset := range it.pool[:size] {
		ex, err := it.gen.Example(offset)
		if err != nil {
			return nil, fmt.Errorf("예제 생성 실패: %w", err)
		}
		batch.Input = append(batch.Input, ex.Input)
		batch.Label = append(batch.Label, ex.Label)
		batch.Offsets = append(batch.Offsets, ex.Offset)
		batch.Truncated += ex.Truncated
	}
	it.pool = it.pool[size:]

	return batch, nil
}

// TotalExamples는 에폭당 예제 수입니다 (경계 정책에 따라 다름, Generator.OffsetCount 참고)
func (it *Iterator) TotalExamples() int {
	return it.gen.OffsetCount()
}

// Cursor는 이번 에폭에서 이미 제공한 예제 수입니다
func (it *Iterator) Cursor() int {
	return it.TotalExamples() - len(it.pool)
}

// BatchSize는 기본 배치 크기입니다
func (it *Iterator) BatchSize() int {
	return it.batchSize
}

// InputColumns는 입력 채널 수입니다
func (it *Iterator) InputColumns() int {
	return it.gen.layout.InputColumns()
}

// OutputColumns는 레이블 채널 수입니다
func (it *Iterator) OutputColumns() int {
	return it.gen.layout.OutputColumns()
}
