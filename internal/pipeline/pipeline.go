package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/assist-by/predictor/internal/dataset"
	"github.com/assist-by/predictor/internal/domain"
	"github.com/assist-by/predictor/internal/exchange"
	"github.com/assist-by/predictor/internal/metrics"
	"github.com/assist-by/predictor/internal/notification"
	"github.com/assist-by/predictor/internal/store/redis"
)

// RegistryStore는 정규화 구간 스냅샷 저장소입니다
type RegistryStore interface {
	Load(ctx context.Context, symbol string, interval domain.TimeInterval) (*redis.Snapshot, error)
	Save(ctx context.Context, snap redis.Snapshot) error
}

// Options는 한 번의 데이터셋 구성 설정입니다
type Options struct {
	Symbol     string
	Interval   domain.TimeInterval
	Limit      int
	SourceName string

	Dataset   dataset.Options
	Layout    dataset.Layout
	BatchSize int // 0이면 dataset.DefaultBatchSize
	Boundary  dataset.BoundaryPolicy
}

// Build는 구성된 데이터셋과 학습 배치 Iterator입니다
type Build struct {
	ID         string
	Symbol     string
	Interval   domain.TimeInterval
	SourceName string
	RawCandles int
	Dataset    *dataset.Dataset
	Iterator   *dataset.Iterator
	Elapsed    time.Duration

	Inference []dataset.InferenceExample // 테스트 구간 추론 입력
	Baseline  *dataset.Evaluation        // LastValueModel의 테스트 구간 종가 오차
	Previous  *redis.Snapshot            // 같은 심볼/간격의 직전 빌드, 없으면 nil
}

// EpochStats는 에폭 실행 결과입니다
type EpochStats struct {
	Epochs    int
	Batches   int
	Examples  int
	Truncated int
}

// Pipeline은 캔들 소스에서 학습 배치까지의 흐름을 조립합니다
type Pipeline struct {
	source   exchange.CandleSource
	metrics  *metrics.Metrics
	registry RegistryStore
	notifier notification.Notifier
	newID    func() string
	now      func() time.Time
}

// Option은 Pipeline의 옵션을 정의합니다
type Option func(*Pipeline)

// WithMetrics는 Prometheus 지표를 연결합니다
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithRegistry는 정규화 구간 저장소를 연결합니다
func WithRegistry(r RegistryStore) Option {
	return func(p *Pipeline) {
		p.registry = r
	}
}

// WithNotifier는 알림 전송기를 연결합니다
func WithNotifier(n notification.Notifier) Option {
	return func(p *Pipeline) {
		p.notifier = n
	}
}

// New는 새 Pipeline을 생성합니다
func New(source exchange.CandleSource, opts ...Option) *Pipeline {
	p := &Pipeline{
		source: source,
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Build는 캔들을 불러와 데이터셋, Iterator, 테스트 구간 추론 입력을 구성합니다
// 성공하면 직전 정규화 구간과 비교한 뒤 새 구간을 저장소에 기록합니다
// 저장소 실패는 구성을 실패시키지 않습니다
func (p *Pipeline) Build(ctx context.Context, opts Options) (*Build, error) {
	start := p.now()
	id := p.newID()

	candles, err := p.source.GetKlines(ctx, opts.Symbol, opts.Interval, opts.Limit)
	if err != nil {
		return nil, p.fail(start, 0, fmt.Errorf("캔들 조회 실패 (%s %s): %w", opts.Symbol, opts.Interval, err))
	}
	log.Printf("[%s] %s %s 캔들 %d개 로드 (소스: %s)", short(id), opts.Symbol, opts.Interval, len(candles), opts.SourceName)

	ds, err := dataset.Prepare(candles, opts.Dataset)
	if err != nil {
		return nil, p.fail(start, len(candles), fmt.Errorf("데이터셋 구성 실패: %w", err))
	}

	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = dataset.DefaultBatchSize
	}
	it, err := dataset.NewIterator(ds, opts.Layout,
		dataset.WithBatchSize(batchSize),
		dataset.WithBoundaryPolicy(opts.Boundary),
	)
	if err != nil {
		return nil, p.fail(start, len(candles), fmt.Errorf("Iterator 생성 실패: %w", err))
	}

	inference, err := ds.InferenceExamples(opts.Layout)
	if err != nil {
		return nil, p.fail(start, len(candles), fmt.Errorf("추론 입력 구성 실패: %w", err))
	}
	baseline, err := dataset.Evaluate(dataset.LastValueModel{Layout: opts.Layout}, inference, ds.Registry())
	if err != nil {
		return nil, p.fail(start, len(candles), fmt.Errorf("기준 모델 평가 실패: %w", err))
	}

	b := &Build{
		ID:         id,
		Symbol:     opts.Symbol,
		Interval:   opts.Interval,
		SourceName: opts.SourceName,
		RawCandles: len(candles),
		Dataset:    ds,
		Iterator:   it,
		Elapsed:    p.now().Sub(start),
		Inference:  inference,
		Baseline:   baseline,
	}
	if p.metrics != nil {
		p.metrics.ObserveBuild(ds, len(candles), b.Elapsed)
	}

	log.Printf("[%s] 데이터셋 구성 완료: cutoff=%d, 학습=%d, 테스트=%d, 예제=%d, 입력=%dx%d, 레이블=%dx%d",
		short(id), ds.CutoffIndex(), ds.TrainLen(), ds.TestLen(), it.TotalExamples(),
		it.InputColumns(), opts.Layout.Length, it.OutputColumns(), opts.Layout.Length)
	log.Printf("[%s] 추론 입력 %d개, 기준 모델 종가 MAE=%.4f", short(id), len(inference), baseline.CloseMAE)

	if degenerate := ds.Registry().DegenerateSeries(); len(degenerate) > 0 {
		log.Printf("[%s] 경고: 최소값과 최대값이 같은 시리즈 %v", short(id), degenerate)
	}

	if p.registry != nil {
		prev, err := p.registry.Load(ctx, opts.Symbol, opts.Interval)
		switch {
		case err == nil:
			b.Previous = prev
			log.Printf("[%s] 직전 빌드 %s 대비 종가 구간 변화 %.2f%%", short(id), short(prev.BuildID), closeRangeChange(prev, ds))
		case !errors.Is(err, redis.ErrNotFound):
			log.Printf("[%s] 직전 정규화 구간 조회 실패: %v", short(id), err)
		}

		snap := redis.Snapshot{
			BuildID:   id,
			Symbol:    opts.Symbol,
			Interval:  string(opts.Interval),
			Cutoff:    ds.CutoffIndex(),
			TrainLen:  ds.TrainLen(),
			Registry:  ds.Registry(),
			CreatedAt: p.now().UTC(),
		}
		if err := p.registry.Save(ctx, snap); err != nil {
			log.Printf("[%s] 정규화 구간 저장 실패: %v", short(id), err)
		}
	}

	return b, nil
}

// closeRangeChange는 직전 빌드 대비 종가 구간 폭의 변화율(%)입니다
func closeRangeChange(prev *redis.Snapshot, ds *dataset.Dataset) float64 {
	before := prev.Registry.Close
	after := ds.Registry().Close
	if before.Degenerate() || after.Empty() {
		return 0
	}
	width := before.Max - before.Min
	return ((after.Max - after.Min) - width) / width * 100
}

// fail은 실패한 구성을 기록하고 알린 뒤 err를 그대로 반환합니다
func (p *Pipeline) fail(start time.Time, raw int, err error) error {
	if p.metrics != nil {
		p.metrics.ObserveBuild(nil, raw, p.now().Sub(start))
	}
	p.notifyError(err)
	return err
}

func (p *Pipeline) notifyError(err error) {
	if p.notifier == nil {
		return
	}
	if nerr := p.notifier.SendError(err); nerr != nil {
		log.Printf("에러 알림 전송 실패: %v", nerr)
	}
}

// RunEpochs는 Iterator를 epochs번 끝까지 순회합니다
// 각 에폭은 Reset으로 시작하며 consume이 nil이 아니면 배치마다 호출됩니다
func (p *Pipeline) RunEpochs(ctx context.Context, b *Build, epochs int, consume func(*dataset.Batch) error) (EpochStats, error) {
	var stats EpochStats
	it := b.Iterator

	for e := 0; e < epochs; e++ {
		it.Reset()
		for it.HasMore() {
			if err := ctx.Err(); err != nil {
				return stats, err
			}

			batch, err := it.Next()
			if err != nil {
				return stats, fmt.Errorf("에폭 %d 배치 실패: %w", e+1, err)
			}
			if p.metrics != nil {
				p.metrics.ObserveBatch(batch)
			}
			if consume != nil {
				if err := consume(batch); err != nil {
					return stats, fmt.Errorf("에폭 %d 배치 처리 실패: %w", e+1, err)
				}
			}

			stats.Batches++
			stats.Examples += batch.Size()
			stats.Truncated += batch.Truncated
		}

		stats.Epochs++
		if p.metrics != nil {
			p.metrics.EpochsTotal.Inc()
		}
		log.Printf("[%s] 에폭 %d/%d 완료 (누적 배치 %d)", short(b.ID), e+1, epochs, stats.Batches)
	}

	return stats, nil
}

// Report는 구성 결과와 에폭 결과로 알림 보고서를 만듭니다
// 예제, 배치, 부분 채움 수는 에폭당 값입니다
func Report(b *Build, stats EpochStats) notification.DatasetReport {
	ds := b.Dataset
	it := b.Iterator

	examples := it.TotalExamples()
	batches := 0
	if examples > 0 {
		batches = (examples + it.BatchSize() - 1) / it.BatchSize()
	}
	truncated := 0
	if stats.Epochs > 0 {
		truncated = stats.Truncated / stats.Epochs
	}

	report := notification.DatasetReport{
		BuildID:           b.ID,
		Symbol:            b.Symbol,
		Interval:          string(b.Interval),
		Source:            b.SourceName,
		Candles:           b.RawCandles,
		Cutoff:            ds.CutoffIndex(),
		TrainLen:          ds.TrainLen(),
		TestLen:           ds.TestLen(),
		Examples:          examples,
		Batches:           batches,
		Epochs:            stats.Epochs,
		Truncated:         truncated,
		IndicatorFailures: ds.Stats().TotalFailures(),
		DegenerateSeries:  ds.Registry().DegenerateSeries(),
		InferenceExamples: len(b.Inference),
		Duration:          b.Elapsed,
	}
	if b.Baseline != nil {
		report.BaselineCloseMAE = b.Baseline.CloseMAE
	}
	if b.Previous != nil {
		report.PreviousBuildID = b.Previous.BuildID
		report.CloseRangeChange = closeRangeChange(b.Previous, ds)
	}
	return report
}

// Run은 구성, 에폭 실행, 보고서 전송을 한 번 수행합니다
func (p *Pipeline) Run(ctx context.Context, opts Options, epochs int) (*Build, EpochStats, error) {
	b, err := p.Build(ctx, opts)
	if err != nil {
		return nil, EpochStats{}, err
	}

	stats, err := p.RunEpochs(ctx, b, epochs, nil)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.notifyError(err)
		}
		return b, stats, err
	}

	if p.notifier != nil {
		if err := p.notifier.SendDatasetReport(Report(b, stats)); err != nil {
			log.Printf("데이터셋 보고서 전송 실패: %v", err)
		}
	}

	return b, stats, nil
}

// Task는 주기적으로 데이터셋을 다시 구성하는 scheduler.Task입니다
type Task struct {
	Pipeline *Pipeline
	Options  Options
	Epochs   int
}

// Execute는 scheduler.Task를 구현합니다
func (t *Task) Execute(ctx context.Context) error {
	_, _, err := t.Pipeline.Run(ctx, t.Options, t.Epochs)
	return err
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
