package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/assist-by/predictor/internal/dataset"
	"github.com/assist-by/predictor/internal/indicator"
)

// Metrics는 데이터셋 구성과 배치 제공에 대한 Prometheus 지표입니다
type Metrics struct {
	BuildDuration     prometheus.Histogram
	BuildsTotal       *prometheus.CounterVec // labels: result=ok|error
	IndicatorFailures *prometheus.CounterVec // labels: kind
	DatasetCandles    *prometheus.GaugeVec   // labels: split=raw|train|test
	CutoffIndex       prometheus.Gauge
	BatchesServed     prometheus.Counter
	ExamplesServed    prometheus.Counter
	TruncatedSteps    prometheus.Counter
	EpochsTotal       prometheus.Counter
}

// NewMetrics는 지표를 생성하고 reg에 등록합니다
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "predictor_dataset_build_seconds",
			Help:    "Time spent loading candles and preparing the dataset",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		BuildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "predictor_dataset_builds_total",
			Help: "Dataset builds by result",
		}, []string{"result"}),
		IndicatorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "predictor_indicator_failures_total",
			Help: "Indicator windows the library could not compute, by kind",
		}, []string{"kind"}),
		DatasetCandles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "predictor_dataset_candles",
			Help: "Candles in the last prepared dataset, by split",
		}, []string{"split"}),
		CutoffIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "predictor_dataset_cutoff_index",
			Help: "First aligned index of the last prepared dataset",
		}),
		BatchesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predictor_batches_served_total",
			Help: "Mini-batches served by the iterator",
		}),
		ExamplesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predictor_examples_served_total",
			Help: "Training examples served by the iterator",
		}),
		TruncatedSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predictor_truncated_steps_total",
			Help: "Example time steps partially filled at the training boundary",
		}),
		EpochsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predictor_epochs_total",
			Help: "Completed passes over the offset pool",
		}),
	}

	reg.MustRegister(
		m.BuildDuration,
		m.BuildsTotal,
		m.IndicatorFailures,
		m.DatasetCandles,
		m.CutoffIndex,
		m.BatchesServed,
		m.ExamplesServed,
		m.TruncatedSteps,
		m.EpochsTotal,
	)

	return m
}

// ObserveBuild는 데이터셋 구성 결과를 기록합니다. ds가 nil이면 실패로 기록합니다
func (m *Metrics) ObserveBuild(ds *dataset.Dataset, rawCandles int, elapsed time.Duration) {
	m.BuildDuration.Observe(elapsed.Seconds())
	if ds == nil {
		m.BuildsTotal.WithLabelValues("error").Inc()
		return
	}

	m.BuildsTotal.WithLabelValues("ok").Inc()
	m.DatasetCandles.WithLabelValues("raw").Set(float64(rawCandles))
	m.DatasetCandles.WithLabelValues("train").Set(float64(ds.TrainLen()))
	m.DatasetCandles.WithLabelValues("test").Set(float64(ds.TestLen()))
	m.CutoffIndex.Set(float64(ds.CutoffIndex()))

	stats := ds.Stats()
	for _, kind := range indicator.Kinds {
		if n := stats.Failures[kind]; n > 0 {
			m.IndicatorFailures.WithLabelValues(kind.String()).Add(float64(n))
		}
	}
}

// ObserveBatch는 제공된 배치를 기록합니다
func (m *Metrics) ObserveBatch(b *dataset.Batch) {
	m.BatchesServed.Inc()
	m.ExamplesServed.Add(float64(b.Size()))
	m.TruncatedSteps.Add(float64(b.Truncated))
}

// Server는 /metrics를 노출하는 HTTP 서버입니다
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer는 gatherer의 지표를 노출하는 서버를 생성합니다
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler는 서버의 라우터를 반환합니다
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start는 서버를 고루틴에서 시작합니다
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] %s 에서 대기 중", s.addr)
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[metrics] 서버 에러: %v", err)
		}
	}()
}

// Stop은 서버를 정상 종료합니다
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
