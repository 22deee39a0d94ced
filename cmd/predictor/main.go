package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	osSignal "os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/assist-by/predictor/internal/config"
	"github.com/assist-by/predictor/internal/dataset"
	"github.com/assist-by/predictor/internal/domain"
	"github.com/assist-by/predictor/internal/exchange"
	"github.com/assist-by/predictor/internal/exchange/binance"
	"github.com/assist-by/predictor/internal/indicator"
	"github.com/assist-by/predictor/internal/metrics"
	"github.com/assist-by/predictor/internal/notification/discord"
	"github.com/assist-by/predictor/internal/pipeline"
	"github.com/assist-by/predictor/internal/scheduler"
	"github.com/assist-by/predictor/internal/store/csvfile"
	"github.com/assist-by/predictor/internal/store/redis"
	"github.com/assist-by/predictor/internal/store/sqlite"
)

func main() {
	// 명령줄 플래그 정의
	sourceFlag := flag.String("source", "", "캔들 소스 (csv, sqlite, binance), 비어있으면 SOURCE 설정 사용")
	epochsFlag := flag.Int("epochs", -1, "실행할 에폭 수, 음수면 DATASET_EPOCHS 설정 사용")
	importFlag := flag.String("import", "", "CSV 파일을 SQLite 저장소로 가져온 뒤 종료")
	exportFlag := flag.String("export", "", "설정된 소스의 캔들을 CSV 파일로 내보낸 뒤 종료")
	metricsFlag := flag.Bool("serve-metrics", false, "/metrics 엔드포인트 제공")
	watchFlag := flag.Bool("watch", false, "캔들 간격마다 데이터셋을 다시 구성")

	// 플래그 파싱
	flag.Parse()

	// 컨텍스트 생성
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 로그 설정
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("데이터셋 파이프라인 시작...")

	// 설정 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("설정 로드 실패: %v", err)
	}
	if *sourceFlag != "" {
		cfg.Source.Kind = *sourceFlag
	}
	if *epochsFlag >= 0 {
		cfg.Dataset.Epochs = *epochsFlag
	}
	if err := config.ValidateConfig(cfg); err != nil {
		log.Fatalf("설정값 검증 실패: %v", err)
	}

	interval := domain.TimeInterval(cfg.Source.Interval)

	// CSV 가져오기 모드
	if *importFlag != "" {
		if err := importCSV(ctx, cfg, *importFlag, interval); err != nil {
			log.Fatalf("CSV 가져오기 실패: %v", err)
		}
		return
	}

	// CSV 내보내기 모드
	if *exportFlag != "" {
		source, closeSource, err := openSource(cfg)
		if err != nil {
			log.Fatalf("캔들 소스 생성 실패: %v", err)
		}
		err = exportCSV(ctx, source, cfg, *exportFlag, interval)
		closeSource()
		if err != nil {
			log.Fatalf("CSV 내보내기 실패: %v", err)
		}
		return
	}

	// Discord 클라이언트 생성
	discordClient := discord.NewClient(
		cfg.Discord.InfoWebhook,
		cfg.Discord.ErrorWebhook,
		discord.WithTimeout(10*time.Second),
	)

	// 메트릭 생성
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	var metricsServer *metrics.Server
	if *metricsFlag {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, registry)
		metricsServer.Start()
	}

	// 캔들 소스 생성
	source, closeSource, err := openSource(cfg)
	if err != nil {
		log.Fatalf("캔들 소스 생성 실패: %v", err)
	}
	defer closeSource()

	opts := []pipeline.Option{
		pipeline.WithMetrics(m),
		pipeline.WithNotifier(discordClient),
	}

	// Redis 정규화 구간 저장소 (주소가 있을 때만)
	if cfg.Redis.Addr != "" {
		store, err := redis.New(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			log.Printf("Redis 연결 실패, 정규화 구간을 저장하지 않습니다: %v", err)
		} else {
			defer store.Close()
			opts = append(opts, pipeline.WithRegistry(store))
		}
	}

	p := pipeline.New(source, opts...)
	buildOpts, err := pipelineOptions(cfg)
	if err != nil {
		log.Fatalf("파이프라인 설정 실패: %v", err)
	}

	// 시그널 처리
	sigChan := make(chan os.Signal, 1)
	osSignal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if *watchFlag {
		task := &pipeline.Task{Pipeline: p, Options: buildOpts, Epochs: cfg.Dataset.Epochs}
		sched := scheduler.NewScheduler(interval.Duration(), task,
			scheduler.WithRunOnStart(),
			scheduler.WithDelay(5*time.Second),
		)

		if err := discordClient.SendInfo(fmt.Sprintf("🚀 %s %s 데이터셋 주기 구성을 시작합니다.", cfg.Source.Symbol, interval)); err != nil {
			log.Printf("시작 알림 전송 실패: %v", err)
		}

		done := make(chan error, 1)
		go func() { done <- sched.Start(ctx) }()

		sig := <-sigChan
		log.Printf("시스템 종료 신호 수신: %v", sig)
		sched.Stop()
		cancel()

		// 진행 중인 구성이 끝나야 소스를 닫을 수 있음
		if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("스케줄러 실행 중 에러 발생: %v", err)
		}
	} else {
		go func() {
			select {
			case sig := <-sigChan:
				log.Printf("시스템 종료 신호 수신: %v", sig)
				cancel()
			case <-ctx.Done():
			}
		}()

		b, stats, err := p.Run(ctx, buildOpts, cfg.Dataset.Epochs)
		if err != nil {
			log.Printf("데이터셋 파이프라인 실패: %v", err)
			shutdownMetrics(metricsServer)
			closeSource()
			os.Exit(1)
		}
		log.Printf("완료: 빌드 %s, 에폭 %d, 배치 %d, 예제 %d", b.ID, stats.Epochs, stats.Batches, stats.Examples)

		// 메트릭 서버는 종료 신호까지 유지
		if metricsServer != nil {
			log.Printf("메트릭 제공 중, 종료하려면 Ctrl+C")
			<-ctx.Done()
		}
	}

	shutdownMetrics(metricsServer)
	log.Println("프로그램을 종료합니다.")
}

// openSource는 설정된 종류의 캔들 소스와 정리 함수를 반환합니다
func openSource(cfg *config.Config) (exchange.CandleSource, func(), error) {
	switch cfg.Source.Kind {
	case "csv":
		return csvfile.NewSource(cfg.Source.CSVPath), func() {}, nil

	case "sqlite":
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Printf("SQLite 종료 실패: %v", err)
			}
		}, nil

	case "binance":
		client := binance.NewClient(
			binance.WithBaseURL(cfg.Binance.BaseURL),
			binance.WithTimeout(cfg.Binance.Timeout),
		)
		return exchange.WithRetry(client, exchange.DefaultRetryConfig()), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("알 수 없는 소스: %q", cfg.Source.Kind)
	}
}

// pipelineOptions는 설정값으로 구성 옵션을 만듭니다
func pipelineOptions(cfg *config.Config) (pipeline.Options, error) {
	boundary, err := dataset.ParseBoundaryPolicy(cfg.Dataset.Boundary)
	if err != nil {
		return pipeline.Options{}, err
	}
	degenerate, err := dataset.ParseDegeneratePolicy(cfg.Dataset.Degenerate)
	if err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		Symbol:     cfg.Source.Symbol,
		Interval:   domain.TimeInterval(cfg.Source.Interval),
		Limit:      cfg.Source.Limit,
		SourceName: cfg.Source.Kind,
		Dataset: dataset.Options{
			SplitRatio: cfg.Dataset.SplitRatio,
			Specs:      indicator.DefaultSpecs(cfg.Dataset.ChunkShift),
			Library:    indicator.NewTALib(),
			Degenerate: degenerate,
		},
		Layout:    cfg.Layout(),
		BatchSize: cfg.Dataset.BatchSize,
		Boundary:  boundary,
	}, nil
}

// importCSV는 CSV 캔들을 SQLite 저장소에 저장합니다
func importCSV(ctx context.Context, cfg *config.Config, path string, interval domain.TimeInterval) error {
	candles, err := csvfile.ReadFile(path, cfg.Source.Symbol, interval)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.SQLite.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	saved, err := store.SaveCandles(ctx, candles)
	if err != nil {
		return err
	}
	total, err := store.Count(ctx, cfg.Source.Symbol, interval)
	if err != nil {
		return err
	}

	log.Printf("%s: %s %s 캔들 %d개 저장 (총 %d개)", path, cfg.Source.Symbol, interval, saved, total)
	return nil
}

// exportCSV는 소스의 캔들을 CSV 파일로 저장합니다
func exportCSV(ctx context.Context, source exchange.CandleSource, cfg *config.Config, path string, interval domain.TimeInterval) error {
	candles, err := source.GetKlines(ctx, cfg.Source.Symbol, interval, cfg.Source.Limit)
	if err != nil {
		return err
	}
	if err := csvfile.WriteFile(path, candles); err != nil {
		return err
	}

	log.Printf("%s: %s %s 캔들 %d개 내보냄 (소스: %s)", path, cfg.Source.Symbol, interval, len(candles), cfg.Source.Kind)
	return nil
}

func shutdownMetrics(s *metrics.Server) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		log.Printf("메트릭 서버 종료 실패: %v", err)
	}
}
