package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/assist-by/predictor/internal/dataset"
	"github.com/assist-by/predictor/internal/domain"
)

type Config struct {
	// 데이터셋 설정
	Dataset struct {
		SplitRatio       float64 `envconfig:"DATASET_SPLIT_RATIO" default:"0.9"`
		ExampleLength    int     `envconfig:"DATASET_EXAMPLE_LENGTH" default:"22"`
		RecentIndicators int     `envconfig:"DATASET_RECENT_INDICATORS" default:"5"`
		RecentCloses     int     `envconfig:"DATASET_RECENT_CLOSES" default:"5"`
		Horizon          int     `envconfig:"DATASET_HORIZON" default:"3"`
		BatchSize        int     `envconfig:"DATASET_BATCH_SIZE" default:"32"`
		ChunkShift       int     `envconfig:"DATASET_CHUNK_SHIFT" default:"91"`
		Boundary         string  `envconfig:"DATASET_BOUNDARY" default:"partial"`
		Degenerate       string  `envconfig:"DATASET_DEGENERATE" default:"clamp"`
		Epochs           int     `envconfig:"DATASET_EPOCHS" default:"1"`
	}

	// 캔들 소스 설정
	Source struct {
		Kind     string `envconfig:"SOURCE" default:"sqlite"`
		Symbol   string `envconfig:"SYMBOL" default:"BTCUSDT"`
		Interval string `envconfig:"INTERVAL" default:"1h"`
		Limit    int    `envconfig:"CANDLE_LIMIT" default:"1000"`
		CSVPath  string `envconfig:"CSV_PATH" default:"data/candles.csv"`
	}

	// SQLite 설정
	SQLite struct {
		Path string `envconfig:"SQLITE_PATH" default:"data/candles.db"`
	}

	// Redis 설정 (주소가 비어있으면 정규화 구간을 저장하지 않음)
	Redis struct {
		Addr     string        `envconfig:"REDIS_ADDR"`
		Password string        `envconfig:"REDIS_PASSWORD"`
		DB       int           `envconfig:"REDIS_DB" default:"0"`
		Prefix   string        `envconfig:"REDIS_PREFIX" default:"predictor:"`
		TTL      time.Duration `envconfig:"REDIS_TTL" default:"0"`
	}

	// 메트릭 설정
	Metrics struct {
		Addr string `envconfig:"METRICS_ADDR" default:":9090"`
	}

	// 바이낸스 API 설정 (공개 캔들 조회만 사용)
	Binance struct {
		BaseURL string        `envconfig:"BINANCE_BASE_URL" default:"https://fapi.binance.com"`
		Timeout time.Duration `envconfig:"BINANCE_TIMEOUT" default:"10s"`
	}

	// 디스코드 웹훅 설정 (비어있으면 알림 생략)
	Discord struct {
		InfoWebhook  string `envconfig:"DISCORD_INFO_WEBHOOK"`
		ErrorWebhook string `envconfig:"DISCORD_ERROR_WEBHOOK"`
	}
}

// Layout은 설정값으로 예제 레이아웃을 만듭니다
func (c *Config) Layout() dataset.Layout {
	return dataset.Layout{
		Length:           c.Dataset.ExampleLength,
		RecentIndicators: c.Dataset.RecentIndicators,
		RecentCloses:     c.Dataset.RecentCloses,
		Horizon:          c.Dataset.Horizon,
	}
}

// ValidateConfig는 설정이 유효한지 확인합니다.
func ValidateConfig(cfg *Config) error {
	if cfg.Dataset.SplitRatio < 0 || cfg.Dataset.SplitRatio > 1 {
		return fmt.Errorf("DATASET_SPLIT_RATIO는 0 이상 1 이하이어야 합니다")
	}

	if err := cfg.Layout().Validate(); err != nil {
		return fmt.Errorf("예제 레이아웃 오류: %w", err)
	}

	if cfg.Dataset.BatchSize < 1 {
		return fmt.Errorf("DATASET_BATCH_SIZE는 1 이상이어야 합니다")
	}

	if cfg.Dataset.ChunkShift < 0 {
		return fmt.Errorf("DATASET_CHUNK_SHIFT는 0 이상이어야 합니다")
	}

	if cfg.Dataset.Epochs < 0 {
		return fmt.Errorf("DATASET_EPOCHS는 0 이상이어야 합니다")
	}

	if _, err := dataset.ParseBoundaryPolicy(cfg.Dataset.Boundary); err != nil {
		return err
	}

	if _, err := dataset.ParseDegeneratePolicy(cfg.Dataset.Degenerate); err != nil {
		return err
	}

	switch cfg.Source.Kind {
	case "csv", "sqlite", "binance":
	default:
		return fmt.Errorf("알 수 없는 SOURCE: %q (csv, sqlite, binance)", cfg.Source.Kind)
	}

	if domain.TimeInterval(cfg.Source.Interval).Duration() == 0 {
		return fmt.Errorf("지원하지 않는 INTERVAL: %q", cfg.Source.Interval)
	}

	if cfg.Source.Limit < 1 {
		return fmt.Errorf("CANDLE_LIMIT은 1 이상이어야 합니다")
	}

	return nil
}

// LoadConfig는 환경변수에서 설정을 로드합니다.
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (없으면 환경변수만 사용)
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf(".env 파일 로드 실패: %w", err)
		}
		log.Printf(".env 파일이 없어 환경변수만 사용합니다")
	}

	var cfg Config
	// 환경변수를 구조체로 파싱
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("환경변수 처리 실패: %w", err)
	}

	// 설정값 검증
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("설정값 검증 실패: %w", err)
	}

	return &cfg, nil
}
