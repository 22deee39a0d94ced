package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/assist-by/predictor/internal/dataset"
	"github.com/assist-by/predictor/internal/domain"
)

// ErrNotFound는 저장된 정규화 구간이 없을 때 반환됩니다
var ErrNotFound = errors.New("저장된 정규화 구간 없음")

// Config는 Redis 연결 설정입니다
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration // 0이면 만료 없음
}

// Snapshot은 추론 시 재사용할 데이터셋 메타데이터입니다
type Snapshot struct {
	BuildID   string           `json:"build_id"`
	Symbol    string           `json:"symbol"`
	Interval  string           `json:"interval"`
	Cutoff    int              `json:"cutoff"`
	TrainLen  int              `json:"train_len"`
	Registry  dataset.Registry `json:"registry"`
	CreatedAt time.Time        `json:"created_at"`
}

// kv는 RegistryStore가 사용하는 Redis 명령 집합입니다
type kv interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
}

// RegistryStore는 심볼/간격별 정규화 구간을 Redis에 JSON으로 저장합니다
type RegistryStore struct {
	client kv
	prefix string
	ttl    time.Duration
}

// New는 Redis에 연결하고 ping으로 확인한 뒤 RegistryStore를 생성합니다
func New(ctx context.Context, cfg Config) (*RegistryStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping 실패: %w", err)
	}

	log.Printf("[redis] 연결됨: %s", cfg.Addr)
	return newRegistryStore(client, cfg.Prefix, cfg.TTL), nil
}

func newRegistryStore(client kv, prefix string, ttl time.Duration) *RegistryStore {
	return &RegistryStore{client: client, prefix: prefix, ttl: ttl}
}

// Key는 심볼/간격의 저장 키입니다
func (s *RegistryStore) Key(symbol string, interval domain.TimeInterval) string {
	return fmt.Sprintf("%sregistry:%s:%s", s.prefix, symbol, interval)
}

// Save는 스냅샷을 저장합니다
func (s *RegistryStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("스냅샷 마샬링 실패: %w", err)
	}

	key := s.Key(snap.Symbol, domain.TimeInterval(snap.Interval))
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("정규화 구간 저장 실패 (%s): %w", key, err)
	}
	return nil
}

// Load는 저장된 스냅샷을 읽습니다. 없으면 ErrNotFound를 반환합니다
func (s *RegistryStore) Load(ctx context.Context, symbol string, interval domain.TimeInterval) (*Snapshot, error) {
	key := s.Key(symbol, interval)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("정규화 구간 조회 실패 (%s): %w", key, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("스냅샷 파싱 실패 (%s): %w", key, err)
	}
	return &snap, nil
}

// Close는 연결을 닫습니다
func (s *RegistryStore) Close() error {
	if c, ok := s.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
