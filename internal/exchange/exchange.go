// internal/exchange/exchange.go
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/assist-by/predictor/internal/domain"
)

// CandleSource는 캔들 데이터를 제공하는 인터페이스입니다.
type CandleSource interface {
	// GetKlines는 가장 최근 limit개의 캔들을 시간 오름차순으로 반환합니다
	GetKlines(ctx context.Context, symbol string, interval domain.TimeInterval, limit int) (domain.CandleList, error)
}

// APIError는 거래소가 반환한 에러 응답입니다
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API 에러(HTTP %d, 코드: %d): %s", e.StatusCode, e.Code, e.Message)
}

// IsRetryableError는 재시도로 회복될 수 있는 에러인지 판단합니다
// 네트워크 에러, 429/418 요청 제한, 5xx 응답이 해당됩니다
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode == 418 || apiErr.StatusCode >= 500
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// RetryConfig는 재시도 설정을 정의합니다
type RetryConfig struct {
	MaxRetries int           // 최대 재시도 횟수
	BaseDelay  time.Duration // 기본 대기 시간
	MaxDelay   time.Duration // 최대 대기 시간
	Factor     float64       // 대기 시간 증가 계수
}

// DefaultRetryConfig는 기본 재시도 설정입니다
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Factor:     2.0,
	}
}

// RetryingSource는 재시도 가능한 에러에 지수 백오프를 적용하는 CandleSource입니다
type RetryingSource struct {
	source CandleSource
	retry  RetryConfig
}

// WithRetry는 source를 재시도 래퍼로 감쌉니다
func WithRetry(source CandleSource, retry RetryConfig) *RetryingSource {
	return &RetryingSource{source: source, retry: retry}
}

// GetKlines는 재시도를 적용해 캔들을 조회합니다
func (r *RetryingSource) GetKlines(ctx context.Context, symbol string, interval domain.TimeInterval, limit int) (domain.CandleList, error) {
	var candles domain.CandleList
	err := r.withRetry(ctx, fmt.Sprintf("%s 캔들 데이터 조회", symbol), func() error {
		var err error
		candles, err = r.source.GetKlines(ctx, symbol, interval, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return candles, nil
}

// withRetry는 재시도 로직을 구현한 래퍼 함수입니다
func (r *RetryingSource) withRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	delay := r.retry.BaseDelay

	for attempt := 0; attempt <= r.retry.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryableError(err) {
			log.Printf("%s 실패 (재시도 불필요): %v", operation, err)
			return err
		}

		if attempt == r.retry.MaxRetries {
			return fmt.Errorf("%s 실패, 최대 재시도 횟수 초과: %w", operation, lastErr)
		}

		log.Printf("%s 실패 (attempt %d/%d): %v", operation, attempt+1, r.retry.MaxRetries, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			// 대기 시간을 증가시키되, 최대 대기 시간을 넘지 않도록 함
			delay = time.Duration(float64(delay) * r.retry.Factor)
			if delay > r.retry.MaxDelay {
				delay = r.retry.MaxDelay
			}
		}
	}
	return lastErr
}
