// internal/exchange/binance/client.go
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/assist-by/predictor/internal/domain"
	"github.com/assist-by/predictor/internal/exchange"
)

// MaxKlineLimit은 한 번의 요청으로 받을 수 있는 최대 캔들 수입니다
const MaxKlineLimit = 1500

// Client는 바이낸스 선물 공개 API 클라이언트를 구현합니다
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption은 클라이언트 생성 옵션을 정의합니다
type ClientOption func(*Client)

// WithTimeout은 HTTP 클라이언트의 타임아웃을 설정합니다
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithBaseURL은 기본 URL을 설정합니다
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// NewClient는 새로운 바이낸스 API 클라이언트를 생성합니다
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    "https://fapi.binance.com", // 기본값은 선물 거래소
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	// 옵션 적용
	for _, opt := range opts {
		opt(c)
	}

	return c
}

var _ exchange.CandleSource = (*Client)(nil)

// GetServerTime은 서버 시간을 조회합니다. 형성 중인 캔들 판별에 사용합니다
func (c *Client) GetServerTime(ctx context.Context) (time.Time, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/time", nil)
	if err != nil {
		return time.Time{}, err
	}

	var result struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return time.Time{}, fmt.Errorf("서버 시간 파싱 실패: %w", err)
	}

	return time.UnixMilli(result.ServerTime), nil
}

// doRequest는 HTTP 요청을 실행하고 결과를 반환합니다
func (c *Client) doRequest(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}

	// URL 생성
	reqURL, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("URL 파싱 실패: %w", err)
	}
	reqURL.RawQuery = params.Encode()

	// 요청 생성
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("요청 생성 실패: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// 요청 실행
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API 요청 실패: %w", err)
	}
	defer resp.Body.Close()

	// 응답 읽기
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("응답 읽기 실패: %w", err)
	}

	// 상태 코드 확인
	if resp.StatusCode != http.StatusOK {
		apiErr := &exchange.APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Code    int    `json:"code"`
			Message string `json:"msg"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			apiErr.Message = string(body)
		} else {
			apiErr.Code, apiErr.Message = payload.Code, payload.Message
		}
		return nil, apiErr
	}

	return body, nil
}

// GetKlines는 마감된 가장 최근 limit개의 캔들을 조회합니다
// 마지막 캔들은 아직 형성 중일 수 있으므로 하나 더 받아 서버 시간 기준으로 마감 전 캔들을 버립니다
func (c *Client) GetKlines(ctx context.Context, symbol string, interval domain.TimeInterval, limit int) (domain.CandleList, error) {
	if limit < 1 {
		return nil, fmt.Errorf("캔들 개수는 1 이상이어야 합니다: %d", limit)
	}

	now, err := c.GetServerTime(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Printf("서버 시간 조회 실패, 로컬 시간 사용: %v", err)
		now = time.Now()
	}

	candles, err := c.fetchKlines(ctx, symbol, interval, limit+1)
	if err != nil {
		return nil, err
	}

	for len(candles) > 0 && candles[len(candles)-1].CloseTime.After(now) {
		candles = candles[:len(candles)-1]
	}
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

// fetchKlines는 limit개의 캔들을 받습니다
// MaxKlineLimit보다 많으면 endTime을 과거로 옮기며 여러 번 요청합니다
func (c *Client) fetchKlines(ctx context.Context, symbol string, interval domain.TimeInterval, limit int) (domain.CandleList, error) {
	var result domain.CandleList
	var endTime int64
	for remaining := limit; remaining > 0; {
		page, err := c.getKlinePage(ctx, symbol, interval, min(remaining, MaxKlineLimit), endTime)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		result = append(page, result...)
		remaining -= len(page)
		endTime = page[0].OpenTime.UnixMilli() - 1

		if len(page) < MaxKlineLimit {
			break
		}
	}

	return result, nil
}

// getKlinePage는 endTime(0이면 현재) 이전 캔들 한 페이지를 조회합니다
func (c *Client) getKlinePage(ctx context.Context, symbol string, interval domain.TimeInterval, limit int, endTime int64) (domain.CandleList, error) {
	params := url.Values{}
	params.Add("symbol", symbol)
	params.Add("interval", string(interval))
	params.Add("limit", strconv.Itoa(limit))
	if endTime > 0 {
		params.Add("endTime", strconv.FormatInt(endTime, 10))
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/klines", params)
	if err != nil {
		return nil, err
	}

	var rawCandles [][]interface{}
	if err := json.Unmarshal(resp, &rawCandles); err != nil {
		return nil, fmt.Errorf("캔들 데이터 파싱 실패: %w", err)
	}

	candles := make(domain.CandleList, len(rawCandles))
	for i, raw := range rawCandles {
		candle, err := parseKline(raw)
		if err != nil {
			return nil, fmt.Errorf("%d번째 캔들 파싱 실패: %w", i, err)
		}
		candle.Symbol = symbol
		candle.Interval = interval
		candles[i] = candle
	}

	return candles, nil
}

// parseKline은 [openTime, open, high, low, close, volume, closeTime, ...] 배열을 변환합니다
func parseKline(raw []interface{}) (domain.Candle, error) {
	if len(raw) < 7 {
		return domain.Candle{}, fmt.Errorf("필드 수 부족: %d", len(raw))
	}

	openTime, ok1 := raw[0].(float64)
	closeTime, ok2 := raw[6].(float64)
	if !ok1 || !ok2 {
		return domain.Candle{}, fmt.Errorf("시간 필드 형식 오류")
	}

	var prices [5]float64
	for j := range prices {
		s, ok := raw[j+1].(string)
		if !ok {
			return domain.Candle{}, fmt.Errorf("가격 필드 %d 형식 오류", j+1)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Candle{}, fmt.Errorf("가격 필드 %d 변환 실패: %w", j+1, err)
		}
		prices[j] = v
	}

	return domain.Candle{
		OpenTime:  time.UnixMilli(int64(openTime)),
		CloseTime: time.UnixMilli(int64(closeTime)),
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    prices[4],
	}, nil
}
