package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/assist-by/predictor/internal/notification"
)

const footerText = "Assist by Predictor 🤖"

// Client는 Discord 웹훅 클라이언트입니다
// 웹훅 URL이 비어있으면 해당 알림은 전송하지 않습니다
type Client struct {
	infoWebhook  string
	errorWebhook string
	httpClient   *http.Client
}

// ClientOption은 클라이언트 생성 옵션을 정의합니다
type ClientOption func(*Client)

// WithTimeout은 HTTP 클라이언트의 타임아웃을 설정합니다
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient는 새로운 Discord 클라이언트를 생성합니다
func NewClient(infoWebhook, errorWebhook string, opts ...ClientOption) *Client {
	c := &Client{
		infoWebhook:  infoWebhook,
		errorWebhook: errorWebhook,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ notification.Notifier = (*Client)(nil)

// SendError는 에러 알림을 전송합니다
func (c *Client) SendError(err error) error {
	embed := NewEmbed().
		SetTitle("에러 발생").
		SetDescription(fmt.Sprintf("```%v```", err)).
		SetColor(notification.ColorError).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.errorWebhook, WebhookMessage{Embeds: []Embed{*embed}})
}

// SendInfo는 일반 정보 알림을 전송합니다
func (c *Client) SendInfo(message string) error {
	embed := NewEmbed().
		SetDescription(message).
		SetColor(notification.ColorInfo).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.infoWebhook, WebhookMessage{Embeds: []Embed{*embed}})
}

// SendDatasetReport는 데이터셋 구성 결과를 전송합니다
func (c *Client) SendDatasetReport(r notification.DatasetReport) error {
	embed := NewEmbed().
		SetTitle(fmt.Sprintf("📊 데이터셋 구성: %s %s", r.Symbol, r.Interval)).
		SetDescription(fmt.Sprintf("**빌드 ID**: `%s`\n**소스**: %s\n**소요 시간**: %s",
			r.BuildID, r.Source, r.Duration.Round(time.Millisecond))).
		SetColor(notification.GetColorForReport(r)).
		AddField("캔들", fmt.Sprintf("원본 %d개\n컷오프 %d", r.Candles, r.Cutoff), true).
		AddField("분할", fmt.Sprintf("학습 %d\n테스트 %d", r.TrainLen, r.TestLen), true).
		AddField("예제", fmt.Sprintf("%d개 / %d배치\n에폭 %d회", r.Examples, r.Batches, r.Epochs), true).
		AddField("추론", fmt.Sprintf("입력 %d개\n기준 MAE %.4f", r.InferenceExamples, r.BaselineCloseMAE), true).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	var warnings []string
	if r.IndicatorFailures > 0 {
		warnings = append(warnings, fmt.Sprintf("지표 계산 실패 %d건", r.IndicatorFailures))
	}
	if len(r.DegenerateSeries) > 0 {
		warnings = append(warnings, fmt.Sprintf("고정 구간 시리즈: %s", strings.Join(r.DegenerateSeries, ", ")))
	}
	if r.Truncated > 0 {
		warnings = append(warnings, fmt.Sprintf("부분 채움 타임스텝 %d개", r.Truncated))
	}
	if r.PreviousBuildID != "" {
		embed.AddField("직전 빌드", fmt.Sprintf("`%s`\n종가 구간 %+.2f%%", r.PreviousBuildID, r.CloseRangeChange), true)
	}
	if len(warnings) > 0 {
		embed.AddField("⚠️ 경고", strings.Join(warnings, "\n"), false)
	}

	return c.sendToWebhook(c.infoWebhook, WebhookMessage{Embeds: []Embed{*embed}})
}

// sendToWebhook은 메시지를 웹훅으로 전송합니다
func (c *Client) sendToWebhook(webhookURL string, msg WebhookMessage) error {
	if webhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("메시지 마샬링 실패: %w", err)
	}

	resp, err := c.httpClient.Post(webhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("웹훅 전송 실패: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("웹훅 응답 에러(%d): %s", resp.StatusCode, string(body))
	}

	return nil
}
