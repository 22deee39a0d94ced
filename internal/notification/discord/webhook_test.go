package discord

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/predictor/internal/notification"
)

func captureServer(t *testing.T, status int, got *[]WebhookMessage) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var msg WebhookMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		*got = append(*got, msg)
		w.WriteHeader(status)
	}))
}

func TestClient_SendInfoAndError(t *testing.T) {
	var info, errs []WebhookMessage
	infoServer := captureServer(t, http.StatusNoContent, &info)
	defer infoServer.Close()
	errServer := captureServer(t, http.StatusNoContent, &errs)
	defer errServer.Close()

	c := NewClient(infoServer.URL, errServer.URL, WithTimeout(time.Second))

	require.NoError(t, c.SendInfo("데이터셋 구성 시작"))
	require.NoError(t, c.SendError(errors.New("캔들 조회 실패")))

	require.Len(t, info, 1)
	require.Len(t, info[0].Embeds, 1)
	assert.Equal(t, "데이터셋 구성 시작", info[0].Embeds[0].Description)
	assert.Equal(t, notification.ColorInfo, info[0].Embeds[0].Color)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Embeds[0].Description, "캔들 조회 실패")
	assert.Equal(t, notification.ColorError, errs[0].Embeds[0].Color)
}

func TestClient_SendDatasetReport(t *testing.T) {
	var got []WebhookMessage
	server := captureServer(t, http.StatusOK, &got)
	defer server.Close()

	report := notification.DatasetReport{
		BuildID:           "b-1",
		Symbol:            "BTCUSDT",
		Interval:          "1h",
		Source:            "sqlite",
		Candles:           200,
		Cutoff:            112,
		TrainLen:          79,
		TestLen:           9,
		Examples:          56,
		Batches:           2,
		Epochs:            1,
		IndicatorFailures: 3,
		DegenerateSeries:  []string{"RSI"},
		InferenceExamples: 9,
		BaselineCloseMAE:  12.5,
	}

	require.NoError(t, NewClient(server.URL, "").SendDatasetReport(report))
	require.Len(t, got, 1)

	embed := got[0].Embeds[0]
	assert.Contains(t, embed.Title, "BTCUSDT")
	assert.Contains(t, embed.Description, "b-1")
	assert.Equal(t, notification.ColorWarning, embed.Color)
	require.Len(t, embed.Fields, 5)
	assert.Contains(t, embed.Fields[1].Value, "학습 79")
	assert.Contains(t, embed.Fields[3].Value, "입력 9개")
	assert.Contains(t, embed.Fields[3].Value, "12.5000")
	assert.Contains(t, embed.Fields[4].Value, "RSI")

	// 직전 빌드가 있으면 비교 필드 추가
	report.PreviousBuildID = "b-0"
	report.CloseRangeChange = -3.5
	require.NoError(t, NewClient(server.URL, "").SendDatasetReport(report))
	require.Len(t, got, 2)
	fields := got[1].Embeds[0].Fields
	require.Len(t, fields, 6)
	assert.Contains(t, fields[4].Value, "b-0")
	assert.Contains(t, fields[4].Value, "-3.50%")
}

func TestClient_EmptyWebhookIsSkipped(t *testing.T) {
	c := NewClient("", "")
	assert.NoError(t, c.SendInfo("무시됨"))
	assert.NoError(t, c.SendError(errors.New("무시됨")))
}

func TestClient_WebhookErrorStatus(t *testing.T) {
	var got []WebhookMessage
	server := captureServer(t, http.StatusBadRequest, &got)
	defer server.Close()

	err := NewClient(server.URL, "").SendInfo("실패")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestEmbed_Limits(t *testing.T) {
	e := NewEmbed().SetTitle(strings.Repeat("가", 300))
	assert.Equal(t, maxTitleLen, len([]rune(e.Title)))

	for i := 0; i < 30; i++ {
		e.AddField("f", strings.Repeat("x", 2000), false)
	}
	assert.Len(t, e.Fields, maxFields)
	assert.Equal(t, maxFieldValueLen, len([]rune(e.Fields[0].Value)))
}

func TestGetColorForReport(t *testing.T) {
	assert.Equal(t, notification.ColorError, notification.GetColorForReport(notification.DatasetReport{}))
	assert.Equal(t, notification.ColorSuccess, notification.GetColorForReport(notification.DatasetReport{Examples: 10}))
	assert.Equal(t, notification.ColorWarning, notification.GetColorForReport(notification.DatasetReport{Examples: 10, Truncated: 1}))
}
