package notification

import "time"

const (
	ColorSuccess = 0x00FF00 // 녹색
	ColorError   = 0xFF0000 // 빨간색
	ColorInfo    = 0x0000FF // 파란색
	ColorWarning = 0xFFA500 // 주황색
)

// Notifier는 알림 전송 인터페이스를 정의합니다
type Notifier interface {
	// SendError는 에러 알림을 전송합니다
	SendError(err error) error

	// SendInfo는 일반 정보 알림을 전송합니다
	SendInfo(message string) error

	// SendDatasetReport는 데이터셋 구성 결과를 전송합니다
	SendDatasetReport(report DatasetReport) error
}

// DatasetReport는 데이터셋 구성 결과 요약입니다
type DatasetReport struct {
	BuildID           string
	Symbol            string
	Interval          string
	Source            string
	Candles           int      // 원본 캔들 수
	Cutoff            int      // 트리밍 시작 인덱스
	TrainLen          int      // 학습 구간 길이
	TestLen           int      // 테스트 구간 길이
	Examples          int      // 에폭당 학습 예제 수
	Batches           int      // 에폭당 배치 수
	Epochs            int      // 실행한 에폭 수
	Truncated         int      // 부분 채움 타임스텝 수 (에폭당)
	IndicatorFailures int      // 지표 계산 실패 건수
	DegenerateSeries  []string // 최소값 == 최대값인 시리즈
	InferenceExamples int      // 테스트 구간 추론 입력 수
	BaselineCloseMAE  float64  // 직전 값 기준 모델의 종가 MAE
	PreviousBuildID   string   // 같은 심볼/간격의 직전 빌드, 없으면 빈 문자열
	CloseRangeChange  float64  // 직전 빌드 대비 종가 구간 폭 변화율 (%)
	Duration          time.Duration
}

// GetColorForReport는 보고서 상태에 따른 색상을 반환합니다
func GetColorForReport(r DatasetReport) int {
	switch {
	case r.Examples == 0:
		return ColorError
	case r.IndicatorFailures > 0 || len(r.DegenerateSeries) > 0 || r.Truncated > 0:
		return ColorWarning
	default:
		return ColorSuccess
	}
}
