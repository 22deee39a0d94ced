package dataset

import (
	"errors"
	"fmt"
)

// Error 타입들은 데이터셋 구성과 배치 제공 중 발생할 수 있는 에러를 정의합니다
var (
	ErrInsufficientData = errors.New("데이터가 부족합니다")
	ErrExhausted        = errors.New("오프셋 풀이 비었습니다")
	ErrDegenerateRange  = errors.New("정규화 구간의 최소값과 최대값이 같습니다")
	ErrOutOfRange       = errors.New("룩백 인덱스가 학습 구간을 벗어났습니다")
)

// WindowError는 특정 예제 생성 실패를 확장한 구조체입니다
type WindowError struct {
	Offset int
	Step   int
	Index  int
	Err    error
}

// Error는 error 인터페이스를 구현합니다
func (e *WindowError) Error() string {
	return fmt.Sprintf("윈도우 에러 [오프셋: %d, 스텝: %d, 인덱스: %d]: %v", e.Offset, e.Step, e.Index, e.Err)
}

// Unwrap은 내부 에러를 반환합니다 (errors.Is/As 지원을 위함)
func (e *WindowError) Unwrap() error {
	return e.Err
}
