package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Task는 스케줄러가 실행할 작업을 정의하는 인터페이스입니다
type Task interface {
	Execute(ctx context.Context) error
}

// TaskFunc는 함수를 Task로 사용하기 위한 어댑터입니다
type TaskFunc func(ctx context.Context) error

// Execute는 Task를 구현합니다
func (f TaskFunc) Execute(ctx context.Context) error { return f(ctx) }

// Scheduler는 캔들 간격 경계마다 작업을 실행합니다
type Scheduler struct {
	interval   time.Duration
	delay      time.Duration
	task       Task
	runOnStart bool
	now        func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// Option은 Scheduler의 옵션을 정의합니다
type Option func(*Scheduler)

// WithDelay는 경계 이후 실행까지의 지연을 지정합니다 (캔들 마감 반영 대기)
func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		s.delay = d
	}
}

// WithRunOnStart는 시작 즉시 한 번 실행하도록 합니다
func WithRunOnStart() Option {
	return func(s *Scheduler) {
		s.runOnStart = true
	}
}

// NewScheduler는 새로운 스케줄러를 생성합니다
func NewScheduler(interval time.Duration, task Task, opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: interval,
		task:     task,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextRun은 now 이후 첫 실행 시각입니다
func (s *Scheduler) NextRun(now time.Time) time.Time {
	next := now.Truncate(s.interval).Add(s.delay)
	if !next.After(now) {
		next = next.Add(s.interval)
	}
	return next
}

// Start는 ctx가 끝나거나 Stop이 호출될 때까지 작업을 반복 실행합니다
// 작업 에러는 기록만 하고 다음 실행을 계속합니다
// 실행 중인 작업이 있으면 그 작업이 끝난 뒤에 반환합니다
func (s *Scheduler) Start(ctx context.Context) error {
	if s.runOnStart {
		s.execute(ctx)
	}

	timer := time.NewTimer(s.wait())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.stopCh:
			return nil

		case <-timer.C:
			s.execute(ctx)
			timer.Reset(s.wait())
		}
	}
}

func (s *Scheduler) execute(ctx context.Context) {
	if err := s.task.Execute(ctx); err != nil {
		log.Printf("작업 실행 실패: %v", err)
	}
}

// wait는 다음 실행까지의 대기 시간을 계산하고 기록합니다
func (s *Scheduler) wait() time.Duration {
	now := s.now()
	next := s.NextRun(now)
	d := next.Sub(now)

	log.Printf("다음 실행까지 %v 대기 (다음 실행: %s)", d.Round(time.Second), next.Format("15:04:05"))
	return d
}

// Stop은 스케줄러를 중지합니다. 여러 번 호출해도 안전합니다
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}
