package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_NextRun(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		delay time.Duration
		now   time.Time
		want  time.Time
	}{
		{"경계 직후", 0, base.Add(time.Second), base.Add(time.Hour)},
		{"정확히 경계", 0, base, base.Add(time.Hour)},
		{"지연 전", 5 * time.Second, base.Add(2 * time.Second), base.Add(5 * time.Second)},
		{"지연 후", 5 * time.Second, base.Add(10 * time.Second), base.Add(time.Hour + 5*time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(time.Hour, TaskFunc(func(context.Context) error { return nil }), WithDelay(tt.delay))
			assert.Equal(t, tt.want, s.NextRun(tt.now))
		})
	}
}

func TestScheduler_RunsAndStops(t *testing.T) {
	var runs atomic.Int32
	task := TaskFunc(func(context.Context) error {
		runs.Add(1)
		return errors.New("실패해도 계속")
	})

	s := NewScheduler(20*time.Millisecond, task, WithRunOnStart())
	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("스케줄러가 종료되지 않음")
	}
}

func TestScheduler_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(time.Hour, TaskFunc(func(context.Context) error { return nil }))

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("스케줄러가 종료되지 않음")
	}
}

func TestScheduler_StopWaitsForRunningTask(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	task := TaskFunc(func(context.Context) error {
		close(started)
		<-release
		finished.Store(true)
		return nil
	})

	s := NewScheduler(time.Hour, task, WithRunOnStart())
	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	<-started
	s.Stop()

	select {
	case <-done:
		t.Fatal("작업이 끝나기 전에 Start가 반환됨")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.True(t, finished.Load())
	case <-time.After(time.Second):
		t.Fatal("스케줄러가 종료되지 않음")
	}
}
