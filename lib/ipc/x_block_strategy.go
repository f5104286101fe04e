package ipc

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

var (
	_ BlockStrategy = (*condBlockStrategy)(nil)
	_ BlockStrategy = (*sleepBlockStrategy)(nil)
)

// condBlockStrategy parks waiters on a sync.Cond.
// The waiter counter is raised before the condition is checked, so
// Done may skip the lock while nobody waits without losing a wakeup.
type condBlockStrategy struct {
	lock    sync.Mutex
	cond    *sync.Cond
	waiters atomic.Int64
}

func NewCondBlockStrategy() BlockStrategy {
	s := &condBlockStrategy{}
	s.cond = sync.NewCond(&s.lock)
	return s
}

func (s *condBlockStrategy) WaitFor(ctx context.Context, eqFn func() bool) error {
	if eqFn() {
		return nil
	}
	s.waiters.Add(1)
	defer s.waiters.Add(-1)

	stop := context.AfterFunc(ctx, s.broadcast)
	defer stop()

	s.lock.Lock()
	defer s.lock.Unlock()
	for !eqFn() {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.cond.Wait()
	}
	return nil
}

func (s *condBlockStrategy) Done() {
	if s.waiters.Load() <= 0 {
		return
	}
	s.broadcast()
}

func (s *condBlockStrategy) broadcast() {
	s.lock.Lock()
	s.cond.Broadcast()
	s.lock.Unlock()
}

// sleepBlockStrategy polls the condition, it trades latency for
// never touching a lock on the publishing path.
type sleepBlockStrategy struct {
	interval time.Duration
}

func NewSleepBlockStrategy(interval time.Duration) BlockStrategy {
	if interval <= 0 {
		interval = 100 * time.Microsecond
	}
	return &sleepBlockStrategy{interval: interval}
}

func (s *sleepBlockStrategy) WaitFor(ctx context.Context, eqFn func() bool) error {
	for !eqFn() {
		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

func (s *sleepBlockStrategy) Done() {}
