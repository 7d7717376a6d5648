package reactive

import (
	"sync"
	"time"
)

// Scheduler runs a task repeatedly. It is the only source of time in the
// engine; tests substitute a manual implementation.
type Scheduler interface {
	// Every runs task every interval until stop is called. stop is
	// idempotent and does not wait for a running task.
	Every(interval time.Duration, task func()) (stop func())
}

// TickerScheduler runs tasks on a time.Ticker, one goroutine per task.
type TickerScheduler struct{}

// Every implements Scheduler.
func (TickerScheduler) Every(interval time.Duration, task func()) func() {
	t := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-t.C:
				task()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.Stop()
			close(done)
		})
	}
}
