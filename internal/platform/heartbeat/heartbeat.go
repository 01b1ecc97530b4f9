// Package heartbeat runs a periodic renewal for a held lease.
package heartbeat

import (
	"context"
	"sync"
	"time"
)

// Start calls beat every interval until the returned stop is called. Errors
// from beat go to onErr when it is set; the loop keeps running. stop waits for
// an in-flight beat and is safe to call more than once.
func Start(interval time.Duration, beat func(context.Context) error, onErr func(error)) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := beat(ctx); err != nil && onErr != nil && ctx.Err() == nil {
					onErr(err)
				}
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
