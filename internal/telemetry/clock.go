// internal/telemetry/clock.go
package telemetry

import (
	"context"
	"time"
)

// Clock is the sampler's time source. Sleep returns ctx.Err() as soon as
// ctx is done.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// SystemClock is the wall clock. Now carries the monotonic reading, so
// elapsed times are immune to wall clock steps.
var SystemClock Clock = realClock{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
