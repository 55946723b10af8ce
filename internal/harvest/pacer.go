package harvest

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer produces randomized, bounded delays and scroll distances.
type Pacer struct {
	Min   time.Duration
	Max   time.Duration
	Sleep func(ctx context.Context, d time.Duration)
	rand  func(n int64) int64
}

// NewPacer returns a pacer sleeping between min and max.
func NewPacer(min, max time.Duration) *Pacer {
	return &Pacer{Min: min, Max: max, Sleep: SleepContext, rand: rand.Int64N}
}

// Pause sleeps a random duration in [Min, Max].
func (p *Pacer) Pause(ctx context.Context) {
	p.Wait(ctx, p.between(int64(p.Min), int64(p.Max)))
}

// Wait sleeps for exactly d unless ctx ends first.
func (p *Pacer) Wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	sleep(ctx, d)
}

// Scroll returns a random distance in [min, max].
func (p *Pacer) Scroll(min, max int) int {
	return int(p.between(int64(min), int64(max)))
}

func (p *Pacer) between(min, max int64) time.Duration {
	if max <= min {
		return time.Duration(min)
	}
	r := p.rand
	if r == nil {
		r = rand.Int64N
	}
	return time.Duration(min + r(max-min+1))
}

// SleepContext sleeps for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
