// Package reveal paces the on-screen disclosure of text that is already known.
package reveal

import (
	"context"
	"sync"
	"time"
)

// DefaultDelay is the pause between two revealed characters.
const DefaultDelay = 20 * time.Millisecond

// Scheduler reveals text one character at a time. Reveals run one at a time;
// a second call waits until the first finishes or is canceled.
type Scheduler struct {
	delay time.Duration
	mu    sync.Mutex
}

// NewScheduler creates a Scheduler. A non-positive delay reveals without pausing.
func NewScheduler(delay time.Duration) *Scheduler {
	return &Scheduler{delay: delay}
}

// Reveal calls deliver with every prefix of text, each one character longer
// than the previous, pausing between calls. It returns ctx.Err() as soon as
// ctx is done; no prefix is delivered after that.
func (s *Scheduler) Reveal(ctx context.Context, text string, deliver func(prefix string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var timer *time.Timer
	if s.delay > 0 {
		timer = time.NewTimer(s.delay)
		timer.Stop()
		defer timer.Stop()
	}

	runes := []rune(text)
	for i := 1; i <= len(runes); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		deliver(string(runes[:i]))

		if timer == nil {
			continue
		}
		timer.Reset(s.delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
