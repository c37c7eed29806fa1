package release

import (
	"time"

	"github.com/google/uuid"
)

// Countdown is the bounded grace period between vacancy confirmation and
// automatic booking decline. It owns a once-per-second tick and a terminal
// deadline timer; both deliver events into the router's channel so all state
// mutation stays on the dispatch goroutine.
//
// Exactly one countdown may exist per session; the ListenerActive gate
// enforces that structurally. Remaining is decremented by the router, never
// by the timer goroutine.
type Countdown struct {
	ID        string
	Remaining int
	StartedAt time.Time

	ticker   *time.Ticker
	deadline *time.Timer
	stop     chan struct{}
	stopped  bool
}

// StartCountdown launches a countdown of the given length. tick is the tick
// interval (one second in production, shortened in tests); the deadline fires
// after seconds ticks worth of time.
func StartCountdown(seconds int, tick time.Duration, deliver func(Event)) *Countdown {
	c := &Countdown{
		ID:        uuid.NewString(),
		Remaining: seconds,
		ticker:    time.NewTicker(tick),
		deadline:  time.NewTimer(time.Duration(seconds) * tick),
		stop:      make(chan struct{}),
	}

	go func() {
		for {
			select {
			case <-c.ticker.C:
				deliver(Event{Type: EventCountdownTick, CountdownID: c.ID})
			case <-c.deadline.C:
				c.ticker.Stop()
				deliver(Event{Type: EventCountdownExpire, CountdownID: c.ID})
				return
			case <-c.stop:
				return
			}
		}
	}()

	return c
}

// Cancel stops both timers. Safe to call more than once and safe to call
// after expiry; only the first call has any effect.
func (c *Countdown) Cancel() {
	if c.stopped {
		return
	}
	c.stopped = true
	c.ticker.Stop()
	c.deadline.Stop()
	close(c.stop)
}
