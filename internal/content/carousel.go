package content

import (
	"context"
	"sync"
	"time"
)

// Carousel rotates through n slides. Ticks come from a channel so callers
// decide the cadence.
type Carousel struct {
	mu      sync.Mutex
	n       int
	current int
}

func NewCarousel(n int) *Carousel {
	return &Carousel{n: n}
}

func (c *Carousel) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Carousel) Next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == 0 {
		return 0
	}
	c.current = (c.current + 1) % c.n
	return c.current
}

func (c *Carousel) Prev() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == 0 {
		return 0
	}
	c.current = (c.current - 1 + c.n) % c.n
	return c.current
}

// Run advances on every tick and calls onChange with the new index until ctx
// ends or ticks closes. A carousel with no slides never advances.
func (c *Carousel) Run(ctx context.Context, ticks <-chan time.Time, onChange func(int)) {
	if c.n == 0 {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			index := c.Next()
			if onChange != nil {
				onChange(index)
			}
		}
	}
}

// RunCountdowns recomputes the promotions' countdowns on every tick and
// hands a copy to onUpdate.
func RunCountdowns(ctx context.Context, promotions []Promotion, ticks <-chan time.Time, onUpdate func([]Promotion)) {
	if len(promotions) == 0 {
		return
	}
	current := append([]Promotion(nil), promotions...)
	for {
		select {
		case <-ctx.Done():
			return
		case now, ok := <-ticks:
			if !ok {
				return
			}
			RefreshCountdowns(current, now)
			if onUpdate != nil {
				onUpdate(append([]Promotion(nil), current...))
			}
		}
	}
}
