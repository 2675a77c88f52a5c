// Package chain models the ledger's notion of time: a monotonically
// increasing block height plus the millisecond moment each block was
// produced at.
package chain

import (
	"sync"
	"time"

	"credreg/pkg/domain"
)

// Clock exposes the current ledger position. Implementations must be safe
// for concurrent readers.
type Clock interface {
	Block() domain.BlockNumber
	Moment() domain.Moment
}

// Counter is a manually advanced clock. The block scheduler calls Advance
// once per interval; request handling reads the latest position.
type Counter struct {
	mu     sync.RWMutex
	block  domain.BlockNumber
	moment domain.Moment
}

// NewCounter starts at block 1 stamped with the current wall clock, so the
// first delegate grants always have a future height to expire against.
func NewCounter() *Counter {
	return &Counter{block: 1, moment: domain.MomentFromTime(time.Now())}
}

func (c *Counter) Block() domain.BlockNumber {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.block
}

func (c *Counter) Moment() domain.Moment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.moment
}

// Advance moves to the next block and stamps it with the given moment.
// Returns the new height.
func (c *Counter) Advance(at domain.Moment) domain.BlockNumber {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block++
	c.moment = at
	return c.block
}

// Set pins the clock to an exact position. Intended for tests and replay.
func (c *Counter) Set(block domain.BlockNumber, moment domain.Moment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block = block
	c.moment = moment
}
