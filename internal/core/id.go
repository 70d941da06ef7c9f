package core

import (
	"sync"
	"time"
)

// IDGenerator mints second-resolution timestamp identifiers. Ids handed out by
// one generator are strictly increasing, so two records created within the
// same second still get distinct ids.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Observe raises the floor so future ids are greater than id. Used after
// reading a table written by another process.
func (g *IDGenerator) Observe(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id > g.last {
		g.last = id
	}
}

func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.now().Unix()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
