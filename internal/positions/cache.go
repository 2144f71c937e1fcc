package positions

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/arena/internal/contracts"
	"github.com/wonny/arena/pkg/logger"
)

// DefaultTTL 포지션 스냅샷 유효 시간
const DefaultTTL = 5 * time.Second

// Cache is a TTL-cached view of current holdings
// ⭐ SSOT: 포지션 조회는 이 캐시를 통해서만
// On refresh failure the last-known snapshot is served instead of failing:
// freshness is traded for availability.
type Cache struct {
	mu          sync.RWMutex
	broker      contracts.Broker
	logger      *logger.Logger
	ttl         time.Duration
	positions   map[string]contracts.Position
	refreshedAt time.Time
	stale       bool
}

// NewCache creates a new position cache
func NewCache(broker contracts.Broker, ttl time.Duration, log *logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		broker:    broker,
		logger:    log,
		ttl:       ttl,
		positions: make(map[string]contracts.Position),
	}
}

// Refresh fetches positions from the broker if the snapshot is older than the
// TTL. A fetch error keeps the previous snapshot and marks it stale.
func (c *Cache) Refresh(ctx context.Context) {
	c.mu.RLock()
	fresh := time.Since(c.refreshedAt) < c.ttl
	c.mu.RUnlock()
	if fresh {
		return
	}

	fetched, err := c.broker.GetPositions(ctx)
	if err != nil {
		c.mu.Lock()
		c.stale = true
		c.mu.Unlock()

		c.logger.WithError(err).Warn("Position refresh failed, serving last-known snapshot")
		return
	}

	snapshot := make(map[string]contracts.Position, len(fetched))
	for _, p := range fetched {
		snapshot[p.Symbol] = p
	}

	c.mu.Lock()
	c.positions = snapshot
	c.refreshedAt = time.Now()
	c.stale = false
	c.mu.Unlock()
}

// Get retrieves a position by symbol
func (c *Cache) Get(symbol string) (contracts.Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pos, exists := c.positions[symbol]
	return pos, exists
}

// All returns a copy of the current snapshot
func (c *Cache) All() []contracts.Position {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]contracts.Position, 0, len(c.positions))
	for _, p := range c.positions {
		result = append(result, p)
	}
	return result
}

// Len returns the number of cached positions
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.positions)
}

// Stale reports whether the snapshot is served past its TTL
func (c *Cache) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.stale || time.Since(c.refreshedAt) > c.ttl
}

// Age returns the age of the current snapshot
func (c *Cache) Age() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.refreshedAt.IsZero() {
		return c.ttl + time.Second
	}
	return time.Since(c.refreshedAt)
}
