package runner

import (
	"time"

	"signal_bot/internal/models"
)

type cooldownKey struct {
	symbol string
	dir    models.Direction
}

// Cooldown — последний сигнал по (символ, направление). Меняется только
// из цикла проверки, который никогда не идёт параллельно сам с собой.
type Cooldown struct {
	window time.Duration
	last   map[cooldownKey]time.Time
}

func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{window: window, last: make(map[cooldownKey]time.Time)}
}

// Allow: false, если предыдущий сигнал был меньше window назад.
func (c *Cooldown) Allow(symbol string, dir models.Direction, now time.Time) bool {
	last, ok := c.last[cooldownKey{symbol, dir}]
	return !ok || now.Sub(last) >= c.window
}

func (c *Cooldown) Record(symbol string, dir models.Direction, now time.Time) {
	c.last[cooldownKey{symbol, dir}] = now
}

func (c *Cooldown) Last(symbol string, dir models.Direction) (time.Time, bool) {
	t, ok := c.last[cooldownKey{symbol, dir}]
	return t, ok
}
