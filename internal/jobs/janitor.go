package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultJanitorInterval is how often expired jobs are swept.
const DefaultJanitorInterval = time.Hour

// Janitor periodically evicts expired terminal jobs from a Registry.
type Janitor struct {
	registry *Registry
	interval time.Duration
	cron     *cron.Cron
	now      func() time.Time
}

// NewJanitor creates a janitor sweeping registry every interval.
func NewJanitor(registry *Registry, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	return &Janitor{
		registry: registry,
		interval: interval,
		cron:     cron.New(),
		now:      time.Now,
	}
}

// Start schedules the sweep.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(fmt.Sprintf("@every %s", j.interval), j.Sweep); err != nil {
		return fmt.Errorf("schedule job sweep: %w", err)
	}
	j.cron.Start()
	log.Info().
		Str("component", "janitor").
		Dur("interval", j.interval).
		Msg("Janitor started")
	return nil
}

// Sweep runs one eviction pass.
func (j *Janitor) Sweep() {
	removed := j.registry.Sweep(j.now())
	if removed > 0 {
		log.Info().
			Str("component", "janitor").
			Int("removed", removed).
			Int("remaining", j.registry.Len()).
			Msg("Expired jobs removed")
	}
}

// Stop unschedules the sweep and waits for a running pass until ctx expires.
func (j *Janitor) Stop(ctx context.Context) error {
	stopped := j.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
