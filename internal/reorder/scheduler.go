package reorder

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

// Scheduler periodically rebuilds the reorder cache for every known tenant.
type Scheduler struct {
	cron    *gocron.Scheduler
	tenants func(ctx context.Context) ([]string, error)
	warm    func(ctx context.Context, tenantID string) error
	timeout time.Duration
}

func NewScheduler(
	tenants func(ctx context.Context) ([]string, error),
	warm func(ctx context.Context, tenantID string) error,
) *Scheduler {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	return &Scheduler{
		cron:    cron,
		tenants: tenants,
		warm:    warm,
		timeout: time.Minute,
	}
}

func (s *Scheduler) Start(interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if _, err := s.cron.Every(interval).Do(s.RunOnce); err != nil {
		return err
	}
	s.cron.StartAsync()
	log.Info().Dur("interval", interval).Msg("reorder warmer scheduled")
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunOnce warms each tenant independently; one failing tenant does not stop
// the rest.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	startedAt := time.Now()
	tenants, err := s.tenants(ctx)
	if err != nil {
		log.Error().Err(err).Msg("reorder warmer: list tenants")
		return
	}

	warmed := 0
	for _, tenantID := range tenants {
		if err := s.warm(ctx, tenantID); err != nil {
			log.Warn().Err(err).Str("tenant_id", tenantID).Msg("reorder warmer: refresh tenant")
			continue
		}
		warmed++
	}
	log.Info().
		Int("tenants", len(tenants)).
		Int("warmed", warmed).
		Dur("took", time.Since(startedAt)).
		Msg("reorder warmer run finished")
}
