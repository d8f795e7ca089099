package services

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StartOfferSweeper expires stale lobby offers every interval.
func StartOfferSweeper(e *Engine, interval time.Duration, log *zap.SugaredLogger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if n := e.ExpireOffers(time.Now().UTC()); n > 0 {
				log.Infof("[Scheduler] expired %d stale offers", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule offer sweep: %w", err)
	}

	sched.Start()
	return sched, nil
}
