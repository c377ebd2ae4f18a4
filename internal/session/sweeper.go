package session

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"rh360.org/internal/obs"
)

const defaultSweepSchedule = "@every 10m"

// Sweeper periodically deletes expired ledger rows. The purge is a single
// delete-where statement (see Ledger.PurgeExpiredBefore), so it is safe to
// run concurrently with token validation.
type Sweeper struct {
	cron   *cron.Cron
	ledger Ledger
}

// StartSweeper schedules the purge and starts the cron runner. An empty
// schedule falls back to a 10 minute interval.
func StartSweeper(ledger Ledger, schedule string) (*Sweeper, error) {
	if schedule == "" {
		schedule = defaultSweepSchedule
	}
	s := &Sweeper{cron: cron.New(), ledger: ledger}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, err
	}
	s.cron.Start()
	return s, nil
}

// Stop halts the runner and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.ledger.PurgeExpiredBefore(ctx, time.Now().UTC())
	if err != nil {
		obs.Log(map[string]any{"level": "error", "msg": "token_sweep_failed", "error": err.Error()})
		return
	}
	if n > 0 {
		obs.Log(map[string]any{"level": "info", "msg": "token_sweep", "purged": n})
	}
}
