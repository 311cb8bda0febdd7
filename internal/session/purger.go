package session

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Purgeable is a store that needs expired records removed explicitly.
type Purgeable interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Purger runs PurgeExpired on a cron schedule.
type Purger struct {
	cron    *cron.Cron
	store   Purgeable
	timeout time.Duration
	logger  *zap.Logger
}

// NewPurger creates a purger. Panics in the job are recovered by the cron chain.
func NewPurger(store Purgeable, logger *zap.Logger) *Purger {
	return &Purger{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		store:   store,
		timeout: 30 * time.Second,
		logger:  logger,
	}
}

// Start schedules the purge job and starts the scheduler.
func (p *Purger) Start(schedule string) error {
	if _, err := p.cron.AddFunc(schedule, p.Run); err != nil {
		return err
	}
	p.logger.Info("scheduled session purge", zap.String("schedule", schedule))
	p.cron.Start()
	return nil
}

// Run purges once.
func (p *Purger) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	n, err := p.store.PurgeExpired(ctx)
	if err != nil {
		p.logger.Error("session purge failed", zap.Error(err))
		return
	}
	p.logger.Info("purged expired sessions", zap.Int64("count", n))
}

// Stop stops the scheduler and returns a context done when running jobs finish.
func (p *Purger) Stop() context.Context {
	return p.cron.Stop()
}
