package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dcode-github/realtor_listing/backend/storage"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSpec   = "@every 24h"
	DefaultMaxAge = 24 * time.Hour
)

type StaleSweeper interface {
	SweepStaleTemporary(ctx context.Context, maxAge time.Duration) (storage.SweepResult, error)
}

// Sweeper periodically deletes stale temporary images.
type Sweeper struct {
	cron    *cron.Cron
	target  StaleSweeper
	spec    string
	maxAge  time.Duration
	log     logrus.FieldLogger
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	running bool
}

func NewSweeper(target StaleSweeper, spec string, maxAge time.Duration, log logrus.FieldLogger) *Sweeper {
	if spec == "" {
		spec = DefaultSpec
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	log = log.WithField("component", "sweeper")
	ctx, cancel := context.WithCancel(context.Background())
	cronLogger := cron.PrintfLogger(log)
	return &Sweeper{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		target: target,
		spec:   spec,
		maxAge: maxAge,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.RunNow(s.ctx); err != nil {
			s.log.WithError(err).Error("Scheduled sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.running = true
	s.log.WithFields(logrus.Fields{"spec": s.spec, "max_age": s.maxAge.String()}).Info("Sweeper started")
	return nil
}

// Stop cancels a sweep in progress and waits for it to return or for ctx
// to expire.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	if !s.running {
		return nil
	}
	s.running = false

	select {
	case <-s.cron.Stop().Done():
		s.log.Info("Sweeper stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop sweeper: %w", ctx.Err())
	}
}

// RunNow performs one sweep immediately.
func (s *Sweeper) RunNow(ctx context.Context) (storage.SweepResult, error) {
	s.log.Info("Starting stale temporary image sweep")
	result, err := s.target.SweepStaleTemporary(ctx, s.maxAge)
	if err != nil {
		return result, err
	}
	if result.Failed > 0 {
		s.log.WithField("failed", result.Failed).Warn("Sweep finished with failures")
	}
	return result, nil
}
