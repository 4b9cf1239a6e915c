package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/ministry-roster-api/internal/batch"
	"github.com/ministry-roster-api/internal/config"
	"github.com/ministry-roster-api/internal/drift"
	"github.com/ministry-roster-api/internal/metrics"
	"github.com/ministry-roster-api/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// syncService is the concrete implementation of SyncService. It owns the
// drift corrector and feeds it from the store's change subscription.
type syncService struct {
	repos     *repository.Repositories
	corrector *drift.Corrector
	log       zerolog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
	running   bool
	mu        sync.Mutex
}

// newSyncService creates a new SyncService
func newSyncService(repos *repository.Repositories, persister *batch.Persister, cfg *config.Config, log zerolog.Logger) *syncService {
	s := &syncService{
		repos: repos,
		log:   log.With().Str("service", "sync").Logger(),
	}
	s.corrector = drift.NewCorrector(s, persister, cfg.Sync.Debounce, log)
	s.corrector.OnPass(func(p drift.Pass, err error) {
		metrics.ObserveSync(p.Corrections, p.LeaderDrifts, p.Duration.Seconds(), err)
	})
	return s
}

// LoadState implements drift.Source over every unit
func (s *syncService) LoadState(ctx context.Context) (drift.State, error) {
	var state drift.State
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		roster, err := s.repos.Roster.ListActive(gctx, "")
		state.Roster = values(roster)
		return err
	})
	g.Go(func() error {
		parts, err := s.repos.Participation.ListActive(gctx, "")
		state.Participations = values(parts)
		return err
	})
	g.Go(func() error {
		leaders, err := s.repos.Leader.ListActive(gctx, "")
		state.Leaders = values(leaders)
		return err
	})
	if err := g.Wait(); err != nil {
		return drift.State{}, err
	}
	return state, nil
}

// StartProcessor subscribes to store changes and runs the corrector in the
// background until StopProcessor is called or ctx is done. A first pass runs
// immediately so drift accumulated while the service was down is fixed.
// When the change subscription ends on its own the processor stops and may
// be started again.
func (s *syncService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	events, err := s.repos.Changes.Subscribe(runCtx)
	if err != nil {
		cancel()
		s.log.Error().Err(err).Msg("Failed to subscribe to changes, sync processor not started")
		return
	}
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.running = true

	go func() {
		defer close(done)
		defer func() {
			cancel()
			s.mu.Lock()
			if s.done == done {
				s.running = false
				s.cancel = nil
				s.done = nil
			}
			s.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Interface("panic", r).Msg("Sync processor panicked - recovered")
			}
		}()

		if _, err := s.RunOnce(runCtx); err != nil {
			s.log.Error().Err(err).Msg("Initial drift correction pass failed")
		}
		s.corrector.Run(runCtx, events)
		if runCtx.Err() == nil {
			s.log.Warn().Msg("Change subscription closed, sync processor exiting")
		}
	}()

	s.log.Info().Msg("Sync processor started")
}

// StopProcessor stops the background corrector and waits for it to exit
func (s *syncService) StopProcessor() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done
	s.log.Info().Msg("Sync processor stopped")
}

// RunOnce performs one synchronous correction pass
func (s *syncService) RunOnce(ctx context.Context) (drift.Pass, error) {
	pass, err := s.corrector.RunOnce(ctx)
	if err != nil {
		return pass, fmt.Errorf("drift correction: %w", err)
	}
	return pass, nil
}
