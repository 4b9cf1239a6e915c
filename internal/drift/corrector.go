package drift

import (
	"context"
	"fmt"
	"time"

	"github.com/ministry-roster-api/internal/batch"
	"github.com/ministry-roster-api/internal/models"
	"github.com/rs/zerolog"
)

// State is the live data one correction pass compares
type State struct {
	Roster         []models.RosterEntry
	Participations []models.ParticipationRecord
	Leaders        []models.Leader
}

// Source loads the current active state across all units
type Source interface {
	LoadState(ctx context.Context) (State, error)
}

// Pass summarizes one correction pass
type Pass struct {
	Corrections  int           `json:"corrections"`
	Written      int           `json:"written"`
	LeaderDrifts int           `json:"leader_drifts"`
	Duration     time.Duration `json:"duration"`
}

// Corrector runs correction passes, debounced on change events. It holds no
// lock: overlapping passes converge because every write is derived from the
// state read at the start of the pass.
type Corrector struct {
	source    Source
	persister *batch.Persister
	debounce  time.Duration
	onPass    func(Pass, error)
	log       zerolog.Logger
}

// NewCorrector creates a corrector that waits debounce after the last
// change event before running a pass
func NewCorrector(source Source, persister *batch.Persister, debounce time.Duration, log zerolog.Logger) *Corrector {
	return &Corrector{
		source:    source,
		persister: persister,
		debounce:  debounce,
		log:       log.With().Str("component", "drift").Logger(),
	}
}

// OnPass registers a hook called after every pass
func (c *Corrector) OnPass(fn func(Pass, error)) {
	c.onPass = fn
}

// RunOnce loads the current state, detects drift and writes the corrections
func (c *Corrector) RunOnce(ctx context.Context) (Pass, error) {
	start := time.Now()
	pass, err := c.run(ctx)
	pass.Duration = time.Since(start)
	if c.onPass != nil {
		c.onPass(pass, err)
	}
	return pass, err
}

func (c *Corrector) run(ctx context.Context) (Pass, error) {
	var pass Pass

	state, err := c.source.LoadState(ctx)
	if err != nil {
		return pass, fmt.Errorf("load state: %w", err)
	}

	if drifts := DetectLeaders(state.Roster, state.Leaders); len(drifts) > 0 {
		pass.LeaderDrifts = len(drifts)
		c.log.Warn().Int("count", len(drifts)).Msg("Leader directory departments diverge from roster")
	}

	corrections := Detect(state.Roster, state.Participations)
	pass.Corrections = len(corrections)
	if len(corrections) == 0 {
		return pass, nil
	}

	mutations := make([]models.Mutation, len(corrections))
	for i, corr := range corrections {
		mutations[i] = corr.Mutation()
	}

	result, err := c.persister.Apply(ctx, mutations)
	pass.Written = result.Written
	if err != nil {
		return pass, err
	}

	c.log.Info().
		Int("corrections", pass.Corrections).
		Int("written", pass.Written).
		Msg("Participation departments realigned with roster")
	return pass, nil
}

// Run consumes change events and runs one pass once no event has arrived
// for the debounce window. It returns when ctx is done or events is closed;
// a pending pass is flushed before returning on close.
func (c *Corrector) Run(ctx context.Context, events <-chan models.ChangeEvent) {
	timer := time.NewTimer(c.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				if pending {
					c.pass(ctx)
				}
				return
			}
			c.log.Debug().Str("collection", string(ev.Collection)).Msg("Change received")
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(c.debounce)
			pending = true
		case <-timer.C:
			pending = false
			c.pass(ctx)
		}
	}
}

func (c *Corrector) pass(ctx context.Context) {
	if _, err := c.RunOnce(ctx); err != nil {
		c.log.Error().Err(err).Msg("Drift correction pass failed")
	}
}
