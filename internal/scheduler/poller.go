// Package scheduler drives the poll/archive loop: discover lobbies, track
// them until they finish, hand finished games to the archival writer, and
// adaptively pick the next poll time from how fast lobbies are filling.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"openfront-tracker/internal/archive"
	"openfront-tracker/internal/blob"
	"openfront-tracker/internal/registry"
	"openfront-tracker/internal/upstream"
)

// Mode selects the discovery source for poll cycles.
type Mode string

const (
	// ModeAuto uses the primary aggregator and falls back once per cycle to
	// the secondary source if the primary fails.
	ModeAuto Mode = "auto"
	// ModeFallback skips the primary aggregator entirely.
	ModeFallback Mode = "fallback"
)

// Result reports what one Poll invocation did. When a cycle was already in
// flight, Ran is false and Wait is the suggested re-poll delay; suppression
// is not an error.
type Result struct {
	Wait time.Duration
	Ran  bool
}

type Options struct {
	Mode         Mode
	MinWait      time.Duration
	DefaultWait  time.Duration
	SampleWindow int
}

// Poller is the tracking state machine. One instance per process; all state
// is explicit here so independent instances can coexist in tests.
type Poller struct {
	finder *upstream.Finder
	client *upstream.Client
	reg    *registry.Registry
	writer *archive.Writer
	blobs  blob.Store

	mode         Mode
	minWait      time.Duration
	defaultWait  time.Duration
	sampleWindow int

	mu                sync.Mutex
	running           bool
	joinRates         []float64 // observed ms per client join, bounded window
	lastLobbies       []upstream.Lobby
	lastFallbackFetch time.Time
}

func NewPoller(finder *upstream.Finder, client *upstream.Client, reg *registry.Registry,
	writer *archive.Writer, blobs blob.Store, opts Options) *Poller {
	if opts.Mode == "" {
		opts.Mode = ModeAuto
	}
	if opts.MinWait <= 0 {
		opts.MinWait = 500 * time.Millisecond
	}
	if opts.DefaultWait <= 0 {
		opts.DefaultWait = 30 * time.Second
	}
	if opts.SampleWindow <= 0 {
		opts.SampleWindow = 20
	}
	return &Poller{
		finder:       finder,
		client:       client,
		reg:          reg,
		writer:       writer,
		blobs:        blobs,
		mode:         opts.Mode,
		minWait:      opts.MinWait,
		defaultWait:  opts.DefaultWait,
		sampleWindow: opts.SampleWindow,
	}
}

// Start restores persisted heuristic state and runs poll cycles until the
// context is cancelled, sleeping the adaptive wait between cycles.
func (p *Poller) Start(ctx context.Context) {
	p.restoreState(ctx)
	go func() {
		timer := time.NewTimer(0)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			res := p.Poll(ctx)
			timer.Reset(res.Wait)
		}
	}()
}

// Poll runs one cycle. If a cycle is already in flight it suggests a wait
// from the most recent lobby state instead of starting a second one.
func (p *Poller) Poll(ctx context.Context) Result {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		wait := p.SuggestWait()
		log.Debug().Dur("wait", wait).Msg("poll suppressed, cycle in flight")
		return Result{Wait: wait, Ran: false}
	}
	p.running = true
	p.mu.Unlock()

	started := time.Now()
	cycleID := newCycleID()
	logger := log.With().Str("cycle_id", cycleID).Logger()
	logger.Debug().Msg("cycle_start")

	lobbies := p.runCycle(ctx, logger)

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.persistState(ctx)
	wait := p.waitEstimate(lobbies, time.Since(started))
	logger.Info().Dur("elapsed", time.Since(started)).Dur("next_wait", wait).Msg("cycle_end")
	return Result{Wait: wait, Ran: true}
}

// SuggestWait estimates the next poll delay from the most recent lobby
// snapshot without running a cycle, for callers that schedule polling
// externally.
func (p *Poller) SuggestWait() time.Duration {
	p.mu.Lock()
	lobbies := p.lastLobbies
	p.mu.Unlock()
	return p.waitEstimate(lobbies, 0)
}

// runCycle performs discovery, registry merge, per-game polling and archival.
// It never panics the process: every failure is logged and the cycle ends.
func (p *Poller) runCycle(ctx context.Context, logger zerolog.Logger) []upstream.Lobby {
	discovered, lobbies := p.discover(ctx, logger)

	for _, d := range discovered {
		if err := p.reg.Add(ctx, d.GameID, d.Shard); err != nil {
			logger.Error().Err(err).Str("game_id", d.GameID).Msg("registry add failed")
		}
	}

	entries, err := p.reg.Snapshot(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("registry snapshot failed, skipping cycle")
		return lobbies
	}

	finished := []archive.FinishedGame{}
	pruned := []string{}
	for _, entry := range entries {
		rec, err := p.client.GameRecord(ctx, entry.GameID, entry.Shard)
		switch {
		case errors.Is(err, upstream.ErrGameNotFound):
			pruned = append(pruned, entry.GameID)
		case err != nil:
			// Transient: leave the entry for the next cycle.
			logger.Warn().Err(err).Str("game_id", entry.GameID).Msg("game lookup failed")
		case rec.Finished():
			finished = append(finished, archive.FinishedGame{
				GameID:  entry.GameID,
				End:     rec.End,
				MapType: rec.GameMap,
			})
		}
	}

	if len(finished) > 0 {
		if err := p.writer.Archive(ctx, finished); err != nil {
			// Entries stay registered and are re-archived next cycle; the
			// writer dedups replays of partitions that did land.
			logger.Error().Err(err).Msg("archive failed")
		} else {
			logger.Info().Int("count", len(finished)).Msg("archived")
			for _, g := range finished {
				if err := p.reg.Remove(ctx, g.GameID); err != nil {
					logger.Error().Err(err).Str("game_id", g.GameID).Msg("registry remove failed")
				}
			}
		}
	}
	for _, id := range pruned {
		logger.Info().Str("game_id", id).Msg("game_pruned")
		if err := p.reg.Remove(ctx, id); err != nil {
			logger.Error().Err(err).Str("game_id", id).Msg("registry remove failed")
		}
	}

	p.recordSamples(lobbies)
	return lobbies
}

// discover returns newly observed games plus the lobby snapshot feeding the
// wait heuristic. In auto mode a primary failure falls back once to the
// secondary source; fallback results carry no fill data.
func (p *Poller) discover(ctx context.Context, logger zerolog.Logger) ([]upstream.DiscoveredLobby, []upstream.Lobby) {
	if p.mode == ModeAuto {
		discovered, err := p.finder.Discover(ctx)
		if err == nil {
			lobbies := make([]upstream.Lobby, 0, len(discovered))
			for _, d := range discovered {
				lobbies = append(lobbies, d.Lobby)
			}
			p.mu.Lock()
			p.lastLobbies = lobbies
			p.mu.Unlock()
			return discovered, lobbies
		}
		logger.Warn().Err(err).Msg("primary discovery failed, trying fallback")
	}

	discovered, err := p.finder.DiscoverFallback(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("fallback discovery failed")
		return nil, nil
	}
	p.mu.Lock()
	p.lastFallbackFetch = time.Now()
	p.mu.Unlock()
	return discovered, nil
}
