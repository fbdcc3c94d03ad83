package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"openfront-tracker/internal/blob"
)

const stateBlobKey = "storage/poll_state.json"

// pollState is the small durable snapshot of the adaptive heuristic, so a
// restart does not begin with a cold join-rate window.
type pollState struct {
	JoinRates         []float64 `json:"joinRates"`
	LastFallbackFetch time.Time `json:"lastFallbackFetch"`
}

func (p *Poller) restoreState(ctx context.Context) {
	data, err := p.blobs.Download(ctx, stateBlobKey)
	if errors.Is(err, blob.ErrNotFound) {
		return
	}
	if err != nil {
		log.Warn().Err(err).Msg("poll state restore failed")
		return
	}
	var st pollState
	if err := json.Unmarshal(data, &st); err != nil {
		log.Warn().Err(err).Msg("poll state corrupt, starting fresh")
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.joinRates = st.JoinRates
	if len(p.joinRates) > p.sampleWindow {
		p.joinRates = p.joinRates[len(p.joinRates)-p.sampleWindow:]
	}
	p.lastFallbackFetch = st.LastFallbackFetch
}

func (p *Poller) persistState(ctx context.Context) {
	p.mu.Lock()
	st := pollState{
		JoinRates:         append([]float64(nil), p.joinRates...),
		LastFallbackFetch: p.lastFallbackFetch,
	}
	p.mu.Unlock()

	data, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := p.blobs.Upload(ctx, stateBlobKey, data, "application/json"); err != nil {
		log.Warn().Err(err).Msg("poll state persist failed")
	}
}
