package scheduler

import (
	"time"

	"openfront-tracker/internal/upstream"
)

// recordSamples folds the cycle's lobby observations into the rolling
// join-rate history. Each sample is the observed milliseconds of countdown
// per already-joined client; the window is bounded so stale traffic patterns
// age out.
func (p *Poller) recordSamples(lobbies []upstream.Lobby) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range lobbies {
		clients := l.NumClients
		if clients < 1 {
			clients = 1
		}
		p.joinRates = append(p.joinRates, float64(l.MsUntilStart)/float64(clients))
	}
	if excess := len(p.joinRates) - p.sampleWindow; excess > 0 {
		p.joinRates = p.joinRates[excess:]
	}
}

func (p *Poller) avgJoinRateMs() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.joinRates) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range p.joinRates {
		sum += r
	}
	return sum / float64(len(p.joinRates))
}

// waitEstimate picks the next poll delay: for every lobby, the sooner of its
// start countdown and its projected fill time, minimised across lobbies,
// minus the time already spent this cycle, floored at the minimum wait.
// With no lobby data it falls back to the default interval.
func (p *Poller) waitEstimate(lobbies []upstream.Lobby, elapsed time.Duration) time.Duration {
	if len(lobbies) == 0 {
		return p.defaultWait
	}
	avg := p.avgJoinRateMs()

	best := time.Duration(-1)
	consider := func(d time.Duration) {
		if d < 0 {
			return
		}
		if best < 0 || d < best {
			best = d
		}
	}
	for _, l := range lobbies {
		consider(time.Duration(l.MsUntilStart) * time.Millisecond)
		if avg > 0 && l.MaxPlayers > l.NumClients {
			fill := float64(l.MaxPlayers-l.NumClients) * avg
			consider(time.Duration(fill) * time.Millisecond)
		}
	}
	if best < 0 {
		return p.defaultWait
	}

	wait := best - elapsed
	if wait < p.minWait {
		wait = p.minWait
	}
	return wait
}
