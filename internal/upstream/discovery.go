package upstream

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Finder resolves the current set of public lobbies to (game, shard) pairs.
// Shard probing for a single game is sequential, but different lobbies are
// probed in parallel up to ProbeConcurrency.
type Finder struct {
	Client           *Client
	ProbeConcurrency int
}

func NewFinder(c *Client, probeConcurrency int) *Finder {
	if probeConcurrency <= 0 {
		probeConcurrency = 10
	}
	return &Finder{Client: c, ProbeConcurrency: probeConcurrency}
}

// Discover lists public lobbies from the primary aggregator and locates the
// shard serving each one. Lobbies whose shard cannot be found within the
// probe bound are reported with ShardUnknown rather than dropped.
func (f *Finder) Discover(ctx context.Context) ([]DiscoveredLobby, error) {
	lobbies, err := f.Client.ListPublicLobbies(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]DiscoveredLobby, len(lobbies))
	var wg sync.WaitGroup
	sem := make(chan struct{}, f.ProbeConcurrency)
	for i, lobby := range lobbies {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, lobby Lobby) {
			defer wg.Done()
			defer func() { <-sem }()
			shard := ShardUnknown
			found, ok, err := f.Client.LocateShard(ctx, lobby.GameID)
			if err != nil {
				log.Warn().Err(err).Str("game_id", lobby.GameID).Msg("shard probe failed")
			} else if ok {
				shard = found
			}
			out[i] = DiscoveredLobby{Lobby: lobby, Shard: shard}
		}(i, lobby)
	}
	wg.Wait()
	return out, nil
}

// DiscoverFallback queries the secondary aggregator. The result carries no
// lobby fill data and no shard information, so it feeds the registry but not
// the wait heuristic.
func (f *Finder) DiscoverFallback(ctx context.Context) ([]DiscoveredLobby, error) {
	ids, err := f.Client.FallbackLobbies(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DiscoveredLobby, 0, len(ids))
	for _, id := range ids {
		out = append(out, DiscoveredLobby{Lobby: Lobby{GameID: id}, Shard: ShardUnknown})
	}
	return out, nil
}
