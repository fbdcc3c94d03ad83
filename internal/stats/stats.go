// Package stats computes spawn-location statistics across archived games by
// replaying their records from the upstream archive.
package stats

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"openfront-tracker/internal/archive"
	"openfront-tracker/internal/heatmap"
	"openfront-tracker/internal/upstream"
)

// StatType names one supported aggregation.
type StatType string

const (
	StatHeatmap StatType = "heatmap"
	StatAverage StatType = "avrg"
)

// Progress reports how far a long-running aggregation has come; sent after
// every processed game.
type Progress struct {
	Processed int
	Total     int
}

// HeatmapResult is a finished rasterization for one map.
type HeatmapResult struct {
	MapName string
	Width   int
	Height  int
	Points  []heatmap.Point
	// RGBA is the rendered width*height*4 buffer.
	RGBA []byte
}

// AverageResult is the mean spawn position across all sampled games.
type AverageResult struct {
	MapName string
	X       float64
	Y       float64
	Samples int
}

type Service struct {
	query  *archive.Query
	client *upstream.Client
	radius float64
}

func NewService(query *archive.Query, client *upstream.Client) *Service {
	return &Service{query: query, client: client, radius: 20}
}

// spawnPoints walks every archived game on the given map, pulls its record
// from the upstream archive and extracts spawn coordinates. With winnersOnly
// set, only spawns of clients listed in the record's winner array count.
// Games whose record cannot be fetched are skipped; a partial heatmap beats
// none.
func (s *Service) spawnPoints(ctx context.Context, mapName string, winnersOnly bool, onProgress func(Progress)) ([]heatmap.Point, *upstream.MapManifest, error) {
	manifest, err := s.client.MapManifest(ctx, mapName)
	if err != nil {
		return nil, nil, fmt.Errorf("map manifest: %w", err)
	}

	entries, err := s.query.AllGameIDs(ctx)
	if err != nil {
		return nil, nil, err
	}
	games := []string{}
	for _, e := range entries {
		if e.MapType == mapName {
			games = append(games, e.GameID)
		}
	}

	points := []heatmap.Point{}
	for i, gameID := range games {
		rec, err := s.client.ArchivedGame(ctx, gameID, upstream.ShardUnknown)
		if err != nil {
			log.Warn().Err(err).Str("game_id", gameID).Msg("archived game fetch failed")
		} else {
			points = append(points, extractSpawns(rec, manifest.Width, winnersOnly)...)
		}
		if onProgress != nil {
			onProgress(Progress{Processed: i + 1, Total: len(games)})
		}
	}
	return points, manifest, nil
}

// extractSpawns keeps each client's last spawn intent, then maps it to image
// coordinates. The record's winner array mixes a win-kind tag with client
// IDs, so winner membership is checked directly against the intent's client
// ID; a winnersOnly pass over a record with no recorded winner yields
// nothing.
func extractSpawns(rec *upstream.ArchivedRecord, mapWidth int, winnersOnly bool) []heatmap.Point {
	winners := map[string]struct{}{}
	if winnersOnly {
		for _, w := range rec.Info.Winner {
			winners[w] = struct{}{}
		}
		if len(winners) == 0 {
			return nil
		}
	}

	lastByClient := map[string]upstream.Intent{}
	order := []string{}
	for _, turn := range rec.Turns {
		for _, intent := range turn.Intents {
			if intent.Type != "spawn" {
				continue
			}
			if winnersOnly {
				if _, won := winners[intent.ClientID]; !won {
					continue
				}
			}
			if _, seen := lastByClient[intent.ClientID]; !seen {
				order = append(order, intent.ClientID)
			}
			lastByClient[intent.ClientID] = intent
		}
	}

	points := []heatmap.Point{}
	for _, clientID := range order {
		intent := lastByClient[clientID]
		switch {
		case intent.X != nil && intent.Y != nil:
			points = append(points, heatmap.Point{X: *intent.X, Y: *intent.Y})
		case intent.Tile != nil && mapWidth > 0:
			x, y := heatmap.CoordsFromTile(*intent.Tile, mapWidth)
			points = append(points, heatmap.Point{X: float64(x), Y: float64(y)})
		}
	}
	return points
}

// MapHeatmap renders the spawn heatmap for one map.
func (s *Service) MapHeatmap(ctx context.Context, mapName string, winnersOnly bool, onProgress func(Progress)) (*HeatmapResult, error) {
	points, manifest, err := s.spawnPoints(ctx, mapName, winnersOnly, onProgress)
	if err != nil {
		return nil, err
	}
	return &HeatmapResult{
		MapName: mapName,
		Width:   manifest.Width,
		Height:  manifest.Height,
		Points:  points,
		RGBA:    heatmap.Render(manifest.Width, manifest.Height, points, s.radius),
	}, nil
}

// AverageSpawn computes the mean spawn position for one map.
func (s *Service) AverageSpawn(ctx context.Context, mapName string, winnersOnly bool, onProgress func(Progress)) (*AverageResult, error) {
	points, _, err := s.spawnPoints(ctx, mapName, winnersOnly, onProgress)
	if err != nil {
		return nil, err
	}
	res := &AverageResult{MapName: mapName, Samples: len(points)}
	if len(points) == 0 {
		return res, nil
	}
	for _, p := range points {
		res.X += p.X
		res.Y += p.Y
	}
	res.X /= float64(len(points))
	res.Y /= float64(len(points))
	return res, nil
}
