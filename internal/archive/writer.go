package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"openfront-tracker/internal/blob"
)

// FinishedGame is the writer's input: a game the poller saw transition to
// finished, with the end timestamp exactly as the upstream reported it.
type FinishedGame struct {
	GameID  string
	End     string
	MapType string
}

// Writer appends finished games to date/map-partitioned NDJSON logs. Writes
// are read-modify-write of whole partition files; the backing store has no
// partial append.
type Writer struct {
	blobs blob.Store
}

func NewWriter(blobs blob.Store) *Writer {
	return &Writer{blobs: blobs}
}

// Archive persists one poll cycle's finished games. Games are grouped by
// (end date, map type) so each partition is loaded and written once per
// cycle, and game IDs already present in a partition are not re-appended.
// Games with a missing or unparseable end timestamp are skipped with a
// warning; the caller still removes them from the registry.
func (w *Writer) Archive(ctx context.Context, finished []FinishedGame) error {
	groups := map[PartitionKey][]Entry{}
	for _, g := range finished {
		endDate, ok := endDateOf(g)
		if !ok {
			log.Warn().Str("game_id", g.GameID).Str("end", g.End).Msg("unarchivable game, bad end timestamp")
			continue
		}
		mapType := g.MapType
		if mapType == "" {
			mapType = MapTypeUnknown
		}
		key := PartitionKey{Date: endDate, MapType: mapType}
		groups[key] = append(groups[key], Entry{GameID: g.GameID, MapType: mapType})
	}

	var errs []error
	for key, entries := range groups {
		added, err := w.appendToPartition(ctx, key, entries)
		if err != nil {
			log.Error().Err(err).Str("date", key.Date).Str("map", key.MapType).Msg("partition write failed")
			errs = append(errs, fmt.Errorf("partition %s/%s: %w", key.Date, key.MapType, err))
			continue
		}
		if added > 0 {
			log.Info().Str("date", key.Date).Str("map", key.MapType).Int("added", added).Msg("archived")
		}
	}
	return errors.Join(errs...)
}

func (w *Writer) appendToPartition(ctx context.Context, key PartitionKey, entries []Entry) (int, error) {
	existing := []Entry{}
	data, err := w.blobs.Download(ctx, key.blobKey())
	switch {
	case errors.Is(err, blob.ErrNotFound):
		// First game for this partition.
	case err != nil:
		return 0, err
	default:
		existing = decodePartition(data)
	}

	present := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		present[e.GameID] = struct{}{}
	}

	added := 0
	for _, e := range entries {
		if _, dup := present[e.GameID]; dup {
			continue
		}
		present[e.GameID] = struct{}{}
		existing = append(existing, e)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := w.blobs.Upload(ctx, key.blobKey(), encodePartition(existing), ndjsonContent); err != nil {
		return 0, err
	}
	return added, nil
}

func endDateOf(g FinishedGame) (string, bool) {
	if g.End == "" {
		return "", false
	}
	ts, err := time.Parse(time.RFC3339, g.End)
	if err != nil {
		return "", false
	}
	return DateOf(ts), true
}
