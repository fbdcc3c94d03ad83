package archive

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"openfront-tracker/internal/blob"
)

// Query reads archived entries back out of the partition logs.
type Query struct {
	blobs blob.Store
	// Epoch is the first date the system ever tracked; AllGameIDs walks from
	// here to today.
	epoch string
	// fetchLimit bounds how many dates a range query reads concurrently.
	fetchLimit int
}

func NewQuery(blobs blob.Store, epoch string, fetchLimit int) *Query {
	if fetchLimit <= 0 {
		fetchLimit = 10
	}
	return &Query{blobs: blobs, epoch: epoch, fetchLimit: fetchLimit}
}

// GameIDs returns every archived entry for one date, across all map types.
// A date with no partitions yields an empty slice.
func (q *Query) GameIDs(ctx context.Context, date string) ([]Entry, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	keys, err := q.blobs.List(ctx, datePrefix(date))
	if err != nil {
		return nil, err
	}
	entries := []Entry{}
	for _, key := range keys {
		data, err := q.blobs.Download(ctx, key)
		if errors.Is(err, blob.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, decodePartition(data)...)
	}
	return entries, nil
}

// RangeGameIDs returns entries for every date from start to end inclusive.
// Dates are fetched concurrently with a bounded worker pool; per-date results
// are concatenated in date order. Dates are disjoint by construction, so no
// cross-date dedup is needed. A date whose read fails contributes nothing
// rather than failing the whole range.
func (q *Query) RangeGameIDs(ctx context.Context, start, end string) ([]Entry, error) {
	from, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(end)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		from, to = to, from
	}

	dates := []string{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, DateOf(d))
	}

	perDate := make([][]Entry, len(dates))
	var wg sync.WaitGroup
	sem := make(chan struct{}, q.fetchLimit)
	for i, date := range dates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, date string) {
			defer wg.Done()
			defer func() { <-sem }()
			entries, err := q.GameIDs(ctx, date)
			if err != nil {
				log.Warn().Err(err).Str("date", date).Msg("range query date failed")
				return
			}
			perDate[i] = entries
		}(i, date)
	}
	wg.Wait()

	out := []Entry{}
	for _, entries := range perDate {
		out = append(out, entries...)
	}
	return out, nil
}

// AllGameIDs returns every archived entry from the tracking epoch to today.
func (q *Query) AllGameIDs(ctx context.Context) ([]Entry, error) {
	return q.RangeGameIDs(ctx, q.epoch, DateOf(time.Now()))
}
