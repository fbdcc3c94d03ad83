// Package registry tracks the set of games currently being polled, persisted
// through the shared variable store so a restarted process resumes where the
// previous one stopped.
package registry

import (
	"context"
	"sort"

	"openfront-tracker/internal/kvstore"
	"openfront-tracker/internal/upstream"
)

// Entry is one tracked game and the shard believed to serve it.
type Entry struct {
	GameID string
	Shard  string
}

type Registry struct {
	kv *kvstore.Store
}

func New(kv *kvstore.Store) *Registry {
	return &Registry{kv: kv}
}

// Add records a game as active. Adding an already-tracked game is a no-op,
// and the first recorded shard assignment wins, so a later fallback-sourced
// "unknown" never downgrades a known shard.
func (r *Registry) Add(ctx context.Context, gameID, shard string) error {
	if shard == "" {
		shard = upstream.ShardUnknown
	}
	if err := r.kv.AddToSet(ctx, kvstore.KeyActiveGameIDs, gameID); err != nil {
		return err
	}
	return r.kv.SetInMap(ctx, kvstore.KeyActiveGameShards, gameID, shard)
}

// Remove drops a game from tracking. Removing an untracked game is a no-op.
func (r *Registry) Remove(ctx context.Context, gameID string) error {
	if err := r.kv.DeleteFromSet(ctx, kvstore.KeyActiveGameIDs, gameID); err != nil {
		return err
	}
	return r.kv.DeleteFromMap(ctx, kvstore.KeyActiveGameShards, gameID)
}

// Snapshot re-derives the current entries from the backing store. Entries are
// returned in game ID order so a cycle's processing order is stable.
func (r *Registry) Snapshot(ctx context.Context) ([]Entry, error) {
	ids, err := r.kv.GetSet(ctx, kvstore.KeyActiveGameIDs)
	if err != nil {
		return nil, err
	}
	shards, err := r.kv.GetMap(ctx, kvstore.KeyActiveGameShards)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(ids))
	for id := range ids {
		shard, ok := shards[id]
		if !ok {
			shard = upstream.ShardUnknown
		}
		entries = append(entries, Entry{GameID: id, Shard: shard})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].GameID < entries[j].GameID })
	return entries, nil
}
