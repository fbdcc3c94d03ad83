package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"openfront-tracker/internal/blob"
)

const (
	setsBlobKey = "storage/sets.json"
	mapsBlobKey = "storage/maps.json"

	jsonContentType = "application/json"
)

// Store multiplexes named sets and maps into two shared blob files. Every
// mutation is a full read-modify-write against the backing store; there is no
// cross-process cache coherence beyond that.
type Store struct {
	blobs blob.Store
}

func New(blobs blob.Store) *Store {
	return &Store{blobs: blobs}
}

type setsFile map[string][]string
type mapsFile map[string]map[string]string

func (s *Store) loadSets(ctx context.Context) (setsFile, error) {
	data, err := s.blobs.Download(ctx, setsBlobKey)
	if errors.Is(err, blob.ErrNotFound) {
		return setsFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", setsBlobKey, err)
	}
	var f setsFile
	if err := json.Unmarshal(data, &f); err != nil {
		log.Warn().Err(err).Str("blob", setsBlobKey).Msg("corrupt sets file, starting empty")
		return setsFile{}, nil
	}
	return f, nil
}

func (s *Store) flushSets(ctx context.Context, f setsFile) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return s.blobs.Upload(ctx, setsBlobKey, data, jsonContentType)
}

func (s *Store) loadMaps(ctx context.Context) (mapsFile, error) {
	data, err := s.blobs.Download(ctx, mapsBlobKey)
	if errors.Is(err, blob.ErrNotFound) {
		return mapsFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", mapsBlobKey, err)
	}
	var f mapsFile
	if err := json.Unmarshal(data, &f); err != nil {
		log.Warn().Err(err).Str("blob", mapsBlobKey).Msg("corrupt maps file, starting empty")
		return mapsFile{}, nil
	}
	return f, nil
}

func (s *Store) flushMaps(ctx context.Context, f mapsFile) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return s.blobs.Upload(ctx, mapsBlobKey, data, jsonContentType)
}

// GetSet returns the members of the named set. An absent set is empty, not an
// error.
func (s *Store) GetSet(ctx context.Context, key Key) (map[string]struct{}, error) {
	f, err := s.loadSets(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(f[key.String()]))
	for _, v := range f[key.String()] {
		out[v] = struct{}{}
	}
	return out, nil
}

// AddToSet adds value to the named set and persists before returning. Adding
// an existing member is a no-op and skips the write.
func (s *Store) AddToSet(ctx context.Context, key Key, value string) error {
	f, err := s.loadSets(ctx)
	if err != nil {
		return err
	}
	members := f[key.String()]
	for _, m := range members {
		if m == value {
			return nil
		}
	}
	f[key.String()] = append(members, value)
	sort.Strings(f[key.String()])
	return s.flushSets(ctx, f)
}

// DeleteFromSet removes value from the named set. Removing an absent member
// is a no-op and skips the write.
func (s *Store) DeleteFromSet(ctx context.Context, key Key, value string) error {
	f, err := s.loadSets(ctx)
	if err != nil {
		return err
	}
	members := f[key.String()]
	kept := members[:0]
	dirty := false
	for _, m := range members {
		if m == value {
			dirty = true
			continue
		}
		kept = append(kept, m)
	}
	if !dirty {
		return nil
	}
	f[key.String()] = kept
	return s.flushSets(ctx, f)
}

// GetMap returns the named map. An absent map is empty, not an error.
func (s *Store) GetMap(ctx context.Context, key Key) (map[string]string, error) {
	f, err := s.loadMaps(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(f[key.String()]))
	for k, v := range f[key.String()] {
		out[k] = v
	}
	return out, nil
}

// SetInMap inserts mapKey=value into the named map if mapKey is absent. An
// existing mapKey keeps its value: first write wins, so a shard assignment
// from discovery is never clobbered by a later fallback-sourced "unknown".
func (s *Store) SetInMap(ctx context.Context, key Key, mapKey, value string) error {
	f, err := s.loadMaps(ctx)
	if err != nil {
		return err
	}
	m := f[key.String()]
	if m == nil {
		m = map[string]string{}
		f[key.String()] = m
	}
	if _, exists := m[mapKey]; exists {
		return nil
	}
	m[mapKey] = value
	return s.flushMaps(ctx, f)
}

// DeleteFromMap removes mapKey from the named map. Absent keys are a no-op.
func (s *Store) DeleteFromMap(ctx context.Context, key Key, mapKey string) error {
	f, err := s.loadMaps(ctx)
	if err != nil {
		return err
	}
	m := f[key.String()]
	if m == nil {
		return nil
	}
	if _, exists := m[mapKey]; !exists {
		return nil
	}
	delete(m, mapKey)
	return s.flushMaps(ctx, f)
}
