package scheduler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"openfront-tracker/internal/archive"
	"openfront-tracker/internal/blob"
	"openfront-tracker/internal/kvstore"
	"openfront-tracker/internal/registry"
	"openfront-tracker/internal/upstream"
)

type fixture struct {
	poller *Poller
	reg    *registry.Registry
	blobs  *blob.Memory
	query  *archive.Query
}

func newFixture(t *testing.T, handler http.Handler, opts Options) *fixture {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := upstream.NewClient(upstream.Config{
		BaseURL:     srv.URL,
		APIBaseURL:  srv.URL + "/apihost",
		FallbackURL: srv.URL + "/fallback",
		MaxShards:   4,
	})
	blobs := blob.NewMemory()
	reg := registry.New(kvstore.New(blobs))
	poller := NewPoller(upstream.NewFinder(client, 2), client, reg, archive.NewWriter(blobs), blobs, opts)
	return &fixture{
		poller: poller,
		reg:    reg,
		blobs:  blobs,
		query:  archive.NewQuery(blobs, "2025-07-20", 4),
	}
}

func TestCycleArchivesFinishedAndPrunesMissing(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/public_lobbies":
			fmt.Fprint(w, `{"lobbies":[]}`)
		case "/w2/api/game/abc123":
			fmt.Fprint(w, `{"info":{"end":"2025-07-20T10:00:00Z","config":{"gameMap":"Europe"}}}`)
		case "/w1/api/game/running1":
			fmt.Fprint(w, `{"info":{"config":{"gameMap":"World"}}}`)
		case "/w3/api/game/stale99":
			fmt.Fprint(w, `{"error":"Game not found"}`)
		default:
			http.NotFound(w, r)
		}
	}), Options{})
	ctx := t.Context()

	for _, e := range []registry.Entry{
		{GameID: "abc123", Shard: "2"},
		{GameID: "running1", Shard: "1"},
		{GameID: "stale99", Shard: "3"},
	} {
		if err := f.reg.Add(ctx, e.GameID, e.Shard); err != nil {
			t.Fatalf("seed registry: %v", err)
		}
	}

	res := f.poller.Poll(ctx)
	if !res.Ran {
		t.Fatal("expected cycle to run")
	}

	entries, err := f.reg.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(entries) != 1 || entries[0].GameID != "running1" {
		t.Fatalf("registry after cycle = %+v, want only running1", entries)
	}

	archived, err := f.query.GameIDs(ctx, "2025-07-20")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(archived) != 1 || archived[0].GameID != "abc123" || archived[0].MapType != "Europe" {
		t.Fatalf("archived = %+v, want abc123/Europe", archived)
	}

	// Replaying the same input must not duplicate the archive entry.
	if err := f.reg.Add(ctx, "abc123", "2"); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	f.poller.Poll(ctx)
	archived, _ = f.query.GameIDs(ctx, "2025-07-20")
	if len(archived) != 1 {
		t.Fatalf("len = %d after replay, want 1", len(archived))
	}

	// Pruned game must not appear anywhere in the archive.
	all, _ := f.query.AllGameIDs(ctx)
	for _, e := range all {
		if e.GameID == "stale99" {
			t.Fatal("pruned game leaked into archive")
		}
	}
}

func TestCycleMergesDiscoveredLobbies(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/public_lobbies":
			fmt.Fprint(w, `{"lobbies":[{"gameID":"fresh1","msUntilStart":30000,"numClients":5,"gameConfig":{"maxPlayers":50}}]}`)
		case "/w1/api/game/fresh1":
			fmt.Fprint(w, `{"info":{"config":{"gameMap":"World"}}}`)
		default:
			http.NotFound(w, r)
		}
	}), Options{})
	ctx := t.Context()

	f.poller.Poll(ctx)

	entries, err := f.reg.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(entries) != 1 || entries[0].GameID != "fresh1" || entries[0].Shard != "1" {
		t.Fatalf("entries = %+v, want fresh1 on shard 1", entries)
	}
}

func TestPrimaryFailureFallsBack(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/public_lobbies":
			http.Error(w, "down", http.StatusInternalServerError)
		case "/fallback":
			fmt.Fprint(w, `[{"game_id":"fb1"}]`)
		case "/apihost/game/fb1":
			fmt.Fprint(w, `{"info":{"config":{"gameMap":"World"}}}`)
		default:
			http.NotFound(w, r)
		}
	}), Options{})
	ctx := t.Context()

	res := f.poller.Poll(ctx)
	if !res.Ran {
		t.Fatal("expected cycle to run")
	}

	entries, err := f.reg.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(entries) != 1 || entries[0].GameID != "fb1" {
		t.Fatalf("entries = %+v, want fb1", entries)
	}
	if entries[0].Shard != upstream.ShardUnknown {
		t.Fatalf("shard = %q, want unknown", entries[0].Shard)
	}
}

func TestFallbackFailureEndsCycleCleanly(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}), Options{DefaultWait: 7 * time.Second})

	res := f.poller.Poll(t.Context())
	if !res.Ran {
		t.Fatal("cycle should still count as run")
	}
	if res.Wait != 7*time.Second {
		t.Fatalf("wait = %v, want default 7s", res.Wait)
	}
}

func TestGuardSuppressesOverlappingCycle(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/public_lobbies" {
			once.Do(func() { close(entered) })
			<-release
			fmt.Fprint(w, `{"lobbies":[]}`)
			return
		}
		http.NotFound(w, r)
	}), Options{})
	ctx := t.Context()

	done := make(chan Result)
	go func() { done <- f.poller.Poll(ctx) }()
	<-entered

	// A second invocation while the first is blocked must not run a cycle.
	res := f.poller.Poll(ctx)
	if res.Ran {
		t.Fatal("overlapping poll ran a second cycle")
	}
	if res.Wait <= 0 {
		t.Fatalf("suppressed poll returned wait %v", res.Wait)
	}

	close(release)
	first := <-done
	if !first.Ran {
		t.Fatal("first poll should have run")
	}
}

func TestTransientLookupFailureLeavesEntry(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/public_lobbies":
			fmt.Fprint(w, `{"lobbies":[]}`)
		case "/w2/api/game/flaky":
			http.Error(w, "shard overloaded", http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}), Options{})
	ctx := t.Context()

	if err := f.reg.Add(ctx, "flaky", "2"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	f.poller.Poll(ctx)

	entries, _ := f.reg.Snapshot(ctx)
	if len(entries) != 1 || entries[0].GameID != "flaky" {
		t.Fatalf("entries = %+v, transient failure must not prune", entries)
	}
}
