package main

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"openfront-tracker/internal/archive"
	"openfront-tracker/internal/blob"
	"openfront-tracker/internal/config"
	"openfront-tracker/internal/kvstore"
	"openfront-tracker/internal/logging"
	"openfront-tracker/internal/registry"
	"openfront-tracker/internal/scheduler"
	"openfront-tracker/internal/stats"
	"openfront-tracker/internal/upstream"
	"openfront-tracker/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	cfg, err := config.LoadApp()
	if err != nil {
		log.Fatal().Err(err).Msg("load config failed")
	}

	ctx := context.Background()
	blobs, err := newBlobStore(ctx, cfg.Server)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Server.BlobBackend).Msg("blob store init failed")
	}

	client := upstream.NewClient(upstream.Config{
		BaseURL:     cfg.Tracker.UpstreamBaseURL,
		APIBaseURL:  cfg.Tracker.UpstreamAPIURL,
		FallbackURL: cfg.Tracker.FallbackURL,
		MaxShards:   cfg.Tracker.MaxShards,
		Timeout:     cfg.Tracker.UpstreamTimeout,
	})
	finder := upstream.NewFinder(client, cfg.Tracker.ProbeConcurrency)

	kv := kvstore.New(blobs)
	reg := registry.New(kv)
	writer := archive.NewWriter(blobs)
	query := archive.NewQuery(blobs, cfg.Tracker.ArchiveEpoch, cfg.Tracker.RangeFetchLimit)

	poller := scheduler.NewPoller(finder, client, reg, writer, blobs, scheduler.Options{
		Mode:         scheduler.Mode(cfg.Tracker.PollMode),
		MinWait:      cfg.Tracker.MinWait,
		DefaultWait:  cfg.Tracker.DefaultWait,
		SampleWindow: cfg.Tracker.SampleWindow,
	})
	poller.Start(ctx)

	statsSvc := stats.NewService(query, client)
	wsSrv := ws.NewServer(statsSvc)

	r := newRouter(query, client, wsSrv)
	logRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}

func newBlobStore(ctx context.Context, cfg config.ServerConfig) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "", "memory":
		return blob.NewMemory(), nil
	case "gcs":
		return blob.NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON)
	case "postgres":
		return blob.NewPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func logRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
