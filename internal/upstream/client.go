package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrGameNotFound means the upstream definitively does not know the game, as
// opposed to a transient failure. Callers prune on this error and retry on
// anything else.
var ErrGameNotFound = errors.New("game not found")

// Client talks to the game server's public HTTP API: the lobby aggregator,
// the numbered worker shards, and the secondary lobby source.
type Client struct {
	httpc       *http.Client
	baseURL     string
	apiBaseURL  string
	fallbackURL string
	maxShards   int
}

type Config struct {
	BaseURL     string
	APIBaseURL  string
	FallbackURL string
	MaxShards   int
	Timeout     time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.MaxShards <= 0 {
		cfg.MaxShards = 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		httpc:       &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiBaseURL:  strings.TrimRight(cfg.APIBaseURL, "/"),
		fallbackURL: strings.TrimRight(cfg.FallbackURL, "/"),
		maxShards:   cfg.MaxShards,
	}
}

func (c *Client) MaxShards() int { return c.maxShards }

func (c *Client) getJSON(ctx context.Context, url string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, nil
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", url, err)
	}
	return resp.StatusCode, nil
}

// ListPublicLobbies fetches the current public lobbies from the primary
// aggregator.
func (c *Client) ListPublicLobbies(ctx context.Context) ([]Lobby, error) {
	var body lobbiesResponse
	status, err := c.getJSON(ctx, c.baseURL+"/api/public_lobbies", &body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("public_lobbies: status %d", status)
	}
	out := make([]Lobby, 0, len(body.Lobbies))
	for _, l := range body.Lobbies {
		out = append(out, Lobby{
			GameID:       l.GameID,
			MsUntilStart: l.MsUntilStart,
			NumClients:   l.NumClients,
			MaxPlayers:   l.GameConfig.MaxPlayers,
		})
	}
	return out, nil
}

// FallbackLobbies queries the secondary aggregator, which reports game IDs
// without shard information.
func (c *Client) FallbackLobbies(ctx context.Context) ([]string, error) {
	var body []fallbackLobbyJSON
	status, err := c.getJSON(ctx, c.fallbackURL, &body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fallback lobbies: status %d", status)
	}
	ids := make([]string, 0, len(body))
	for _, l := range body {
		if l.GameID != "" {
			ids = append(ids, l.GameID)
		}
	}
	return ids, nil
}

// LocateShard probes shards 0..maxShards-1 in order and returns the first one
// that answers 200 for the game. A miss after the full bound is not an error.
func (c *Client) LocateShard(ctx context.Context, gameID string) (string, bool, error) {
	for i := 0; i < c.maxShards; i++ {
		status, err := c.getJSON(ctx, fmt.Sprintf("%s/w%d/api/game/%s", c.baseURL, i, gameID), nil)
		if err != nil {
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			continue
		}
		if status == http.StatusOK {
			return fmt.Sprintf("%d", i), true, nil
		}
	}
	return "", false, nil
}

// GameRecord fetches the live record for a game. A known shard is queried
// directly; an unknown shard goes through the aggregated game API. Returns
// ErrGameNotFound when the upstream definitively reports the game missing.
func (c *Client) GameRecord(ctx context.Context, gameID, shard string) (*GameRecord, error) {
	url := fmt.Sprintf("%s/game/%s", c.apiBaseURL, gameID)
	if shard != "" && shard != ShardUnknown {
		url = fmt.Sprintf("%s/w%s/api/game/%s", c.baseURL, shard, gameID)
	}
	var body gameResponse
	status, err := c.getJSON(ctx, url, &body)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, ErrGameNotFound
	case status != http.StatusOK:
		return nil, fmt.Errorf("game %s: status %d", gameID, status)
	}
	if strings.Contains(strings.ToLower(body.Error), "not found") {
		return nil, ErrGameNotFound
	}
	return &GameRecord{End: body.Info.End, GameMap: body.Info.Config.GameMap}, nil
}

// ArchivedGame fetches a finished game's replay from its shard.
func (c *Client) ArchivedGame(ctx context.Context, gameID, shard string) (*ArchivedRecord, error) {
	if shard == "" || shard == ShardUnknown {
		shard = "0"
	}
	var body archivedGameResponse
	status, err := c.getJSON(ctx, fmt.Sprintf("%s/w%s/api/archived_game/%s", c.baseURL, shard, gameID), &body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrGameNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("archived_game %s: status %d", gameID, status)
	}
	if !body.Exists || body.GameRecord == nil {
		return nil, ErrGameNotFound
	}
	return body.GameRecord, nil
}

// MapManifest fetches the raster manifest for a named map.
func (c *Client) MapManifest(ctx context.Context, mapName string) (*MapManifest, error) {
	var body struct {
		Map struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"map"`
	}
	status, err := c.getJSON(ctx, fmt.Sprintf("%s/maps/%s/manifest.json", c.baseURL, mapName), &body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("manifest %s: status %d", mapName, status)
	}
	if body.Map.Width <= 0 {
		return nil, fmt.Errorf("manifest %s: invalid width", mapName)
	}
	return &MapManifest{Name: mapName, Width: body.Map.Width, Height: body.Map.Height}, nil
}

// PlayerRecord fetches the raw player API response for pass-through serving.
func (c *Client) PlayerRecord(ctx context.Context, playerID string) (status int, contentType string, body []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/player/%s", c.apiBaseURL, playerID), nil)
	if err != nil {
		return 0, "", nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, "", nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", nil, err
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	return resp.StatusCode, ct, data, nil
}
