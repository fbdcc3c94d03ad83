// Package ws exposes the stats channel: a WebSocket endpoint that streams
// progress while a heatmap or stat aggregation runs, then the final result.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"openfront-tracker/internal/stats"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

type Server struct {
	stats    *stats.Service
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]bool
}

func NewServer(statsSvc *stats.Service) *Server {
	return &Server{
		stats:    statsSvc,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  map[*client]bool{},
	}
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 16)}
	s.mu.Lock()
	s.clients[c] = true
	n := len(s.clients)
	s.mu.Unlock()
	log.Debug().Int("clients", n).Msg("ws client connected")

	go s.writeLoop(c)
	s.readLoop(r.Context(), c)
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) readLoop(ctx context.Context, c *client) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		n := len(s.clients)
		s.mu.Unlock()
		log.Debug().Int("clients", n).Msg("ws client disconnected")
		safeClose(c.send)
		_ = c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var req requestMessage
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError(c, "malformed_message")
			continue
		}
		switch req.Type {
		case "getMap":
			if req.MapName == "" {
				s.sendError(c, "missing_map_name")
				continue
			}
			go s.runHeatmap(ctx, c, req.MapName, req.WinnersOnly)
		case "getStats":
			if req.MapName == "" {
				s.sendError(c, "missing_map_name")
				continue
			}
			go s.runStats(ctx, c, req.MapName, stats.StatType(req.StatType), req.WinnersOnly)
		default:
			s.sendError(c, "unknown_message_type")
		}
	}
}

func (s *Server) writeLoop(c *client) {
	for msg := range c.send {
		_ = c.conn.WriteMessage(websocket.TextMessage, msg)
	}
}

func (s *Server) runHeatmap(ctx context.Context, c *client, mapName string, winnersOnly bool) {
	res, err := s.stats.MapHeatmap(ctx, mapName, winnersOnly, func(p stats.Progress) {
		s.sendJSON(c, progressMessage{Type: "progress", Processed: p.Processed, Total: p.Total})
	})
	if err != nil {
		log.Warn().Err(err).Str("map", mapName).Msg("heatmap failed")
		s.sendError(c, "heatmap_failed")
		return
	}
	s.sendJSON(c, heatmapResultMessage{
		Type:    "result",
		Done:    true,
		MapName: res.MapName,
		Width:   res.Width,
		Height:  res.Height,
		Points:  res.Points,
		RGBA:    res.RGBA,
	})
}

func (s *Server) runStats(ctx context.Context, c *client, mapName string, statType stats.StatType, winnersOnly bool) {
	onProgress := func(p stats.Progress) {
		s.sendJSON(c, progressMessage{Type: "progress", Processed: p.Processed, Total: p.Total})
	}
	switch statType {
	case stats.StatHeatmap, "":
		s.runHeatmap(ctx, c, mapName, winnersOnly)
	case stats.StatAverage:
		res, err := s.stats.AverageSpawn(ctx, mapName, winnersOnly, onProgress)
		if err != nil {
			log.Warn().Err(err).Str("map", mapName).Msg("stat failed")
			s.sendError(c, "stat_failed")
			return
		}
		s.sendJSON(c, averageResultMessage{
			Type:    "result",
			Done:    true,
			MapName: res.MapName,
			X:       res.X,
			Y:       res.Y,
			Samples: res.Samples,
		})
	default:
		s.sendError(c, "unknown_stat_type")
	}
}

func (s *Server) sendError(c *client, code string) {
	s.sendJSON(c, errorMessage{Type: "error", Error: code})
}

func (s *Server) sendJSON(c *client, v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		return
	}
	safeSend(c.send, msg)
}

func safeClose(ch chan []byte) {
	defer func() {
		_ = recover()
	}()
	close(ch)
}

func safeSend(ch chan []byte, msg []byte) {
	defer func() {
		_ = recover()
	}()
	ch <- msg
}
