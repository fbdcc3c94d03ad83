package ws

import "openfront-tracker/internal/heatmap"

type requestMessage struct {
	Type     string `json:"type"`
	MapName  string `json:"mapName"`
	StatType string `json:"statType"`
	// WinnersOnly restricts the aggregation to spawns of winning clients.
	WinnersOnly bool `json:"winnersOnly"`
}

type progressMessage struct {
	Type      string `json:"type"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type heatmapResultMessage struct {
	Type    string          `json:"type"`
	Done    bool            `json:"done"`
	MapName string          `json:"mapName"`
	Width   int             `json:"width"`
	Height  int             `json:"height"`
	Points  []heatmap.Point `json:"points"`
	// RGBA is base64-encoded by the JSON marshaller.
	RGBA []byte `json:"rgba"`
}

type averageResultMessage struct {
	Type    string  `json:"type"`
	Done    bool    `json:"done"`
	MapName string  `json:"mapName"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Samples int     `json:"samples"`
}
