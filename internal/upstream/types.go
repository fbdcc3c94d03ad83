package upstream

// ShardUnknown marks a game discovered through a source that does not report
// which worker hosts it.
const ShardUnknown = "unknown"

// Lobby is one pre-game waiting room as reported by the public lobby list.
type Lobby struct {
	GameID       string
	MsUntilStart int64
	NumClients   int
	MaxPlayers   int
}

// DiscoveredLobby is a lobby together with the shard that answered for it.
type DiscoveredLobby struct {
	Lobby
	Shard string
}

// GameRecord is the live record for one game. End is the raw reported end
// timestamp, empty while the game is still running; parsing is the archival
// writer's concern.
type GameRecord struct {
	End     string
	GameMap string
}

// Finished reports whether the upstream record carries an end timestamp.
func (r *GameRecord) Finished() bool { return r.End != "" }

// MapManifest describes a game map's raster dimensions.
type MapManifest struct {
	Name   string
	Width  int
	Height int
}

type lobbiesResponse struct {
	Lobbies []lobbyJSON `json:"lobbies"`
}

type lobbyJSON struct {
	GameID       string `json:"gameID"`
	MsUntilStart int64  `json:"msUntilStart"`
	NumClients   int    `json:"numClients"`
	GameConfig   struct {
		MaxPlayers int `json:"maxPlayers"`
	} `json:"gameConfig"`
}

type gameResponse struct {
	Info struct {
		End    string `json:"end"`
		Config struct {
			GameMap string `json:"gameMap"`
		} `json:"config"`
	} `json:"info"`
	Error string `json:"error"`
}

type fallbackLobbyJSON struct {
	GameID string `json:"game_id"`
}

type archivedGameResponse struct {
	Exists     bool            `json:"exists"`
	GameRecord *ArchivedRecord `json:"gameRecord"`
}

// ArchivedRecord is the replay payload for a finished game: enough of the
// turn/intent structure to extract spawn events.
type ArchivedRecord struct {
	Turns []Turn `json:"turns"`
	Info  struct {
		Winner []string `json:"winner"`
	} `json:"info"`
}

type Turn struct {
	Intents []Intent `json:"intents"`
}

// Intent is one client action inside a turn. Spawn intents carry either a
// flat tile index or explicit coordinates.
type Intent struct {
	Type     string   `json:"type"`
	ClientID string   `json:"clientID"`
	Tile     *int     `json:"tile"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
}
