package kvstore

// Key names one logical collection inside the shared variable files. Keys are
// declared here rather than built ad hoc, so every collection the tracker
// touches is enumerable in one place.
type Key string

const (
	// KeyActiveGameIDs is the set of game IDs currently being tracked.
	KeyActiveGameIDs Key = "games.active.ids"
	// KeyActiveGameShards maps an active game ID to the shard serving it.
	KeyActiveGameShards Key = "games.active.shards"
)

func (k Key) String() string { return string(k) }
