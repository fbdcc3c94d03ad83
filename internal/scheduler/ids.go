package scheduler

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	cycleEntropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	cycleEntropyMu sync.Mutex
)

func newCycleID() string {
	cycleEntropyMu.Lock()
	defer cycleEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), cycleEntropy).String()
}
