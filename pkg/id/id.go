// Package id generates ULID identifiers for orders, trades, and runs.
//
// ULIDs are lexicographically sortable by generation time, which makes
// them convenient for journaling and SQLite indexes.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a wall-clock ULID. Live and paper trading use this; backtest
// runs must use a Source so identical runs produce identical ids.
func New() string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), mono)
	if err != nil {
		panic(err)
	}
	return id.String()
}

// Source generates ULIDs from a fixed seed and caller-supplied timestamps.
// Two Sources with the same seed fed the same timestamps emit byte-identical
// ids, which keeps replays deterministic.
type Source struct {
	mu   sync.Mutex
	mono io.Reader
}

// NewSource creates a deterministic Source.
func NewSource(seed int64) *Source {
	return &Source{
		mono: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
	}
}

// At returns a ULID stamped with the given (simulated) time.
func (s *Source) At(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), s.mono)
	if err != nil {
		panic(err)
	}
	return id.String()
}
