package graph

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/google/uuid"
)

// maxIDAttempts bounds how often a generator is asked for an id before the
// last candidate is made unique with a numeric suffix.
const maxIDAttempts = 8

// IDGenerator produces ids for nodes and edges created during editing. Ids
// should not repeat; a generator that keeps returning taken ids gets its last
// candidate suffixed after maxIDAttempts tries.
type IDGenerator interface {
	NodeID(nodeType models.NodeType) string
	EdgeID() string
}

// ClockGenerator builds node ids as "<type>-<unix millis>", bumping the
// discriminator so that two ids from one generator never repeat even within
// the same millisecond. Edge ids are "edge-<uuid v7>".
type ClockGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewClockGenerator returns a generator reading the wall clock.
func NewClockGenerator() *ClockGenerator {
	return &ClockGenerator{now: time.Now}
}

// NodeID returns a new node id for the given type.
func (g *ClockGenerator) NodeID(nodeType models.NodeType) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	stamp := g.now().UnixMilli()
	if stamp <= g.last {
		stamp = g.last + 1
	}

	g.last = stamp

	return string(nodeType) + "-" + strconv.FormatInt(stamp, 10)
}

// EdgeID returns a new edge id.
func (g *ClockGenerator) EdgeID() string {
	return "edge-" + uuid.Must(uuid.NewV7()).String()
}

// uniqueID draws ids from next until one is free.
func uniqueID(next func() string, taken func(string) bool) string {
	var id string

	for range maxIDAttempts {
		id = next()
		if id != "" && !taken(id) {
			return id
		}
	}

	if id == "" {
		id = "id"
	}

	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", id, n)
		if !taken(candidate) {
			return candidate
		}
	}
}
