package utilities

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// IDGenerator hands out snowflake IDs from a single node. A generator whose
// node could not be created falls back to KSUIDs so callers always get an ID.
type IDGenerator struct {
	once   sync.Once
	nodeID int64
	node   *snowflake.Node
}

// NewIDGenerator returns a generator for the given snowflake node (0-1023).
func NewIDGenerator(nodeID int64) *IDGenerator {
	return &IDGenerator{nodeID: nodeID}
}

// NewID returns the next ID as a string.
func (g *IDGenerator) NewID() string {
	g.once.Do(func() {
		node, err := snowflake.NewNode(g.nodeID)
		if err == nil {
			g.node = node
		}
	})
	if g.node == nil {
		return NewKSUID()
	}
	return g.node.Generate().String()
}
