// Package idgen issues snowflake identifiers for externally visible references.
package idgen

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node   *snowflake.Node
	nodeMu sync.Mutex
)

// Init sets the node id (0-1023). Each running instance needs a distinct one.
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	nodeMu.Lock()
	node = n
	nodeMu.Unlock()
	return nil
}

func current() *snowflake.Node {
	nodeMu.Lock()
	defer nodeMu.Unlock()
	if node == nil {
		node, _ = snowflake.NewNode(1)
	}
	return node
}

// Next returns a new id as a decimal string.
func Next() string {
	return current().Generate().String()
}

// NextWithPrefix returns prefix + base32 id, e.g. "PO-b8k3...".
func NextWithPrefix(prefix string) string {
	return prefix + current().Generate().Base32()
}
