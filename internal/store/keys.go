package store

import (
	"fmt"

	"github.com/dailyblend/blender/internal/domain"
)

// Badger key layout:
//
//	override                    -> level reference
//	queue:MM DD                 -> level reference
//	pool:<seq hex>:<entry id>   -> JSON PoolEntry
//	seq:pool                    -> badger sequence backing pool order
const (
	keyOverride = "override"
	prefixQueue = "queue:"
	prefixPool  = "pool:"
	keyPoolSeq  = "seq:pool"
)

func queueKey(date domain.DateKey) []byte {
	return []byte(prefixQueue + date.String())
}

// poolKey orders entries by sequence; the fixed-width hex keeps byte order
// equal to numeric order.
func poolKey(seq uint64, entryID string) []byte {
	return fmt.Appendf(nil, "%s%016x:%s", prefixPool, seq, entryID)
}
