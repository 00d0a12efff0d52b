package xid

import "github.com/google/uuid"

// New returns a random identifier tagged with the entity prefix, e.g. "po-6f1c...".
func New(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
