package engine

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// RetentionKey identifies one group message scheduled for delayed cleanup.
type RetentionKey struct {
	GroupID   int64
	MessageID int64
}

// Retention records sticker/animation/dice messages that passed
// classification, for later bulk deletion by an external scheduler.
// Insertion here is the only state mutation on the allowed path.
type Retention struct {
	entries *xsync.MapOf[RetentionKey, int64]
}

func NewRetention() *Retention {
	return &Retention{
		entries: xsync.NewMapOf[RetentionKey, int64](),
	}
}

// Record notes the message with its receipt time. Re-recording the same
// message keeps the earliest timestamp so repeated classification stays
// idempotent.
func (r *Retention) Record(groupID, messageID, when int64) {
	key := RetentionKey{GroupID: groupID, MessageID: messageID}
	r.entries.LoadOrStore(key, when)
}

// DrainBefore removes and returns every entry recorded at or before the
// cutoff, grouped by group id. The external scheduler calls this
// periodically.
func (r *Retention) DrainBefore(cutoff int64) map[int64][]int64 {
	out := make(map[int64][]int64)
	r.entries.Range(func(key RetentionKey, when int64) bool {
		if when <= cutoff {
			out[key.GroupID] = append(out[key.GroupID], key.MessageID)
			r.entries.Delete(key)
		}
		return true
	})
	return out
}

// Len reports the number of pending entries.
func (r *Retention) Len() int {
	return r.entries.Size()
}
