// Package declare tracks which messages sibling agents have already
// claimed, enforcing at-most-once remediation across the swarm. Entries
// arrive from the shared declaration bus; this package never produces them.
package declare

import (
	"context"
)

// Index is the read/ingest surface for declarations.
type Index interface {
	// IsDeclared reports whether any sibling has claimed the message.
	IsDeclared(ctx context.Context, groupID, messageID int64) (bool, error)
	// Declare records an inbound declaration event.
	Declare(ctx context.Context, groupID, messageID int64) error
	// PurgeGroup drops all declarations for a group, e.g. after leaving it.
	PurgeGroup(ctx context.Context, groupID int64) error
}
