package declare

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemIndex is the process-lifetime in-memory index. Declarations are
// transient state and do not survive restart.
type MemIndex struct {
	groups *xsync.MapOf[int64, *xsync.MapOf[int64, struct{}]]
}

var _ Index = (*MemIndex)(nil)

func NewMemIndex() *MemIndex {
	return &MemIndex{
		groups: xsync.NewMapOf[int64, *xsync.MapOf[int64, struct{}]](),
	}
}

func (i *MemIndex) IsDeclared(ctx context.Context, groupID, messageID int64) (bool, error) {
	msgs, ok := i.groups.Load(groupID)
	if !ok {
		return false, nil
	}
	_, ok = msgs.Load(messageID)
	return ok, nil
}

func (i *MemIndex) Declare(ctx context.Context, groupID, messageID int64) error {
	msgs, _ := i.groups.LoadOrCompute(groupID, func() *xsync.MapOf[int64, struct{}] {
		return xsync.NewMapOf[int64, struct{}]()
	})
	msgs.Store(messageID, struct{}{})
	return nil
}

func (i *MemIndex) PurgeGroup(ctx context.Context, groupID int64) error {
	i.groups.Delete(groupID)
	return nil
}
