package declare

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemIndex(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	idx := NewMemIndex()

	ok, err := idx.IsDeclared(ctx, -1001, 7)
	assert.NoError(err)
	assert.False(ok)

	assert.NoError(idx.Declare(ctx, -1001, 7))
	ok, err = idx.IsDeclared(ctx, -1001, 7)
	assert.NoError(err)
	assert.True(ok)

	// declarations are scoped per group
	ok, _ = idx.IsDeclared(ctx, -2002, 7)
	assert.False(ok)
	ok, _ = idx.IsDeclared(ctx, -1001, 8)
	assert.False(ok)

	// declaring twice is fine
	assert.NoError(idx.Declare(ctx, -1001, 7))

	assert.NoError(idx.PurgeGroup(ctx, -1001))
	ok, _ = idx.IsDeclared(ctx, -1001, 7)
	assert.False(ok)
}
