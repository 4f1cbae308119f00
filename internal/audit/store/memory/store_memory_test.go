package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelock/internal/audit"
	"carelock/internal/domain"
)

func TestSearchNewestFirstWithLimit(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Append(ctx, domain.AuditEntry{ID: id, ActorID: "doc-1"}))
	}

	got, err := store.Search(ctx, audit.Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestSearchAppliesFilter(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, domain.AuditEntry{ID: "a", ActorID: "doc-1"}))
	require.NoError(t, store.Append(ctx, domain.AuditEntry{ID: "b", ActorID: "doc-2"}))

	got, err := store.Search(ctx, audit.Filter{ActorID: "doc-2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestClear(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Append(context.Background(), domain.AuditEntry{ID: "a"}))
	store.Clear()
	assert.Empty(t, store.All())
}
