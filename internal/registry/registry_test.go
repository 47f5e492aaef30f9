package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "claims.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestHas_EmptyRegistry(t *testing.T) {
	r := testRegistry(t)
	ok, err := r.Has(context.Background(), "owner/repo#1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdd_ThenHas(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, "owner/repo#1", "owner/repo"))
	ok, err := r.Has(ctx, "owner/repo#1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdd_Idempotent(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, "owner/repo#1", "owner/repo"))
	require.NoError(t, r.Add(ctx, "owner/repo#1", "owner/repo"))

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestList_NewestFirstWithLimit(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, r.Add(ctx, fmt.Sprintf("p/r#%d", i), "p/r"))
	}

	claims, err := r.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, claims, 3)
}

func TestPrune_RemovesOnlyOldClaims(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, "p/r#1", "p/r"))
	require.NoError(t, r.Add(ctx, "p/r#2", "p/r"))
	// age one claim past the retention window
	old := time.Now().UTC().AddDate(0, 0, -90)
	_, err := r.db.ExecContext(ctx,
		`UPDATE claimed_items SET claimed_at = ? WHERE item_id = ?`, old, "p/r#1")
	require.NoError(t, err)

	pruned, err := r.Prune(ctx, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	ok, err := r.Has(ctx, "p/r#1")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = r.Has(ctx, "p/r#2")
	require.NoError(t, err)
	assert.True(t, ok)
}
