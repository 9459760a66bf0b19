//go:build integration

package storage

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.EnsureSchema(ctx))

	_, err = store.pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s", TableName))
	require.NoError(t, err)

	return store
}

func unitVector(axis int) []float32 {
	v := make([]float32, VectorDimension)
	v[axis] = 1
	return v
}

func unit(code, section, sub, text string, axis int) *LegalText {
	return &LegalText{
		Text:       text,
		Code:       code,
		Section:    section,
		SubSection: sub,
		Vector:     unitVector(axis),
	}
}

func TestUpsertBatch_Idempotent_Integration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	units := []*LegalText{
		unit("bgb", "§ 823", "1", "Erste Fassung.", 0),
		unit("bgb", "§ 823", "2", "Absatz zwei.", 1),
	}
	require.NoError(t, store.UpsertBatch(ctx, units))

	// Same citation, new text: updates in place instead of adding a row.
	updated := []*LegalText{unit("bgb", "§ 823", "1", "Zweite Fassung.", 2)}
	require.NoError(t, store.UpsertBatch(ctx, updated))

	rows, err := store.Lookup(ctx, Filter{Code: "bgb", Section: "§ 823"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Zweite Fassung.", rows[0].Text)
	assert.Equal(t, HashText("Zweite Fassung."), rows[0].TextHash)

	count, err := store.CountByCode(ctx, "bgb")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpsertBatch_DimensionMismatch_Integration(t *testing.T) {
	store := testStore(t)

	bad := &LegalText{Text: "x", Code: "bgb", Section: "§ 1", Vector: []float32{1, 2, 3}}
	err := store.UpsertBatch(context.Background(), []*LegalText{bad})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestLookup_FiltersAndOrdering_Integration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertBatch(ctx, []*LegalText{
		unit("bgb", "§ 2", "", "Volljährigkeit.", 0),
		unit("bgb", "§ 1", "", "Rechtsfähigkeit.", 1),
		unit("stgb", "§ 1", "", "Keine Strafe ohne Gesetz.", 2),
	}))

	rows, err := store.Lookup(ctx, Filter{Code: "bgb"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "§ 1", rows[0].Section)
	assert.Equal(t, "§ 2", rows[1].Section)

	rows, err = store.Lookup(ctx, Filter{Code: "bgb", Section: "§ 1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Rechtsfähigkeit.", rows[0].Text)

	// Unknown citation yields an empty, non-nil result.
	rows, err = store.Lookup(ctx, Filter{Code: "bgb", Section: "§ 999"})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	_, err = store.Lookup(ctx, Filter{Code: "bgb", SubSection: "1"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestListCodes_Integration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	codes, err := store.ListCodes(ctx)
	require.NoError(t, err)
	assert.Empty(t, codes)

	require.NoError(t, store.UpsertBatch(ctx, []*LegalText{
		unit("stgb", "§ 1", "", "a", 0),
		unit("bgb", "§ 1", "", "b", 1),
		unit("bgb", "§ 2", "", "c", 2),
	}))

	codes, err = store.ListCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bgb", "stgb"}, codes)
}

func TestSemanticSearch_Integration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertBatch(ctx, []*LegalText{
		unit("bgb", "§ 1", "", "Nah am Suchvektor.", 0),
		unit("bgb", "§ 2", "", "Orthogonal dazu.", 1),
		unit("stgb", "§ 1", "", "Anderes Gesetz, gleicher Vektor.", 0),
	}))

	// Query along axis 0: § 1 is distance 0, § 2 is distance 1.
	results, err := store.SemanticSearch(ctx, unitVector(0), "bgb", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "§ 1", results[0].Section)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-6)
	assert.Equal(t, "§ 2", results[1].Section)
	assert.InDelta(t, 1.0, results[1].Distance, 1e-6)

	// The cutoff excludes the orthogonal match.
	cutoff := 0.5
	results, err = store.SemanticSearch(ctx, unitVector(0), "bgb", 10, &cutoff)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "§ 1", results[0].Section)

	// The code filter keeps other laws out even with identical vectors.
	results, err = store.SemanticSearch(ctx, unitVector(0), "stgb", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "stgb", results[0].Code)

	// Limit caps the result set.
	results, err = store.SemanticSearch(ctx, unitVector(0), "bgb", 1, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = store.SemanticSearch(ctx, []float32{1, 2}, "bgb", 10, nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
