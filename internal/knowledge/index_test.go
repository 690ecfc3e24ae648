package knowledge

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	db, err := sqlx.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ix, err := NewIndex(db, NewHashEmbedder(64))
	require.NoError(t, err)
	return ix
}

func TestAddIsIdempotent(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	ev := Event{ID: "e1", CountryID: 1, Year: -3000, Kind: "founding",
		Text: "Akkad is founded on the river plain"}
	require.NoError(t, ix.Add(ctx, ev))
	require.NoError(t, ix.Add(ctx, ev))

	hits, err := ix.Query(ctx, "Akkad founded", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestAddRequiresID(t *testing.T) {
	ix := openTestIndex(t)
	err := ix.Add(context.Background(), Event{Text: "anonymous event"})
	assert.Error(t, err)
}

func TestQueryRanksBySimilarity(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Add(ctx, Event{ID: "e1", CountryID: 1, Year: -3000,
		Kind: "event", Text: "drought withers the barley fields"}))
	require.NoError(t, ix.Add(ctx, Event{ID: "e2", CountryID: 1, Year: -2999,
		Kind: "event", Text: "envoys propose an alliance with Elam"}))
	require.NoError(t, ix.Add(ctx, Event{ID: "e3", CountryID: 1, Year: -2998,
		Kind: "event", Text: "the drought breaks and the fields recover"}))

	hits, err := ix.Query(ctx, "drought in the fields", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Contains(t, h.Text, "drought")
	}
}

func TestQueryTieBreaksByRecency(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := old.Add(time.Hour)

	// Identical text embeds identically, forcing a score tie.
	require.NoError(t, ix.Add(ctx, Event{ID: "old", CountryID: 1, Year: -3000,
		Kind: "event", Text: "raiders harry the borderlands", CreatedAt: old}))
	require.NoError(t, ix.Add(ctx, Event{ID: "new", CountryID: 1, Year: -2999,
		Kind: "event", Text: "raiders harry the borderlands", CreatedAt: newer}))

	hits, err := ix.Query(ctx, "raiders borderlands", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].ID)
}

func TestQueryCountryFilters(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Add(ctx, Event{ID: "a", CountryID: 1, Year: -3000,
		Kind: "event", Text: "a great temple rises in Akkad"}))
	require.NoError(t, ix.Add(ctx, Event{ID: "b", CountryID: 2, Year: -3000,
		Kind: "event", Text: "a great temple rises in Elam"}))

	hits, err := ix.QueryCountry(ctx, 2, "great temple", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].CountryID)
}

func TestContextText(t *testing.T) {
	assert.Empty(t, ContextText(nil))

	out := ContextText([]ScoredEvent{
		{Event: Event{Year: -3000, Text: "Akkad is founded"}, Score: 0.9},
	})
	assert.Contains(t, out, "[-3000] Akkad is founded")
}

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	a, err := e.Embed(context.Background(), "the harvest overflows the granaries")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "the harvest overflows the granaries")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, cosineSimilarity(a, b), 1e-6)
}
