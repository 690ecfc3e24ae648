// Package knowledge is the semantic store of narrative world events.
// Events are indexed by embedding and recalled by similarity to ground
// order interpretation and generated text. The index is never
// authoritative for game state.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
)

// Event is one indexed narrative fact.
type Event struct {
	ID        string    `db:"id" json:"id"`
	CountryID int64     `db:"country_id" json:"country_id"`
	Year      int64     `db:"year" json:"year"`
	Kind      string    `db:"kind" json:"kind"`
	Text      string    `db:"text" json:"text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ScoredEvent is a query hit with its similarity score.
type ScoredEvent struct {
	Event
	Score float64 `json:"score"`
}

// Index stores events with their embeddings in SQLite and ranks queries
// by cosine similarity.
type Index struct {
	db  *sqlx.DB
	emb Embedder

	// candidateLimit caps how many recent events a query scans.
	candidateLimit int
}

// NewIndex creates the index on a shared database connection.
func NewIndex(db *sqlx.DB, emb Embedder) (*Index, error) {
	ix := &Index{db: db, emb: emb, candidateLimit: 2000}
	if err := ix.migrate(); err != nil {
		return nil, fmt.Errorf("knowledge migrate: %w", err)
	}
	return ix, nil
}

func (ix *Index) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS knowledge_events (
		id TEXT PRIMARY KEY,
		country_id INTEGER NOT NULL,
		year INTEGER NOT NULL,
		kind TEXT NOT NULL,
		text TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_knowledge_country ON knowledge_events(country_id);
	CREATE INDEX IF NOT EXISTS idx_knowledge_created ON knowledge_events(created_at);
	`
	_, err := ix.db.Exec(schema)
	return err
}

// Add indexes an event. Indexing is idempotent on the event id: a
// replayed tick re-indexing the same event is a no-op.
func (ix *Index) Add(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		return fmt.Errorf("event without id")
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	vec, err := ix.emb.Embed(ctx, ev.Text)
	if err != nil {
		return fmt.Errorf("embed event %s: %w", ev.ID, err)
	}

	_, err = ix.db.ExecContext(ctx, `INSERT OR IGNORE INTO knowledge_events
		(id, country_id, year, kind, text, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.CountryID, ev.Year, ev.Kind, ev.Text,
		encodeVector(vec), ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("index event %s: %w", ev.ID, err)
	}
	return nil
}

type candidateRow struct {
	Event
	Embedding []byte `db:"embedding"`
}

// Query returns up to k events ranked by similarity to text, score
// descending with ties broken by recency (newest wins).
func (ix *Index) Query(ctx context.Context, text string, k int) ([]ScoredEvent, error) {
	return ix.query(ctx, text, k, 0)
}

// QueryCountry is Query restricted to one country's events.
func (ix *Index) QueryCountry(ctx context.Context, countryID int64, text string, k int) ([]ScoredEvent, error) {
	return ix.query(ctx, text, k, countryID)
}

func (ix *Index) query(ctx context.Context, text string, k int, countryID int64) ([]ScoredEvent, error) {
	if k <= 0 {
		return nil, nil
	}

	qvec, err := ix.emb.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var rows []candidateRow
	if countryID != 0 {
		err = ix.db.SelectContext(ctx, &rows, `SELECT id, country_id, year,
			kind, text, embedding, created_at FROM knowledge_events
			WHERE country_id = ? ORDER BY created_at DESC LIMIT ?`,
			countryID, ix.candidateLimit)
	} else {
		err = ix.db.SelectContext(ctx, &rows, `SELECT id, country_id, year,
			kind, text, embedding, created_at FROM knowledge_events
			ORDER BY created_at DESC LIMIT ?`, ix.candidateLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}

	scored := make([]ScoredEvent, 0, len(rows))
	for i := range rows {
		scored = append(scored, ScoredEvent{
			Event: rows[i].Event,
			Score: cosineSimilarity(qvec, decodeVector(rows[i].Embedding)),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].CreatedAt.After(scored[j].CreatedAt)
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// ContextText renders query hits as a compact prompt context block.
func ContextText(events []ScoredEvent) string {
	if len(events) == 0 {
		return ""
	}
	out := "Relevant past events:\n"
	for _, ev := range events {
		out += fmt.Sprintf("- [%d] %s\n", ev.Year, ev.Text)
	}
	return out
}

// AddBestEffort indexes an event and only logs on failure. Used where
// grounding must never fail the surrounding operation.
func (ix *Index) AddBestEffort(ctx context.Context, ev Event) {
	if err := ix.Add(ctx, ev); err != nil {
		slog.Warn("knowledge index failed", "event", ev.ID, "error", err)
	}
}
