// Package store provides SQLite-backed durable storage for the world
// state: countries, projects, relations, the world clock and the action
// audit log. The resolution engine is the only writer; all writes go
// through optimistic revision checks or the single tick transaction.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"ancientworld/internal/world"
)

// Store wraps a SQLite connection for world state persistence.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single writer keeps the optimistic revision checks meaningful and
	// avoids SQLITE_BUSY churn under concurrent resolves.
	conn.SetMaxOpenConns(1)

	s := &Store{db: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for collaborators that share the
// database file (the knowledge index keeps its own table).
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS countries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id INTEGER NOT NULL UNIQUE,
		owner_name TEXT NOT NULL,
		name TEXT NOT NULL COLLATE NOCASE,
		population INTEGER NOT NULL,
		treasury INTEGER NOT NULL,
		stability INTEGER NOT NULL,
		military INTEGER NOT NULL,
		territory INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		problems_json TEXT NOT NULL DEFAULT '[]',
		revision INTEGER NOT NULL DEFAULT 1,
		updated_year INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		country_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		cost INTEGER NOT NULL,
		progress INTEGER NOT NULL,
		threshold INTEGER NOT NULL,
		increment INTEGER NOT NULL,
		effect_json TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL,
		started_year INTEGER NOT NULL,
		completed_year INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS relations (
		from_id INTEGER NOT NULL,
		to_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		proposed_year INTEGER NOT NULL,
		expires_year INTEGER NOT NULL DEFAULT 0,
		resolved_year INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (from_id, to_id)
	);

	CREATE TABLE IF NOT EXISTS relation_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_id INTEGER NOT NULL,
		to_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		year INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		country_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		detail TEXT NOT NULL,
		year INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_country ON projects(country_id);
	CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
	CREATE INDEX IF NOT EXISTS idx_relations_to ON relations(to_id);
	CREATE INDEX IF NOT EXISTS idx_actions_country ON actions(country_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// rowCountry carries the JSON-encoded columns alongside the domain type.
type rowCountry struct {
	world.Country
	ProblemsJSON string `db:"problems_json"`
}

func (r *rowCountry) toDomain() (*world.Country, error) {
	c := r.Country
	if r.ProblemsJSON != "" {
		if err := json.Unmarshal([]byte(r.ProblemsJSON), &c.Problems); err != nil {
			return nil, fmt.Errorf("decode problems: %w", err)
		}
	}
	return &c, nil
}

const countryCols = `id, owner_id, owner_name, name, population, treasury,
	stability, military, territory, description, problems_json, revision,
	updated_year, created_at`

// CreateCountry inserts a new country with revision 1. Each owner may
// rule at most one country; a second registration fails with
// ErrDuplicateOwner.
func (s *Store) CreateCountry(ctx context.Context, c *world.Country) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Revision = 1
	problems, err := json.Marshal(problemsOrEmpty(c.Problems))
	if err != nil {
		return fmt.Errorf("encode problems: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO countries
		(owner_id, owner_name, name, population, treasury, stability,
		 military, territory, description, problems_json, revision,
		 updated_year, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.OwnerID, c.OwnerName, c.Name, c.Population, c.Treasury,
		c.Stability, c.Military, c.Territory, c.Description,
		string(problems), c.Revision, c.UpdatedYear, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return world.ErrDuplicateOwner
		}
		return fmt.Errorf("insert country: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("country id: %w", err)
	}
	c.ID = id
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func problemsOrEmpty(p []string) []string {
	if p == nil {
		return []string{}
	}
	return p
}

// GetCountry fetches one country by id.
func (s *Store) GetCountry(ctx context.Context, id int64) (*world.Country, error) {
	return s.getCountry(ctx, "SELECT "+countryCols+" FROM countries WHERE id = ?", id)
}

// GetCountryByOwner fetches the country ruled by the given owner.
func (s *Store) GetCountryByOwner(ctx context.Context, ownerID int64) (*world.Country, error) {
	return s.getCountry(ctx, "SELECT "+countryCols+" FROM countries WHERE owner_id = ?", ownerID)
}

// GetCountryByName fetches a country by name, case-insensitively. Used
// by the interpreter to resolve targets named in free text.
func (s *Store) GetCountryByName(ctx context.Context, name string) (*world.Country, error) {
	return s.getCountry(ctx, "SELECT "+countryCols+" FROM countries WHERE name = ?", name)
}

func (s *Store) getCountry(ctx context.Context, query string, arg any) (*world.Country, error) {
	var row rowCountry
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, world.ErrNotFound
		}
		return nil, fmt.Errorf("get country: %w", err)
	}
	return row.toDomain()
}

// ListCountries returns every country, ordered by id.
func (s *Store) ListCountries(ctx context.Context) ([]world.Country, error) {
	var rows []rowCountry
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+countryCols+" FROM countries ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	out := make([]world.Country, 0, len(rows))
	for i := range rows {
		c, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// Mutation is one all-or-nothing state change produced by resolving a
// player action. Country is required and written under an optimistic
// revision guard; everything else rides in the same transaction.
type Mutation struct {
	Country          *world.Country
	ExpectedRevision int64

	// Counterpart is the other side of a cross-country action (attack).
	Counterpart         *world.Country
	CounterpartRevision int64

	NewProjects []world.Project
	Relations   []world.Relation
	History     []world.RelationEvent
	Audit       *world.ActionRecord
}

// Apply commits a mutation transactionally. It fails with
// ErrStaleRevision when either revision guard misses, leaving the store
// untouched; the caller re-fetches and retries up to its bound.
func (s *Store) Apply(ctx context.Context, m Mutation) error {
	if m.Country == nil {
		return errors.New("mutation without country")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := updateCountryGuarded(ctx, tx, m.Country, m.ExpectedRevision); err != nil {
		return err
	}
	if m.Counterpart != nil {
		if err := updateCountryGuarded(ctx, tx, m.Counterpart, m.CounterpartRevision); err != nil {
			return err
		}
	}
	for i := range m.NewProjects {
		if err := insertProject(ctx, tx, &m.NewProjects[i]); err != nil {
			return err
		}
	}
	for i := range m.Relations {
		if err := upsertRelation(ctx, tx, &m.Relations[i]); err != nil {
			return err
		}
	}
	for i := range m.History {
		if err := insertHistory(ctx, tx, &m.History[i]); err != nil {
			return err
		}
	}
	if m.Audit != nil {
		if err := insertAction(ctx, tx, m.Audit); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	m.Country.Revision = m.ExpectedRevision + 1
	if m.Counterpart != nil {
		m.Counterpart.Revision = m.CounterpartRevision + 1
	}
	return nil
}

func updateCountryGuarded(ctx context.Context, tx *sqlx.Tx, c *world.Country, expected int64) error {
	problems, err := json.Marshal(problemsOrEmpty(c.Problems))
	if err != nil {
		return fmt.Errorf("encode problems: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE countries SET
		owner_name = ?, name = ?, population = ?, treasury = ?,
		stability = ?, military = ?, territory = ?, description = ?,
		problems_json = ?, revision = revision + 1, updated_year = ?
		WHERE id = ? AND revision = ?`,
		c.OwnerName, c.Name, c.Population, c.Treasury, c.Stability,
		c.Military, c.Territory, c.Description, string(problems),
		c.UpdatedYear, c.ID, expected,
	)
	if err != nil {
		return fmt.Errorf("update country %d: %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update country %d: %w", c.ID, err)
	}
	if n == 0 {
		return world.ErrStaleRevision
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertProject(ctx context.Context, tx execer, p *world.Project) error {
	effect, err := json.Marshal(p.Effect)
	if err != nil {
		return fmt.Errorf("encode effect: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO projects
		(id, country_id, kind, name, cost, progress, threshold, increment,
		 effect_json, status, started_year, completed_year)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CountryID, p.Kind, p.Name, p.Cost, p.Progress,
		p.Threshold, p.Increment, string(effect), p.Status,
		p.StartedYear, p.CompletedYear,
	)
	if err != nil {
		return fmt.Errorf("insert project %s: %w", p.ID, err)
	}
	return nil
}

func upsertRelation(ctx context.Context, tx execer, r *world.Relation) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO relations
		(from_id, to_id, kind, status, proposed_year, expires_year, resolved_year)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (from_id, to_id) DO UPDATE SET
		kind = excluded.kind, status = excluded.status,
		proposed_year = excluded.proposed_year,
		expires_year = excluded.expires_year,
		resolved_year = excluded.resolved_year`,
		r.FromID, r.ToID, r.Kind, r.Status, r.ProposedYear,
		r.ExpiresYear, r.ResolvedYear,
	)
	if err != nil {
		return fmt.Errorf("upsert relation %d->%d: %w", r.FromID, r.ToID, err)
	}
	return nil
}

func insertHistory(ctx context.Context, tx execer, h *world.RelationEvent) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO relation_history
		(from_id, to_id, kind, status, year) VALUES (?, ?, ?, ?, ?)`,
		h.FromID, h.ToID, h.Kind, h.Status, h.Year,
	)
	if err != nil {
		return fmt.Errorf("insert relation history: %w", err)
	}
	return nil
}

func insertAction(ctx context.Context, tx execer, a *world.ActionRecord) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO actions
		(country_id, kind, detail, year, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.CountryID, a.Kind, a.Detail, a.Year, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

type rowProject struct {
	world.Project
	EffectJSON string `db:"effect_json"`
}

func (r *rowProject) toDomain() (*world.Project, error) {
	p := r.Project
	if r.EffectJSON != "" {
		if err := json.Unmarshal([]byte(r.EffectJSON), &p.Effect); err != nil {
			return nil, fmt.Errorf("decode effect: %w", err)
		}
	}
	return &p, nil
}

const projectCols = `id, country_id, kind, name, cost, progress, threshold,
	increment, effect_json, status, started_year, completed_year`

// GetProject fetches one project by id.
func (s *Store) GetProject(ctx context.Context, id string) (*world.Project, error) {
	var row rowProject
	err := s.db.GetContext(ctx, &row,
		"SELECT "+projectCols+" FROM projects WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, world.ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return row.toDomain()
}

// ListProjects returns every project of a country, newest first.
func (s *Store) ListProjects(ctx context.Context, countryID int64) ([]world.Project, error) {
	return s.selectProjects(ctx,
		"SELECT "+projectCols+" FROM projects WHERE country_id = ? ORDER BY started_year DESC, id",
		countryID)
}

// ListActiveProjects returns every in-progress project across all
// countries, the working set of a tick's first phase.
func (s *Store) ListActiveProjects(ctx context.Context) ([]world.Project, error) {
	return s.selectProjects(ctx,
		"SELECT "+projectCols+" FROM projects WHERE status = ? ORDER BY country_id, id",
		world.ProjectInProgress)
}

func (s *Store) selectProjects(ctx context.Context, query string, args ...any) ([]world.Project, error) {
	var rows []rowProject
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select projects: %w", err)
	}
	out := make([]world.Project, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// GetRelation fetches the directed relation row from -> to.
func (s *Store) GetRelation(ctx context.Context, from, to int64) (*world.Relation, error) {
	var r world.Relation
	err := s.db.GetContext(ctx, &r,
		`SELECT from_id, to_id, kind, status, proposed_year, expires_year, resolved_year
		 FROM relations WHERE from_id = ? AND to_id = ?`, from, to)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, world.ErrNotFound
		}
		return nil, fmt.Errorf("get relation: %w", err)
	}
	return &r, nil
}

// ListRelations returns every relation touching a country, in either
// direction.
func (s *Store) ListRelations(ctx context.Context, countryID int64) ([]world.Relation, error) {
	var rows []world.Relation
	err := s.db.SelectContext(ctx, &rows,
		`SELECT from_id, to_id, kind, status, proposed_year, expires_year, resolved_year
		 FROM relations WHERE from_id = ? OR to_id = ? ORDER BY from_id, to_id`,
		countryID, countryID)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	return rows, nil
}

// ListRelationHistory returns the status-change history of a directed
// pair, oldest first.
func (s *Store) ListRelationHistory(ctx context.Context, from, to int64) ([]world.RelationEvent, error) {
	var rows []world.RelationEvent
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, from_id, to_id, kind, status, year FROM relation_history
		 WHERE from_id = ? AND to_id = ? ORDER BY id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list relation history: %w", err)
	}
	return rows, nil
}

// RecentActions returns the latest audit records for a country.
func (s *Store) RecentActions(ctx context.Context, countryID int64, limit int) ([]world.ActionRecord, error) {
	var rows []world.ActionRecord
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, country_id, kind, detail, year, created_at FROM actions
		 WHERE country_id = ? ORDER BY id DESC LIMIT ?`, countryID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent actions: %w", err)
	}
	return rows, nil
}

const (
	metaCurrentYear = "current_year"
	metaLastTickAt  = "last_tick_at"
)

// InitClock sets the world clock to startYear unless it already exists.
func (s *Store) InitClock(ctx context.Context, startYear int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO world_meta (key, value) VALUES (?, ?)",
		metaCurrentYear, strconv.FormatInt(startYear, 10))
	if err != nil {
		return fmt.Errorf("init clock: %w", err)
	}
	return nil
}

// CurrentYear reads the world clock.
func (s *Store) CurrentYear(ctx context.Context) (int64, error) {
	v, err := s.GetMeta(ctx, metaCurrentYear)
	if err != nil {
		return 0, err
	}
	year, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse year %q: %w", v, err)
	}
	return year, nil
}

// LastTickAt reads the wall-clock watermark of the last committed tick.
// Returns the zero time when no tick has run yet.
func (s *Store) LastTickAt(ctx context.Context) (time.Time, error) {
	v, err := s.GetMeta(ctx, metaLastTickAt)
	if errors.Is(err, world.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last tick time %q: %w", v, err)
	}
	return t, nil
}

// GetMeta retrieves a metadata value.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.GetContext(ctx, &v, "SELECT value FROM world_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", world.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get meta %s: %w", key, err)
	}
	return v, nil
}

// SetMeta stores a metadata key-value pair.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// TickCommit is the second phase of a world tick: every delta the tick
// computed, applied in one transaction together with the year advance.
type TickCommit struct {
	// Year is the year the tick processed. The commit fails with
	// ErrStaleRevision when the stored clock no longer matches, which is
	// how a replayed tick detects it already ran.
	Year int64

	Countries []world.Country
	Projects  []world.Project
	History   []world.RelationEvent

	FiredAt time.Time
}

// ExpiredProposals returns the pending relations that will expire once
// the clock advances past year. Read during a tick's compute phase.
func (s *Store) ExpiredProposals(ctx context.Context, year int64) ([]world.Relation, error) {
	var rows []world.Relation
	err := s.db.SelectContext(ctx, &rows,
		`SELECT from_id, to_id, kind, status, proposed_year, expires_year, resolved_year
		 FROM relations WHERE status = ? AND expires_year <= ?`,
		world.RelationPending, year+1)
	if err != nil {
		return nil, fmt.Errorf("expired proposals: %w", err)
	}
	return rows, nil
}

// CommitTick atomically applies a tick. Nothing is written when the
// clock has already advanced past commit.Year, making crash-retry
// replays idempotent.
func (s *Store) CommitTick(ctx context.Context, commit TickCommit) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tick: %w", err)
	}
	defer tx.Rollback()

	// Year guard: the clock is the tick's revision counter.
	res, err := tx.ExecContext(ctx,
		"UPDATE world_meta SET value = ? WHERE key = ? AND value = ?",
		strconv.FormatInt(commit.Year+1, 10), metaCurrentYear,
		strconv.FormatInt(commit.Year, 10))
	if err != nil {
		return fmt.Errorf("advance clock: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("advance clock: %w", err)
	} else if n == 0 {
		return world.ErrStaleRevision
	}

	for i := range commit.Countries {
		c := &commit.Countries[i]
		problems, err := json.Marshal(problemsOrEmpty(c.Problems))
		if err != nil {
			return fmt.Errorf("encode problems: %w", err)
		}
		_, err = tx.ExecContext(ctx, `UPDATE countries SET
			population = ?, treasury = ?, stability = ?, military = ?,
			territory = ?, description = ?, problems_json = ?,
			revision = revision + 1, updated_year = ? WHERE id = ?`,
			c.Population, c.Treasury, c.Stability, c.Military,
			c.Territory, c.Description, string(problems),
			commit.Year+1, c.ID,
		)
		if err != nil {
			return fmt.Errorf("tick update country %d: %w", c.ID, err)
		}
	}

	for i := range commit.Projects {
		p := &commit.Projects[i]
		_, err := tx.ExecContext(ctx, `UPDATE projects SET
			progress = ?, status = ?, completed_year = ? WHERE id = ?`,
			p.Progress, p.Status, p.CompletedYear, p.ID)
		if err != nil {
			return fmt.Errorf("tick update project %s: %w", p.ID, err)
		}
	}

	// Expire pending proposals whose window closed this tick.
	_, err = tx.ExecContext(ctx, `UPDATE relations SET
		status = ?, resolved_year = ? WHERE status = ? AND expires_year <= ?`,
		world.RelationExpired, commit.Year+1, world.RelationPending, commit.Year+1)
	if err != nil {
		return fmt.Errorf("expire proposals: %w", err)
	}

	for i := range commit.History {
		if err := insertHistory(ctx, tx, &commit.History[i]); err != nil {
			return err
		}
	}

	firedAt := commit.FiredAt
	if firedAt.IsZero() {
		firedAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		metaLastTickAt, firedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("tick watermark: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tick: %w", err)
	}
	return nil
}
