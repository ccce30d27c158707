package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"fsgraph/internal/core"
	"fsgraph/src/logger"
	"fsgraph/src/model"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mattn/go-sqlite3"
)

const (
	sqliteDriver      = "sqlite3_fsgraph"
	defaultRegexCache = 128
)

// patterns caches compiled REGEXP operands for every connection of the
// fsgraph driver. Compiled patterns hold no per-store state.
var (
	registerOnce sync.Once
	patterns     *lru.Cache[string, *regexp.Regexp]
)

// registerDriver installs the fsgraph driver once per process: the stock
// sqlite3 driver plus a REGEXP function backed by the pattern cache.
func registerDriver() {
	registerOnce.Do(func() {
		patterns, _ = lru.New[string, *regexp.Regexp](defaultRegexCache)
		sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("regexp", matchPattern, true)
			},
		})
	})
}

var schemaStatements = []string{
	`DROP TABLE IF EXISTS edges`,
	`DROP TABLE IF EXISTS vertices`,
	`CREATE TABLE vertices (
		id            INTEGER PRIMARY KEY,
		name          TEXT    NOT NULL UNIQUE,
		parent        TEXT    NOT NULL,
		size          INTEGER NOT NULL,
		last_modified REAL    NOT NULL,
		last_accessed REAL    NOT NULL
	)`,
	`CREATE INDEX idx_vertices_parent ON vertices(parent)`,
	`CREATE TABLE edges (
		"start" INTEGER NOT NULL,
		"end"   INTEGER NOT NULL
	)`,
}

// SQLiteStore keeps the graph in two tables, vertices and edges
type SQLiteStore struct {
	mu     sync.RWMutex // guards db; held exclusively only by Reset
	db     *sql.DB
	config model.SQLiteConfig
}

// NewSQLiteStore opens (creating if needed) the database at config.Path
func NewSQLiteStore(ctx context.Context, config model.SQLiteConfig) (*SQLiteStore, error) {
	registerDriver()
	if config.RegexCache > defaultRegexCache {
		patterns.Resize(config.RegexCache)
	}

	s := &SQLiteStore{config: config}
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	s.db = db
	return s, nil
}

// sqliteDSN builds a file: URI for path. The path is escaped so that '?',
// '#' and '%' in file names reach SQLite intact.
func sqliteDSN(path string, busyTimeout time.Duration) string {
	query := url.Values{}
	query.Set("_journal_mode", "WAL")
	query.Set("_busy_timeout", strconv.FormatInt(busyTimeout.Milliseconds(), 10))
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?" + query.Encode()
}

func (s *SQLiteStore) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriver, sqliteDSN(s.config.Path, s.config.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if s.config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(s.config.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// compilePattern returns the cached regexp for pattern
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patterns.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patterns.Add(pattern, re)
	return re, nil
}

// matchPattern implements the SQL REGEXP operator: "value REGEXP pattern"
// calls regexp(pattern, value).
func matchPattern(pattern, value string) (bool, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(value), nil
}

// Save replaces both tables with g in a single transaction
func (s *SQLiteStore) Save(ctx context.Context, g *core.Graph) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, stmt := range schemaStatements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to recreate schema: %w", err)
		}
	}

	insertVertex, err := tx.PrepareContext(ctx,
		`INSERT INTO vertices (id, name, parent, size, last_modified, last_accessed) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare vertex insert: %w", err)
	}
	defer insertVertex.Close()

	for _, v := range g.Vertices {
		if _, err = insertVertex.ExecContext(ctx, v.ID, v.Name, v.Parent, v.Size, v.LastModified, v.LastAccessed); err != nil {
			return fmt.Errorf("failed to insert vertex %d: %w", v.ID, err)
		}
	}

	insertEdge, err := tx.PrepareContext(ctx, `INSERT INTO edges ("start", "end") VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge insert: %w", err)
	}
	defer insertEdge.Close()

	for _, e := range g.Edges {
		if _, err = insertEdge.ExecContext(ctx, e.Child, e.Parent); err != nil {
			return fmt.Errorf("failed to insert edge (%d, %d): %w", e.Child, e.Parent, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit graph: %w", err)
	}

	logger.Debug().Int("vertices", g.Len()).Int("edges", len(g.Edges)).Msg("Graph saved to sqlite")
	return nil
}

// Exists reports whether both graph tables are present
func (s *SQLiteStore) Exists(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exists(ctx)
}

func (s *SQLiteStore) exists(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('vertices', 'edges')`,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check schema: %w", err)
	}
	return count == 2, nil
}

// Load rebuilds the graph: vertices ordered by id into a pre-sized slice,
// then edges in the order read.
func (s *SQLiteStore) Load(ctx context.Context) (*core.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ok, err := s.exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.ErrNoSnapshot
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM vertices`).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count vertices: %w", err)
	}

	g := core.NewGraph(count)
	g.Vertices = g.Vertices[:count]
	seen := make([]bool, count)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, parent, size, last_modified, last_accessed FROM vertices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vertices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v core.Vertex
		if err := rows.Scan(&v.ID, &v.Name, &v.Parent, &v.Size, &v.LastModified, &v.LastAccessed); err != nil {
			return nil, fmt.Errorf("failed to scan vertex: %w", err)
		}
		if v.ID < 0 || v.ID >= count || seen[v.ID] {
			return nil, fmt.Errorf("%w: vertex id %d outside 0..%d", core.ErrCorruptSnapshot, v.ID, count-1)
		}
		g.Vertices[v.ID] = v
		seen[v.ID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vertices: %w", err)
	}

	edgeRows, err := s.db.QueryContext(ctx, `SELECT "start", "end" FROM edges`)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var e core.Edge
		if err := edgeRows.Scan(&e.Child, &e.Parent); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		g.Edges = append(g.Edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read edges: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCorruptSnapshot, err)
	}
	return g, nil
}

// SearchName returns the vertices whose name matches ".*key.*" as a regular
// expression, ordered by id. key is not escaped.
func (s *SQLiteStore) SearchName(ctx context.Context, key string) ([]core.Vertex, error) {
	pattern := ".*" + key + ".*"
	if _, err := compilePattern(pattern); err != nil {
		return nil, fmt.Errorf("invalid search pattern %q: %w", pattern, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ok, err := s.exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.ErrNoSnapshot
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, parent, size, last_modified, last_accessed FROM vertices WHERE name REGEXP ? ORDER BY id`,
		pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search vertices: %w", err)
	}
	defer rows.Close()

	out := []core.Vertex{}
	for rows.Next() {
		var v core.Vertex
		if err := rows.Scan(&v.ID, &v.Name, &v.Parent, &v.Size, &v.LastModified, &v.LastAccessed); err != nil {
			return nil, fmt.Errorf("failed to scan vertex: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	return out, nil
}

// Reset deletes the database file and its WAL siblings, then reopens an
// empty database at the same path.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	for _, p := range []string{s.config.Path, s.config.Path + "-wal", s.config.Path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}

	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	s.db = db
	logger.Debug().Str("path", s.config.Path).Msg("SQLite database reset")
	return nil
}

// Ping tests the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
