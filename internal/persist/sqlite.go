package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agentic-research/easel/api"
	"github.com/agentic-research/easel/internal/graph"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	name TEXT PRIMARY KEY,
	version TEXT NOT NULL,
	saved_at INTEGER NOT NULL,
	summary JSON
);
CREATE TABLE IF NOT EXISTS components (
	doc TEXT NOT NULL,
	id TEXT NOT NULL,
	parent_id TEXT,
	position INTEGER NOT NULL,
	component TEXT NOT NULL,
	kind TEXT NOT NULL,
	library TEXT,
	properties JSON NOT NULL,
	overrides JSON,
	PRIMARY KEY (doc, id)
);
CREATE INDEX IF NOT EXISTS idx_components_parent ON components(doc, parent_id, position);
`

// SQLiteStore keeps documents one row per component, so a canvas can be
// queried with plain SQL. Several named documents share one database.
type SQLiteStore struct {
	db   *sql.DB
	name string
	now  func() time.Time
}

// OpenSQLite opens (creating if needed) the database at dbPath and binds
// the store to the document called name.
func OpenSQLite(dbPath, name string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, name: name, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Save replaces the stored document in one transaction. When the
// components cannot be encoded only the summary is written and
// ErrSummaryOnly is returned.
func (s *SQLiteStore) Save(ctx context.Context, f *graph.Forest) error {
	doc := Serialize(f)
	rows, encErr := encodeRows(doc)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM components WHERE doc = ?`, s.name); err != nil {
		return fmt.Errorf("clear components: %w", err)
	}

	var summary []byte
	if encErr != nil {
		summary, err = json.Marshal(Summarize(f, s.now()).Summary)
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents (name, version, saved_at, summary)
		VALUES (?, ?, ?, ?)`,
		s.name, api.DocumentVersion, s.now().Unix(), nullable(summary)); err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	if encErr == nil {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO components (doc, id, parent_id, position, component, kind, library, properties, overrides)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, s.name, r.id, nullable([]byte(r.parent)), r.position,
				r.component, r.kind, r.library, r.properties, nullable(r.overrides)); err != nil {
				return fmt.Errorf("insert %s: %w", r.id, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if encErr != nil {
		return ErrSummaryOnly
	}
	return nil
}

type componentRow struct {
	id, parent, component, kind, library string
	position                             int
	properties, overrides                []byte
}

func encodeRows(doc *api.Document) ([]componentRow, error) {
	var rows []componentRow
	var walk func(cs []api.Component, parent string) error
	walk = func(cs []api.Component, parent string) error {
		for i, c := range cs {
			props, err := json.Marshal(c.Properties)
			if err != nil {
				return fmt.Errorf("encode %s properties: %w", c.ID, err)
			}
			var over []byte
			if len(c.BreakpointOverrides) > 0 {
				if over, err = json.Marshal(c.BreakpointOverrides); err != nil {
					return fmt.Errorf("encode %s overrides: %w", c.ID, err)
				}
			}
			rows = append(rows, componentRow{
				id: c.ID, parent: parent, position: i,
				component: c.Metadata.Name, kind: string(c.Metadata.Kind), library: c.LibraryTag,
				properties: props, overrides: over,
			})
			if err := walk(c.Children, c.ID); err != nil {
				return err
			}
		}
		return nil
	}
	return rows, walk(doc.Components, "")
}

func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// Load rebuilds the stored document.
func (s *SQLiteStore) Load(ctx context.Context, cat MetadataLookup) (*graph.Forest, error) {
	var summary sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT summary FROM documents WHERE name = ?`, s.name).Scan(&summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if summary.Valid {
		return graph.NewForest(), ErrSummaryOnly
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, component, kind, library, properties, overrides
		FROM components WHERE doc = ?
		ORDER BY parent_id IS NOT NULL, parent_id, position`, s.name)
	if err != nil {
		return nil, fmt.Errorf("read components: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		roots []string
		nodes []*graph.Node
		byID  = make(map[string]*graph.Node)
		order []struct{ id, parent string }
	)
	for rows.Next() {
		var (
			c                  api.Component
			parent, library    sql.NullString
			props              string
			overrides          sql.NullString
			component, kindStr string
		)
		if err := rows.Scan(&c.ID, &parent, &component, &kindStr, &library, &props, &overrides); err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		c.Metadata = api.MetadataRef{Name: component, Kind: api.Kind(kindStr)}
		c.LibraryTag = library.String
		if err := json.Unmarshal([]byte(props), &c.Properties); err != nil {
			return nil, fmt.Errorf("decode %s properties: %w", c.ID, err)
		}
		if overrides.Valid {
			if err := json.Unmarshal([]byte(overrides.String), &c.BreakpointOverrides); err != nil {
				return nil, fmt.Errorf("decode %s overrides: %w", c.ID, err)
			}
		}
		n := Restore(c, parent.String, cat)
		nodes = append(nodes, n)
		byID[n.ID] = n
		order = append(order, struct{ id, parent string }{n.ID, parent.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan components: %w", err)
	}

	// rows arrive grouped by parent in position order
	for _, o := range order {
		if o.parent == "" {
			roots = append(roots, o.id)
			continue
		}
		if p, ok := byID[o.parent]; ok {
			p.Children = append(p.Children, o.id)
		}
	}
	return graph.FromNodes(roots, nodes)
}
