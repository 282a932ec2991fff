package production

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/comalice/attributex"
)

// LoadYAMLMetadata reads a metadata table from a YAML mapping of field name to
// {min, max, default}.
func LoadYAMLMetadata(path string) (attributex.MapMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return ParseYAMLMetadata(data)
}

// ParseYAMLMetadata decodes a YAML metadata table. Rows with Min > Max are
// rejected.
func ParseYAMLMetadata(data []byte) (attributex.MapMetadata, error) {
	var table attributex.MapMetadata
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	for name, md := range table {
		if md.Min > md.Max {
			return nil, fmt.Errorf("metadata %q: min %g > max %g", name, md.Min, md.Max)
		}
	}
	return table, nil
}

const metadataSchema = `
CREATE TABLE IF NOT EXISTS attribute_metadata (
	name        TEXT PRIMARY KEY,
	min_value   REAL NOT NULL,
	max_value   REAL NOT NULL,
	default_value REAL NOT NULL
);`

// SQLiteMetadata is a metadata table stored in SQLite.
type SQLiteMetadata struct {
	db *sql.DB
}

// OpenSQLiteMetadata opens (or creates) the database at path.
func OpenSQLiteMetadata(ctx context.Context, path string) (*SQLiteMetadata, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, metadataSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteMetadata{db: db}, nil
}

// Close closes the database.
func (m *SQLiteMetadata) Close() error {
	return m.db.Close()
}

// Put inserts or replaces one row.
func (m *SQLiteMetadata) Put(ctx context.Context, name string, md attributex.MetaData) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO attribute_metadata (name, min_value, max_value, default_value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			min_value = excluded.min_value,
			max_value = excluded.max_value,
			default_value = excluded.default_value`,
		name, md.Min, md.Max, md.Default)
	if err != nil {
		return fmt.Errorf("put metadata %q: %w", name, err)
	}
	return nil
}

// Import writes every row of table in one transaction, in name order.
func (m *SQLiteMetadata) Import(ctx context.Context, table attributex.MapMetadata) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		md := table[name]
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO attribute_metadata (name, min_value, max_value, default_value) VALUES (?, ?, ?, ?)`,
			name, md.Min, md.Max, md.Default)
		if err != nil {
			return fmt.Errorf("import %q: %w", name, err)
		}
	}
	return tx.Commit()
}

// Get returns the row for name.
func (m *SQLiteMetadata) Get(ctx context.Context, name string) (attributex.MetaData, error) {
	var md attributex.MetaData
	err := m.db.QueryRowContext(ctx,
		`SELECT min_value, max_value, default_value FROM attribute_metadata WHERE name = ?`, name,
	).Scan(&md.Min, &md.Max, &md.Default)
	if errors.Is(err, sql.ErrNoRows) {
		return md, fmt.Errorf("%w: %q", attributex.ErrMissingMetadata, name)
	}
	if err != nil {
		return md, fmt.Errorf("get metadata %q: %w", name, err)
	}
	return md, nil
}

// Lookup implements attributex.MetadataTable. Database errors read as a
// missing row.
func (m *SQLiteMetadata) Lookup(name string) (attributex.MetaData, bool) {
	md, err := m.Get(context.Background(), name)
	return md, err == nil
}
