package format

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hupe1980/vecspace/space"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchemaVersion = 1

const sqliteSchema = `
CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);
CREATE TABLE vectors (
	row   INTEGER PRIMARY KEY,
	label TEXT UNIQUE NOT NULL,
	vec   BLOB NOT NULL
);`

// SQLite stores a matrix in a SQLite database. Rows live in the vectors
// table in row order, each vector as a little-endian float32 BLOB. The meta
// table records dim, rows and the schema version.
type SQLite struct {
	opts Options
}

func (*SQLite) Name() string { return "sqlite" }

func (*SQLite) Extensions() []string { return []string{".db", ".sqlite", ".sqlite3"} }

func (f *SQLite) Load(ctx context.Context, path string) (*space.Matrix, error) {
	// sql.Open would create a missing database.
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	meta, err := readMeta(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	}
	dim, err := strconv.Atoi(meta["dim"])
	if err != nil || dim < 0 {
		return nil, fmt.Errorf("%w: %s: bad dim %q", ErrMalformed, path, meta["dim"])
	}
	if v, _ := strconv.Atoi(meta["version"]); v > sqliteSchemaVersion {
		return nil, fmt.Errorf("%w: %s: schema version %d is newer than %d", ErrMalformed, path, v, sqliteSchemaVersion)
	}

	limit := -1
	if f.opts.MaxRows > 0 {
		limit = f.opts.MaxRows
	}
	rows, err := db.QueryContext(ctx, "SELECT label, vec FROM vectors ORDER BY row LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	b := space.NewBuilder(dim)
	if n, err := strconv.Atoi(meta["rows"]); err == nil && n > 0 {
		b.Grow(n)
	}
	vec := make([]float32, dim)
	for rows.Next() {
		var (
			label string
			blob  []byte
		)
		if err := rows.Scan(&label, &blob); err != nil {
			return nil, err
		}
		if err := decodeVector(vec, blob); err != nil {
			return nil, fmt.Errorf("%w: %s label %q: %w", ErrMalformed, path, label, err)
		}
		if err := b.Add(label, vec); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return b.Build()
}

func readMeta(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

// Save writes to a temporary database next to path and renames it into
// place once the transaction commits.
func (f *SQLite) Save(ctx context.Context, m *space.Matrix, path string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	db, err := sql.Open("sqlite", tmpPath)
	if err != nil {
		return err
	}
	if err := writeSQLite(ctx, db, m); err != nil {
		_ = db.Close()
		return err
	}
	if err := db.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func writeSQLite(ctx context.Context, db *sql.DB, m *space.Matrix) (err error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	for k, v := range map[string]int{"dim": m.Dim(), "rows": m.Len(), "version": sqliteSchemaVersion} {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, strconv.Itoa(v)); err != nil {
			return err
		}
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO vectors (row, label, vec) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for i := range m.Len() {
		if _, err := stmt.ExecContext(ctx, i, m.Label(i), encodeVector(m.Row(i))); err != nil {
			return fmt.Errorf("format: sqlite row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// encodeVector never returns nil: NOT NULL rejects a nil BLOB for
// zero-width rows.
func encodeVector(vec []float32) []byte {
	b := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func decodeVector(dst []float32, b []byte) error {
	if len(b) != 4*len(dst) {
		return fmt.Errorf("vector blob has %d bytes, want %d", len(b), 4*len(dst))
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return nil
}
