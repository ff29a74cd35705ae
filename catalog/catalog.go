package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/chazu/classkit/classfile"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

var log = commonlog.GetLogger("classkit.catalog")

// ErrNotFound is returned by Get for a class the catalog does not hold.
var ErrNotFound = errors.New("class not in catalog")

const schema = `
CREATE TABLE IF NOT EXISTS classes (
	name    TEXT PRIMARY KEY,
	super   TEXT NOT NULL,
	access  INTEGER NOT NULL,
	version INTEGER NOT NULL,
	source  TEXT NOT NULL,
	path    TEXT NOT NULL,
	digest  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS interfaces (
	class     TEXT NOT NULL,
	position  INTEGER NOT NULL,
	interface TEXT NOT NULL,
	PRIMARY KEY (class, position)
);
CREATE TABLE IF NOT EXISTS members (
	class      TEXT NOT NULL,
	position   INTEGER NOT NULL,
	kind       TEXT NOT NULL,
	access     INTEGER NOT NULL,
	name       TEXT NOT NULL,
	descriptor TEXT NOT NULL,
	signature  TEXT NOT NULL,
	PRIMARY KEY (class, position)
);
CREATE TABLE IF NOT EXISTS refs (
	class      TEXT NOT NULL,
	kind       TEXT NOT NULL,
	owner      TEXT NOT NULL,
	name       TEXT NOT NULL,
	descriptor TEXT NOT NULL,
	PRIMARY KEY (class, kind, owner, name, descriptor)
);
CREATE INDEX IF NOT EXISTS classes_super ON classes (super);
CREATE INDEX IF NOT EXISTS interfaces_interface ON interfaces (interface);
CREATE INDEX IF NOT EXISTS refs_owner ON refs (owner);
`

// Catalog is an SQLite class index. It is safe for concurrent use; writes
// are serialized on a single connection.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog at path. ":memory:" opens a private
// in-memory catalog.
func Open(ctx context.Context, path string) (*Catalog, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to open %s: %w", path, err)
	}
	// SQLite allows one writer; an in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: failed to ping %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: failed to create schema: %w", err)
	}
	log.Debugf("opened catalog %s", path)
	return &Catalog{db: db}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Put stores s, replacing any earlier record of the same class.
func (c *Catalog) Put(ctx context.Context, s *Summary) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"classes WHERE name", "interfaces WHERE class", "members WHERE class", "refs WHERE class"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" = ?", s.Name); err != nil {
			return fmt.Errorf("catalog: delete %s: %w", s.Name, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO classes (name, super, access, version, source, path, digest) VALUES (?, ?, ?, ?, ?, ?, ?)",
		s.Name, s.Super, s.Access, s.Version, s.Source, s.Path, s.Digest); err != nil {
		return fmt.Errorf("catalog: insert %s: %w", s.Name, err)
	}
	for i, itf := range s.Interfaces {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO interfaces (class, position, interface) VALUES (?, ?, ?)", s.Name, i, itf); err != nil {
			return fmt.Errorf("catalog: insert interface of %s: %w", s.Name, err)
		}
	}
	for i, m := range s.Members {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO members (class, position, kind, access, name, descriptor, signature) VALUES (?, ?, ?, ?, ?, ?, ?)",
			s.Name, i, m.Kind, m.Access, m.Name, m.Desc, m.Signature); err != nil {
			return fmt.Errorf("catalog: insert member of %s: %w", s.Name, err)
		}
	}
	for _, r := range s.Refs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO refs (class, kind, owner, name, descriptor) VALUES (?, ?, ?, ?, ?)",
			s.Name, r.Kind, r.Owner, r.Name, r.Desc); err != nil {
			return fmt.Errorf("catalog: insert reference of %s: %w", s.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit %s: %w", s.Name, err)
	}
	log.Debugf("indexed %s (%d members, %d refs)", s.Name, len(s.Members), len(s.Refs))
	return nil
}

// Get returns the stored summary of the named class.
func (c *Catalog) Get(ctx context.Context, name string) (*Summary, error) {
	s := &Summary{Name: name}
	err := c.db.QueryRowContext(ctx,
		"SELECT super, access, version, source, path, digest FROM classes WHERE name = ?", name).
		Scan(&s.Super, &s.Access, &s.Version, &s.Source, &s.Path, &s.Digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get %s: %w", name, err)
	}

	if s.Interfaces, err = c.strings(ctx,
		"SELECT interface FROM interfaces WHERE class = ? ORDER BY position", name); err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx,
		"SELECT kind, access, name, descriptor, signature FROM members WHERE class = ? ORDER BY position", name)
	if err != nil {
		return nil, fmt.Errorf("catalog: members of %s: %w", name, err)
	}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.Kind, &m.Access, &m.Name, &m.Desc, &m.Signature); err != nil {
			rows.Close()
			return nil, fmt.Errorf("catalog: members of %s: %w", name, err)
		}
		s.Members = append(s.Members, m)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = c.db.QueryContext(ctx,
		"SELECT kind, owner, name, descriptor FROM refs WHERE class = ? ORDER BY owner, name, descriptor, kind", name)
	if err != nil {
		return nil, fmt.Errorf("catalog: refs of %s: %w", name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var r Ref
		if err := rows.Scan(&r.Kind, &r.Owner, &r.Name, &r.Desc); err != nil {
			return nil, fmt.Errorf("catalog: refs of %s: %w", name, err)
		}
		s.Refs = append(s.Refs, r)
	}
	return s, rows.Err()
}

// Subclasses returns the classes whose direct superclass is name.
func (c *Catalog) Subclasses(ctx context.Context, name string) ([]string, error) {
	return c.strings(ctx, "SELECT name FROM classes WHERE super = ? ORDER BY name", name)
}

// Implementors returns the classes that directly implement the interface.
func (c *Catalog) Implementors(ctx context.Context, iface string) ([]string, error) {
	return c.strings(ctx, "SELECT DISTINCT class FROM interfaces WHERE interface = ? ORDER BY class", iface)
}

// Users returns the classes whose code refers to owner or its members.
func (c *Catalog) Users(ctx context.Context, owner string) ([]string, error) {
	return c.strings(ctx, "SELECT DISTINCT class FROM refs WHERE owner = ? ORDER BY class", owner)
}

// Classes returns the names of all indexed classes.
func (c *Catalog) Classes(ctx context.Context) ([]string, error) {
	return c.strings(ctx, "SELECT name FROM classes ORDER BY name")
}

// Digest returns the stored trace digest of the named class.
func (c *Catalog) Digest(ctx context.Context, name string) (string, error) {
	var d string
	err := c.db.QueryRowContext(ctx, "SELECT digest FROM classes WHERE name = ?", name).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return d, err
}

func (c *Catalog) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: query failed: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("catalog: scan failed: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Ancestors returns name followed by its superclasses, as far as the
// catalog knows them.
func (c *Catalog) Ancestors(ctx context.Context, name string) ([]string, error) {
	chain := []string{name}
	for len(chain) <= 256 {
		var super string
		err := c.db.QueryRowContext(ctx, "SELECT super FROM classes WHERE name = ?", chain[len(chain)-1]).Scan(&super)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && super == "") {
			return chain, nil
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: ancestors of %s: %w", name, err)
		}
		chain = append(chain, super)
	}
	return nil, fmt.Errorf("catalog: superclass chain of %s is cyclic", name)
}

// CommonSuperClass returns the nearest superclass shared by a and b, for
// use as a class writer hook. Interfaces and classes the catalog cannot
// relate yield java/lang/Object.
func (c *Catalog) CommonSuperClass(ctx context.Context, a, b string) string {
	const object = "java/lang/Object"
	for _, name := range []string{a, b} {
		var access int
		err := c.db.QueryRowContext(ctx, "SELECT access FROM classes WHERE name = ?", name).Scan(&access)
		if err == nil && access&classfile.AccInterface != 0 {
			return object
		}
	}
	ca, err := c.Ancestors(ctx, a)
	if err != nil {
		log.Warningf("%s", err)
		return object
	}
	cb, err := c.Ancestors(ctx, b)
	if err != nil {
		log.Warningf("%s", err)
		return object
	}
	inB := make(map[string]bool, len(cb))
	for _, n := range cb {
		inB[n] = true
	}
	for _, n := range ca {
		if inB[n] {
			return n
		}
	}
	return object
}
