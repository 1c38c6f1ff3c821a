// Package tenant implements the Tenant Directory: enumeration of peer
// databases matching a name pattern against the control database's catalog.
package tenant

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Directory lists peer database names from the control database's catalog.
type Directory struct {
	pool  *pgxpool.Pool
	cache *Cache
}

// NewDirectory creates a Directory backed by pool. cache may be nil, in
// which case every call falls through to the catalog.
func NewDirectory(pool *pgxpool.Pool, cache *Cache) *Directory {
	return &Directory{pool: pool, cache: cache}
}

// List returns database names matching pattern (glob "*" is treated as SQL
// "%"), in lexicographic order. Read-only.
func (d *Directory) List(ctx context.Context, pattern string) ([]string, error) {
	sqlPattern := globToLike(pattern)

	if d.cache != nil {
		if names, ok := d.cache.Get(sqlPattern); ok {
			return names, nil
		}
	}

	names, err := d.query(ctx, sqlPattern)
	if err != nil {
		return nil, err
	}

	if d.cache != nil {
		d.cache.Set(sqlPattern, names)
	}

	return names, nil
}

func (d *Directory) query(ctx context.Context, sqlPattern string) ([]string, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT datname FROM pg_database WHERE datistemplate = false AND datname LIKE $1 ORDER BY datname`,
		sqlPattern,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pg_database: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan database name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading database names: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// globToLike converts a caller-supplied glob pattern (only "*" is special)
// into a SQL LIKE pattern, escaping any literal "%" or "_" already present.
func globToLike(pattern string) string {
	escaped := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(pattern)
	return strings.ReplaceAll(escaped, "*", "%")
}
