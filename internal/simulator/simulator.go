// Package simulator implements the Simulator: batch creation and cleanup of
// test tenant databases, for benchmarking and local development.
package simulator

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cedarline/schema-propagation/internal/tenant"
)

// maxConcurrent bounds simultaneous catalog operations during create/cleanup.
const maxConcurrent = 20

// identifierPattern restricts caller-supplied names to safe SQL identifiers,
// preventing catalog-identifier injection via CREATE/DROP DATABASE.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var alreadyExistsPattern = regexp.MustCompile(`(?i)already exists`)

// Simulator creates and tears down batches of peer databases against the control database.
type Simulator struct {
	pool  *pgxpool.Pool
	cache *tenant.Cache
}

// New creates a Simulator backed by pool. cache may be nil, in which case
// Create/Cleanup skip cache invalidation. When non-nil, a successful batch
// of either operation invalidates the whole directory cache, since a newly
// created or dropped database name can match any number of previously
// cached glob patterns.
func New(pool *pgxpool.Pool, cache *tenant.Cache) *Simulator {
	return &Simulator{pool: pool, cache: cache}
}

// Create issues CREATE DATABASE for count databases named "<prefix><i>" for
// i in [startID, startID+count), with bounded concurrency. "Already exists"
// counts as created; other errors drop that name from the result. When
// template is non-empty, new databases are created from it instead of an
// empty public schema.
func (s *Simulator) Create(ctx context.Context, count int, prefix string, startID int, template string) ([]string, error) {
	if template != "" && !identifierPattern.MatchString(template) {
		return nil, fmt.Errorf("invalid template database name: %q", template)
	}

	names := make([]string, count)
	for i := 0; i < count; i++ {
		names[i] = fmt.Sprintf("%s%d", prefix, startID+i)
	}

	for _, name := range names {
		if !identifierPattern.MatchString(name) {
			return nil, fmt.Errorf("invalid database name: %q", name)
		}
	}

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var created []string

	for _, name := range names {
		wg.Add(1)
		go func(dbName string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if s.createOne(ctx, dbName, template) {
				mu.Lock()
				created = append(created, dbName)
				mu.Unlock()
			}
		}(name)
	}
	wg.Wait()

	if len(created) > 0 && s.cache != nil {
		s.cache.InvalidateAll()
	}

	return created, nil
}

func (s *Simulator) createOne(ctx context.Context, name, template string) bool {
	var stmt string
	if template != "" {
		stmt = fmt.Sprintf(`CREATE DATABASE %s TEMPLATE %s`, quoteIdent(name), quoteIdent(template))
	} else {
		stmt = fmt.Sprintf(`CREATE DATABASE %s`, quoteIdent(name))
	}

	_, err := s.pool.Exec(ctx, stmt)
	if err == nil {
		return true
	}
	return isAlreadyExists(err)
}

// Cleanup terminates sessions on each named database and drops it. Bounded
// concurrency 20, best-effort: failures are counted but not propagated.
func (s *Simulator) Cleanup(ctx context.Context, names []string) int {
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var removed int64
	var mu sync.Mutex

	for _, name := range names {
		if !identifierPattern.MatchString(name) {
			continue
		}
		wg.Add(1)
		go func(dbName string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if s.cleanupOne(ctx, dbName) {
				mu.Lock()
				removed++
				mu.Unlock()
			}
		}(name)
	}
	wg.Wait()

	if removed > 0 && s.cache != nil {
		s.cache.InvalidateAll()
	}

	return int(removed)
}

func (s *Simulator) cleanupOne(ctx context.Context, name string) bool {
	_, _ = s.pool.Exec(ctx,
		`SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()`,
		name,
	)

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS %s`, quoteIdent(name)))
	return err == nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

func isAlreadyExists(err error) bool {
	return err != nil && alreadyExistsPattern.MatchString(err.Error())
}
