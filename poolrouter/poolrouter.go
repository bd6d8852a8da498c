// Package poolrouter implements the dynamic multi-dialect pool described in
// section 4.5: a process-wide keyed map from data source id to a dialect
// tagged connection pool, with insert-on-miss semantics and no removal in
// the base design.
package poolrouter

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"golang.org/x/sync/singleflight"

	"github.com/nlsql/semcore/ontology"
)

// maxConnections caps concurrent external load per source (section 5).
const maxConnections = 5

// idleTimeout recycles connections that have sat idle too long; carried
// over from the original implementation's pool builder (see SPEC_FULL's
// "Supplemented features").
const idleTimeout = 10 * time.Minute

// PoolCreateFailedError wraps a connection failure on first access to a
// source. The pool is never cached on this path, so the next request
// retries (section 7).
type PoolCreateFailedError struct {
	SourceID string
	Err      error
}

func (e *PoolCreateFailedError) Error() string {
	return fmt.Sprintf("pool create failed for source %s: %s", e.SourceID, e.Err)
}

func (e *PoolCreateFailedError) Unwrap() error { return e.Err }

// ExecutionError wraps a SQL execution failure against an already-pooled
// source.
type ExecutionError struct {
	SourceID string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error on source %s: %s", e.SourceID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// DynamicPool is the two-variant sum type over supported dialects. SQL
// execution goes through the same database/sql handle for both dialects;
// the router dispatches on DBType only for the metadata probes. Callers
// never see the underlying *sql.DB directly.
type DynamicPool struct {
	DBType ontology.DBType
	db     *sql.DB
}

// Query executes sql against the pool and returns the resulting rows. The
// caller is responsible for closing the returned *sql.Rows.
func (p *DynamicPool) Query(sqlText string) (*sql.Rows, error) {
	rows, err := p.db.Query(sqlText)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Router is the process-wide keyed pool map. It is safe for concurrent use;
// first access for a key creates the pool, subsequent accesses return the
// cached handle.
type Router struct {
	sources sourceResolver

	mu    sync.RWMutex
	pools map[string]*DynamicPool

	group singleflight.Group
}

// sourceResolver resolves a data source by id. ontology.Store satisfies
// this directly.
type sourceResolver interface {
	DataSource(id string) (ontology.DataSource, error)
}

// NewRouter constructs an empty Router backed by sources.
func NewRouter(sources sourceResolver) *Router {
	return &Router{
		sources: sources,
		pools:   make(map[string]*DynamicPool),
	}
}

// GetOrCreatePool returns the cached pool for sourceID, creating it on
// first access. Concurrent first accesses for the same id collapse onto a
// single dial via singleflight, so a stampede of requests for a
// newly-registered source opens exactly one connection pool.
func (r *Router) GetOrCreatePool(sourceID string) (*DynamicPool, error) {
	r.mu.RLock()
	if pool, ok := r.pools[sourceID]; ok {
		r.mu.RUnlock()
		return pool, nil
	}
	r.mu.RUnlock()

	v, err, _ := r.group.Do(sourceID, func() (any, error) {
		r.mu.RLock()
		if pool, ok := r.pools[sourceID]; ok {
			r.mu.RUnlock()
			return pool, nil
		}
		r.mu.RUnlock()

		source, err := r.sources.DataSource(sourceID)
		if err != nil {
			return nil, &PoolCreateFailedError{SourceID: sourceID, Err: err}
		}

		pool, err := dial(source)
		if err != nil {
			// Not cached: the next request retries (section 7).
			return nil, &PoolCreateFailedError{SourceID: sourceID, Err: err}
		}

		r.mu.Lock()
		r.pools[sourceID] = pool
		r.mu.Unlock()
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*DynamicPool), nil
}

func dial(source ontology.DataSource) (*DynamicPool, error) {
	var driverName string
	switch source.DBType {
	case ontology.DBTypePostgres:
		driverName = "postgres"
	case ontology.DBTypeMySQL:
		driverName = "mysql"
	default:
		return nil, fmt.Errorf("unsupported db_type %q", source.DBType)
	}

	db, err := sql.Open(driverName, source.ConnectionURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(maxConnections)
	db.SetConnMaxIdleTime(idleTimeout)

	return &DynamicPool{DBType: source.DBType, db: db}, nil
}

// Execute runs sqlText against the pool for sourceID and returns the
// resulting rows wrapped in an ExecutionError on failure.
func (r *Router) Execute(sourceID, sqlText string) (*sql.Rows, ontology.DBType, error) {
	pool, err := r.GetOrCreatePool(sourceID)
	if err != nil {
		return nil, "", err
	}
	rows, err := pool.Query(sqlText)
	if err != nil {
		return nil, pool.DBType, &ExecutionError{SourceID: sourceID, Err: err}
	}
	return rows, pool.DBType, nil
}

// ListTables is the admin-facing metadata probe: it is never called on the
// core request path, only by the (out-of-scope) admin surface.
func (r *Router) ListTables(sourceID string) ([]string, error) {
	pool, err := r.GetOrCreatePool(sourceID)
	if err != nil {
		return nil, err
	}

	var query string
	switch pool.DBType {
	case ontology.DBTypePostgres:
		query = `SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = 'public'`
	case ontology.DBTypeMySQL:
		query = `SHOW TABLES`
	default:
		return nil, fmt.Errorf("unsupported db_type %q", pool.DBType)
	}

	rows, err := pool.db.Query(query)
	if err != nil {
		return nil, &ExecutionError{SourceID: sourceID, Err: err}
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// ListColumns is the admin-facing metadata probe for a single table.
func (r *Router) ListColumns(sourceID, table string) ([]string, error) {
	pool, err := r.GetOrCreatePool(sourceID)
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	switch pool.DBType {
	case ontology.DBTypePostgres:
		rows, err = pool.db.Query(`SELECT column_name FROM information_schema.columns WHERE table_name = $1`, table)
	case ontology.DBTypeMySQL:
		rows, err = pool.db.Query(fmt.Sprintf("DESCRIBE `%s`", table))
	default:
		return nil, fmt.Errorf("unsupported db_type %q", pool.DBType)
	}
	if err != nil {
		return nil, &ExecutionError{SourceID: sourceID, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var names []string
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		// The first column is always the name: column_name (Postgres) or
		// Field (MySQL's DESCRIBE).
		if s, ok := dest[0].(string); ok {
			names = append(names, s)
		} else if b, ok := dest[0].([]byte); ok {
			names = append(names, string(b))
		}
	}
	return names, rows.Err()
}
