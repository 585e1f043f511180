// internal/join/engine.go
//
// The user-scoped join engine: given a target end-user identifier, the
// schema catalog's table metadata and the account's declared relations, it
// assembles the minimal consistent set of per-table record lists relevant
// to that user. Seeding starts from every table with an identity column;
// expansion is a fixpoint worklist over the (undirected) relation graph.
package join

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/loomworks/loom-backend/internal/domain"
	"github.com/loomworks/loom-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// Fetcher retrieves the live record list for one table. A returned error is
// a per-table fetch failure, never fatal to a run.
type Fetcher interface {
	FetchTable(ctx context.Context, table domain.Table) ([]domain.Record, error)
}

// Result maps table names to their matching records, preserving the order
// in which tables were first marked processed.
type Result struct {
	order   []string
	byTable map[string][]domain.Record
}

func newResult() *Result {
	return &Result{byTable: make(map[string][]domain.Record)}
}

func (r *Result) add(table string, records []domain.Record) {
	if _, ok := r.byTable[table]; ok {
		return
	}
	r.order = append(r.order, table)
	r.byTable[table] = records
}

// Tables returns the processed table names in first-processed order.
func (r *Result) Tables() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Records returns the kept records for a table, in post-filter fetch order.
// Nil when the table was never processed.
func (r *Result) Records(table string) []domain.Record {
	return r.byTable[table]
}

// Len is the number of processed tables.
func (r *Result) Len() int {
	return len(r.order)
}

// MarshalJSON emits the result as an object keyed by table name, keeping
// first-processed order so the model sees tables in traversal order.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.byTable[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Engine runs user-scoped collection. Safe for concurrent use; all mutable
// state lives in the per-call run.
type Engine struct {
	fetcher Fetcher
}

// NewEngine builds a join engine on top of the given fetcher.
func NewEngine(fetcher Fetcher) *Engine {
	return &Engine{fetcher: fetcher}
}

// run holds one Collect invocation's mutable state. The mutex makes each
// table's (processed, result, observed-values) commit atomic relative to
// other tables filtered in the same pass.
type run struct {
	mu        sync.Mutex
	result    *Result
	processed map[string]bool
	observed  map[string]map[string]bool // "table.column" → string-cast value set
	fetched   map[string][]domain.Record // per-run fetch cache
	failed    map[string]bool            // per-run failure cache
}

func observedKey(table, column string) string {
	return table + "." + column
}

// Collect gathers all records belonging to targetUserID across the given
// tables, expanding transitively along relations until a fixpoint.
//
// Phase 1 seeds from every table with an identity column; phase 2 repeats
// relation-driven passes until a full pass adds no table. Each table is
// committed at most once, so the loop halts within len(tables) passes.
func (e *Engine) Collect(ctx context.Context, targetUserID string, tables []domain.Table, relations []domain.Relation) (*Result, error) {
	rs := &run{
		result:    newResult(),
		processed: make(map[string]bool, len(tables)),
		observed:  make(map[string]map[string]bool),
		fetched:   make(map[string][]domain.Record, len(tables)),
		failed:    make(map[string]bool),
	}

	// Phase 1: seed from identity columns.
	if err := e.forEachConcurrently(ctx, tables, func(t domain.Table) {
		e.seedTable(ctx, rs, targetUserID, t)
	}); err != nil {
		return nil, err
	}

	// Phase 2: fixpoint expansion. Bounded by len(tables) passes since a
	// pass without progress stops the loop and each pass that progresses
	// commits at least one table.
	for pass := 0; pass < len(tables); pass++ {
		pending := rs.pendingOf(tables)
		if len(pending) == 0 {
			break
		}
		progressed := false
		var progressMu sync.Mutex
		if err := e.forEachConcurrently(ctx, pending, func(t domain.Table) {
			if e.expandTable(ctx, rs, t, relations) {
				progressMu.Lock()
				progressed = true
				progressMu.Unlock()
			}
		}); err != nil {
			return nil, err
		}
		if !progressed {
			break
		}
	}

	return rs.result, nil
}

// forEachConcurrently runs fn for every table of one pass in its own
// goroutine. Fetches within a pass are independent; shared state is
// guarded inside the run.
func (e *Engine) forEachConcurrently(ctx context.Context, tables []domain.Table, fn func(domain.Table)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("collection aborted: %w", err)
	}
	var wg sync.WaitGroup
	for _, t := range tables {
		wg.Add(1)
		go func(table domain.Table) {
			defer wg.Done()
			fn(table)
		}(t)
	}
	wg.Wait()
	return ctx.Err()
}

// seedTable fetches a table with identity columns and keeps records whose
// identity value matches the target. Empty survivors never mark a table
// processed.
func (e *Engine) seedTable(ctx context.Context, rs *run, targetUserID string, table domain.Table) bool {
	var idColumns []string
	for _, col := range table.Columns {
		if col.IsUserID {
			idColumns = append(idColumns, col.Name)
		}
	}
	if len(idColumns) == 0 {
		return false
	}

	records, ok := e.fetchCached(ctx, rs, table)
	if !ok {
		return false
	}

	kept := make([]domain.Record, 0)
	for _, rec := range records {
		for _, colName := range idColumns {
			if val, ok := stringCast(rec[colName]); ok && val == targetUserID {
				kept = append(kept, rec)
				break
			}
		}
	}
	if len(kept) == 0 {
		return false
	}

	rs.commit(table, kept)
	customLog.Debugf("Join: seeded table '%s' with %d records", table.Name, len(kept))
	return true
}

// expandTable tries every relation touching the table whose other endpoint
// is already processed. The first relation whose join succeeds wins; a
// relation whose other-side column was never observed is skipped.
func (e *Engine) expandTable(ctx context.Context, rs *run, table domain.Table, relations []domain.Relation) bool {
	for _, rel := range relations {
		var joinColumn, otherTable, otherColumn string
		switch table.Name {
		case rel.FromTable:
			joinColumn, otherTable, otherColumn = rel.FromColumn, rel.ToTable, rel.ToColumn
		case rel.ToTable:
			joinColumn, otherTable, otherColumn = rel.ToColumn, rel.FromTable, rel.FromColumn
		default:
			continue
		}

		rs.mu.Lock()
		if rs.processed[table.Name] {
			rs.mu.Unlock()
			return false
		}
		usable := rs.processed[otherTable]
		values := rs.observed[observedKey(otherTable, otherColumn)]
		rs.mu.Unlock()
		if !usable || values == nil {
			continue
		}

		records, ok := e.fetchCached(ctx, rs, table)
		if !ok {
			return false
		}

		kept := make([]domain.Record, 0)
		for _, rec := range records {
			if val, ok := stringCast(rec[joinColumn]); ok && values[val] {
				kept = append(kept, rec)
			}
		}
		if len(kept) == 0 {
			continue
		}

		rs.commit(table, kept)
		customLog.Debugf("Join: expanded into table '%s' via %s.%s with %d records",
			table.Name, otherTable, otherColumn, len(kept))
		return true
	}
	return false
}

// fetchCached fetches a table's records at most once per run; failures are
// cached for the run too, so a failing endpoint is not hammered on every
// pass.
func (e *Engine) fetchCached(ctx context.Context, rs *run, table domain.Table) ([]domain.Record, bool) {
	rs.mu.Lock()
	if records, ok := rs.fetched[table.Name]; ok {
		rs.mu.Unlock()
		return records, true
	}
	if rs.failed[table.Name] {
		rs.mu.Unlock()
		return nil, false
	}
	rs.mu.Unlock()

	records, err := e.fetcher.FetchTable(ctx, table)

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if err != nil {
		customLog.Warnf("Join: fetch for table '%s' failed, skipping for this run: %v", table.Name, err)
		rs.failed[table.Name] = true
		return nil, false
	}
	rs.fetched[table.Name] = records
	return records, true
}

// commit atomically marks a table processed, stores its records and
// populates the observed-values index for every column. A table is
// committed at most once; the first successful filter wins.
func (rs *run) commit(table domain.Table, kept []domain.Record) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.processed[table.Name] {
		return
	}
	rs.processed[table.Name] = true
	rs.result.add(table.Name, kept)
	for _, col := range table.Columns {
		set := make(map[string]bool, len(kept))
		for _, rec := range kept {
			if val, ok := stringCast(rec[col.Name]); ok {
				set[val] = true
			}
		}
		rs.observed[observedKey(table.Name, col.Name)] = set
	}
}

func (rs *run) pendingOf(tables []domain.Table) []domain.Table {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	pending := make([]domain.Table, 0, len(tables))
	for _, t := range tables {
		if !rs.processed[t.Name] {
			pending = append(pending, t)
		}
	}
	return pending
}

// stringCast renders a record field for comparison. Source field types are
// untrusted, so stringified equality is the only safe semantics. Nil or
// missing values never match anything.
func stringCast(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case float64:
		// JSON numbers decode as float64; render 42.0 as "42".
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		return t.String(), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return fmt.Sprintf("%v", t), true
	}
}
