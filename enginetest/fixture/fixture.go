// Package fixture provides in-memory implementations of the engine's
// external-collaborator contracts (engine.QueryExecutor, MetadataExecutor,
// WriteExecutor, ExpressionCompiler): an in-process stand-in for the real
// back end, for tests.
package fixture

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ppds-sql/queryengine/engine"
)

// Table is an in-memory paged table backing one entity.
type Table struct {
	mu       sync.Mutex
	rows     []engine.Row
	pageSize int
}

// NewTable returns a table seeded with rows, paging at pageSize (or 5000
// if pageSize <= 0, matching the engine's default page size).
func NewTable(rows []engine.Row, pageSize int) *Table {
	if pageSize <= 0 {
		pageSize = 5000
	}
	return &Table{rows: rows, pageSize: pageSize}
}

// Backend is the fixture's QueryExecutor/MetadataExecutor/WriteExecutor
// implementation: one Table per entity name, plus a metadata row set
// keyed by pseudo-entity name, and a write log for assertions.
type Backend struct {
	mu       sync.Mutex
	tables   map[string]*Table
	metadata map[string][]engine.Row
	writes   []engine.WriteRequest
	nextID   int64
}

// NewBackend returns an empty backend.
func NewBackend() *Backend {
	return &Backend{
		tables:   map[string]*Table{},
		metadata: map[string][]engine.Row{},
	}
}

// Seed registers rows under entity, overwriting any previous seed.
func (b *Backend) Seed(entity string, rows []engine.Row) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tables[strings.ToLower(entity)] = NewTable(rows, 0)
}

// SeedMetadata registers rows for a metadata pseudo-entity.
func (b *Backend) SeedMetadata(pseudoEntity string, rows []engine.Row) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metadata[strings.ToLower(pseudoEntity)] = rows
}

// Writes returns every WriteRequest submitted so far, for test assertions.
func (b *Backend) Writes() []engine.WriteRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]engine.WriteRequest, len(b.writes))
	copy(out, b.writes)
	return out
}

// ExecuteQuery implements engine.QueryExecutor. QueryText is treated as a
// literal entity name: this fixture has no FetchXML parser.
func (b *Backend) ExecuteQuery(ctx context.Context, queryText string, pageSize int, pagingCookie string, includeCount bool) (engine.QueryResult, error) {
	b.mu.Lock()
	table, ok := b.tables[strings.ToLower(queryText)]
	b.mu.Unlock()
	if !ok {
		return engine.QueryResult{}, fmt.Errorf("fixture: no table registered for %q", queryText)
	}

	start := 0
	if pagingCookie != "" {
		fmt.Sscanf(pagingCookie, "%d", &start)
	}
	if pageSize <= 0 {
		pageSize = table.pageSize
	}
	end := start + pageSize
	if end > len(table.rows) {
		end = len(table.rows)
	}
	page := table.rows[start:end]

	result := engine.QueryResult{
		Records:      page,
		MoreRecords:  end < len(table.rows),
		PagingCookie: fmt.Sprintf("%d", end),
	}
	if includeCount {
		n := len(table.rows)
		result.Count = &n
	}
	return result, nil
}

// QueryMetadata implements engine.MetadataExecutor.
func (b *Backend) QueryMetadata(ctx context.Context, pseudoEntity string, requestedColumns []string) ([]engine.Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rows, ok := b.metadata[strings.ToLower(pseudoEntity)]
	if !ok {
		return nil, fmt.Errorf("fixture: no metadata registered for %q", pseudoEntity)
	}
	if len(requestedColumns) == 0 {
		return rows, nil
	}
	out := make([]engine.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Project(requestedColumns)
	}
	return out, nil
}

// Execute implements engine.WriteExecutor: records every request and
// applies it to the in-memory table so a subsequent SELECT in the same
// test observes the write.
func (b *Backend) Execute(ctx context.Context, requests []engine.WriteRequest, options engine.WriteOptions) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes = append(b.writes, requests...)

	for _, req := range requests {
		key := strings.ToLower(req.Entity)
		table, ok := b.tables[key]
		if !ok {
			table = NewTable(nil, 0)
			b.tables[key] = table
		}
		switch req.Operation {
		case engine.WriteCreate:
			b.nextID++
			row := rowFromAttributes(req.Entity, req.Attributes)
			table.rows = append(table.rows, row)
		case engine.WriteUpdate:
			applyUpdate(table, req)
		case engine.WriteDelete:
			applyDelete(table, req)
		}
	}
	return int64(len(requests)), nil
}

func rowFromAttributes(entity string, attrs map[string]engine.Value) engine.Row {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	values := make([]engine.Value, len(names))
	for i, name := range names {
		values[i] = attrs[name]
	}
	return engine.NewRow(entity, names, values)
}

func applyUpdate(table *Table, req engine.WriteRequest) {
	for i, row := range table.rows {
		id, ok := row.Get("id")
		if !ok || id.StringKey() != req.ID.StringKey() {
			continue
		}
		for col, val := range req.Attributes {
			row = row.With(col, val)
		}
		table.rows[i] = row
		return
	}
}

func applyDelete(table *Table, req engine.WriteRequest) {
	out := table.rows[:0]
	for _, row := range table.rows {
		id, ok := row.Get("id")
		if ok && id.StringKey() == req.ID.StringKey() {
			continue
		}
		out = append(out, row)
	}
	table.rows = out
}
