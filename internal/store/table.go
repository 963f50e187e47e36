// Package store provides a generic keyed record table over Postgres.
//
// Records are stored as JSON documents addressed by a partition key and an
// optional numeric sort key. Reads decode tolerantly: a row that fails the
// record schema is dropped with a logged warning instead of aborting the
// whole read, so one malformed historical record never blocks retrieval.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// BatchLimit is the maximum number of records per batch statement. Writes
// larger than this are split into chunks issued concurrently.
const BatchLimit = 25

// Querier is the subset of pgxpool.Pool the table needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Key addresses one record. Sort is nil for tables keyed by partition only.
type Key struct {
	Partition string
	Sort      *int64
}

// Condition selects records within one partition. SortSince, when set, is an
// inclusive lower bound on the sort key. NewestFirst reverses the natural
// ascending sort-key order.
type Condition struct {
	Partition   string
	SortSince   *int64
	NewestFirst bool
}

// Table is a generic record store for one record type. Concrete stores
// compose a Table per record kind rather than subclassing anything.
type Table[T any] struct {
	db       Querier
	name     string
	key      func(T) Key
	log      *zap.Logger
	validate *validator.Validate
}

func NewTable[T any](db Querier, name string, key func(T) Key, log *zap.Logger) *Table[T] {
	return &Table[T]{
		db:       db,
		name:     name,
		key:      key,
		log:      log,
		validate: validator.New(),
	}
}

// BatchPut writes items in chunks of at most BatchLimit, one statement per
// chunk, chunks in flight concurrently. Items from chunks the store failed
// to accept are returned for the caller to log; failures here are soft and
// never raised.
func (t *Table[T]) BatchPut(ctx context.Context, items []T) []T {
	if len(items) == 0 {
		return nil
	}

	var (
		mu          sync.Mutex
		unprocessed []T
		wg          sync.WaitGroup
	)
	for _, c := range chunk(items, BatchLimit) {
		wg.Add(1)
		go func(c []T) {
			defer wg.Done()
			if err := t.putChunk(ctx, c); err != nil {
				t.log.Warn("batch_put_chunk_failed",
					zap.String("table", t.name),
					zap.Int("items", len(c)),
					zap.Error(err),
				)
				mu.Lock()
				unprocessed = append(unprocessed, c...)
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()
	return unprocessed
}

func (t *Table[T]) putChunk(ctx context.Context, items []T) error {
	var (
		sb   strings.Builder
		args []any
	)
	fmt.Fprintf(&sb, "INSERT INTO %s (pk, sk, doc) VALUES ", t.name)
	for i, item := range items {
		doc, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		k := t.key(item)
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d)", len(args)+1, len(args)+2, len(args)+3)
		args = append(args, k.Partition, k.Sort, doc)
	}
	if _, err := t.db.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	return nil
}

// Query returns the valid records matching cond, ordered by sort key.
func (t *Table[T]) Query(ctx context.Context, cond Condition) ([]T, error) {
	var (
		sb   strings.Builder
		args []any
	)
	fmt.Fprintf(&sb, "SELECT doc FROM %s WHERE pk = $1", t.name)
	args = append(args, cond.Partition)
	if cond.SortSince != nil {
		fmt.Fprintf(&sb, " AND sk >= $%d", len(args)+1)
		args = append(args, *cond.SortSince)
	}
	order := "ASC"
	if cond.NewestFirst {
		order = "DESC"
	}
	fmt.Fprintf(&sb, " ORDER BY sk %s", order)

	rows, err := t.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.name, err)
	}
	defer rows.Close()
	return t.collect(rows)
}

// Scan returns every valid record in the table.
func (t *Table[T]) Scan(ctx context.Context) ([]T, error) {
	rows, err := t.db.Query(ctx, fmt.Sprintf("SELECT doc FROM %s", t.name))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", t.name, err)
	}
	defer rows.Close()
	return t.collect(rows)
}

// BatchDelete removes records by key, chunked like BatchPut. Keys from
// failed chunks are returned, not raised.
func (t *Table[T]) BatchDelete(ctx context.Context, keys []Key) []Key {
	if len(keys) == 0 {
		return nil
	}

	var (
		mu          sync.Mutex
		unprocessed []Key
		wg          sync.WaitGroup
	)
	for _, c := range chunk(keys, BatchLimit) {
		wg.Add(1)
		go func(c []Key) {
			defer wg.Done()
			if err := t.deleteChunk(ctx, c); err != nil {
				t.log.Warn("batch_delete_chunk_failed",
					zap.String("table", t.name),
					zap.Int("keys", len(c)),
					zap.Error(err),
				)
				mu.Lock()
				unprocessed = append(unprocessed, c...)
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()
	return unprocessed
}

func (t *Table[T]) deleteChunk(ctx context.Context, keys []Key) error {
	var (
		sb   strings.Builder
		args []any
	)
	fmt.Fprintf(&sb, "DELETE FROM %s WHERE ", t.name)
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(" OR ")
		}
		if k.Sort != nil {
			fmt.Fprintf(&sb, "(pk = $%d AND sk = $%d)", len(args)+1, len(args)+2)
			args = append(args, k.Partition, *k.Sort)
		} else {
			fmt.Fprintf(&sb, "(pk = $%d AND sk IS NULL)", len(args)+1)
			args = append(args, k.Partition)
		}
	}
	if _, err := t.db.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("delete chunk: %w", err)
	}
	return nil
}

func (t *Table[T]) collect(rows pgx.Rows) ([]T, error) {
	var out []T
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if v, ok := t.decode(raw); ok {
			out = append(out, v)
		}
	}
	return out, rows.Err()
}

// decode is the tolerant read path. Unknown fields and validator failures
// both skip the row with a warning.
func (t *Table[T]) decode(raw []byte) (T, bool) {
	var v T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		t.log.Warn("record_decode_failed",
			zap.String("table", t.name),
			zap.Error(err),
		)
		return v, false
	}
	if err := t.validate.Struct(v); err != nil {
		t.log.Warn("record_validation_failed",
			zap.String("table", t.name),
			zap.Error(err),
		)
		return v, false
	}
	return v, true
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
