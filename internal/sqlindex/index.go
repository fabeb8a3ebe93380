package sqlindex

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/roach88/gridpred/internal/index"
	"github.com/roach88/gridpred/internal/queryerr"
	"github.com/roach88/gridpred/internal/value"
)

// Index is a persistent ordered index over one attribute. It implements
// index.OrderedIndex, index.Writer and io.Closer.
//
// NULL attribute values are not indexed.
type Index struct {
	store     *Store
	name      string
	attribute string
	kind      value.Kind
	closed    atomic.Bool
}

var (
	_ index.OrderedIndex = (*Index)(nil)
	_ index.Writer       = (*Index)(nil)
	_ index.Checker      = (*Index)(nil)
)

func (x *Index) Name() string { return x.name }
func (x *Index) Attribute() string { return x.attribute }
func (x *Index) Kind() value.Kind { return x.kind }
func (x *Index) Ordered() bool { return true }

// Check implements index.Checker.
func (x *Index) Check(e index.Entry) error { return index.CheckDomain(x.attribute, x.kind, e) }

// Close releases the index's reference on its store.
func (x *Index) Close() error {
	if !x.closed.CompareAndSwap(false, true) {
		return nil
	}
	return x.store.release()
}

// Insert adds or replaces e. A non-null attribute value outside the index's
// comparable domain is rejected with TYPE_MISMATCH.
func (x *Index) Insert(ctx context.Context, e index.Entry) error {
	if x.closed.Load() {
		return ErrClosed
	}
	v := e.Attribute(x.attribute)
	if value.IsNull(v) {
		return x.Remove(ctx, e.Key)
	}
	if err := x.Check(e); err != nil {
		return err
	}

	attrs, err := encodeAttributes(e.Attributes)
	if err != nil {
		return fmt.Errorf("insert %s: %w", e.Key, err)
	}
	sortValue, _ := sortParam(v)

	_, err = x.store.db.ExecContext(ctx, `
		INSERT INTO index_entries (index_name, key, sort_value, is_nan, attributes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(index_name, key) DO UPDATE SET
			sort_value = excluded.sort_value,
			is_nan = excluded.is_nan,
			attributes = excluded.attributes
	`, x.name, e.Key, sortValue, isNaN(v), attrs)
	if err != nil {
		return fmt.Errorf("insert %s: %w", e.Key, err)
	}
	return nil
}

// Remove deletes the entry with key.
func (x *Index) Remove(ctx context.Context, key string) error {
	if x.closed.Load() {
		return ErrClosed
	}
	_, err := x.store.db.ExecContext(ctx,
		"DELETE FROM index_entries WHERE index_name = ? AND key = ?", x.name, key)
	if err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Lookup returns the entries whose value equals v.
func (x *Index) Lookup(ctx context.Context, v value.Value) (index.EntrySet, error) {
	if value.IsNull(v) {
		return index.EntrySet{}, nil
	}
	return x.RangeRetrieve(ctx, v, true, v, true)
}

// RangeRetrieve implements index.OrderedIndex. SQLite narrows the candidates
// through its (index_name, sort_value) index; each candidate is then checked
// against the exact bounds with value.Order.
func (x *Index) RangeRetrieve(ctx context.Context, from value.Value, fromInclusive bool, to value.Value, toInclusive bool) (index.EntrySet, error) {
	if x.closed.Load() {
		return nil, ErrClosed
	}

	var err error
	if !value.IsNull(from) {
		if from, err = value.ConvertBound(x.kind, from); err != nil {
			return nil, queryerr.WithAttribute(err, x.attribute)
		}
	}
	if !value.IsNull(to) {
		if to, err = value.ConvertBound(x.kind, to); err != nil {
			return nil, queryerr.WithAttribute(err, x.attribute)
		}
	}

	query, params := rangeQuery(x.name, from, to)
	rows, err := x.store.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("range %s: %w", x.name, err)
	}
	defer rows.Close()

	var entries []index.Entry
	for rows.Next() {
		var (
			key  string
			data []byte
		)
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", x.name, err)
		}
		attrs, err := decodeAttributes(data)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", key, err)
		}
		e := index.Entry{Key: key, Attributes: attrs}
		if within(e.Attribute(x.attribute), from, fromInclusive, to, toInclusive) {
			entries = append(entries, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", x.name, err)
	}

	return index.NewEntrySet(entries...), nil
}

// Len returns the number of indexed entries.
func (x *Index) Len(ctx context.Context) (int, error) {
	var n int
	err := x.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM index_entries WHERE index_name = ?", x.name,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", x.name, err)
	}
	return n, nil
}

// within applies converted bounds the way index.Sorted does. A nil bound is
// open.
func within(v, from value.Value, fromInclusive bool, to value.Value, toInclusive bool) bool {
	if value.IsNull(v) {
		return false
	}
	if !value.IsNull(from) {
		c := value.Order(v, from)
		if c < 0 || (c == 0 && !fromInclusive) {
			return false
		}
	}
	if !value.IsNull(to) {
		c := value.Order(v, to)
		if c > 0 || (c == 0 && !toInclusive) {
			return false
		}
	}
	return true
}
