package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"fuelstreams/internal/errs"
	"fuelstreams/internal/record"
)

// SortOrder is the direction rows come back in (QueryParams.Sort).
type SortOrder int

const (
	SortAsc SortOrder = iota
	SortDesc
)

// QueryParams is the historical-paging shape of SPEC_FULL.md §3 item 4,
// grounded on original_source's domains/*/query_params.rs BlocksQuery:
// equality Filters plus a cursor-bounded, directional page.
type QueryParams struct {
	Sort      SortOrder
	Before    *record.Cursor
	After     *record.Cursor
	First     *int
	Last      *int
	Limit     int
	Offset    int
	Namespace string
	FromBlock *uint64
	Filters   map[string]string
}

// buildFindManySQL renders one entity table's query for q. Composite
// tuple comparison ("(block_height, tx_index, ...) > (...)") gives exact
// lexicographic cursor semantics matching record.Cursor.Compare, the way
// Postgres row comparison is defined.
func buildFindManySQL(table string, schema tableSchema, q QueryParams) (string, []any) {
	cols := allColumns(schema)
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(cols, ", "), table)

	var preds []string
	var args []any
	n := 1

	filterKeys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		filterKeys = append(filterKeys, k)
	}
	sort.Strings(filterKeys)
	for _, col := range filterKeys {
		preds = append(preds, fmt.Sprintf("%s = $%d", col, n))
		args = append(args, q.Filters[col])
		n++
	}
	if q.FromBlock != nil {
		preds = append(preds, fmt.Sprintf("block_height >= $%d", n))
		args = append(args, int64(*q.FromBlock))
		n++
	}
	if q.Namespace != "" {
		preds = append(preds, fmt.Sprintf("subject LIKE $%d", n))
		args = append(args, q.Namespace+".%")
		n++
	}
	if q.After != nil {
		preds = append(preds, cursorPredicate(schema, ">", n))
		args = append(args, cursorArgs(schema, *q.After)...)
		n += len(schema.CursorColumns)
	}
	if q.Before != nil {
		preds = append(preds, cursorPredicate(schema, "<", n))
		args = append(args, cursorArgs(schema, *q.Before)...)
		n += len(schema.CursorColumns)
	}

	if len(preds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(preds, " AND "))
	}

	order := "ASC"
	if q.Sort == SortDesc || q.Last != nil {
		order = "DESC"
	}
	fmt.Fprintf(&b, " ORDER BY %s %s", strings.Join(schema.CursorColumns, ", "), order)

	switch {
	case q.First != nil:
		fmt.Fprintf(&b, " LIMIT %d", *q.First)
	case q.Last != nil:
		fmt.Fprintf(&b, " LIMIT %d", *q.Last)
	case q.Limit > 0:
		fmt.Fprintf(&b, " LIMIT %d OFFSET %d", q.Limit, q.Offset)
	}

	return b.String(), args
}

func cursorPredicate(schema tableSchema, op string, argStart int) string {
	phs := make([]string, len(schema.CursorColumns))
	for i := range schema.CursorColumns {
		phs[i] = fmt.Sprintf("$%d", argStart+i)
	}
	return fmt.Sprintf("(%s) %s (%s)", strings.Join(schema.CursorColumns, ", "), op, strings.Join(phs, ", "))
}

func cursorArgs(schema tableSchema, c record.Cursor) []any {
	row := record.Row{BlockHeight: c.BlockHeight, TxIndex: c.TxIndex, ElementIndex: c.ElementIndex}
	args := make([]any, len(schema.CursorColumns))
	for i, col := range schema.CursorColumns {
		args[i] = cursorValue(col, row)
	}
	return args
}

// FindMany runs a paginated, filtered query over one entity's table (spec
// §4.4 "find_many"). entityID is a subject entity id ("inputs.coin", ...);
// every variant sharing a table projects through the same Row shape.
func (s *Store) FindMany(ctx context.Context, entityID string, q QueryParams) ([]record.Row, error) {
	table, ok := record.TableName(entityID)
	if !ok {
		return nil, errs.New(errs.KindCodec, errs.ReasonDecode, "unknown entity "+entityID)
	}
	schema := tableSchemas[table]
	sql, args := buildFindManySQL(table, schema, q)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistence, errs.ReasonExecute, err, "find_many "+table)
	}
	defer rows.Close()

	cols := allColumns(schema)
	var out []record.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, errs.Wrap(errs.KindPersistence, errs.ReasonExecute, err, "scan "+table+" row")
		}
		out = append(out, rowFromValues(schema, cols, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindPersistence, errs.ReasonExecute, err, "iterate "+table+" rows")
	}

	if q.Last != nil {
		reverse(out)
	}
	return out, nil
}

func reverse(rows []record.Row) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

func isCursorElementColumn(schema tableSchema, col string) bool {
	for _, c := range schema.CursorColumns {
		if c == col && col != "block_height" && col != "tx_index" {
			return true
		}
	}
	return false
}

func rowFromValues(schema tableSchema, cols []string, vals []any) record.Row {
	row := record.Row{Filters: map[string]string{}}
	for i, col := range cols {
		v := vals[i]
		switch {
		case col == "block_height":
			row.BlockHeight = uint64(toInt64(v))
		case col == "tx_index":
			if v != nil {
				t := uint32(toInt64(v))
				row.TxIndex = &t
			}
		case col == "subject":
			row.Subject, _ = v.(string)
		case col == "value":
			if b, ok := v.([]byte); ok {
				row.Value = b
			}
		case col == "block_time":
			if t, ok := v.(time.Time); ok {
				row.BlockTime = t
			}
		case col == "created_at":
			if t, ok := v.(time.Time); ok {
				row.CreatedAt = t
			}
		case col == "entity_type":
			row.EntityTag, _ = v.(string)
		case isCursorElementColumn(schema, col):
			if v != nil {
				e := uint32(toInt64(v))
				row.ElementIndex = &e
			}
		default:
			if v != nil {
				row.Filters[col] = fmt.Sprintf("%v", v)
			}
		}
	}
	return row
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	default:
		return 0
	}
}

// StreamBySubject incrementally pages rows for entityID starting at
// fromHeight until the table is exhausted at its current head, then
// closes rowsCh. The subscription engine (component G) owns joining this
// historical drain with the live broker feed (spec §4.7).
func (s *Store) StreamBySubject(ctx context.Context, entityID string, filters map[string]string, namespace string, fromHeight uint64, pageSize int) (<-chan record.Row, <-chan error) {
	rowsCh := make(chan record.Row)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowsCh)
		defer close(errCh)

		var after *record.Cursor
		first := pageSize

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			q := QueryParams{Sort: SortAsc, First: &first, Filters: filters, Namespace: namespace}
			if after == nil {
				q.FromBlock = &fromHeight
			} else {
				q.After = after
			}
			page, err := s.FindMany(ctx, entityID, q)
			if err != nil {
				errCh <- err
				return
			}
			if len(page) == 0 {
				return
			}
			for _, row := range page {
				select {
				case rowsCh <- row:
				case <-ctx.Done():
					return
				}
				after = &record.Cursor{BlockHeight: row.BlockHeight, TxIndex: row.TxIndex, ElementIndex: row.ElementIndex}
			}
			if len(page) < pageSize {
				return
			}
		}
	}()

	return rowsCh, errCh
}
