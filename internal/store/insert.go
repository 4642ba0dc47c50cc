package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"fuelstreams/internal/errs"
	"fuelstreams/internal/packet"
	"fuelstreams/internal/record"
)

// execer is the subset of pgxpool.Pool and pgx.Tx that insertRow needs,
// so the same insert path runs standalone or inside a block transaction.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// cursorValue extracts the DB value bound to one of a table's cursor
// columns. Postgres has no unsigned integer type, so every cursor
// component is bound as a signed bigint/integer the way the rest of the
// schema does.
func cursorValue(col string, row record.Row) any {
	switch col {
	case "block_height":
		return int64(row.BlockHeight)
	case "tx_index":
		if row.TxIndex == nil {
			return nil
		}
		return int64(*row.TxIndex)
	default: // input_index, output_index, receipt_index, message_index
		if row.ElementIndex == nil {
			return nil
		}
		return int64(*row.ElementIndex)
	}
}

// insertRowSQL builds the parameterized upsert-free insert of spec I2:
// "ON CONFLICT (cursor columns) DO NOTHING" makes re-delivery of an
// already-committed block idempotent rather than an error.
func insertRowSQL(table string, schema tableSchema, row record.Row) (string, []any) {
	cols := allColumns(schema)
	args := make([]any, 0, len(cols))

	for _, c := range schema.CursorColumns {
		args = append(args, cursorValue(c, row))
	}
	args = append(args, row.Subject, row.Value, row.BlockTime, row.CreatedAt)
	for _, c := range schema.FilterColumns {
		if c == "entity_type" {
			args = append(args, row.EntityTag)
			continue
		}
		if v, ok := row.Filters[c]; ok {
			args = append(args, v)
		} else {
			args = append(args, nil)
		}
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(schema.CursorColumns, ", "),
	)
	return query, args
}

// InsertPacket projects pkt to its row and inserts it through ex, which may
// be the pool directly or a transaction (InsertBlockAtomically's path).
// Returns whether the row was newly inserted (false on a conflict no-op).
func InsertPacket(ctx context.Context, ex execer, pkt packet.Packet) (bool, error) {
	table, ok := record.TableName(pkt.SubjectPayload)
	if !ok {
		return false, errs.New(errs.KindCodec, errs.ReasonDecode, "unknown entity "+pkt.SubjectPayload)
	}
	schema := tableSchemas[table]
	row := record.Row{
		EntityTag:    pkt.SubjectPayload,
		BlockHeight:  pkt.Cursor.BlockHeight,
		TxIndex:      pkt.Cursor.TxIndex,
		ElementIndex: pkt.Cursor.ElementIndex,
		Subject:      pkt.Subject,
		Value:        pkt.Value,
		BlockTime:    blockTimeOf(pkt.BlockTimestamp),
		CreatedAt:    blockTimeOf(pkt.BlockTimestamp),
		Filters:      pkt.Filters,
	}

	sql, args := insertRowSQL(table, schema, row)
	tag, err := ex.Exec(ctx, sql, args...)
	if err != nil {
		return false, errs.Wrap(errs.KindPersistence, errs.ReasonExecute, err, "insert "+table+" row")
	}
	return tag.RowsAffected() > 0, nil
}
