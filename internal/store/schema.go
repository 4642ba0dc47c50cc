package store

import (
	"sort"

	"fuelstreams/internal/record"
	"fuelstreams/internal/subject"
)

// tableSchema is the column layout of one shared relational table (spec
// §6.2): the cursor component columns (always present, NOT NULL) plus
// every filter column any entity variant mapping to this table may
// populate. A given row only ever sets the subset matching its own
// subject.Definition; the rest are NULL.
type tableSchema struct {
	CursorColumns []string
	FilterColumns []string
}

var tableSchemas = buildTableSchemas()

// cursorColumnsByTable is the fixed three-tuple (or fewer) of ordering
// columns per table, matching record.Cursor's (block_height, tx_index,
// element_index) shape with the element column renamed per entity family
// (input_index, output_index, receipt_index, message_index).
var cursorColumnsByTable = map[string][]string{
	"blocks":       {"block_height"},
	"transactions": {"block_height", "tx_index"},
	"inputs":       {"block_height", "tx_index", "input_index"},
	"outputs":      {"block_height", "tx_index", "output_index"},
	"receipts":     {"block_height", "tx_index", "receipt_index"},
	"utxos":        {"block_height", "tx_index", "input_index"},
	"predicates":   {"block_height", "tx_index", "input_index"},
	"messages":     {"block_height", "message_index"},
}

// buildTableSchemas derives each table's filter-column set from the union
// of subject.Definition field columns of every entity mapping to that
// table, so the schema can never drift from the subject model it mirrors.
func buildTableSchemas() map[string]tableSchema {
	filterSet := map[string]map[string]bool{}
	for _, id := range subject.AllIDs() {
		def, ok := subject.Lookup(id)
		if !ok {
			continue
		}
		table, ok := record.TableName(id)
		if !ok {
			continue
		}
		if filterSet[table] == nil {
			filterSet[table] = map[string]bool{"entity_type": true}
		}
		cursorSet := toSet(cursorColumnsByTable[table])
		for _, f := range def.Fields {
			if cursorSet[f.Column] {
				continue
			}
			filterSet[table][f.Column] = true
		}
	}

	schemas := make(map[string]tableSchema, len(cursorColumnsByTable))
	for table, cursorCols := range cursorColumnsByTable {
		filters := make([]string, 0, len(filterSet[table]))
		for c := range filterSet[table] {
			filters = append(filters, c)
		}
		sort.Strings(filters)
		schemas[table] = tableSchema{CursorColumns: cursorCols, FilterColumns: filters}
	}
	return schemas
}

func toSet(xs []string) map[string]bool {
	s := make(map[string]bool, len(xs))
	for _, x := range xs {
		s[x] = true
	}
	return s
}

// commonColumns are present on every table alongside the cursor and filter
// columns (spec §6.2: "subject ..., value ..., block_time and created_at").
var commonColumns = []string{"subject", "value", "block_time", "created_at"}

// allColumns returns the full, stable column order used for both INSERT
// and SELECT: cursor columns, common columns, then sorted filter columns.
func allColumns(schema tableSchema) []string {
	cols := make([]string, 0, len(schema.CursorColumns)+len(commonColumns)+len(schema.FilterColumns))
	cols = append(cols, schema.CursorColumns...)
	cols = append(cols, commonColumns...)
	cols = append(cols, schema.FilterColumns...)
	return cols
}
