package store

import (
	"strings"
	"testing"

	"fuelstreams/internal/record"
)

func u32(v uint32) *uint32 { return &v }

func TestTableSchemasCoverEveryEntity(t *testing.T) {
	for _, table := range []string{"blocks", "transactions", "inputs", "outputs", "receipts", "utxos", "predicates", "messages"} {
		schema, ok := tableSchemas[table]
		if !ok {
			t.Fatalf("missing schema for table %q", table)
		}
		if len(schema.CursorColumns) == 0 {
			t.Fatalf("table %q has no cursor columns", table)
		}
		found := false
		for _, c := range schema.FilterColumns {
			if c == "entity_type" {
				found = true
			}
		}
		if !found {
			t.Fatalf("table %q missing entity_type discriminator column", table)
		}
	}
}

func TestInputsSchemaIncludesVariantSpecificColumns(t *testing.T) {
	schema := tableSchemas["inputs"]
	want := []string{"owner_id", "asset_id", "contract_id", "sender_address", "recipient_address", "tx_id", "entity_type"}
	for _, col := range want {
		if !containsString(schema.FilterColumns, col) {
			t.Errorf("inputs schema missing column %q, got %v", col, schema.FilterColumns)
		}
	}
	for _, c := range schema.CursorColumns {
		if containsString(schema.FilterColumns, c) {
			t.Errorf("cursor column %q duplicated in filter columns", c)
		}
	}
}

func containsString(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}

func TestInsertRowSQLPlaceholdersAndConflictTarget(t *testing.T) {
	schema := tableSchemas["inputs"]
	row := record.Row{
		EntityTag:    "inputs.coin",
		BlockHeight:  10,
		TxIndex:      u32(1),
		ElementIndex: u32(0),
		Subject:      "ns.inputs.coin.10.0xtx.1.0.owner-1.asset-1",
		Value:        []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x04, 'a', 'b', 'c', 'd'},
		Filters:      map[string]string{"owner_id": "owner-1", "asset_id": "asset-1", "tx_id": "0xtx"},
	}

	sql, args := insertRowSQL("inputs", schema, row)

	if !strings.HasPrefix(sql, "INSERT INTO inputs (") {
		t.Fatalf("unexpected insert prefix: %s", sql)
	}
	if !strings.Contains(sql, "ON CONFLICT (block_height, tx_index, input_index) DO NOTHING") {
		t.Fatalf("missing expected conflict target: %s", sql)
	}

	cols := allColumns(schema)
	if len(args) != len(cols) {
		t.Fatalf("expected %d args for %d columns, got %d", len(cols), len(cols), len(args))
	}
	wantPlaceholders := len(cols)
	gotPlaceholders := strings.Count(sql, "$")
	if gotPlaceholders != wantPlaceholders {
		t.Fatalf("expected %d placeholders, got %d", wantPlaceholders, gotPlaceholders)
	}
}

func TestInsertRowSQLLeavesUnsetFiltersNil(t *testing.T) {
	schema := tableSchemas["inputs"]
	row := record.Row{
		EntityTag:    "inputs.coin",
		BlockHeight:  1,
		TxIndex:      u32(0),
		ElementIndex: u32(0),
		Filters:      map[string]string{"owner_id": "owner-1"},
	}

	_, args := insertRowSQL("inputs", schema, row)
	cols := allColumns(schema)

	for i, c := range cols {
		if c == "asset_id" {
			if args[i] != nil {
				t.Errorf("expected nil for unset filter column %q, got %v", c, args[i])
			}
		}
		if c == "owner_id" {
			if args[i] != "owner-1" {
				t.Errorf("expected owner-1, got %v", args[i])
			}
		}
	}
}

func TestBuildFindManySQLOrderingAndLimit(t *testing.T) {
	schema := tableSchemas["blocks"]
	first := 20
	sql, args := buildFindManySQL("blocks", schema, QueryParams{Sort: SortAsc, First: &first})

	if !strings.Contains(sql, "ORDER BY block_height ASC") {
		t.Fatalf("expected ascending order by block_height, got: %s", sql)
	}
	if !strings.Contains(sql, "LIMIT 20") {
		t.Fatalf("expected LIMIT 20, got: %s", sql)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args for an unfiltered query, got %v", args)
	}
}

func TestBuildFindManySQLCursorPredicateUsesCompositeTuple(t *testing.T) {
	schema := tableSchemas["inputs"]
	after := record.ElemCursor(5, 2, 1)
	sql, args := buildFindManySQL("inputs", schema, QueryParams{After: &after})

	if !strings.Contains(sql, "(block_height, tx_index, input_index) > ($1, $2, $3)") {
		t.Fatalf("expected composite tuple predicate, got: %s", sql)
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 cursor args, got %d: %v", len(args), args)
	}
	if args[0] != int64(5) || args[1] != int64(2) || args[2] != int64(1) {
		t.Fatalf("unexpected cursor args: %v", args)
	}
}

func TestBuildFindManySQLLastOrdersDescendingWithLimit(t *testing.T) {
	schema := tableSchemas["blocks"]
	last := 5
	sql, _ := buildFindManySQL("blocks", schema, QueryParams{Last: &last})

	if !strings.Contains(sql, "ORDER BY block_height DESC") {
		t.Fatalf("expected descending order for a last-N page, got: %s", sql)
	}
	if !strings.Contains(sql, "LIMIT 5") {
		t.Fatalf("expected LIMIT 5, got: %s", sql)
	}
}

func TestBuildFindManySQLNamespaceAndFromBlock(t *testing.T) {
	schema := tableSchemas["blocks"]
	height := uint64(100)
	sql, args := buildFindManySQL("blocks", schema, QueryParams{Namespace: "ns", FromBlock: &height})

	if !strings.Contains(sql, "block_height >= $1") {
		t.Fatalf("expected from_block predicate first, got: %s", sql)
	}
	if !strings.Contains(sql, "subject LIKE $2") {
		t.Fatalf("expected namespace predicate second, got: %s", sql)
	}
	if args[0] != int64(100) || args[1] != "ns.%" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestRowFromValuesRoundTripsCursorAndFilters(t *testing.T) {
	schema := tableSchemas["inputs"]
	cols := allColumns(schema)

	vals := make([]any, len(cols))
	for i, c := range cols {
		switch c {
		case "block_height":
			vals[i] = int64(7)
		case "tx_index":
			vals[i] = int64(2)
		case "input_index":
			vals[i] = int64(1)
		case "subject":
			vals[i] = "ns.inputs.coin.7.0xtx.2.1.owner-1.asset-1"
		case "value":
			vals[i] = []byte{0xAA}
		case "entity_type":
			vals[i] = "inputs.coin"
		case "owner_id":
			vals[i] = "owner-1"
		default:
			vals[i] = nil
		}
	}

	row := rowFromValues(schema, cols, vals)

	if row.BlockHeight != 7 {
		t.Errorf("expected block_height 7, got %d", row.BlockHeight)
	}
	if row.TxIndex == nil || *row.TxIndex != 2 {
		t.Errorf("expected tx_index 2, got %v", row.TxIndex)
	}
	if row.ElementIndex == nil || *row.ElementIndex != 1 {
		t.Errorf("expected element_index 1, got %v", row.ElementIndex)
	}
	if row.EntityTag != "inputs.coin" {
		t.Errorf("expected entity tag inputs.coin, got %q", row.EntityTag)
	}
	if row.Filters["owner_id"] != "owner-1" {
		t.Errorf("expected filter owner_id=owner-1, got %v", row.Filters)
	}
	if _, ok := row.Filters["asset_id"]; ok {
		t.Errorf("did not expect a nil filter value to populate Filters, got %v", row.Filters)
	}
}
