package store

import "testing"

func TestMigrationStatementsCoverEveryTableAndAPIKeys(t *testing.T) {
	stmts := MigrationStatements()
	if len(stmts) != len(tableSchemas)+1 {
		t.Fatalf("expected %d statements, got %d", len(tableSchemas)+1, len(stmts))
	}
	foundAPIKeys := false
	for _, s := range stmts {
		if containsString(s, "api_keys") {
			foundAPIKeys = true
		}
	}
	if !foundAPIKeys {
		t.Error("expected an api_keys table statement")
	}
}

func TestCreateTableSQLIncludesPrimaryKeyOnCursorColumns(t *testing.T) {
	schema := tableSchemas["inputs"]
	sql := createTableSQL("inputs", schema)
	if !containsString(sql, "PRIMARY KEY (block_height, tx_index, input_index)") {
		t.Errorf("expected composite primary key clause, got: %s", sql)
	}
}
