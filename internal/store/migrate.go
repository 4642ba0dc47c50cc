package store

import (
	"fmt"
	"sort"
)

// MigrationStatements renders the DDL for spec §6.2's relational schema:
// one table per entity family, derived from the same tableSchemas this
// package's insert/query paths already use, so the schema can never
// drift from the code that reads and writes it. Plus the api_keys table
// backing internal/auth's Lookup, which isn't a record family and so
// isn't derived from the subject registry.
func MigrationStatements() []string {
	tables := orderedTables()
	stmts := make([]string, 0, len(tables)+1)
	for _, table := range tables {
		stmts = append(stmts, createTableSQL(table, tableSchemas[table]))
	}
	stmts = append(stmts, createAPIKeysTableSQL())
	return stmts
}

// orderedTables returns tableSchemas' keys sorted, so MigrationStatements'
// output is deterministic across runs.
func orderedTables() []string {
	names := make([]string, 0, len(tableSchemas))
	for table := range tableSchemas {
		names = append(names, table)
	}
	sort.Strings(names)
	return names
}

func createTableSQL(table string, schema tableSchema) string {
	sql := "CREATE TABLE IF NOT EXISTS " + table + " (\n"
	for _, c := range schema.CursorColumns {
		sql += fmt.Sprintf("  %s BIGINT NOT NULL,\n", c)
	}
	sql += "  subject TEXT NOT NULL,\n"
	sql += "  value BYTEA NOT NULL,\n"
	sql += "  block_time TIMESTAMPTZ NOT NULL,\n"
	sql += "  created_at TIMESTAMPTZ NOT NULL,\n"
	for _, c := range schema.FilterColumns {
		if c == "entity_type" {
			sql += "  entity_type TEXT NOT NULL,\n"
			continue
		}
		sql += fmt.Sprintf("  %s TEXT,\n", c)
	}
	sql += fmt.Sprintf("  PRIMARY KEY (%s)\n", joinCols(schema.CursorColumns))
	sql += ")"
	return sql
}

func createAPIKeysTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS api_keys (
  key TEXT PRIMARY KEY,
  id TEXT NOT NULL,
  status TEXT NOT NULL,
  role_name TEXT NOT NULL,
  scopes TEXT[] NOT NULL,
  rate_limit_per_minute INTEGER NOT NULL,
  subscription_limit INTEGER NOT NULL,
  historical_limit BIGINT NOT NULL
)`
}

func joinCols(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
