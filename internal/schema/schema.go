// Package schema describes the Postgres tables of the audit history sink.
//
// Tables are declared as column lists and rendered to DDL on demand, so the
// store and its tests share one definition of every column name.
package schema

import (
	"fmt"
	"strings"
)

// ColumnType is a Postgres column type.
type ColumnType string

const (
	TypeUUID        ColumnType = "UUID"
	TypeText        ColumnType = "TEXT"
	TypeInteger     ColumnType = "INTEGER"
	TypeBigInt      ColumnType = "BIGINT"
	TypeBigSerial   ColumnType = "BIGSERIAL"
	TypeTimestampTZ ColumnType = "TIMESTAMPTZ"
	TypeJSONB       ColumnType = "JSONB"
)

// Column defines one column of a table.
type Column struct {
	Name       string
	Type       ColumnType
	NotNull    bool
	PrimaryKey bool
	Default    string // SQL expression, empty for none
	References string // "table(column)", deleted with the referenced row
}

// Table defines one history table.
type Table struct {
	Name    string
	Columns []Column
	Indexes [][]string // Column lists of secondary indexes
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// InsertColumns returns the columns a client supplies on insert: every
// column without a server-side default.
func (t Table) InsertColumns() []string {
	var names []string
	for _, c := range t.Columns {
		if c.Default == "" && c.Type != TypeBigSerial {
			names = append(names, c.Name)
		}
	}
	return names
}

// CreateSQL renders the idempotent DDL for the table and its indexes.
func (t Table) CreateSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", Quote(t.Name))
	for i, c := range t.Columns {
		b.WriteString("    ")
		b.WriteString(columnSQL(c))
		if i < len(t.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");\n")
	for _, cols := range t.Indexes {
		quoted := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = Quote(c)
		}
		fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS %s ON %s (%s);\n",
			Quote("idx_"+t.Name+"_"+strings.Join(cols, "_")), Quote(t.Name), strings.Join(quoted, ", "))
	}
	return b.String()
}

func columnSQL(c Column) string {
	parts := []string{Quote(c.Name), string(c.Type)}
	if c.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	} else if c.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if c.Default != "" {
		parts = append(parts, "DEFAULT "+c.Default)
	}
	if c.References != "" {
		parts = append(parts, "REFERENCES "+c.References+" ON DELETE CASCADE")
	}
	return strings.Join(parts, " ")
}

// Quote returns name as a quoted SQL identifier.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// CreateAll returns the DDL of every table in dependency order.
func CreateAll() string {
	var b strings.Builder
	for _, t := range All {
		b.WriteString(t.CreateSQL())
	}
	return b.String()
}
