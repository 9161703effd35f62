package schema

// AuditRuns holds one row per audited file set. The sets of one batch share
// a run_id.
var AuditRuns = Table{
	Name: "audit_runs",
	Columns: []Column{
		{Name: "id", Type: TypeBigSerial, PrimaryKey: true},
		{Name: "run_id", Type: TypeUUID, NotNull: true},
		{Name: "unit_file", Type: TypeText, NotNull: true},
		{Name: "ob_file", Type: TypeText, NotNull: true},
		{Name: "ground_file", Type: TypeText, NotNull: true},
		{Name: "started_at", Type: TypeTimestampTZ, NotNull: true},
		{Name: "duration_ms", Type: TypeBigInt, NotNull: true},
		{Name: "rows_skipped", Type: TypeInteger, NotNull: true},
		{Name: "errors", Type: TypeInteger, NotNull: true},
		{Name: "warnings", Type: TypeInteger, NotNull: true},
		{Name: "by_check", Type: TypeJSONB, NotNull: true},
		{Name: "recorded_at", Type: TypeTimestampTZ, NotNull: true, Default: "now()"},
	},
	Indexes: [][]string{{"run_id"}, {"started_at"}},
}

// AuditFindings holds the findings of a run in report order.
var AuditFindings = Table{
	Name: "audit_findings",
	Columns: []Column{
		{Name: "id", Type: TypeBigSerial, PrimaryKey: true},
		{Name: "audit_run_id", Type: TypeBigInt, NotNull: true, References: `"audit_runs"("id")`},
		{Name: "seq", Type: TypeInteger, NotNull: true},
		{Name: "check_name", Type: TypeText, NotNull: true},
		{Name: "severity", Type: TypeText, NotNull: true},
		{Name: "kind", Type: TypeText, NotNull: true},
		{Name: "record_id", Type: TypeInteger, NotNull: true},
		{Name: "field", Type: TypeText, NotNull: true},
		{Name: "line", Type: TypeInteger, NotNull: true},
		{Name: "message", Type: TypeText, NotNull: true},
	},
	Indexes: [][]string{{"audit_run_id", "seq"}, {"check_name"}},
}

// All lists the history tables, parents first.
var All = []Table{AuditRuns, AuditFindings}
