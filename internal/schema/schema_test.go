package schema

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestInsertColumns(t *testing.T) {
	tests := []struct {
		table Table
		want  []string
	}{
		{AuditRuns, []string{"run_id", "unit_file", "ob_file", "ground_file", "started_at",
			"duration_ms", "rows_skipped", "errors", "warnings", "by_check"}},
		{AuditFindings, []string{"audit_run_id", "seq", "check_name", "severity", "kind",
			"record_id", "field", "line", "message"}},
	}
	for _, tt := range tests {
		t.Run(tt.table.Name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.table.InsertColumns()); diff != "" {
				t.Errorf("InsertColumns() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreateSQL(t *testing.T) {
	sql := AuditFindings.CreateSQL()
	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "audit_findings" (`,
		`"id" BIGSERIAL PRIMARY KEY,`,
		`"audit_run_id" BIGINT NOT NULL REFERENCES "audit_runs"("id") ON DELETE CASCADE,`,
		`"message" TEXT NOT NULL` + "\n);",
		`CREATE INDEX IF NOT EXISTS "idx_audit_findings_audit_run_id_seq" ON "audit_findings" ("audit_run_id", "seq");`,
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("CreateSQL() missing %q in:\n%s", want, sql)
		}
	}
}

func TestCreateAllOrder(t *testing.T) {
	sql := CreateAll()
	runs := strings.Index(sql, `"audit_runs" (`)
	findings := strings.Index(sql, `"audit_findings" (`)
	if runs < 0 || findings < 0 || runs > findings {
		t.Errorf("audit_runs must be created before audit_findings, got offsets %d and %d", runs, findings)
	}
}

func TestQuote(t *testing.T) {
	if got, want := Quote(`a"b`), `"a""b"`; got != want {
		t.Errorf("Quote() = %s, want %s", got, want)
	}
}
