package templates

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/wite2/internal/audit"
	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/history"
	"github.com/JonMunkholm/wite2/internal/report"
)

// Dashboard lists the scenarios found in the data directory.
func Dashboard(dir string, sets []core.FileSet) templ.Component {
	return Layout("Scenarios", component(func(_ context.Context, h *html) {
		h.raw("<p class=\"muted\">")
		h.text(dir)
		h.raw("</p>")
		if len(sets) == 0 {
			h.raw("<p>No scenario files found.</p>")
			return
		}
		h.raw("<table>")
		h.header("Scenario", "Reports")
		h.raw("<tbody>")
		for _, fs := range sets {
			name := url.PathEscape(fs.Name())
			h.raw("<tr>")
			h.cell(fs.Name())
			h.raw("<td><a href=\"/scenario/")
			h.text(name)
			h.raw("/audit\">audit</a> | <a href=\"/scenario/")
			h.text(name)
			h.raw("/chains\">chains</a></td></tr>")
		}
		h.raw("</tbody></table>")
	}))
}

// AuditPage renders one audit report.
func AuditPage(r *audit.Report) templ.Component {
	return Layout("Audit "+r.Files.Name(), component(func(_ context.Context, h *html) {
		h.raw("<p>")
		h.textf("%d error(s), %d warning(s), %d row(s) skipped in %s", r.Errors, r.Warnings, r.RowsSkipped, r.Duration.Round(time.Millisecond))
		h.raw("</p><p class=\"muted\">Run ")
		h.text(r.RunID)
		h.raw("</p>")
		if len(r.ByCheck) > 0 {
			h.raw("<table>")
			h.header("Check", "Findings")
			h.raw("<tbody>")
			for _, name := range r.CheckNames() {
				h.raw("<tr>")
				h.cell(name)
				h.num(r.ByCheck[name])
				h.raw("</tr>")
			}
			h.raw("</tbody></table>")
		}
		findingsTable(h, r.Findings)
	}))
}

func findingsTable(h *html, findings []audit.Finding) {
	if len(findings) == 0 {
		h.raw("<p>No findings.</p>")
		return
	}
	h.raw("<table>")
	h.header("Severity", "Check", "Record", "Field", "Line", "Message")
	h.raw("<tbody>")
	for _, f := range findings {
		h.raw("<tr class=\"")
		h.text(string(f.Severity))
		h.raw("\">")
		h.cell(string(f.Severity))
		h.cell(f.Check)
		h.cell(string(f.Kind) + " " + strconv.Itoa(f.ID))
		h.cell(f.Field)
		if f.Line > 0 {
			h.num(f.Line)
		} else {
			h.cell("")
		}
		h.cell(f.Message)
		h.raw("</tr>")
	}
	h.raw("</tbody></table>")
}

// ChainsPage renders the upgrade chains of a scenario.
func ChainsPage(name string, chains []report.ChainView, cycles [][]int) templ.Component {
	return Layout("Chains "+name, component(func(_ context.Context, h *html) {
		h.raw("<p>")
		h.textf("%d chain(s), %d cycle(s)", len(chains), len(cycles))
		h.raw("</p>")
		for _, c := range cycles {
			h.raw("<p class=\"error\">LOOP: ")
			h.text(joinIDs(c))
			h.raw("</p>")
		}
		h.raw("<table>")
		h.header("Root ID", "Length", "Chain")
		h.raw("<tbody>")
		for _, c := range chains {
			h.raw("<tr>")
			h.num(c.Root)
			h.num(c.Length)
			h.cell(c.Line())
			h.raw("</tr>")
		}
		h.raw("</tbody></table>")
	}))
}

// HistoryPage lists stored audit runs.
func HistoryPage(runs []history.Run) templ.Component {
	return Layout("History", component(func(_ context.Context, h *html) {
		if len(runs) == 0 {
			h.raw("<p>No audit runs recorded.</p>")
			return
		}
		h.raw("<table>")
		h.header("Started", "Scenario", "Errors", "Warnings", "Skipped", "Run")
		h.raw("<tbody>")
		for _, run := range runs {
			h.raw("<tr>")
			h.cell(run.StartedAt.Format(time.RFC3339))
			h.cell(run.Files.Name())
			h.num(run.Errors)
			h.num(run.Warnings)
			h.num(run.RowsSkipped)
			h.raw("<td><a href=\"/history/")
			h.text(strconv.FormatInt(run.ID, 10))
			h.raw("\">")
			h.text(run.RunID)
			h.raw("</a></td></tr>")
		}
		h.raw("</tbody></table>")
	}))
}

// RunPage renders the stored findings of one run.
func RunPage(id int64, findings []audit.Finding) templ.Component {
	return Layout("Run "+strconv.FormatInt(id, 10), component(func(_ context.Context, h *html) {
		findingsTable(h, findings)
	}))
}

func joinIDs(ids []int) string {
	s := ""
	for i, id := range ids {
		if i > 0 {
			s += " -> "
		}
		s += strconv.Itoa(id)
	}
	if len(ids) > 0 {
		s += " -> " + strconv.Itoa(ids[0])
	}
	return s
}
