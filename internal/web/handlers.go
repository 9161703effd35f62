package web

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/wite2/internal/audit"
	"github.com/JonMunkholm/wite2/internal/chain"
	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/graph"
	"github.com/JonMunkholm/wite2/internal/history"
	"github.com/JonMunkholm/wite2/internal/report"
	"github.com/JonMunkholm/wite2/internal/web/templates"
)

// scenario resolves the {scenario} URL parameter against the data directory.
func (s *Server) scenario(r *http.Request) (core.FileSet, error) {
	name := chi.URLParam(r, "scenario")
	sets, err := core.DiscoverFileSets(s.cfg.Data.Dir)
	if err != nil {
		return core.FileSet{}, err
	}
	for _, set := range sets {
		if set.Name() == name {
			return set, nil
		}
	}
	return core.FileSet{}, fmt.Errorf("scenario %q: %w", name, fs.ErrNotExist)
}

// load reads a scenario while holding a limiter slot.
func (s *Server) load(ctx context.Context, set core.FileSet) (*graph.Graph, error) {
	var g *graph.Graph
	err := s.limiter.Do(ctx, func() error {
		var err error
		g, err = graph.Load(ctx, set, graph.LoadOptions{Encoding: s.cfg.Data.Encoding})
		return err
	})
	return g, err
}

// loadScenario combines scenario and load for the handlers below.
func (s *Server) loadScenario(r *http.Request) (*graph.Graph, error) {
	set, err := s.scenario(r)
	if err != nil {
		return nil, err
	}
	return s.load(r.Context(), set)
}

func (s *Server) runAudit(r *http.Request) (*audit.Report, error) {
	set, err := s.scenario(r)
	if err != nil {
		return nil, err
	}
	var rep *audit.Report
	err = s.limiter.Do(r.Context(), func() error {
		var err error
		rep, err = s.auditor.Audit(r.Context(), set)
		return err
	})
	return rep, err
}

// encode writes v as JSON, or YAML with ?format=yaml.
func encode(w http.ResponseWriter, r *http.Request, v any) {
	f, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil || f == report.FormatText {
		f = report.FormatJSON
	}
	if f == report.FormatYAML {
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	if err := report.Encode(w, f, v, nil); err != nil {
		logRenderError(r, err)
	}
}

// queryNations reads the ?nations= filter.
func queryNations(r *http.Request) (graph.Nations, error) {
	n, err := graph.ParseNations(r.URL.Query().Get("nations"))
	if err != nil {
		return nil, badRequest(err)
	}
	return n, nil
}

// queryBool reads a boolean parameter, falling back to def when absent or invalid.
func queryBool(r *http.Request, name string, def bool) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return b
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sets, err := core.DiscoverFileSets(s.cfg.Data.Dir)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render(w, r, templates.Dashboard(s.cfg.Data.Dir, sets))
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	sets, err := core.DiscoverFileSets(s.cfg.Data.Dir)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	encode(w, r, sets)
}

// layoutView describes the columns one record kind expects.
type layoutView struct {
	Kind     core.Kind `json:"kind" yaml:"kind"`
	Label    string    `json:"label" yaml:"label"`
	Suffix   string    `json:"suffix" yaml:"suffix"`
	Required []string  `json:"required" yaml:"required"`
	Slots    int       `json:"slots" yaml:"slots"`
	Columns  int       `json:"columns" yaml:"columns"`
}

func (s *Server) handleLayouts(w http.ResponseWriter, r *http.Request) {
	layouts := core.All()
	out := make([]layoutView, 0, len(layouts))
	for _, l := range layouts {
		v := layoutView{
			Kind:    l.Kind,
			Label:   l.Label,
			Suffix:  l.Suffix,
			Slots:   l.Slots.Width,
			Columns: len(l.Columns()),
		}
		for _, f := range l.Fields {
			if f.Required {
				v.Required = append(v.Required, f.Column)
			}
		}
		out = append(out, v)
	}
	encode(w, r, out)
}

func (s *Server) handleAuditPage(w http.ResponseWriter, r *http.Request) {
	rep, err := s.runAudit(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render(w, r, templates.AuditPage(rep))
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	rep, err := s.runAudit(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	encode(w, r, rep)
}

// chainsView is the JSON form of a trace.
type chainsView struct {
	Chains []report.ChainView `json:"chains" yaml:"chains"`
	Cycles [][]int            `json:"cycles" yaml:"cycles"`
}

func (s *Server) traceChains(r *http.Request) (chainsView, error) {
	nations, err := queryNations(r)
	if err != nil {
		return chainsView{}, err
	}
	g, err := s.loadScenario(r)
	if err != nil {
		return chainsView{}, err
	}
	res := chain.Trace(g, chain.Options{Nations: nations})
	v := chainsView{Chains: report.Chains(g, res.Chains), Cycles: [][]int{}}
	for _, c := range res.Cycles {
		v.Cycles = append(v.Cycles, c.OBIDs)
	}
	return v, nil
}

func (s *Server) handleChainsPage(w http.ResponseWriter, r *http.Request) {
	v, err := s.traceChains(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render(w, r, templates.ChainsPage(chi.URLParam(r, "scenario"), v.Chains, v.Cycles))
}

func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	v, err := s.traceChains(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	encode(w, r, v)
}

func (s *Server) handleOrphans(w http.ResponseWriter, r *http.Request) {
	nations, err := queryNations(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	g, err := s.loadScenario(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ids := g.FindOrphans(graph.OrphanOptions{
		Nations:      nations,
		ActiveOnly:   queryBool(r, "active", s.cfg.Rules.ActiveOnly),
		FollowChains: queryBool(r, "follow", false),
	})
	encode(w, r, report.Orphans(g, ids))
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	nations, err := queryNations(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	g, err := s.loadScenario(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	encode(w, r, g.CountInventory(nations, queryBool(r, "active", s.cfg.Rules.ActiveOnly)))
}

func (s *Server) handleExcess(w http.ResponseWriter, r *http.Request) {
	nations, err := queryNations(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := core.ParseResource(r.URL.Query().Get("resource"))
	if err != nil {
		s.respondError(w, r, badRequest(err))
		return
	}
	g, err := s.loadScenario(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	mult := parseIntParam(r, "multiplier", s.cfg.Rules.ExcessMultiplier)
	encode(w, r, g.ScanExcess(res, mult, nations))
}

func (s *Server) handleRefs(w http.ResponseWriter, r *http.Request) {
	wid, err := strconv.Atoi(chi.URLParam(r, "wid"))
	if err != nil {
		s.respondError(w, r, badRequest(fmt.Errorf("invalid wid %q", chi.URLParam(r, "wid"))))
		return
	}
	g, err := s.loadScenario(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	encode(w, r, g.ScanByWID(wid))
}

func (s *Server) listRuns(r *http.Request) ([]history.Run, error) {
	if s.history == nil {
		return nil, history.ErrNotConfigured
	}
	return s.history.ListRuns(r.Context(), parseIntParam(r, "limit", 50))
}

func (s *Server) runFindings(r *http.Request) (int64, []audit.Finding, error) {
	if s.history == nil {
		return 0, nil, history.ErrNotConfigured
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("run %q: %w", chi.URLParam(r, "id"), fs.ErrNotExist)
	}
	findings, err := s.history.Findings(r.Context(), id)
	return id, findings, err
}

func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	runs, err := s.listRuns(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render(w, r, templates.HistoryPage(runs))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.listRuns(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	encode(w, r, runs)
}

func (s *Server) handleRunPage(w http.ResponseWriter, r *http.Request) {
	id, findings, err := s.runFindings(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render(w, r, templates.RunPage(id, findings))
}

func (s *Server) handleRunFindings(w http.ResponseWriter, r *http.Request) {
	_, findings, err := s.runFindings(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	encode(w, r, findings)
}

// LoadStatus reports the limiter's occupancy.
type LoadStatus struct {
	Active   int `json:"active"`
	Capacity int `json:"capacity"`
}

// handleLoadStatus returns the current state of the load limiter.
func (s *Server) handleLoadStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, LoadStatus{Active: s.limiter.Active(), Capacity: s.limiter.Capacity()})
}
