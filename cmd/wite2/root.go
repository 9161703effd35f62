package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/wite2/internal/config"
	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/graph"
	"github.com/JonMunkholm/wite2/internal/history"
	"github.com/JonMunkholm/wite2/internal/logging"
	"github.com/JonMunkholm/wite2/internal/report"
)

// app holds what every subcommand shares: configuration, output streams and
// the parsed global flags.
type app struct {
	cfg     *config.Config
	out     io.Writer
	errOut  io.Writer
	format  report.Format
	nations graph.Nations
	strict  bool
	logFile *os.File

	dataDir    string
	scenario   string
	unitFile   string
	obFile     string
	groundFile string
	encoding   string
	nationList string
	formatName string
	logLevel   string
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "wite2",
		Short: "Relational integrity engine for WiTE2 order-of-battle CSV files",
		Long: `wite2 loads the unit, OB template and ground element files of a
scenario, checks the references between them and applies targeted repairs.

Files are found by scenario name in the data directory
(<dir>/<scenario>_unit.csv, _ob.csv, _ground.csv) or given explicitly.
Every write is atomic: a failed mutation leaves the files untouched.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.dataDir, "data-dir", "", "directory holding the scenario files (env WITE2_DATA_DIR)")
	pf.StringVar(&a.scenario, "scenario", "", "scenario file prefix, e.g. 1941 (env WITE2_SCENARIO)")
	pf.StringVar(&a.unitFile, "unit-file", "", "explicit unit file path")
	pf.StringVar(&a.obFile, "ob-file", "", "explicit OB template file path")
	pf.StringVar(&a.groundFile, "ground-file", "", "explicit ground element file path")
	pf.StringVar(&a.encoding, "encoding", "", "text encoding of the files (env WITE2_ENCODING)")
	pf.StringVar(&a.nationList, "nations", "", "comma-separated nation codes to restrict queries to")
	pf.StringVar(&a.formatName, "format", "text", "output format: text, json or yaml")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (env LOG_LEVEL)")
	pf.BoolVar(&a.strict, "strict", false, "exit with status 2 when an audit finds issues")

	root.AddCommand(
		newReplaceElementCmd(a),
		newUpdateCountCmd(a),
		newReorderCmd(a),
		newCompactCmd(a),
		newAuditSingleCmd(a),
		newAuditBatchCmd(a),
		newTraceChainsCmd(a),
		newFindOrphansCmd(a),
		newCountInventoryCmd(a),
		newScanByWIDCmd(a),
		newScanExcessCmd(a),
		newScanTOEExcessCmd(a),
		newGroupUnitsCmd(a),
		newConfigCmd(a),
		newServeCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// setup loads configuration, applies flag overrides and starts logging.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.Data.Dir = a.dataDir
	}
	if a.scenario != "" {
		cfg.Data.Scenario = a.scenario
	}
	if a.encoding != "" {
		if _, _, err := core.LookupEncoding(a.encoding); err != nil {
			return err
		}
		cfg.Data.Encoding = a.encoding
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	if a.format, err = report.ParseFormat(a.formatName); err != nil {
		return err
	}
	if a.nations, err = graph.ParseNations(a.nationList); err != nil {
		return err
	}

	logOut := a.errOut
	if cfg.Logging.Dir != "" {
		f, err := logging.OpenRunLog(cfg.Logging.Dir, time.Now())
		if err != nil {
			return err
		}
		a.logFile = f
		logOut = io.MultiWriter(a.errOut, f)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, logOut)

	runID := uuid.NewString()
	cmd.SetContext(core.ContextWithRunID(cmd.Context(), runID))
	logging.FromContext(cmd.Context()).Debug("command started",
		"command", cmd.CommandPath(),
		"data_dir", cfg.Data.Dir,
		"scenario", cfg.Data.Scenario,
	)
	return nil
}

func (a *app) close() {
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
}

// fileSet resolves the files to operate on: the scenario's conventional
// paths with explicit overrides, or the three explicit paths alone.
func (a *app) fileSet() (core.FileSet, error) {
	if a.cfg.Data.Scenario != "" {
		fs := core.ResolveFileSet(a.cfg.Data.Dir, a.cfg.Data.Scenario)
		return fs.WithOverrides(a.unitFile, a.obFile, a.groundFile), nil
	}
	if a.unitFile != "" && a.obFile != "" && a.groundFile != "" {
		return core.FileSet{Unit: a.unitFile, OB: a.obFile, Ground: a.groundFile}, nil
	}
	return core.FileSet{}, errors.New("no scenario selected: use --scenario, WITE2_SCENARIO or `wite2 config --set-scenario`, " +
		"or give --unit-file, --ob-file and --ground-file")
}

// unitPath resolves only the unit file, for commands that stream it.
func (a *app) unitPath() (string, error) {
	if a.unitFile != "" {
		return a.unitFile, nil
	}
	fs, err := a.fileSet()
	if err != nil {
		return "", err
	}
	return fs.Unit, nil
}

// loadGraph reads the selected file set.
func (a *app) loadGraph(cmd *cobra.Command) (*graph.Graph, core.FileSet, error) {
	fs, err := a.fileSet()
	if err != nil {
		return nil, fs, err
	}
	g, err := graph.Load(cmd.Context(), fs, graph.LoadOptions{Encoding: a.cfg.Data.Encoding})
	if err != nil {
		return nil, fs, err
	}
	if n := len(g.Skipped); n > 0 {
		logging.FromContext(cmd.Context()).Warn("malformed rows skipped", "count", n)
	}
	return g, fs, nil
}

// openHistory connects to the history database, or returns nil when none
// is configured.
func (a *app) openHistory(cmd *cobra.Command) (*history.Store, error) {
	db := a.cfg.Database
	if db.URL == "" {
		return nil, nil
	}
	store, err := history.Open(cmd.Context(), history.Options{
		URL:             db.URL,
		MaxConns:        db.MaxConns,
		MinConns:        db.MinConns,
		MaxConnLifetime: db.MaxConnLifetime,
		MaxConnIdleTime: db.MaxConnIdleTime,
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(cmd.Context()); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// export writes one file into the export directory and reports its path.
func (a *app) export(name string, write func(io.Writer) error) error {
	path, err := report.Export(a.cfg.Data.ExportDir, name, write)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.errOut, "exported %s\n", path)
	return nil
}

// exportName builds "<scenario>_<suffix>".
func exportName(fs core.FileSet, suffix string) string {
	return fs.Name() + "_" + suffix
}
