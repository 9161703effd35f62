package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/wite2/internal/config"
	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/report"
)

// settingsView is the output of `wite2 config`.
type settingsView struct {
	SettingsFile string            `json:"settings_file" yaml:"settings_file"`
	DataDir      string            `json:"data_dir" yaml:"data_dir"`
	Scenario     string            `json:"scenario" yaml:"scenario"`
	Encoding     string            `json:"encoding" yaml:"encoding"`
	ExportDir    string            `json:"export_dir" yaml:"export_dir"`
	History      bool              `json:"history" yaml:"history"`
	Persisted    map[string]string `json:"persisted" yaml:"persisted"`
}

func newConfigCmd(a *app) *cobra.Command {
	var (
		setPath     string
		setScenario string
		setEncoding string
		clear       bool
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or persist the data directory and scenario",
		Long: `Without flags, print the effective configuration and the persisted
settings. --set-path, --set-scenario and --set-encoding store values in the
settings file so later commands need no flags. --clear removes them.`,
		Example: `  wite2 config --set-path ./data --set-scenario 1941
  wite2 config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.cfg.Data.SettingsFile
			updates := map[string]string{}
			if clear {
				updates[config.KeyDataDir] = ""
				updates[config.KeyScenario] = ""
				updates[config.KeyEncoding] = ""
			}
			if setPath != "" {
				info, err := os.Stat(setPath)
				if err != nil {
					return fmt.Errorf("data directory: %w", err)
				}
				if !info.IsDir() {
					return fmt.Errorf("data directory: %s is not a directory", setPath)
				}
				updates[config.KeyDataDir] = setPath
				a.cfg.Data.Dir = setPath
			}
			if setEncoding != "" {
				_, name, err := core.LookupEncoding(setEncoding)
				if err != nil {
					return err
				}
				updates[config.KeyEncoding] = name
				a.cfg.Data.Encoding = name
			}
			if setScenario != "" {
				fs := core.ResolveFileSet(a.cfg.Data.Dir, setScenario)
				for _, p := range []string{fs.Unit, fs.OB, fs.Ground} {
					if _, err := os.Stat(p); err != nil {
						return fmt.Errorf("scenario %s: %w", setScenario, err)
					}
				}
				updates[config.KeyScenario] = setScenario
				a.cfg.Data.Scenario = setScenario
			}

			if len(updates) > 0 {
				if err := config.SaveSettings(path, updates); err != nil {
					return err
				}
				fmt.Fprintf(a.errOut, "settings saved to %s\n", path)
				if clear {
					a.cfg.Data.Scenario = ""
				}
			}

			persisted, err := config.ReadSettings(path)
			if err != nil {
				return err
			}
			view := settingsView{
				SettingsFile: path,
				DataDir:      a.cfg.Data.Dir,
				Scenario:     a.cfg.Data.Scenario,
				Encoding:     a.cfg.Data.Encoding,
				ExportDir:    a.cfg.Data.ExportDir,
				History:      a.cfg.Database.URL != "",
				Persisted:    persisted,
			}
			return report.Encode(a.out, a.format, view, func(w io.Writer) error {
				fmt.Fprintf(w, "settings file:  %s\n", view.SettingsFile)
				fmt.Fprintf(w, "data dir:       %s\n", view.DataDir)
				fmt.Fprintf(w, "scenario:       %s\n", orNone(view.Scenario))
				fmt.Fprintf(w, "encoding:       %s\n", view.Encoding)
				fmt.Fprintf(w, "export dir:     %s\n", view.ExportDir)
				fmt.Fprintf(w, "audit history:  %s\n", enabled(view.History))
				for _, k := range config.SettingKeys(persisted) {
					fmt.Fprintf(w, "  %s=%s\n", k, persisted[k])
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&setPath, "set-path", "", "persist the data directory")
	f.StringVar(&setScenario, "set-scenario", "", "persist the default scenario")
	f.StringVar(&setEncoding, "set-encoding", "", "persist the file encoding")
	f.BoolVar(&clear, "clear", false, "remove every persisted setting")
	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled (DATABASE_URL not set)"
}
