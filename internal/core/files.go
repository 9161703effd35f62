package core

// files.go resolves the three files of a scenario.
//
// A scenario named "1941" in /data is stored as
//
//	/data/1941_unit.csv
//	/data/1941_ob.csv
//	/data/1941_ground.csv

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File name suffixes of the three record kinds.
const (
	UnitSuffix   = "_unit.csv"
	OBSuffix     = "_ob.csv"
	GroundSuffix = "_ground.csv"
)

// FileSet is the unit/OB/ground triple of one scenario.
type FileSet struct {
	Scenario string `json:"scenario" yaml:"scenario"`
	Unit     string `json:"unit" yaml:"unit"`
	OB       string `json:"ob" yaml:"ob"`
	Ground   string `json:"ground" yaml:"ground"`
}

// ResolveFileSet returns the conventional file paths for scenario in dir.
func ResolveFileSet(dir, scenario string) FileSet {
	return FileSet{
		Scenario: scenario,
		Unit:     filepath.Join(dir, scenario+UnitSuffix),
		OB:       filepath.Join(dir, scenario+OBSuffix),
		Ground:   filepath.Join(dir, scenario+GroundSuffix),
	}
}

// WithOverrides replaces every path for which a non-empty override is given.
func (fs FileSet) WithOverrides(unit, ob, ground string) FileSet {
	if unit != "" {
		fs.Unit = unit
	}
	if ob != "" {
		fs.OB = ob
	}
	if ground != "" {
		fs.Ground = ground
	}
	return fs
}

// Path returns the path of the file holding kind.
func (fs FileSet) Path(kind Kind) string {
	switch kind {
	case KindUnit:
		return fs.Unit
	case KindOB:
		return fs.OB
	case KindGround:
		return fs.Ground
	}
	return ""
}

// Name returns the scenario name, or the unit file's base name when the set
// was assembled from explicit paths.
func (fs FileSet) Name() string {
	if fs.Scenario != "" {
		return fs.Scenario
	}
	return strings.TrimSuffix(filepath.Base(fs.Unit), UnitSuffix)
}

// DiscoverFileSets groups every *_unit.csv, *_ob.csv and *_ground.csv in dir
// by scenario prefix. Suffixes match in any case and each set keeps the file
// names found on disk. Sets are sorted by scenario. A scenario lacking one of
// its files still gets the conventional path for it, so loading that set
// fails on its own without affecting the others.
func DiscoverFileSets(dir string) ([]FileSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}

	suffixes := []struct {
		kind   Kind
		suffix string
	}{{KindUnit, UnitSuffix}, {KindOB, OBSuffix}, {KindGround, GroundSuffix}}

	found := make(map[string]*FileSet)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		for _, sf := range suffixes {
			cut := len(name) - len(sf.suffix)
			if cut <= 0 || !strings.EqualFold(name[cut:], sf.suffix) {
				continue
			}
			scenario := name[:cut]
			fs, ok := found[scenario]
			if !ok {
				set := ResolveFileSet(dir, scenario)
				fs = &set
				found[scenario] = fs
			}
			path := filepath.Join(dir, name)
			switch sf.kind {
			case KindUnit:
				fs.Unit = path
			case KindOB:
				fs.OB = path
			case KindGround:
				fs.Ground = path
			}
			break
		}
	}

	scenarios := make([]string, 0, len(found))
	for s := range found {
		scenarios = append(scenarios, s)
	}
	sort.Strings(scenarios)

	sets := make([]FileSet, len(scenarios))
	for i, s := range scenarios {
		sets[i] = *found[s]
	}
	return sets, nil
}
