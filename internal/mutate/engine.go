package mutate

import (
	"context"
	"fmt"
	"slices"

	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/core/tables"
	"github.com/JonMunkholm/wite2/internal/graph"
	"github.com/JonMunkholm/wite2/internal/logging"
)

// Op is a named transform with the files it needs.
type Op struct {
	Name string
	// Reads lists kinds the transform looks at without changing.
	Reads []core.Kind
	// Writes lists kinds the transform may change. They are loaded too.
	Writes []core.Kind
	Apply  Transform
}

// Result reports what an operation did.
type Result struct {
	Op        string   `json:"op" yaml:"op"`
	Changes   []Change `json:"changes" yaml:"changes"`
	Committed []string `json:"committed,omitempty" yaml:"committed,omitempty"`
	DryRun    bool     `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
}

// Changed returns the number of distinct records changed.
func (r *Result) Changed() int {
	type key struct {
		kind core.Kind
		id   int
	}
	seen := make(map[key]bool)
	for _, c := range r.Changes {
		seen[key{c.Kind, c.ID}] = true
	}
	return len(seen)
}

// Engine loads a file set, applies an Op and commits the files it changed.
type Engine struct {
	Files    core.FileSet
	Encoding string
	// DryRun computes the changes without writing anything.
	DryRun bool
}

// loaded holds the materialised files of one run.
type loaded struct {
	unit   *core.UnitFile
	ob     *core.OBFile
	ground *core.GroundFile
}

func (l *loaded) set() Set {
	var s Set
	if l.unit != nil {
		s.Units = l.unit.Units
	}
	if l.ob != nil {
		s.OBs = l.ob.OBs
	}
	if l.ground != nil {
		s.Ground = l.ground.Elements
	}
	return s
}

func (e *Engine) load(kinds []core.Kind) (*loaded, error) {
	l := &loaded{}
	for _, kind := range kinds {
		path := e.Files.Path(kind)
		var err error
		switch kind {
		case core.KindUnit:
			l.unit, err = core.LoadUnitFile(path, tables.Unit, e.Encoding)
		case core.KindOB:
			l.ob, err = core.LoadOBFile(path, tables.OB, e.Encoding)
		case core.KindGround:
			l.ground, err = core.LoadGroundFile(path, tables.Ground, e.Encoding)
		default:
			err = fmt.Errorf("unknown record kind %q", kind)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := l.unique(); err != nil {
		return nil, err
	}
	return l, nil
}

// unique returns *core.DuplicateIdentifierError if two loaded records of
// one kind share an id.
func (l *loaded) unique() error {
	b := graph.NewBuilder()
	if l.ground != nil {
		if err := b.AddGroundElements(l.ground.Elements); err != nil {
			return fmt.Errorf("load %s: %w", l.ground.Path, err)
		}
	}
	if l.ob != nil {
		if err := b.AddOBs(l.ob.OBs); err != nil {
			return fmt.Errorf("load %s: %w", l.ob.Path, err)
		}
	}
	if l.unit != nil {
		if err := b.AddUnits(l.unit.Units); err != nil {
			return fmt.Errorf("load %s: %w", l.unit.Path, err)
		}
	}
	return nil
}

// Run loads the files op needs, applies it and, when it changed something,
// commits each changed file atomically. Any error before the commit leaves
// every file untouched; a duplicate id in any loaded file is such an error.
func (e *Engine) Run(ctx context.Context, op Op) (*Result, error) {
	log := logging.WithFields(ctx, "op", op.Name, "scenario", e.Files.Name())

	kinds := slices.Concat(op.Reads, op.Writes)
	slices.Sort(kinds)
	kinds = slices.Compact(kinds)

	l, err := e.load(kinds)
	if err != nil {
		return nil, err
	}

	out, changes, err := op.Apply(l.set())
	if err != nil {
		log.Warn("transform rejected", "error", err)
		return nil, err
	}

	res := &Result{Op: op.Name, Changes: changes, DryRun: e.DryRun}
	if len(changes) == 0 {
		log.Info("nothing to change")
		return res, nil
	}
	if e.DryRun {
		log.Info("dry run", "changes", len(changes))
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	touched := make(map[core.Kind]bool)
	for _, c := range changes {
		touched[c.Kind] = true
	}
	for _, kind := range []core.Kind{core.KindGround, core.KindOB, core.KindUnit} {
		if !touched[kind] || !slices.Contains(op.Writes, kind) {
			continue
		}
		var path string
		switch kind {
		case core.KindUnit:
			l.unit.Units = out.Units
			path, err = l.unit.Path, l.unit.Commit()
		case core.KindOB:
			l.ob.OBs = out.OBs
			path, err = l.ob.Path, l.ob.Commit()
		case core.KindGround:
			l.ground.Elements = out.Ground
			path, err = l.ground.Path, l.ground.Commit()
		}
		if err != nil {
			log.Error("commit failed", "path", path, "error", err)
			return res, err
		}
		res.Committed = append(res.Committed, path)
	}

	log.Info("changes committed",
		"changes", len(changes),
		"records", res.Changed(),
		"files", len(res.Committed),
	)
	return res, nil
}

// ReplaceElementOp replaces WID from with to in every unit and OB slot.
func ReplaceElementOp(from, to int) Op {
	return Op{
		Name:   "replace-element",
		Reads:  []core.Kind{core.KindGround},
		Writes: []core.Kind{core.KindUnit, core.KindOB},
		Apply:  func(s Set) (Set, []Change, error) { return ReplaceElement(s, from, to) },
	}
}

// UpdateCountOp edits slot counts per p.
func UpdateCountOp(p UpdateCountParams) Op {
	kind := core.KindUnit
	if p.Target == TargetOB {
		kind = core.KindOB
	}
	return Op{
		Name:   "update-count",
		Writes: []core.Kind{kind},
		Apply:  func(s Set) (Set, []Change, error) { return UpdateCount(s, p) },
	}
}

// ReorderOp moves one slot of a unit or an OB template.
func ReorderOp(kind core.Kind, m Move) Op {
	apply := ReorderUnit
	if kind == core.KindOB {
		apply = ReorderOB
	}
	return Op{
		Name:   "reorder",
		Writes: []core.Kind{kind},
		Apply:  func(s Set) (Set, []Change, error) { return apply(s, m) },
	}
}

// CompactWeaponsOp packs the weapon slots of the ground file.
func CompactWeaponsOp() Op {
	return Op{
		Name:   "compact",
		Writes: []core.Kind{core.KindGround},
		Apply:  CompactWeapons,
	}
}

// FixGhostsOp zeroes ghost squad counts in the unit and OB files.
func FixGhostsOp() Op {
	return Op{
		Name:   "fix-ghosts",
		Writes: []core.Kind{core.KindUnit, core.KindOB},
		Apply:  ClearGhostSquads,
	}
}

// RelinkHQOp points units with a bad higher HQ at fallback.
func RelinkHQOp(fallback int) Op {
	return Op{
		Name:   "relink-hq",
		Writes: []core.Kind{core.KindUnit},
		Apply:  func(s Set) (Set, []Change, error) { return RelinkHQ(s, fallback) },
	}
}
