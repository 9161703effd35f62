package graph

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/core/tables"
	"github.com/JonMunkholm/wite2/internal/logging"
)

// LoadOptions controls how a file set is read.
type LoadOptions struct {
	// Encoding is the text encoding label of all three files.
	Encoding string
}

// Load streams the three files of fs into a graph. Malformed rows are
// skipped and collected in Graph.Skipped. A missing file, a schema mismatch
// or a duplicate identifier aborts the load.
func Load(ctx context.Context, fs core.FileSet, opts LoadOptions) (*Graph, error) {
	log := logging.WithFields(ctx, "scenario", fs.Name())
	b := NewBuilder()
	var skipped []*core.RowParseError

	steps := []struct {
		path   string
		layout *core.Layout
		each   func(*core.Reader) ([]*core.RowParseError, error)
	}{
		{fs.Ground, tables.Ground, func(r *core.Reader) ([]*core.RowParseError, error) {
			return core.EachGround(r, core.SkipAndReport, b.AddGround)
		}},
		{fs.OB, tables.OB, func(r *core.Reader) ([]*core.RowParseError, error) {
			return core.EachOB(r, core.SkipAndReport, b.AddOB)
		}},
		{fs.Unit, tables.Unit, func(r *core.Reader) ([]*core.RowParseError, error) {
			return core.EachUnit(r, core.SkipAndReport, b.AddUnit)
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := core.Open(step.path, step.layout, opts.Encoding)
		if err != nil {
			return nil, err
		}
		s, err := step.each(r)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", step.path, err)
		}
		log.Debug("file loaded",
			"kind", step.layout.Kind,
			"path", step.path,
			"bytes", r.BytesRead(),
			"skipped", len(s),
		)
		skipped = append(skipped, s...)
	}

	g := b.Build()
	g.Skipped = skipped
	log.Info("scenario loaded",
		"units", len(g.Units),
		"obs", len(g.OBs),
		"ground", len(g.Ground),
		"skipped", len(skipped),
	)
	return g, nil
}
