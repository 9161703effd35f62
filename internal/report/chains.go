package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/wite2/internal/chain"
	"github.com/JonMunkholm/wite2/internal/graph"
)

// ChainView is the encoded form of a chain with its template labels.
type ChainView struct {
	Root   int      `json:"root" yaml:"root"`
	Length int      `json:"length" yaml:"length"`
	OBIDs  []int    `json:"ob_ids" yaml:"ob_ids"`
	Labels []string `json:"labels" yaml:"labels"`
}

type chainsOutput struct {
	Chains []ChainView `json:"chains" yaml:"chains"`
	Cycles [][]int     `json:"cycles,omitempty" yaml:"cycles,omitempty"`
}

// Chains converts traced chains into their labelled form.
func Chains(g *graph.Graph, chains []chain.Chain) []ChainView {
	out := make([]ChainView, len(chains))
	for i, c := range chains {
		v := ChainView{Root: c.Root, Length: c.Len(), OBIDs: c.OBIDs}
		for _, id := range c.OBIDs {
			v.Labels = append(v.Labels, label(g, id))
		}
		out[i] = v
	}
	return out
}

func label(g *graph.Graph, id int) string {
	if o, ok := g.OBs[id]; ok {
		return o.Label()
	}
	return fmt.Sprintf("[%d] Unk", id)
}

// Line renders a chain as "[id] name suffix -> ...".
func (v ChainView) Line() string { return strings.Join(v.Labels, " -> ") }

// WriteChains renders a trace result.
func WriteChains(w io.Writer, f Format, g *graph.Graph, res chain.Result) error {
	out := chainsOutput{Chains: Chains(g, res.Chains)}
	for _, c := range res.Cycles {
		out.Cycles = append(out.Cycles, c.OBIDs)
	}
	return Encode(w, f, out, func(w io.Writer) error {
		if err := ChainsText(w, out.Chains); err != nil {
			return err
		}
		for _, c := range res.Cycles {
			fmt.Fprintf(w, "LOOP: %s\n", c.Error())
		}
		_, err := fmt.Fprintf(w, "%d chain(s), %d cycle(s)\n", len(out.Chains), len(res.Cycles))
		return err
	})
}

// ChainsCSV writes the "Root ID,Length,Chain" export.
func ChainsCSV(w io.Writer, chains []ChainView) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Root ID", "Length", "Chain"}); err != nil {
		return err
	}
	for _, c := range chains {
		if err := cw.Write([]string{strconv.Itoa(c.Root), strconv.Itoa(c.Length), c.Line()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ChainsText writes one chain per line.
func ChainsText(w io.Writer, chains []ChainView) error {
	for _, c := range chains {
		if _, err := fmt.Fprintln(w, c.Line()); err != nil {
			return err
		}
	}
	return nil
}
