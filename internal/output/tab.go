// Package output provides impact output formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-pave/internal/impact"
)

var tabColumns = []string{
	"#Uploaded_variation",
	"Location",
	"Allele",
	"Gene",
	"Feature",
	"CANONICAL",
	"Consequence",
	"Top_consequence",
	"Region",
	"Coding_type",
	"Coding_base",
	"Exon_rank",
	"Exon_distance",
	"Frameshift",
	"Splice",
	"Codons",
	"Amino_acids",
	"HGVSc",
	"HGVSp",
	"Realigned",
	"State",
}

// TabWriter writes impacts in tab-delimited format, one row per transcript.
type TabWriter struct {
	w         *bufio.Writer
	minEffect impact.Effect
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{w: bufio.NewWriter(w)}
}

// SetMinEffect drops rows whose top effect is less severe than e.
func (tw *TabWriter) SetMinEffect(e impact.Effect) {
	tw.minEffect = e
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tabColumns, "\t") + "\n")
	return err
}

// Write writes every transcript impact of one variant.
func (tw *TabWriter) Write(r *impact.VariantImpacts) error {
	v := r.Variant
	id := v.ID
	if id == "" {
		id = "."
	}
	location := fmt.Sprintf("%s:%d", v.Chrom, v.Pos)

	for _, imp := range r.All() {
		if imp.TopEffect().Severity() < tw.minEffect.Severity() {
			continue
		}
		cc := imp.Coding
		codons, aminoAcids, hgvsp := "-", "-", "-"
		if p := imp.Protein; p != nil {
			codons = dash(joinChange(p.RefCodonBases, p.AltCodonBases))
			aminoAcids = dash(joinChange(p.RefAminoAcids, p.AltAminoAcids))
			hgvsp = dash(p.Hgvs)
		}
		splice := "-"
		if imp.Splice.Verdict != impact.SpliceOutsideRange {
			splice = imp.Splice.Site.String() + ":" + imp.Splice.Verdict.String()
		}

		values := []string{
			id,
			location,
			v.Alt,
			dash(imp.GeneName),
			imp.TranscriptID,
			flag(imp.Canonical),
			imp.Effects.String(),
			imp.TopEffect().String(),
			cc.RegionType.String(),
			cc.CodingType.String(),
			strconv.Itoa(cc.CodingBase),
			strconv.Itoa(cc.ExonRank),
			strconv.Itoa(cc.NearestExonDistance),
			flag(cc.IsFrameShift),
			splice,
			codons,
			aminoAcids,
			dash(cc.Hgvs),
			hgvsp,
			flag(imp.Realigned),
			imp.State.String(),
		}
		if _, err := tw.w.WriteString(strings.Join(values, "\t") + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

func joinChange(ref, alt string) string {
	if ref == "" && alt == "" {
		return ""
	}
	return dash(ref) + "/" + dash(alt)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func flag(b bool) string {
	if b {
		return "YES"
	}
	return "-"
}
