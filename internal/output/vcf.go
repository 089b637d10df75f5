package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-pave/internal/impact"
)

// ImpactKey is the INFO key carrying per-transcript impacts.
const ImpactKey = "IMPACT"

// WorstKey is the INFO key carrying the single most severe impact.
const WorstKey = "IMPACT_WORST"

// IMPACT sub-fields, pipe-delimited.
var impactFields = []string{
	"Allele",
	"Gene",
	"Feature",
	"CANONICAL",
	"Consequence",
	"Coding_type",
	"Exon_rank",
	"HGVSc",
	"HGVSp",
	"Splice",
	"Realigned",
	"State",
}

// VCFWriter writes the input VCF back out with impacts added to INFO.
// Split alleles of the same site are buffered and written as one line.
type VCFWriter struct {
	w           *bufio.Writer
	headerLines []string
	minEffect   impact.Effect

	// Buffered state for the current site.
	hasVariant bool
	chrom      string
	pos        int64
	ref        string
	results    []*impact.VariantImpacts
	alts       []string
}

// NewVCFWriter creates a VCF writer that reproduces headerLines.
func NewVCFWriter(w io.Writer, headerLines []string) *VCFWriter {
	return &VCFWriter{
		w:           bufio.NewWriter(w),
		headerLines: headerLines,
	}
}

// SetMinEffect omits IMPACT entries whose top effect is less severe than e.
func (vw *VCFWriter) SetMinEffect(e impact.Effect) {
	vw.minEffect = e
}

// WriteHeader writes the original header lines with the impact INFO
// definitions inserted before #CHROM.
func (vw *VCFWriter) WriteHeader() error {
	defs := []string{
		fmt.Sprintf("##INFO=<ID=%s,Number=.,Type=String,Description=\"Transcript impacts from vibe-pave. Format: %s\">",
			ImpactKey, strings.Join(impactFields, "|")),
		fmt.Sprintf("##INFO=<ID=%s,Number=1,Type=String,Description=\"Most severe transcript impact. Format: %s\">",
			WorstKey, strings.Join(impactFields, "|")),
	}

	wroteDefs := false
	for _, line := range vw.headerLines {
		if strings.HasPrefix(line, "##INFO=<ID="+ImpactKey+",") || strings.HasPrefix(line, "##INFO=<ID="+WorstKey+",") {
			continue
		}
		if strings.HasPrefix(line, "#CHROM") {
			for _, d := range defs {
				if _, err := vw.w.WriteString(d + "\n"); err != nil {
					return err
				}
			}
			wroteDefs = true
		}
		if _, err := vw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	if !wroteDefs {
		return fmt.Errorf("VCF header has no #CHROM line")
	}
	return nil
}

// Write buffers the impacts of one allele. The previous site is written
// once a variant at a different site arrives.
func (vw *VCFWriter) Write(r *impact.VariantImpacts) error {
	v := r.Variant
	same := vw.hasVariant && vw.chrom == v.Chrom && vw.pos == v.Pos && vw.ref == v.Ref
	if vw.hasVariant && !same {
		if err := vw.flushVariant(); err != nil {
			return err
		}
	}
	if !same {
		vw.hasVariant = true
		vw.chrom, vw.pos, vw.ref = v.Chrom, v.Pos, v.Ref
	}

	vw.results = append(vw.results, r)
	for _, a := range vw.alts {
		if a == v.Alt {
			return nil
		}
	}
	vw.alts = append(vw.alts, v.Alt)
	return nil
}

// Flush writes any buffered site and flushes the underlying writer.
func (vw *VCFWriter) Flush() error {
	if vw.hasVariant {
		if err := vw.flushVariant(); err != nil {
			return err
		}
	}
	return vw.w.Flush()
}

func (vw *VCFWriter) flushVariant() error {
	if len(vw.results) == 0 {
		return nil
	}
	v := vw.results[0].Variant

	var entries []string
	var worst *impact.VariantTransImpact
	var worstAllele string
	for _, r := range vw.results {
		for _, imp := range r.All() {
			if imp.TopEffect().Severity() < vw.minEffect.Severity() {
				continue
			}
			entries = append(entries, impactEntry(r.Variant.Alt, imp))
		}
		if w := r.Worst(); w != nil && (worst == nil || w.TopEffect().Severity() > worst.TopEffect().Severity()) {
			worst, worstAllele = w, r.Variant.Alt
		}
	}

	info := stripImpactInfo(v.RawInfo)
	var added []string
	if len(entries) > 0 {
		added = append(added, ImpactKey+"="+strings.Join(entries, ","))
	}
	if worst != nil && worst.TopEffect().Severity() >= vw.minEffect.Severity() {
		added = append(added, WorstKey+"="+impactEntry(worstAllele, worst))
	}
	if len(added) > 0 {
		if info == "." {
			info = strings.Join(added, ";")
		} else {
			info += ";" + strings.Join(added, ";")
		}
	}

	var lb strings.Builder
	lb.Grow(256)
	lb.WriteString(v.Chrom)
	lb.WriteByte('\t')
	lb.WriteString(strconv.FormatInt(v.Pos, 10))
	lb.WriteByte('\t')
	lb.WriteString(dot(v.ID))
	lb.WriteByte('\t')
	lb.WriteString(v.Ref)
	lb.WriteByte('\t')
	lb.WriteString(strings.Join(vw.alts, ","))
	lb.WriteByte('\t')
	if v.Qual != 0 {
		lb.WriteString(strconv.FormatFloat(v.Qual, 'g', -1, 64))
	} else {
		lb.WriteByte('.')
	}
	lb.WriteByte('\t')
	lb.WriteString(dot(v.Filter))
	lb.WriteByte('\t')
	lb.WriteString(info)
	if v.SampleColumns != "" {
		lb.WriteByte('\t')
		lb.WriteString(v.SampleColumns)
	}
	lb.WriteByte('\n')
	if _, err := vw.w.WriteString(lb.String()); err != nil {
		return err
	}

	vw.hasVariant = false
	vw.results = nil
	vw.alts = nil
	return nil
}

// impactEntry renders one transcript impact as pipe-delimited IMPACT fields.
func impactEntry(allele string, imp *impact.VariantTransImpact) string {
	var b strings.Builder
	hgvsp, splice := "", ""
	if imp.Protein != nil {
		hgvsp = imp.Protein.Hgvs
	}
	if imp.Splice.Verdict != impact.SpliceOutsideRange {
		splice = imp.Splice.Site.String() + ":" + imp.Splice.Verdict.String()
	}
	fields := []string{
		allele,
		imp.GeneName,
		imp.TranscriptID,
		yes(imp.Canonical),
		imp.Effects.String(),
		imp.Coding.CodingType.String(),
		rank(imp.Coding.ExonRank),
		imp.Coding.Hgvs,
		hgvsp,
		splice,
		yes(imp.Realigned),
		imp.State.String(),
	}
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(escapeInfo(f))
	}
	return b.String()
}

// stripImpactInfo removes impact keys left by an earlier run from raw INFO.
func stripImpactInfo(raw string) string {
	if raw == "" || raw == "." {
		return "."
	}
	if !strings.Contains(raw, ImpactKey) {
		return raw
	}

	var kept []string
	for _, field := range strings.Split(raw, ";") {
		key, _, _ := strings.Cut(field, "=")
		if key == ImpactKey || key == WorstKey {
			continue
		}
		kept = append(kept, field)
	}
	if len(kept) == 0 {
		return "."
	}
	return strings.Join(kept, ";")
}

var infoEscaper = strings.NewReplacer(",", "%2C", ";", "%3B", "|", "%7C", "=", "%3D", " ", "_")

func escapeInfo(s string) string {
	return infoEscaper.Replace(s)
}

func dot(s string) string {
	if s == "" {
		return "."
	}
	return s
}

func yes(b bool) string {
	if b {
		return "YES"
	}
	return ""
}

func rank(r int) string {
	if r == 0 {
		return ""
	}
	return strconv.Itoa(r)
}
