package impact

import (
	"sort"
	"strings"

	"github.com/inodb/vibe-pave/internal/cache"
	"github.com/inodb/vibe-pave/internal/refgenome"
	"github.com/inodb/vibe-pave/internal/vcf"
)

// BuildProteinContext computes the codon window of v on t and the protein
// consequences it implies. It returns nil when no coding base changes.
func BuildProteinContext(t *cache.Transcript, v *vcf.Variant, cc CodingContext, g refgenome.SequenceAccessor) (*ProteinContext, EffectSet, []string) {
	p := newPairing(t, v, g, DefaultOptions())
	pc, fx := p.proteinContext(cc)
	return pc, fx, p.diags
}

func (p *pairing) proteinContext(cc CodingContext) (*ProteinContext, EffectSet) {
	o, e := p.o, p.e
	deleted, inserted := o.codingChange(e)
	if deleted == 0 && inserted == 0 {
		return nil, 0
	}

	lo, hi := e.proteinSpan()
	c1, c2, ok := o.codingBounds(lo, hi)
	if !ok {
		return nil, 0
	}
	first, last := codonOf(c1), codonOf(c2)
	w1 := codonStart(first)
	ref := p.codingBases(w1, codonStart(last)+2)

	pc := &ProteinContext{
		CodonIndex:    int(first),
		CodonIndexEnd: int(last),
		RefCodonBases: ref,
	}
	if ref != "" {
		var a, b int64
		if e.isInsertion() {
			c, _ := o.codingPos(e.lo - 1)
			a = c - w1 + 1
			b = a
		} else {
			r1, r2, _ := o.codingBounds(e.lo, e.hi)
			a, b = r1-w1, r2-w1+1
		}
		a, b = min(a, int64(len(ref))), min(b, int64(len(ref)))
		pc.AltCodonBases = ref[:a] + e.inserted + ref[b:]
		pc.RefAminoAcids = Translate(ref)
		pc.AltAminoAcids = Translate(pc.AltCodonBases)
	}

	fx := proteinEffects(pc, cc, inserted-deleted)
	if fx.HasAny(EffectInframeDeletion, EffectInframeInsertion) {
		pc.Inframe = p.inframeKind(inserted)
	}
	pc.Hgvs = formatHgvsProtein(pc, fx, p.aminoAcidAt)
	if fx.Has(EffectFrameshift) && !fx.Has(EffectStartLost) {
		if at, r, a, ok := p.frameshiftChange(pc); ok {
			if r == '*' {
				fx = fx.Add(EffectStopLost)
			}
			pc.Hgvs = shiftedResidueNotation(at, r, a)
		}
	}
	return pc, fx
}

// proteinSpan returns the oriented bases whose codons form the protein
// window. Length changes also take the base 5' of the edit, and insertions
// both flanks, so the window is the same on either strand.
func (e edit) proteinSpan() (int64, int64) {
	switch {
	case e.isInsertion():
		return e.lo - 1, e.lo
	case e.isIndel():
		return e.lo - 1, e.hi
	default:
		return e.lo, e.hi
	}
}

// frameshiftScan caps how many codons past the window a frameshift is read.
const frameshiftScan = 100

// frameshiftChange reads the shifted frame past the window until the first
// residue that differs from the reference. It returns the residue number and
// the reference and alternate amino acids there.
func (p *pairing) frameshiftChange(pc *ProteinContext) (int, byte, byte, bool) {
	if pc.RefCodonBases == "" {
		return 0, 0, 0, false
	}
	next := codonStart(int64(pc.CodonIndex)) + int64(len(pc.RefCodonBases))
	down := p.codingBases(next, next+3*frameshiftScan-1)
	ref, alt := pc.RefCodonBases+down, pc.AltCodonBases+down
	for i := 0; 3*i+3 <= len(ref) && 3*i+3 <= len(alt); i++ {
		r, a := TranslateCodon(ref[3*i:3*i+3]), TranslateCodon(alt[3*i:3*i+3])
		if r != a {
			return pc.CodonIndex + i, r, a, true
		}
		if r == '*' {
			break
		}
	}
	return 0, 0, 0, false
}

// combinedProteinHgvs applies variants to t together and renders the protein
// change of the result under fx. Variants must not overlap and may only touch
// CDS bases; otherwise it returns "".
func combinedProteinHgvs(t *cache.Transcript, variants []*vcf.Variant, g refgenome.SequenceAccessor, opts Options, fx EffectSet) string {
	// cut replaces CDS positions [a, b) with ins.
	type cut struct {
		a, b int64
		ins  string
	}
	var (
		cuts        []cut
		first, last int64
		p           *pairing
	)
	for i, v := range variants {
		p = newPairing(t, v, g, opts)
		o, e := p.o, p.e
		c1, c2, ok := o.codingBounds(e.proteinSpan())
		if !ok {
			return ""
		}
		var k cut
		if e.isInsertion() {
			c, ok := o.codingPos(e.lo - 1)
			if !ok {
				return ""
			}
			k = cut{a: c + 1, b: c + 1, ins: e.inserted}
		} else {
			r1, r2, ok := o.codingBounds(e.lo, e.hi)
			if !ok || r2-r1+1 != int64(len(e.removed)) {
				return ""
			}
			k = cut{a: r1, b: r2 + 1, ins: e.inserted}
		}
		if i == 0 || codonOf(c1) < first {
			first = codonOf(c1)
		}
		if i == 0 || codonOf(c2) > last {
			last = codonOf(c2)
		}
		cuts = append(cuts, k)
	}
	if p == nil {
		return ""
	}

	w1 := codonStart(first)
	ref := p.codingBases(w1, codonStart(last)+2)
	if ref == "" {
		return ""
	}
	// Apply from the 3' end so earlier offsets stay valid.
	sort.Slice(cuts, func(i, j int) bool { return cuts[i].a > cuts[j].a })
	alt, end := ref, w1+int64(len(ref))
	for _, k := range cuts {
		if k.b > end {
			return ""
		}
		alt = alt[:k.a-w1] + k.ins + alt[k.b-w1:]
		end = k.a
	}
	if len(alt)%3 != 0 {
		return ""
	}
	pc := &ProteinContext{
		CodonIndex:    int(first),
		RefAminoAcids: Translate(ref),
		AltAminoAcids: Translate(alt),
	}
	return formatHgvsProtein(pc, fx, p.aminoAcidAt)
}

func codonOf(c int64) int64    { return (c-1)/3 + 1 }
func codonStart(n int64) int64 { return 3*(n-1) + 1 }

// codingBases returns CDS bases [c1, c2], running into the 3' UTR when the
// window passes the stop codon and truncated at the transcript end.
func (p *pairing) codingBases(c1, c2 int64) string {
	o := p.o
	c2 = min(c2, o.total-o.csPos+1)
	lo, ok1 := o.fromCodingPos(c1)
	hi, ok2 := o.fromCodingPos(c2)
	if !ok1 || !ok2 {
		return ""
	}
	seq, err := o.fetchExonic(p.genome, p.chrom, lo, hi)
	if err != nil {
		p.diagnose("codon window read failed", err)
		return ""
	}
	return seq
}

// aminoAcidAt translates codon n of the reference CDS.
func (p *pairing) aminoAcidAt(n int) (byte, bool) {
	if n < 1 {
		return 0, false
	}
	c := codonStart(int64(n))
	seq := p.codingBases(c, c+2)
	if len(seq) < 3 {
		return 0, false
	}
	return TranslateCodon(seq), true
}

// inframeKind reports whether an inframe indel removes or adds whole codons.
func (p *pairing) inframeKind(inserted int) InframeKind {
	o, e := p.o, p.e
	if e.isInsertion() {
		if c, ok := o.codingPos(e.lo - 1); ok && c%3 == 0 {
			return InframeConservative
		}
		return InframeDisruptive
	}
	if inserted == 0 {
		if r1, _, ok := o.codingBounds(e.lo, e.hi); ok && (r1-1)%3 == 0 {
			return InframeConservative
		}
	}
	return InframeDisruptive
}

// proteinEffects derives consequences from the translated window. net is the
// coding length change.
func proteinEffects(pc *ProteinContext, cc CodingContext, net int) EffectSet {
	var fx EffectSet
	refAA, altAA := pc.RefAminoAcids, pc.AltAminoAcids
	refStop := strings.IndexByte(refAA, '*')
	altStop := strings.IndexByte(altAA, '*')

	switch {
	case cc.IsFrameShift:
		fx = fx.Add(EffectFrameshift)
	case net < 0:
		fx = fx.Add(EffectInframeDeletion)
	case net > 0:
		fx = fx.Add(EffectInframeInsertion)
	case refAA == "":
		// Unreadable reference: the length change is all we know.
	case refAA == altAA:
		fx = fx.Add(EffectSynonymous)
	default:
		fx = fx.Add(EffectMissense)
	}

	if refAA != "" && !cc.IsFrameShift {
		// An inframe indel moves a surviving reference stop by net/3 residues.
		keptStop := refStop
		if refStop >= 0 {
			keptStop += net / 3
		}
		if altStop >= 0 && (refStop < 0 || altStop < keptStop) {
			fx = fx.Remove(EffectMissense).Remove(EffectSynonymous).Add(EffectStopGained)
		} else if refStop >= 0 && altStop < 0 {
			fx = fx.Remove(EffectMissense).Add(EffectStopLost)
		} else if refStop >= 0 && altStop == refStop && net == 0 {
			fx = fx.Remove(EffectSynonymous).Add(EffectStopRetained)
		}
	}
	if cc.SpansCodingEnd {
		fx = fx.Remove(EffectStopRetained).Add(EffectStopLost)
	}

	startLost := cc.SpansCodingStart
	if pc.CodonIndex == 1 && refAA != "" && refAA[0] == 'M' && (altAA == "" || altAA[0] != 'M') {
		startLost = true
	}
	if startLost {
		fx = fx.Remove(EffectMissense).Remove(EffectSynonymous).Add(EffectStartLost)
	}
	return fx
}
