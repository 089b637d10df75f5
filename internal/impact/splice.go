package impact

import (
	"github.com/inodb/vibe-pave/internal/cache"
	"github.com/inodb/vibe-pave/internal/refgenome"
	"github.com/inodb/vibe-pave/internal/vcf"
)

// SpliceVerdict grades the effect of an edit on a splice site, least severe
// first.
type SpliceVerdict int

const (
	SpliceOutsideRange SpliceVerdict = iota
	SpliceUnaffected
	SpliceBaseShift
	SpliceBaseChange
	SpliceRegionDeleted
)

var verdictNames = []string{"OUTSIDE_RANGE", "UNAFFECTED", "BASE_SHIFT", "BASE_CHANGE", "REGION_DELETED"}

func (v SpliceVerdict) String() string {
	if v < 0 || int(v) >= len(verdictNames) {
		return verdictNames[SpliceOutsideRange]
	}
	return verdictNames[v]
}

// Disruptive reports whether the site is lost.
func (v SpliceVerdict) Disruptive() bool {
	return v == SpliceBaseChange || v == SpliceRegionDeleted
}

// SpliceSite identifies which side of an intron a verdict applies to.
type SpliceSite int

const (
	SiteNone SpliceSite = iota
	SiteDonor
	SiteAcceptor
)

func (s SpliceSite) String() string {
	switch s {
	case SiteDonor:
		return "DONOR"
	case SiteAcceptor:
		return "ACCEPTOR"
	default:
		return "NONE"
	}
}

// SpliceImpact is the worst splice verdict of a variant on a transcript.
type SpliceImpact struct {
	Verdict  SpliceVerdict
	Site     SpliceSite
	ExonRank int // exon whose boundary the site belongs to
}

// Disruptive reports whether the variant destroys a splice site.
func (s SpliceImpact) Disruptive() bool { return s.Verdict.Disruptive() }

// Effect maps a disruptive impact to its consequence.
func (s SpliceImpact) Effect() Effect {
	if !s.Disruptive() {
		return EffectNone
	}
	if s.Site == SiteAcceptor {
		return EffectSpliceAcceptor
	}
	return EffectSpliceDonor
}

// Site geometry, in oriented offsets from the boundary base. The donor window
// runs from the last exon base (D-1) to the fifth intron base (D5); the
// acceptor window covers the three intron bases before the exon (A3..A1).
const (
	donorWindow    = 5
	acceptorWindow = 3
	siteContext    = 12 // bases of context read on each side of a window
)

// ClassifySplice evaluates v against every splice site of t.
func ClassifySplice(t *cache.Transcript, v *vcf.Variant, g refgenome.SequenceAccessor) (SpliceImpact, []string) {
	p := newPairing(t, v, g, DefaultOptions())
	return p.spliceImpact(), p.diags
}

func (p *pairing) spliceImpact() SpliceImpact {
	var worst SpliceImpact
	n := len(p.o.exons)
	for i := range p.o.exons {
		if i < n-1 {
			if v := p.donorVerdict(i); v > worst.Verdict {
				worst = SpliceImpact{Verdict: v, Site: SiteDonor, ExonRank: p.o.tx.Exons[i].Rank}
			}
		}
		if i > 0 {
			if v := p.acceptorVerdict(i); v > worst.Verdict {
				worst = SpliceImpact{Verdict: v, Site: SiteAcceptor, ExonRank: p.o.tx.Exons[i].Rank}
			}
		}
	}
	return worst
}

// overlaps reports whether the removed bases intersect [lo, hi].
func (e edit) overlaps(lo, hi int64) bool {
	return !e.isInsertion() && e.lo <= hi && e.hi >= lo
}

// insertsAfter reports whether a pure insertion follows a base in [lo, hi].
func (e edit) insertsAfter(lo, hi int64) bool {
	return e.isInsertion() && e.lo-1 >= lo && e.lo-1 <= hi
}

func (e edit) covers(lo, hi int64) bool {
	return e.isDeletion() && e.lo <= lo && e.hi >= hi
}

// taggedBase is a base of a locally edited sequence with its exon membership.
type taggedBase struct {
	base byte
	exon bool
}

// editedRegion applies the edit to the reference bases of [lo, hi]. exon
// marks which positions belong to the boundary's exon. Inserted bases take
// the tag of the removed base they replace; bases with no counterpart, or
// landing exactly on an exon-intron edge, are intronic.
func (p *pairing) editedRegion(lo, hi int64, exon span) ([]taggedBase, []taggedBase, bool) {
	seq, err := p.orientedFetch(lo, hi)
	if err != nil {
		p.diagnose("splice context read failed", err)
		return nil, nil, false
	}
	tag := func(pos int64) bool { return exon.contains(pos) }
	ref := make([]taggedBase, len(seq))
	for i := range seq {
		ref[i] = taggedBase{base: seq[i], exon: tag(lo + int64(i))}
	}

	e := p.e
	var alt []taggedBase
	insertTags := func() []taggedBase {
		out := make([]taggedBase, len(e.inserted))
		for j := range e.inserted {
			var ex bool
			switch {
			case e.isInsertion():
				ex = tag(e.lo-1) && tag(e.lo)
			case int64(j) < e.hi-e.lo+1:
				ex = tag(e.lo + int64(j))
			default:
				ex = tag(e.hi) && tag(e.hi+1)
			}
			out[j] = taggedBase{base: e.inserted[j], exon: ex}
		}
		return out
	}
	inserted := false
	for i, b := range ref {
		pos := lo + int64(i)
		if pos == e.lo && !inserted {
			alt = append(alt, insertTags()...)
			inserted = true
		}
		if !e.isInsertion() && pos >= e.lo && pos <= e.hi {
			continue
		}
		alt = append(alt, b)
	}
	if !inserted && e.lo == hi+1 {
		alt = append(alt, insertTags()...)
	}
	return ref, alt, true
}

// siteBases picks bases around boundary index k; missing positions read 'N'.
func siteBases(seq []taggedBase, k int, offsets []int) []byte {
	out := make([]byte, len(offsets))
	for i, off := range offsets {
		j := k + off
		if j >= 0 && j < len(seq) {
			out[i] = seq[j].base
		} else {
			out[i] = 'N'
		}
	}
	return out
}

var (
	// Offsets from the last exon base: D-1, D1..D5.
	donorOffsets = []int{0, 1, 2, 3, 4, 5}
	// Offsets from the first exon base: A1, A2, A3.
	acceptorOffsets = []int{-1, -2, -3}
)

// donorRequired lists which donor positions must keep their reference base.
// D1 and D2 always do; D-1 and D5 only when they match the consensus G.
func donorRequired(ref []byte) []bool {
	return []bool{ref[0] == 'G', true, true, false, false, ref[5] == 'G'}
}

// acceptorRequired: A1 and A2 always; A3 only as a pyrimidine.
func acceptorRequired(ref []byte) []bool {
	return []bool{true, true, ref[2] == 'C' || ref[2] == 'T'}
}

func (p *pairing) donorVerdict(i int) SpliceVerdict {
	o, e := p.o, p.e
	end := o.exons[i].hi
	// Insertions after D5 leave the window intact.
	if !e.overlaps(end, end+donorWindow) && !e.insertsAfter(end, end+donorWindow-1) {
		return SpliceOutsideRange
	}
	if e.covers(end, end+donorWindow) {
		return SpliceRegionDeleted
	}
	lo := max(end-siteContext, o.exons[i].lo)
	hi := min(end+donorWindow+siteContext, o.exons[i+1].lo-1)
	lo, hi = min(lo, e.lo), max(hi, e.hi)
	ref, alt, ok := p.editedRegion(lo, hi, o.exons[i])
	if !ok {
		return SpliceOutsideRange
	}
	refK, altK := lastExonic(ref), lastExonic(alt)
	if altK < 0 {
		return SpliceBaseChange
	}
	r := siteBases(ref, refK, donorOffsets)
	return siteVerdict(r, siteBases(alt, altK, donorOffsets), donorRequired(r), e.isIndel())
}

func (p *pairing) acceptorVerdict(i int) SpliceVerdict {
	o, e := p.o, p.e
	start := o.exons[i].lo
	// Insertions right before A3 still lengthen the window's context.
	if !e.overlaps(start-acceptorWindow, start-1) && !e.insertsAfter(start-acceptorWindow-1, start-1) {
		return SpliceOutsideRange
	}
	if e.covers(start-acceptorWindow, start-1) {
		return SpliceRegionDeleted
	}
	lo := max(start-acceptorWindow-siteContext, o.exons[i-1].hi+1)
	hi := min(start+siteContext, o.exons[i].hi)
	lo, hi = min(lo, e.lo), max(hi, e.hi)
	ref, alt, ok := p.editedRegion(lo, hi, o.exons[i])
	if !ok {
		return SpliceOutsideRange
	}
	refK, altK := firstExonic(ref), firstExonic(alt)
	if altK < 0 {
		return SpliceBaseChange
	}
	r := siteBases(ref, refK, acceptorOffsets)
	return siteVerdict(r, siteBases(alt, altK, acceptorOffsets), acceptorRequired(r), e.isIndel())
}

// siteVerdict compares the post-edit site with the reference site. An indel
// that keeps every required base still moves the site.
func siteVerdict(ref, alt []byte, required []bool, indel bool) SpliceVerdict {
	changed := false
	for j := range ref {
		if ref[j] != alt[j] {
			if required[j] {
				return SpliceBaseChange
			}
			changed = true
		}
	}
	if changed && indel {
		return SpliceBaseShift
	}
	return SpliceUnaffected
}

func lastExonic(seq []taggedBase) int {
	for k := len(seq) - 1; k >= 0; k-- {
		if seq[k].exon {
			return k
		}
	}
	return -1
}

func firstExonic(seq []taggedBase) int {
	for k, b := range seq {
		if b.exon {
			return k
		}
	}
	return -1
}

// spliceRegion reports whether the edit touches the splice region of any
// boundary: the exon's outermost bases and intron bases 3 to 8 by default.
func (p *pairing) spliceRegion() bool {
	o := p.o
	first, last := p.e.affected()
	hit := func(lo, hi int64) bool { return first <= hi && last >= lo }
	exonSide, intronSide := int64(p.opts.SpliceRegionExon), int64(p.opts.SpliceRegionIntron)
	n := len(o.exons)
	for i, ex := range o.exons {
		if i < n-1 && (hit(ex.hi-exonSide+1, ex.hi) || hit(ex.hi+3, ex.hi+intronSide)) {
			return true
		}
		if i > 0 && (hit(ex.lo, ex.lo+exonSide-1) || hit(ex.lo-intronSide, ex.lo-3)) {
			return true
		}
	}
	return false
}
