package impact

import (
	"github.com/inodb/vibe-pave/internal/cache"
	"github.com/inodb/vibe-pave/internal/vcf"
)

// Default classification settings.
const (
	DefaultMaxPromoterDistance = 2000
	DefaultUpstreamDistance    = cache.DefaultUpstreamDistance
	DefaultSpliceRegionExon    = 3
	DefaultSpliceRegionIntron  = 8
	DefaultMaxRealignShift     = 500
)

// Options tunes classification.
type Options struct {
	// PromoterGenes lists gene symbols whose upstream variants are reported
	// as ENHANCER within MaxPromoterDistance of the start codon.
	PromoterGenes       map[string]bool
	MaxPromoterDistance int

	// UpstreamDistance bounds upstream_gene_variant calls.
	UpstreamDistance int

	// Splice region extent on the exon and intron side of a boundary.
	SpliceRegionExon   int
	SpliceRegionIntron int

	// MaxRealignShift caps the right shift tried for splice-disrupting indels.
	// Zero disables realignment.
	MaxRealignShift int
}

// DefaultOptions returns the classification defaults.
func DefaultOptions() Options {
	return Options{
		PromoterGenes:       map[string]bool{},
		MaxPromoterDistance: DefaultMaxPromoterDistance,
		UpstreamDistance:    DefaultUpstreamDistance,
		SpliceRegionExon:    DefaultSpliceRegionExon,
		SpliceRegionIntron:  DefaultSpliceRegionIntron,
		MaxRealignShift:     DefaultMaxRealignShift,
	}
}

// NewPromoterSet builds a PromoterGenes set from gene symbols.
func NewPromoterSet(genes ...string) map[string]bool {
	m := make(map[string]bool, len(genes))
	for _, g := range genes {
		m[g] = true
	}
	return m
}

// ClassifyCoding computes the coding context of v against t. The returned
// error wraps cache.ErrInvalidTranscript for unusable transcripts.
func ClassifyCoding(t *cache.Transcript, v *vcf.Variant, opts Options) (CodingContext, error) {
	if err := t.Validate(); err != nil {
		return CodingContext{}, err
	}
	o := newOrientedTranscript(t)
	return o.codingContext(newEdit(v, o), opts), nil
}

// codingContext fills everything but Hgvs, which needs the reference.
func (o *orientedTranscript) codingContext(e edit, opts Options) CodingContext {
	var cc CodingContext
	first, last := e.affected()
	g1, g2 := o.genomicSpan(first, last)
	cc.CodingPositionRange = [2]int64{g1, g2}

	n := len(o.exons)
	exon0, lastExon := o.exons[0], o.exons[n-1]
	anchor := first

	switch {
	case last < exon0.lo:
		o.upstreamContext(&cc, first, opts)
		return cc
	case first > lastExon.hi:
		cc.RegionType = RegionUnknown
		cc.ExonRank = o.tx.Exons[n-1].Rank
		return cc
	case first < exon0.lo:
		// Starts upstream and runs into the first exon.
		anchor = exon0.lo
		cc.RegionType = RegionExonic
		cc.ExonRank = o.tx.Exons[0].Rank
	default:
		if i := o.exonIndex(first); i >= 0 {
			cc.RegionType = RegionExonic
			cc.ExonRank = o.tx.Exons[i].Rank
		} else {
			_, offset, i := o.nearestBoundary(first)
			cc.RegionType = RegionIntronic
			cc.ExonRank = o.tx.Exons[i].Rank
			cc.NearestExonDistance = int(offset)
		}
	}

	pos := o.position(anchor)
	cc.CodingBase = int(pos.base)
	switch {
	case !o.coding:
		cc.CodingType = CodingNonCoding
	case anchor < o.cs:
		cc.CodingType = CodingUTR5P
	case anchor > o.ce:
		cc.CodingType = CodingUTR3P
	default:
		cc.CodingType = CodingCoding
		cc.UpstreamPhase = cc.CodingBase % 3
	}

	deleted, inserted := o.codingChange(e)
	cc.DeletedCodingBases = deleted
	cc.InsertedCodingBases = inserted
	cc.IsFrameShift = (deleted > 0 || inserted > 0) && (inserted-deleted)%3 != 0
	cc.SpansSpliceJunction = o.spansJunction(e)
	if o.coding && !e.isInsertion() {
		cc.SpansCodingStart = e.lo < o.cs && e.hi >= o.cs
		cc.SpansCodingEnd = e.lo <= o.ce && e.hi > o.ce
	}
	return cc
}

func (o *orientedTranscript) upstreamContext(cc *CodingContext, first int64, opts Options) {
	cc.RegionType = RegionUpstream
	cc.NearestExonDistance = int(first - o.exons[0].lo)
	if !o.coding || !opts.PromoterGenes[o.tx.GeneName] {
		cc.CodingType = CodingUnknown
		return
	}
	base := o.position(first).base
	if -base > int64(opts.MaxPromoterDistance) {
		cc.CodingType = CodingUnknown
		return
	}
	cc.CodingType = CodingEnhancer
	cc.CodingBase = int(base)
}

// codingChange returns the number of CDS bases removed and inserted.
// Inserted bases count only when they land inside the CDS: between two bases
// of one exon, or in place of removed CDS bases.
func (o *orientedTranscript) codingChange(e edit) (deleted, inserted int) {
	if !o.coding {
		return 0, 0
	}
	if e.isInsertion() {
		left, right := e.lo-1, e.lo
		i := o.exonIndex(left)
		if i >= 0 && o.exons[i].contains(right) && left >= o.cs && right <= o.ce {
			inserted = len(e.inserted)
		}
		return 0, inserted
	}
	deleted = o.countCoding(e.lo, e.hi)
	if deleted > 0 {
		inserted = len(e.inserted)
	}
	return deleted, inserted
}

// spansJunction reports whether the edit straddles an exon-intron boundary.
// Deletions that end exactly on a boundary base also count, since the
// adjacent intronic base becomes the new neighbour.
func (o *orientedTranscript) spansJunction(e edit) bool {
	n := len(o.exons)
	for i, ex := range o.exons {
		hasDonor, hasAcceptor := i < n-1, i > 0
		if e.isInsertion() {
			if (hasDonor && e.lo-1 == ex.hi) || (hasAcceptor && e.lo == ex.lo) {
				return true
			}
			continue
		}
		if hasDonor && e.lo <= ex.hi && e.hi > ex.hi {
			return true
		}
		if hasAcceptor && e.lo < ex.lo && e.hi >= ex.lo {
			return true
		}
		if e.isIndel() && ((hasDonor && e.hi == ex.hi) || (hasAcceptor && e.lo == ex.lo)) {
			return true
		}
	}
	return false
}
