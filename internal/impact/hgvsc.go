package impact

import (
	"github.com/inodb/vibe-pave/internal/cache"
	"github.com/inodb/vibe-pave/internal/refgenome"
	"github.com/inodb/vibe-pave/internal/vcf"
)

const shiftChunk = 64

// fetchFunc returns bases for an inclusive range in some coordinate frame.
type fetchFunc func(lo, hi int64) (string, error)

// shiftRight slides unit rightwards while the base at the current position
// equals the unit's first base, rotating the unit as it goes. start is the
// first base compared and limit the last. Read errors end the scan early.
func shiftRight(fetch fetchFunc, unit string, start, limit int64) (string, int64) {
	var moved int64
	if unit == "" {
		return unit, 0
	}
	for pos := start; pos <= limit; {
		end := min(pos+shiftChunk-1, limit)
		seq, err := fetch(pos, end)
		if err != nil {
			return unit, moved
		}
		for i := 0; i < len(seq); i++ {
			if seq[i] != unit[0] {
				return unit, moved
			}
			unit = unit[1:] + seq[i:i+1]
			moved++
		}
		pos = end + 1
	}
	return unit, moved
}

// FormatHgvsCoding renders the c. (or n.) notation of v on t.
func FormatHgvsCoding(t *cache.Transcript, v *vcf.Variant, cc CodingContext, g refgenome.SequenceAccessor, opts Options) string {
	p := newPairing(t, v, g, opts)
	return p.hgvsCoding(cc)
}

func (p *pairing) hgvsCoding(cc CodingContext) string {
	switch {
	case cc.RegionType == RegionUnknown:
		return ""
	case cc.RegionType == RegionUpstream && cc.CodingType != CodingEnhancer:
		return ""
	}
	prefix := "c."
	if !p.o.coding {
		prefix = "n."
	}
	e := p.e
	switch {
	case e.isInsertion():
		return prefix + p.hgvsInsertion()
	case e.isDeletion():
		return prefix + p.hgvsDeletion()
	case len(e.removed) == 1 && len(e.inserted) == 1:
		return prefix + p.o.position(e.lo).String() + e.removed + ">" + e.inserted
	default:
		return prefix + p.rangeString(e.lo, e.hi) + "del" + e.removed + "ins" + e.inserted
	}
}

func (p *pairing) rangeString(lo, hi int64) string {
	if lo == hi {
		return p.o.position(lo).String()
	}
	return p.o.position(lo).String() + "_" + p.o.position(hi).String()
}

func (p *pairing) shiftLimit(seg span, from int64) int64 {
	return min(seg.hi, from+int64(p.maxShift()))
}

func (p *pairing) maxShift() int {
	if p.opts.MaxRealignShift > 0 {
		return p.opts.MaxRealignShift
	}
	return DefaultMaxRealignShift
}

// hgvsDeletion shifts the deleted bases to their most 3' position inside the
// exon or intron holding them.
func (p *pairing) hgvsDeletion() string {
	e := p.e
	lo, hi, del := e.lo, e.hi, e.removed
	if seg := p.o.segmentBounds(lo); seg.contains(hi) {
		var moved int64
		del, moved = shiftRight(p.orientedFetch, del, hi+1, p.shiftLimit(seg, hi+1))
		lo, hi = lo+moved, hi+moved
	}
	return p.rangeString(lo, hi) + "del" + del
}

// hgvsInsertion shifts the inserted bases 3' within their segment, then
// reports a duplication when they repeat the bases just before them.
func (p *pairing) hgvsInsertion() string {
	e := p.e
	lo, ins := e.lo, e.inserted
	seg := p.o.segmentBounds(lo - 1)
	if seg.contains(lo) {
		// The left flank must stay inside the segment.
		var moved int64
		ins, moved = shiftRight(p.orientedFetch, ins, lo, p.shiftLimit(seg, lo))
		lo += moved
	}
	n := int64(len(ins))
	if lo-n >= seg.lo {
		if prev, err := p.orientedFetch(lo-n, lo-1); err == nil && prev == ins {
			return p.rangeString(lo-n, lo-1) + "dup" + ins
		}
	}
	return p.o.position(lo-1).String() + "_" + p.o.position(lo).String() + "ins" + ins
}
