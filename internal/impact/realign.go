package impact

import (
	"fmt"

	"github.com/inodb/vibe-pave/internal/refgenome"
	"github.com/inodb/vibe-pave/internal/vcf"
)

// RealignRight moves an anchored insertion or deletion to its rightmost
// equivalent position on the forward strand, shifting at most maxShift bases.
// It reports whether the variant moved. The input is never modified.
func RealignRight(v *vcf.Variant, g refgenome.SequenceAccessor, maxShift int) (*vcf.Variant, bool, error) {
	if !v.IsIndel() || maxShift <= 0 {
		return v, false, nil
	}
	fetch := func(lo, hi int64) (string, error) { return g.GetBases(v.Chrom, lo, hi) }

	ref, alt := v.Ref, v.Alt
	var k int
	for k < len(ref) && k < len(alt) && ref[k] == alt[k] {
		k++
	}
	if k == 0 || (k != len(ref) && k != len(alt)) {
		// Unanchored or complex: not a simple repeat shift.
		return v, false, nil
	}

	limit := int64(maxShift)
	var unit string
	var moved int64
	var s int64 // first base after the new anchor
	if len(ref) > len(alt) {
		unit = ref[k:]
		s = v.Pos + int64(k)
		e := v.Pos + int64(len(ref)) - 1
		unit, moved = shiftRight(fetch, unit, e+1, e+limit)
	} else {
		unit = alt[k:]
		s = v.Pos + int64(k)
		unit, moved = shiftRight(fetch, unit, s, s+limit-1)
	}
	if moved == 0 {
		return v, false, nil
	}

	anchorPos := s + moved - 1
	anchor, err := g.GetBases(v.Chrom, anchorPos, anchorPos)
	if err != nil {
		return v, false, fmt.Errorf("read realignment anchor: %w", err)
	}
	out := *v
	out.Pos = anchorPos
	out.Realigned = nil
	if len(ref) > len(alt) {
		out.Ref, out.Alt = anchor+unit, anchor
	} else {
		out.Ref, out.Alt = anchor, anchor+unit
	}
	return &out, true, nil
}
