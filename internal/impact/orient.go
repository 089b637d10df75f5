package impact

import (
	"sort"
	"strconv"

	"github.com/inodb/vibe-pave/internal/cache"
	"github.com/inodb/vibe-pave/internal/refgenome"
	"github.com/inodb/vibe-pave/internal/vcf"
)

// All arithmetic below runs in oriented coordinates: o = g on the forward
// strand and o = -g on the reverse strand, so transcription order is always
// ascending. Nothing outside this file branches on strand.

type span struct{ lo, hi int64 }

func (s span) contains(p int64) bool { return p >= s.lo && p <= s.hi }

// orientedTranscript is a read-only oriented view of a transcript.
type orientedTranscript struct {
	tx     *cache.Transcript
	sign   int64
	exons  []span  // rank order, ascending
	cum    []int64 // exonic bases before exons[i]
	total  int64   // exonic bases in the transcript
	coding bool
	cs, ce int64 // oriented coding bounds, cs <= ce
	csPos  int64 // transcript position of cs
	cePos  int64 // transcript position of ce
}

func newOrientedTranscript(t *cache.Transcript) *orientedTranscript {
	o := &orientedTranscript{tx: t, sign: int64(t.Strand)}
	o.exons = make([]span, len(t.Exons))
	o.cum = make([]int64, len(t.Exons))
	for i, e := range t.Exons {
		o.exons[i] = o.orientSpan(e.Start, e.End)
		o.cum[i] = o.total
		o.total += e.Len()
	}
	if t.Coding != nil {
		o.coding = true
		c := o.orientSpan(t.Coding.Start, t.Coding.End)
		o.cs, o.ce = c.lo, c.hi
		o.csPos = o.transcriptPos(o.cs)
		o.cePos = o.transcriptPos(o.ce)
	}
	return o
}

// orient converts a genomic position; it is its own inverse.
func (o *orientedTranscript) orient(g int64) int64 { return o.sign * g }

func (o *orientedTranscript) orientSpan(start, end int64) span {
	a, b := o.orient(start), o.orient(end)
	if a > b {
		a, b = b, a
	}
	return span{a, b}
}

// genomicSpan returns the genomic interval of an oriented span.
func (o *orientedTranscript) genomicSpan(lo, hi int64) (int64, int64) {
	a, b := o.orient(lo), o.orient(hi)
	if a > b {
		a, b = b, a
	}
	return a, b
}

// exonIndex returns the index of the exon containing p, or -1.
func (o *orientedTranscript) exonIndex(p int64) int {
	i := sort.Search(len(o.exons), func(i int) bool { return o.exons[i].hi >= p })
	if i < len(o.exons) && o.exons[i].contains(p) {
		return i
	}
	return -1
}

// transcriptPos returns the 1-based transcript position of exonic p, or 0.
func (o *orientedTranscript) transcriptPos(p int64) int64 {
	i := o.exonIndex(p)
	if i < 0 {
		return 0
	}
	return o.cum[i] + p - o.exons[i].lo + 1
}

// fromTranscriptPos maps a transcript position back to an oriented position.
func (o *orientedTranscript) fromTranscriptPos(n int64) (int64, bool) {
	if n < 1 || n > o.total {
		return 0, false
	}
	i := sort.Search(len(o.cum), func(i int) bool { return o.cum[i] >= n }) - 1
	return o.exons[i].lo + n - o.cum[i] - 1, true
}

// codingPos returns the 1-based CDS position of p when p is an exonic base
// inside the coding bounds.
func (o *orientedTranscript) codingPos(p int64) (int64, bool) {
	if !o.coding || p < o.cs || p > o.ce {
		return 0, false
	}
	n := o.transcriptPos(p)
	if n == 0 {
		return 0, false
	}
	return n - o.csPos + 1, true
}

// fromCodingPos maps a CDS position (possibly past the stop codon) to an
// oriented position.
func (o *orientedTranscript) fromCodingPos(c int64) (int64, bool) {
	return o.fromTranscriptPos(o.csPos + c - 1)
}

// countCoding counts exonic bases of [lo, hi] inside the coding bounds.
func (o *orientedTranscript) countCoding(lo, hi int64) int {
	if !o.coding {
		return 0
	}
	lo, hi = max(lo, o.cs), min(hi, o.ce)
	n := 0
	for _, e := range o.exons {
		a, b := max(lo, e.lo), min(hi, e.hi)
		if b >= a {
			n += int(b - a + 1)
		}
	}
	return n
}

// codingBounds returns the first and last CDS positions covered by [lo, hi].
func (o *orientedTranscript) codingBounds(lo, hi int64) (int64, int64, bool) {
	var first, last int64
	found := false
	for p := max(lo, o.cs); p <= min(hi, o.ce); p++ {
		i := o.exonIndex(p)
		if i < 0 {
			// Jump to the next exon.
			next := sort.Search(len(o.exons), func(i int) bool { return o.exons[i].lo > p })
			if next == len(o.exons) {
				break
			}
			p = o.exons[next].lo - 1
			continue
		}
		c, _ := o.codingPos(p)
		if !found {
			first, found = c, true
		}
		// Remaining bases of this exon are contiguous in CDS space.
		end := min(hi, o.ce, o.exons[i].hi)
		last = c + end - p
		p = end
	}
	return first, last, found
}

// segmentBounds returns the exon or intron containing p.
func (o *orientedTranscript) segmentBounds(p int64) span {
	if i := o.exonIndex(p); i >= 0 {
		return o.exons[i]
	}
	n := len(o.exons)
	if p < o.exons[0].lo {
		return span{p - 1<<20, o.exons[0].lo - 1}
	}
	if p > o.exons[n-1].hi {
		return span{o.exons[n-1].hi + 1, p + 1<<20}
	}
	i := sort.Search(n, func(i int) bool { return o.exons[i].lo > p })
	return span{o.exons[i-1].hi + 1, o.exons[i].lo - 1}
}

// position is an HGVS coordinate: a base, an optional 3' UTR star and an
// intron offset.
type position struct {
	base   int64
	utr3   bool
	offset int64
}

func (p position) String() string {
	s := strconv.FormatInt(p.base, 10)
	if p.utr3 {
		s = "*" + s
	}
	if p.offset > 0 {
		s += "+" + strconv.FormatInt(p.offset, 10)
	} else if p.offset < 0 {
		s += strconv.FormatInt(p.offset, 10)
	}
	return s
}

// exonicPosition numbers an exonic base.
func (o *orientedTranscript) exonicPosition(p int64) position {
	n := o.transcriptPos(p)
	switch {
	case !o.coding:
		return position{base: n}
	case n < o.csPos:
		return position{base: n - o.csPos}
	case n > o.cePos:
		return position{base: n - o.cePos, utr3: true}
	default:
		return position{base: n - o.csPos + 1}
	}
}

// position numbers any oriented base. Intronic bases are offset from the
// nearer exon boundary; ties go to the upstream exon.
func (o *orientedTranscript) position(p int64) position {
	if o.exonIndex(p) >= 0 {
		return o.exonicPosition(p)
	}
	first, last := o.exons[0], o.exons[len(o.exons)-1]
	if p < first.lo {
		// Upstream numbering continues the 5' count without an offset.
		if !o.coding {
			return position{base: p - first.lo}
		}
		return position{base: 1 - o.csPos - (first.lo - p)}
	}
	if p > last.hi {
		if !o.coding {
			return position{base: p - last.hi, utr3: true}
		}
		return position{base: o.total - o.cePos + p - last.hi, utr3: true}
	}
	anchor, offset, _ := o.nearestBoundary(p)
	pos := o.exonicPosition(anchor)
	pos.offset = offset
	return pos
}

// nearestBoundary returns the exon boundary base nearest to intronic p,
// the signed offset from it and the index of that exon.
func (o *orientedTranscript) nearestBoundary(p int64) (anchor, offset int64, idx int) {
	i := sort.Search(len(o.exons), func(i int) bool { return o.exons[i].lo > p })
	up, down := o.exons[i-1], o.exons[i]
	toDonor, toAcceptor := p-up.hi, down.lo-p
	if toDonor <= toAcceptor {
		return up.hi, toDonor, i - 1
	}
	return down.lo, -toAcceptor, i
}

// fetch returns oriented bases for the contiguous range [lo, hi].
func (o *orientedTranscript) fetch(g refgenome.SequenceAccessor, chrom string, lo, hi int64) (string, error) {
	if hi < lo {
		return "", nil
	}
	start, end := o.genomicSpan(lo, hi)
	seq, err := g.GetBases(chrom, start, end)
	if err != nil {
		return "", err
	}
	if o.sign < 0 {
		return ReverseComplement(seq), nil
	}
	return seq, nil
}

// fetchExonic returns oriented bases of the exonic parts of [lo, hi], joined
// across introns.
func (o *orientedTranscript) fetchExonic(g refgenome.SequenceAccessor, chrom string, lo, hi int64) (string, error) {
	var out []byte
	for _, e := range o.exons {
		a, b := max(lo, e.lo), min(hi, e.hi)
		if b < a {
			continue
		}
		seq, err := o.fetch(g, chrom, a, b)
		if err != nil {
			return "", err
		}
		out = append(out, seq...)
	}
	return string(out), nil
}

// edit is a variant reduced to the bases it removes and inserts, in oriented
// coordinates. A pure insertion has hi == lo-1 and sits between lo-1 and lo.
type edit struct {
	lo, hi   int64
	removed  string // oriented removed bases
	inserted string // oriented inserted bases
}

func (e edit) isInsertion() bool { return e.hi < e.lo }
func (e edit) isDeletion() bool  { return e.inserted == "" && e.removed != "" }
func (e edit) isIndel() bool     { return len(e.removed) != len(e.inserted) }

// affected returns the first and last oriented positions the edit touches;
// for insertions these are the flanking bases.
func (e edit) affected() (int64, int64) {
	if e.isInsertion() {
		return e.lo - 1, e.lo
	}
	return e.lo, e.hi
}

// newEdit trims the shared leading bases of a length-changing variant.
// Equal-length variants are kept whole.
func newEdit(v *vcf.Variant, o *orientedTranscript) edit {
	ref, alt := v.Ref, v.Alt
	k := 0
	if len(ref) != len(alt) {
		for k < len(ref) && k < len(alt) && ref[k] == alt[k] {
			k++
		}
	}
	gStart := v.Pos + int64(k)
	gEnd := v.Pos + int64(len(ref)) - 1 // gEnd == gStart-1 for pure insertions

	var e edit
	if o.sign > 0 {
		e.lo, e.hi = gStart, gEnd
		e.removed, e.inserted = ref[k:], alt[k:]
	} else {
		e.lo, e.hi = -gEnd, -gStart
		e.removed, e.inserted = ReverseComplement(ref[k:]), ReverseComplement(alt[k:])
	}
	return e
}
