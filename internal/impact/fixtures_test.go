package impact

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/inodb/vibe-pave/internal/cache"
	"github.com/inodb/vibe-pave/internal/refgenome"
	"github.com/inodb/vibe-pave/internal/vcf"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// patternSeq returns n bases of repeating ACGT, so base(p) is "ACGT"[(p-1)%4].
// The pattern contains no stop codon in any frame.
func patternSeq(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = "ACGT"[i%4]
	}
	return b
}

func setBases(seq []byte, pos int, bases string) {
	copy(seq[pos-1:], bases)
}

// testGenome holds chromosome 1 for the forward transcript, chromosome 2 for
// its reverse-strand mirror and chromosome 3, the reverse complement of
// chromosome 1, for mirroredTranscript.
func testGenome() *refgenome.MemGenome {
	fwd := patternSeq(400)
	setBases(fwd, 79, "ATG")    // start codon
	setBases(fwd, 101, "CT")    // duplicated by the insertion at 102
	setBases(fwd, 120, "ATCG")  // whole-codon deletion
	setBases(fwd, 160, "GAAAT") // homopolymer run
	setBases(fwd, 298, "TAGGCA") // acceptor of exon 2 starts at 301
	setBases(fwd, 347, "TAA")    // stop codon
	return refgenome.NewMemGenome(map[string]string{
		"1": string(fwd),
		"2": string(patternSeq(400)),
		"3": ReverseComplement(string(fwd)),
	})
}

// forwardTranscript: exons 51-200 and 301-380, CDS 79-349.
// c.1 is genomic 79, c.122 is 200 and c.123 is 301.
func forwardTranscript() *cache.Transcript {
	return &cache.Transcript{
		ID:          "TX_FWD",
		GeneID:      "G_FWD",
		GeneName:    "FWD",
		Chrom:       "1",
		Start:       51,
		End:         380,
		Strand:      cache.StrandForward,
		Biotype:     "protein_coding",
		IsCanonical: true,
		Exons: []cache.Exon{
			{Rank: 1, Start: 51, End: 200},
			{Rank: 2, Start: 301, End: 380},
		},
		Coding: &cache.CodingRange{Start: 79, End: 349},
	}
}

// reverseTranscript mirrors forwardTranscript on the minus strand: exon 1 is
// 201-350, exon 2 is 21-100, and c.1 is genomic 322.
func reverseTranscript() *cache.Transcript {
	return &cache.Transcript{
		ID:          "TX_REV",
		GeneID:      "G_REV",
		GeneName:    "REV",
		Chrom:       "2",
		Start:       21,
		End:         350,
		Strand:      cache.StrandReverse,
		Biotype:     "protein_coding",
		IsCanonical: true,
		Exons: []cache.Exon{
			{Rank: 1, Start: 201, End: 350},
			{Rank: 2, Start: 21, End: 100},
		},
		Coding: &cache.CodingRange{Start: 52, End: 322},
	}
}

// mirroredTranscript is forwardTranscript read from the minus strand of
// chromosome 3: genomic g here is 401-g on chromosome 1, so both transcripts
// carry the same coding sequence.
func mirroredTranscript() *cache.Transcript {
	t := reverseTranscript()
	t.ID, t.GeneID, t.GeneName, t.Chrom = "TX_MIR", "G_MIR", "MIR", "3"
	return t
}

// mirrored returns v, a variant on chromosome 1, as the same edit written on
// chromosome 3. Indels keep a left anchor base.
func mirrored(t *testing.T, g refgenome.SequenceAccessor, v *vcf.Variant) *vcf.Variant {
	t.Helper()
	n := int64(len(v.Ref))
	if len(v.Ref) == len(v.Alt) {
		return variant("3", mirrorLen+2-v.Pos-n, ReverseComplement(v.Ref), ReverseComplement(v.Alt))
	}
	pos := mirrorLen + 1 - v.Pos - n
	anchor, err := g.GetBases("3", pos, pos)
	if err != nil {
		t.Fatalf("anchor %d: %v", pos, err)
	}
	return variant("3", pos, anchor+ReverseComplement(v.Ref[1:]), anchor+ReverseComplement(v.Alt[1:]))
}

const mirrorLen = 400

func testCache(ts ...*cache.Transcript) *cache.Cache {
	c := cache.New()
	for _, t := range ts {
		c.AddTranscript(t)
	}
	c.Build()
	return c
}

func newTestClassifier(opts Options) *Classifier {
	return NewClassifier(testCache(forwardTranscript(), reverseTranscript()), testGenome(), opts)
}

func variant(chrom string, pos int64, ref, alt string) *vcf.Variant {
	return &vcf.Variant{Chrom: chrom, Pos: pos, Ref: ref, Alt: alt, Filter: "PASS"}
}

func classifyOne(t *testing.T, c *Classifier, v *vcf.Variant, tx *cache.Transcript) *VariantTransImpact {
	t.Helper()
	imp, err := c.ClassifyTranscript(v, tx)
	if err != nil {
		t.Fatalf("classify %s:%d %s>%s: %v", v.Chrom, v.Pos, v.Ref, v.Alt, err)
	}
	return imp
}

// testGenomeTruncated keeps only the first n bases of chromosome 1.
func testGenomeTruncated(n int) *refgenome.MemGenome {
	seq, _ := testGenome().GetBases("1", 1, int64(n))
	return refgenome.NewMemGenome(map[string]string{"1": seq})
}
