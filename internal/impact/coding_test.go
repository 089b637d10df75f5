package impact

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-pave/internal/cache"
	"github.com/inodb/vibe-pave/internal/vcf"
)

type codingWant struct {
	region   RegionType
	coding   CodingType
	base     int
	rank     int
	distance int
	hgvs     string
}

func TestClassifyCoding_Positions(t *testing.T) {
	promoters := DefaultOptions()
	promoters.PromoterGenes = NewPromoterSet("FWD", "REV")

	tests := []struct {
		name string
		opts Options
		tx   *cache.Transcript
		v    [4]string
		pos  int64
		want codingWant
	}{
		{"fwd coding", DefaultOptions(), forwardTranscript(), [4]string{"1", "", "C", "A"}, 82,
			codingWant{RegionExonic, CodingCoding, 4, 1, 0, "c.4C>A"}},
		{"rev coding", DefaultOptions(), reverseTranscript(), [4]string{"2", "", "G", "T"}, 319,
			codingWant{RegionExonic, CodingCoding, 4, 1, 0, "c.4C>A"}},
		{"fwd 5' UTR", DefaultOptions(), forwardTranscript(), [4]string{"1", "", "T", "C"}, 60,
			codingWant{RegionExonic, CodingUTR5P, -19, 1, 0, "c.-19T>C"}},
		{"rev 5' UTR", DefaultOptions(), reverseTranscript(), [4]string{"2", "", "A", "G"}, 341,
			codingWant{RegionExonic, CodingUTR5P, -19, 1, 0, "c.-19T>C"}},
		{"fwd 3' UTR", DefaultOptions(), forwardTranscript(), [4]string{"1", "", "T", "A"}, 360,
			codingWant{RegionExonic, CodingUTR3P, 11, 2, 0, "c.*11T>A"}},
		{"rev 3' UTR", DefaultOptions(), reverseTranscript(), [4]string{"2", "", "A", "T"}, 41,
			codingWant{RegionExonic, CodingUTR3P, 11, 2, 0, "c.*11T>A"}},
		{"fwd intron donor side", DefaultOptions(), forwardTranscript(), [4]string{"1", "", "G", "T"}, 211,
			codingWant{RegionIntronic, CodingCoding, 122, 1, 11, "c.122+11G>T"}},
		{"rev intron donor side", DefaultOptions(), reverseTranscript(), [4]string{"2", "", "C", "A"}, 190,
			codingWant{RegionIntronic, CodingCoding, 122, 1, 11, "c.122+11G>T"}},
		{"fwd intron acceptor side", DefaultOptions(), forwardTranscript(), [4]string{"1", "", "C", "A"}, 290,
			codingWant{RegionIntronic, CodingCoding, 123, 2, -11, "c.123-11C>A"}},
		{"rev intron acceptor side", DefaultOptions(), reverseTranscript(), [4]string{"2", "", "G", "T"}, 111,
			codingWant{RegionIntronic, CodingCoding, 123, 2, -11, "c.123-11C>A"}},
		{"fwd upstream", DefaultOptions(), forwardTranscript(), [4]string{"1", "", "A", "G"}, 41,
			codingWant{RegionUpstream, CodingUnknown, 0, 0, -10, ""}},
		{"fwd promoter", promoters, forwardTranscript(), [4]string{"1", "", "A", "G"}, 41,
			codingWant{RegionUpstream, CodingEnhancer, -38, 0, -10, "c.-38A>G"}},
		{"rev promoter", promoters, reverseTranscript(), [4]string{"2", "", "T", "C"}, 360,
			codingWant{RegionUpstream, CodingEnhancer, -38, 0, -10, "c.-38A>G"}},
		{"fwd deletion shifted 3'", DefaultOptions(), forwardTranscript(), [4]string{"1", "", "GA", "G"}, 160,
			codingWant{RegionExonic, CodingCoding, 83, 1, 0, "c.85delA"}},
		{"fwd insertion as dup", DefaultOptions(), forwardTranscript(), [4]string{"1", "", "G", "GA"}, 160,
			codingWant{RegionExonic, CodingCoding, 82, 1, 0, "c.85dupA"}},
		{"fwd insertion at exon end", DefaultOptions(), forwardTranscript(), [4]string{"1", "", "T", "TAC"}, 200,
			codingWant{RegionExonic, CodingCoding, 122, 1, 0, "c.122_122+1insAC"}},
		{"fwd acceptor deletion", DefaultOptions(), forwardTranscript(), [4]string{"1", "", "ATAG", "A"}, 297,
			codingWant{RegionIntronic, CodingCoding, 123, 2, -3, "c.123-3_123-1delTAG"}},
	}

	c := newTestClassifier(DefaultOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := variant(tt.v[0], tt.pos, tt.v[2], tt.v[3])
			cc, err := ClassifyCoding(tt.tx, v, tt.opts)
			require.NoError(t, err)
			cc.Hgvs = FormatHgvsCoding(tt.tx, v, cc, c.genome, tt.opts)

			got := codingWant{cc.RegionType, cc.CodingType, cc.CodingBase, cc.ExonRank, cc.NearestExonDistance, cc.Hgvs}
			assert.Equal(t, tt.want, got)
		})
	}
}

// The scenario from the duplication rule: inserting CT after an existing CT.
func TestClassifyCoding_DuplicationInsertion(t *testing.T) {
	c := newTestClassifier(DefaultOptions())
	imp := classifyOne(t, c, variant("1", 102, "T", "TCT"), forwardTranscript())

	assert.Equal(t, "c.23_24dupCT", imp.Coding.Hgvs)
	assert.Equal(t, RegionExonic, imp.Coding.RegionType)
	assert.Equal(t, [2]int64{102, 103}, imp.Coding.CodingPositionRange)
	assert.True(t, imp.Coding.IsFrameShift)
	assert.Equal(t, EffectFrameshift, imp.TopEffect())
}

// Inserting a copy of the preceding bases always renders as a duplication,
// and is inframe exactly when the copy is a whole number of codons.
func TestClassifyCoding_InsertPrecedingBasesIsDup(t *testing.T) {
	c := newTestClassifier(DefaultOptions())
	const pos = 90
	for _, n := range []int64{1, 2, 3, 4, 6} {
		prev, err := c.genome.GetBases("1", pos-n+1, pos)
		require.NoError(t, err)
		ref := prev[len(prev)-1:]
		imp := classifyOne(t, c, variant("1", pos, ref, ref+prev), forwardTranscript())

		assert.Contains(t, imp.Coding.Hgvs, "dup", "n=%d", n)
		assert.NotContains(t, imp.Coding.Hgvs, "ins", "n=%d", n)
		assert.Equal(t, n%3 != 0, imp.Coding.IsFrameShift, "n=%d", n)
		if n == 3 {
			assert.Equal(t, "c.10_12dupTAC", imp.Coding.Hgvs)
		}
	}
}

// Every placement of the same three-base insertion at the intron 1 acceptor
// describes one duplication, the 3'-most copy ending right before the exon.
func TestClassifyCoding_EquivalentDupPlacements(t *testing.T) {
	c := newTestClassifier(DefaultOptions())
	tests := []struct {
		name     string
		tx       *cache.Transcript
		variants []*vcf.Variant
		want     string
	}{
		{"forward", forwardTranscript(), []*vcf.Variant{
			variant("1", 297, "A", "ATAG"),
			variant("1", 298, "T", "TAGT"),
			variant("1", 299, "A", "AGTA"),
			variant("1", 300, "G", "GTAG"),
		}, "c.123-3_123-1dupTAG"},
		{"reverse", reverseTranscript(), []*vcf.Variant{
			variant("2", 100, "T", "TACG"),
			variant("2", 101, "A", "ACGA"),
			variant("2", 102, "C", "CGAC"),
			variant("2", 103, "G", "GACG"),
		}, "c.123-3_123-1dupCGT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, v := range tt.variants {
				imp := classifyOne(t, c, v, tt.tx)
				assert.Equal(t, tt.want, imp.Coding.Hgvs, "%d %s>%s", v.Pos, v.Ref, v.Alt)
			}
		})
	}
}

func TestClassifyCoding_MirroredIndels(t *testing.T) {
	tests := []struct {
		name     string
		pos      int64
		ref, alt string
		want     codingWant
	}{
		{"deletion in run", 160, "GA", "G", codingWant{RegionExonic, CodingCoding, 83, 1, 0, "c.85delA"}},
		{"dinucleotide dup", 102, "T", "TCT", codingWant{RegionExonic, CodingCoding, 24, 1, 0, "c.23_24dupCT"}},
		{"codon before stop", 345, "ACTA", "A", codingWant{RegionExonic, CodingCoding, 168, 2, 0, "c.168_170delCTA"}},
		{"inframe insertion", 87, "G", "GAAA", codingWant{RegionExonic, CodingCoding, 9, 1, 0, "c.9_10insAAA"}},
		{"acceptor deletion", 297, "ATAG", "A", codingWant{RegionIntronic, CodingCoding, 123, 2, -3, "c.123-3_123-1delTAG"}},
	}
	g := testGenome()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd := variant("1", tt.pos, tt.ref, tt.alt)
			for _, run := range []struct {
				tx *cache.Transcript
				v  *vcf.Variant
			}{
				{forwardTranscript(), fwd},
				{mirroredTranscript(), mirrored(t, g, fwd)},
			} {
				cc, err := ClassifyCoding(run.tx, run.v, DefaultOptions())
				require.NoError(t, err)
				cc.Hgvs = FormatHgvsCoding(run.tx, run.v, cc, g, DefaultOptions())
				got := codingWant{cc.RegionType, cc.CodingType, cc.CodingBase, cc.ExonRank, cc.NearestExonDistance, cc.Hgvs}
				assert.Equal(t, tt.want, got, run.tx.ID)
			}
		})
	}
}

func TestClassifyCoding_Flags(t *testing.T) {
	tests := []struct {
		name       string
		pos        int64
		ref, alt   string
		frameshift bool
		junction   bool
		start, end bool
		deleted    int
	}{
		{"snv", 82, "C", "A", false, false, false, false, 1},
		{"inframe deletion", 120, "ATCG", "A", false, false, false, false, 3},
		{"frameshift deletion", 160, "GA", "G", true, false, false, false, 1},
		{"deletion of last exon base", 199, "GT", "G", true, true, false, false, 1},
		{"deletion of penultimate exon base", 197, "AC", "A", true, false, false, false, 1},
		{"insertion after last exon base", 200, "T", "TAC", false, true, false, false, 0},
		{"deletion across start codon", 77, "ACAT", "A", true, false, true, false, 2},
		{"deletion across stop codon", 347, "TAAC", "T", true, false, false, true, 2},
		{"intronic deletion", 297, "ATAG", "A", false, false, false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc, err := ClassifyCoding(forwardTranscript(), variant("1", tt.pos, tt.ref, tt.alt), DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, tt.frameshift, cc.IsFrameShift, "frameshift")
			assert.Equal(t, tt.junction, cc.SpansSpliceJunction, "junction")
			assert.Equal(t, tt.start, cc.SpansCodingStart, "coding start")
			assert.Equal(t, tt.end, cc.SpansCodingEnd, "coding end")
			assert.Equal(t, tt.deleted, cc.DeletedCodingBases, "deleted")
		})
	}
}

func TestClassifyCoding_UpstreamOutOfRange(t *testing.T) {
	tx := &cache.Transcript{
		ID: "TX_FAR", GeneName: "FAR", Chrom: "1", Start: 2001, End: 2100,
		Strand: cache.StrandForward,
		Exons:  []cache.Exon{{Rank: 1, Start: 2001, End: 2100}},
		Coding: &cache.CodingRange{Start: 2011, End: 2090},
	}
	v := variant("1", 500, "A", "G")

	cc, err := ClassifyCoding(tx, v, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, RegionUpstream, cc.RegionType)
	assert.Equal(t, CodingUnknown, cc.CodingType)
	assert.Equal(t, 0, cc.CodingBase)
	assert.Empty(t, FormatHgvsCoding(tx, v, cc, nil, DefaultOptions()))

	// Allowlisted, but past the promoter distance.
	opts := DefaultOptions()
	opts.PromoterGenes = NewPromoterSet("FAR")
	opts.MaxPromoterDistance = 1000
	cc, err = ClassifyCoding(tx, v, opts)
	require.NoError(t, err)
	assert.Equal(t, CodingUnknown, cc.CodingType)
	assert.Equal(t, 0, cc.CodingBase)
}

func TestClassifyCoding_NonCoding(t *testing.T) {
	tx := forwardTranscript()
	tx.Coding = nil
	v := variant("1", 82, "C", "A")

	cc, err := ClassifyCoding(tx, v, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, CodingNonCoding, cc.CodingType)
	assert.Equal(t, 32, cc.CodingBase)
	assert.Equal(t, "n.32C>A", FormatHgvsCoding(tx, v, cc, testGenome(), DefaultOptions()))
}

func TestClassifyCoding_InvalidTranscript(t *testing.T) {
	tx := forwardTranscript()
	tx.Exons = nil
	_, err := ClassifyCoding(tx, variant("1", 82, "C", "A"), DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, cache.ErrInvalidTranscript))
}

func TestClassifyCoding_UpstreamPhase(t *testing.T) {
	for pos, want := range map[int64]int{79: 1, 80: 2, 81: 0, 82: 1} {
		cc, err := ClassifyCoding(forwardTranscript(), variant("1", pos, "A", "C"), DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, want, cc.UpstreamPhase, "pos %d", pos)
	}
}

func TestPosition_String(t *testing.T) {
	tests := []struct {
		p    position
		want string
	}{
		{position{base: 23}, "23"},
		{position{base: -15}, "-15"},
		{position{base: 5, utr3: true}, "*5"},
		{position{base: 7, offset: -1}, "7-1"},
		{position{base: 88, offset: 2}, "88+2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.p.String())
	}
}
