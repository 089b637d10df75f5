package impact

import "strings"

// RegionType locates a variant relative to a transcript's exons.
type RegionType int

const (
	RegionUnknown RegionType = iota
	RegionUpstream
	RegionExonic
	RegionIntronic
)

var regionNames = []string{"UNKNOWN", "UPSTREAM", "EXONIC", "INTRONIC"}

func (r RegionType) String() string {
	if r < 0 || int(r) >= len(regionNames) {
		return regionNames[RegionUnknown]
	}
	return regionNames[r]
}

// ParseRegionType maps a name to a RegionType; unknown names map to RegionUnknown.
func ParseRegionType(s string) RegionType {
	return RegionType(lookupName(regionNames, s))
}

func (r RegionType) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *RegionType) UnmarshalText(b []byte) error {
	*r = ParseRegionType(string(b))
	return nil
}

// CodingType locates a variant relative to a transcript's coding sequence.
type CodingType int

const (
	CodingUnknown CodingType = iota
	CodingUTR5P
	CodingCoding
	CodingUTR3P
	CodingNonCoding
	CodingEnhancer // upstream promoter of an allowlisted gene
)

var codingNames = []string{"UNKNOWN", "UTR_5P", "CODING", "UTR_3P", "NON_CODING", "ENHANCER"}

func (c CodingType) String() string {
	if c < 0 || int(c) >= len(codingNames) {
		return codingNames[CodingUnknown]
	}
	return codingNames[c]
}

// ParseCodingType maps a name to a CodingType; unknown names map to CodingUnknown.
func ParseCodingType(s string) CodingType {
	return CodingType(lookupName(codingNames, s))
}

func (c CodingType) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *CodingType) UnmarshalText(b []byte) error {
	*c = ParseCodingType(string(b))
	return nil
}

func lookupName(names []string, s string) int {
	s = strings.TrimSpace(s)
	for i, n := range names {
		if strings.EqualFold(n, s) {
			return i
		}
	}
	return 0
}

// CodingContext is the structural classification of a variant against one
// transcript.
type CodingContext struct {
	RegionType RegionType
	CodingType CodingType

	// CodingBase is the HGVS base of the first affected position: 1-based in
	// the CDS, negative in the 5' UTR, and the distance past the stop codon in
	// the 3' UTR (rendered *N). Non-coding transcripts use transcript
	// positions. Intronic variants report the nearer exon boundary base.
	CodingBase int

	// CodingPositionRange holds the first and last affected genomic
	// positions, lowest first.
	CodingPositionRange [2]int64

	UpstreamPhase       int // CodingBase mod 3 inside the CDS, otherwise 0
	ExonRank            int // rank of the containing or nearest exon; 0 upstream
	NearestExonDistance int // +N after a donor, -N before an acceptor, 0 exonic

	IsFrameShift        bool
	SpansSpliceJunction bool
	SpansCodingStart    bool
	SpansCodingEnd      bool
	DeletedCodingBases  int
	InsertedCodingBases int

	Hgvs string
}

// InframeKind distinguishes inframe indels by codon alignment.
type InframeKind int

const (
	InframeNone InframeKind = iota
	InframeConservative
	InframeDisruptive
)

func (k InframeKind) String() string {
	switch k {
	case InframeConservative:
		return "CONSERVATIVE"
	case InframeDisruptive:
		return "DISRUPTIVE"
	default:
		return "NONE"
	}
}

// ProteinContext describes the codons touched by a coding variant.
type ProteinContext struct {
	CodonIndex    int // first affected codon, 1-based
	CodonIndexEnd int // last affected codon
	RefCodonBases string
	AltCodonBases string
	RefAminoAcids string
	AltAminoAcids string
	Inframe       InframeKind
	Hgvs          string
}

// ImpactState tracks an impact through classification and merging.
type ImpactState int

const (
	StateUnclassified ImpactState = iota
	StateClassified
	StateMerged
)

func (s ImpactState) String() string {
	switch s {
	case StateClassified:
		return "CLASSIFIED"
	case StateMerged:
		return "MERGED"
	default:
		return "UNCLASSIFIED"
	}
}

// VariantTransImpact is the classification of one variant against one transcript.
type VariantTransImpact struct {
	TranscriptID string
	GeneName     string
	Canonical    bool

	Coding  CodingContext
	Protein *ProteinContext // nil unless coding bases are affected
	Splice  SpliceImpact
	Effects EffectSet

	Realigned   bool // classified from the right-shifted representation
	State       ImpactState
	Diagnostics []string // soft warnings, e.g. reference reads out of bounds
}

// TopEffect returns the most severe effect.
func (i *VariantTransImpact) TopEffect() Effect {
	return i.Effects.Top()
}

// Clone returns a deep copy.
func (i *VariantTransImpact) Clone() *VariantTransImpact {
	c := *i
	if i.Protein != nil {
		p := *i.Protein
		c.Protein = &p
	}
	c.Diagnostics = append([]string(nil), i.Diagnostics...)
	return &c
}
