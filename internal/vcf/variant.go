// Package vcf provides the variant data model and a VCF reader.
package vcf

import "strings"

// Type is the structural class of a variant.
type Type int

const (
	TypeSNV Type = iota
	TypeMNV
	TypeInsertion
	TypeDeletion
	TypeComplex // length-changing edit with no shared anchor
)

func (t Type) String() string {
	switch t {
	case TypeSNV:
		return "SNV"
	case TypeMNV:
		return "MNV"
	case TypeInsertion:
		return "INS"
	case TypeDeletion:
		return "DEL"
	default:
		return "COMPLEX"
	}
}

// Variant represents a single genomic variant. Variants are not modified
// after construction; classification results are returned separately.
type Variant struct {
	Chrom         string         // Chromosome name (e.g., "12", "chr12")
	Pos           int64          // 1-based genomic position
	ID            string         // Variant identifier (e.g., rs ID)
	Ref           string         // Reference allele
	Alt           string         // Alternate allele (single allele after splitting)
	Qual          float64        // Quality score
	Filter        string         // Filter status (PASS or filter name)
	Info          map[string]any // INFO field key-value pairs
	RawInfo       string         // INFO column as read, for pass-through output
	SampleColumns string         // FORMAT and sample columns, tab-joined
	LocalPhaseSet *int           // Local phasing group, nil when unphased
	Realigned     *Variant       // Right-shifted equivalent, when known
}

// Type derives the structural class from ref and alt.
func (v *Variant) Type() Type {
	switch {
	case len(v.Ref) == len(v.Alt) && len(v.Ref) == 1:
		return TypeSNV
	case len(v.Ref) == len(v.Alt):
		return TypeMNV
	case len(v.Alt) > len(v.Ref) && len(v.Ref) > 0 && v.Ref[0] == v.Alt[0]:
		return TypeInsertion
	case len(v.Ref) > len(v.Alt) && len(v.Alt) > 0 && v.Ref[0] == v.Alt[0]:
		return TypeDeletion
	default:
		return TypeComplex
	}
}

// IndelLength returns len(Alt) - len(Ref); negative for deletions.
func (v *Variant) IndelLength() int {
	return len(v.Alt) - len(v.Ref)
}

// IsSNV returns true if the variant is a single nucleotide variant.
func (v *Variant) IsSNV() bool {
	return len(v.Ref) == 1 && len(v.Alt) == 1
}

// IsIndel returns true if the variant changes length.
func (v *Variant) IsIndel() bool {
	return len(v.Ref) != len(v.Alt)
}

// IsInsertion returns true if the variant is an insertion.
func (v *Variant) IsInsertion() bool {
	return len(v.Alt) > len(v.Ref)
}

// IsDeletion returns true if the variant is a deletion.
func (v *Variant) IsDeletion() bool {
	return len(v.Ref) > len(v.Alt)
}

// End returns the last reference position covered by the variant.
func (v *Variant) End() int64 {
	return v.Pos + int64(max(len(v.Ref), 1)) - 1
}

// PhaseSet returns the local phasing group and whether one is set.
func (v *Variant) PhaseSet() (int, bool) {
	if v.LocalPhaseSet == nil {
		return 0, false
	}
	return *v.LocalPhaseSet, true
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (v *Variant) NormalizeChrom() string {
	return strings.TrimPrefix(v.Chrom, "chr")
}

// WithPhaseSet returns a copy of v carrying the given phasing group.
func (v *Variant) WithPhaseSet(id int) *Variant {
	c := *v
	c.LocalPhaseSet = &id
	return &c
}
