// Package cache provides the gene model consumed by the impact classifier.
package cache

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTranscript is returned by Validate for transcripts that cannot be
// classified against.
var ErrInvalidTranscript = errors.New("invalid transcript")

// Strand is the transcription direction of a transcript.
type Strand int8

const (
	StrandUnknown Strand = 0
	StrandForward Strand = 1
	StrandReverse Strand = -1
)

// ParseStrand converts "+", "-", "1" or "-1" to a Strand.
// Anything else yields StrandUnknown.
func ParseStrand(s string) Strand {
	switch strings.TrimSpace(s) {
	case "+", "1", "+1":
		return StrandForward
	case "-", "-1":
		return StrandReverse
	default:
		return StrandUnknown
	}
}

func (s Strand) String() string {
	switch s {
	case StrandForward:
		return "+"
	case StrandReverse:
		return "-"
	default:
		return "."
	}
}

// CodingRange holds the genomic bounds of a transcript's coding sequence.
// Start is always the lower genomic coordinate, regardless of strand.
type CodingRange struct {
	Start int64 `json:"start"` // 1-based, inclusive
	End   int64 `json:"end"`   // 1-based, inclusive
}

// Transcript represents a specific gene isoform.
type Transcript struct {
	ID          string       `json:"id"`                // Transcript ID (e.g., ENST00000311936)
	GeneID      string       `json:"gene_id"`           // Parent gene ID
	GeneName    string       `json:"gene_name"`         // Parent gene symbol
	Chrom       string       `json:"chrom"`             // Chromosome
	Start       int64        `json:"start"`             // Transcript start (1-based)
	End         int64        `json:"end"`               // Transcript end (1-based, inclusive)
	Strand      Strand       `json:"strand"`            // +1 or -1
	Biotype     string       `json:"biotype,omitempty"` // Transcript biotype
	IsCanonical bool         `json:"is_canonical,omitempty"`
	Exons       []Exon       `json:"exons"`            // Exons in rank order
	Coding      *CodingRange `json:"coding,omitempty"` // nil for non-coding transcripts
}

// Exon represents a single exon within a transcript.
type Exon struct {
	Rank  int   `json:"rank"`  // 1-based, in transcription order
	Start int64 `json:"start"` // Genomic start (1-based)
	End   int64 `json:"end"`   // Genomic end (1-based, inclusive)
}

// Len returns the number of bases in the exon.
func (e Exon) Len() int64 {
	return e.End - e.Start + 1
}

// IsCoding returns true if the transcript has a coding sequence.
func (t *Transcript) IsCoding() bool {
	return t.Coding != nil
}

// IsForwardStrand returns true if the transcript is on the forward strand.
func (t *Transcript) IsForwardStrand() bool {
	return t.Strand == StrandForward
}

// IsReverseStrand returns true if the transcript is on the reverse strand.
func (t *Transcript) IsReverseStrand() bool {
	return t.Strand == StrandReverse
}

// Contains returns true if the given position is within the transcript boundaries.
func (t *Transcript) Contains(pos int64) bool {
	return pos >= t.Start && pos <= t.End
}

// FivePrimeEnd returns the genomic position where transcription starts.
func (t *Transcript) FivePrimeEnd() int64 {
	if t.IsReverseStrand() {
		return t.End
	}
	return t.Start
}

// CodingLength returns the number of exonic bases between the coding bounds,
// or 0 for non-coding transcripts.
func (t *Transcript) CodingLength() int64 {
	if t.Coding == nil {
		return 0
	}
	var n int64
	for _, e := range t.Exons {
		lo, hi := max(e.Start, t.Coding.Start), min(e.End, t.Coding.End)
		if hi >= lo {
			n += hi - lo + 1
		}
	}
	return n
}

// FindExon returns the exon containing the given genomic position, or nil if not in an exon.
func (t *Transcript) FindExon(pos int64) *Exon {
	for i := range t.Exons {
		if pos >= t.Exons[i].Start && pos <= t.Exons[i].End {
			return &t.Exons[i]
		}
	}
	return nil
}

// Validate checks that the transcript can be classified against. The returned
// error wraps ErrInvalidTranscript.
func (t *Transcript) Validate() error {
	if len(t.Exons) == 0 {
		return fmt.Errorf("%w: %s has no exons", ErrInvalidTranscript, t.ID)
	}
	if t.Strand != StrandForward && t.Strand != StrandReverse {
		return fmt.Errorf("%w: %s has unknown strand", ErrInvalidTranscript, t.ID)
	}
	for i, e := range t.Exons {
		if e.End < e.Start {
			return fmt.Errorf("%w: %s exon %d ends before it starts", ErrInvalidTranscript, t.ID, e.Rank)
		}
		if i == 0 {
			continue
		}
		prev := t.Exons[i-1]
		if (t.IsForwardStrand() && e.Start <= prev.End) || (t.IsReverseStrand() && e.End >= prev.Start) {
			return fmt.Errorf("%w: %s exons %d and %d are out of order or overlap",
				ErrInvalidTranscript, t.ID, prev.Rank, e.Rank)
		}
	}
	if t.Coding != nil {
		if t.Coding.End < t.Coding.Start {
			return fmt.Errorf("%w: %s coding end %d before coding start %d",
				ErrInvalidTranscript, t.ID, t.Coding.End, t.Coding.Start)
		}
		if t.FindExon(t.Coding.Start) == nil || t.FindExon(t.Coding.End) == nil {
			return fmt.Errorf("%w: %s coding bounds fall outside exons", ErrInvalidTranscript, t.ID)
		}
	}
	return nil
}
