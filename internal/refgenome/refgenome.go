// Package refgenome provides reference base lookup for the classifier.
package refgenome

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownChromosome is returned for chromosomes absent from the reference.
	ErrUnknownChromosome = errors.New("unknown chromosome")
	// ErrOutOfRange is returned when an interval extends past a chromosome's bounds.
	ErrOutOfRange = errors.New("interval out of range")
)

// SequenceAccessor returns forward-strand reference bases for the 1-based,
// inclusive interval [start, end]. An interval with end < start is a valid
// empty request and yields "". Implementations must be safe for concurrent use.
type SequenceAccessor interface {
	GetBases(chrom string, start, end int64) (string, error)
}

// checkRange validates an interval against a chromosome length.
func checkRange(chrom string, length, start, end int64) error {
	if start < 1 || end > length {
		return fmt.Errorf("%w: %s:%d-%d (length %d)", ErrOutOfRange, chrom, start, end, length)
	}
	return nil
}

// MemGenome is an in-memory reference keyed by chromosome name.
type MemGenome struct {
	seqs map[string]string
}

// NewMemGenome creates a MemGenome. Sequences are upper-cased.
func NewMemGenome(seqs map[string]string) *MemGenome {
	g := &MemGenome{seqs: make(map[string]string, len(seqs))}
	for chrom, s := range seqs {
		g.seqs[chrom] = strings.ToUpper(s)
	}
	return g
}

// GetBases implements SequenceAccessor.
func (g *MemGenome) GetBases(chrom string, start, end int64) (string, error) {
	seq, ok := g.seqs[chrom]
	if !ok {
		seq, ok = g.seqs[alternateName(chrom)]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownChromosome, chrom)
		}
	}
	if end < start {
		return "", nil
	}
	if err := checkRange(chrom, int64(len(seq)), start, end); err != nil {
		return "", err
	}
	return seq[start-1 : end], nil
}

// alternateName toggles a "chr" prefix.
func alternateName(chrom string) string {
	if s, ok := strings.CutPrefix(chrom, "chr"); ok {
		return s
	}
	return "chr" + chrom
}
