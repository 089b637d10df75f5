package refgenome

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/fai"
)

// FastaGenome serves bases from an indexed FASTA file. The samtools .fai
// index is read from <path>.fai when present and built by scanning otherwise.
// Reads go through ReadAt, so a FastaGenome is safe for concurrent use.
type FastaGenome struct {
	file  *os.File
	idx   fai.Index
	fasta *fai.File
}

// OpenFasta opens an indexed FASTA reference.
func OpenFasta(path string) (*FastaGenome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fasta: %w", err)
	}

	idx, err := readIndex(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FastaGenome{file: f, idx: idx, fasta: fai.NewFile(f, idx)}, nil
}

func readIndex(path string, f *os.File) (fai.Index, error) {
	idxFile, err := os.Open(path + ".fai")
	if err == nil {
		defer idxFile.Close()
		idx, err := fai.ReadFrom(idxFile)
		if err != nil {
			return nil, fmt.Errorf("read fasta index: %w", err)
		}
		return idx, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("open fasta index: %w", err)
	}

	idx, err := fai.NewIndex(f)
	if err != nil {
		return nil, fmt.Errorf("index fasta: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind fasta: %w", err)
	}
	return idx, nil
}

// Chromosomes returns the sequence names in the index.
func (g *FastaGenome) Chromosomes() []string {
	names := make([]string, 0, len(g.idx))
	for name := range g.idx {
		names = append(names, name)
	}
	return names
}

// GetBases implements SequenceAccessor.
func (g *FastaGenome) GetBases(chrom string, start, end int64) (string, error) {
	rec, ok := g.idx[chrom]
	if !ok {
		rec, ok = g.idx[alternateName(chrom)]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownChromosome, chrom)
		}
	}
	if end < start {
		return "", nil
	}
	if err := checkRange(chrom, int64(rec.Length), start, end); err != nil {
		return "", err
	}

	r, err := g.fasta.SeqRange(rec.Name, int(start-1), int(end))
	if err != nil {
		return "", fmt.Errorf("read %s:%d-%d: %w", chrom, start, end, err)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s:%d-%d: %w", chrom, start, end, err)
	}
	return strings.ToUpper(string(b)), nil
}

// Close closes the underlying file.
func (g *FastaGenome) Close() error {
	return g.file.Close()
}
