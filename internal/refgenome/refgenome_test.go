package refgenome

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemGenome_GetBases(t *testing.T) {
	g := NewMemGenome(map[string]string{"1": "acgtACGTNN"})

	tests := []struct {
		name       string
		chrom      string
		start, end int64
		want       string
		err        error
	}{
		{"first base", "1", 1, 1, "A", nil},
		{"span upper-cased", "1", 1, 8, "ACGTACGT", nil},
		{"chr alias", "chr1", 9, 10, "NN", nil},
		{"empty interval", "1", 5, 4, "", nil},
		{"past end", "1", 8, 11, "", ErrOutOfRange},
		{"before start", "1", 0, 2, "", ErrOutOfRange},
		{"unknown chromosome", "2", 1, 1, "", ErrUnknownChromosome},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.GetBases(tt.chrom, tt.start, tt.end)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writeFasta(t *testing.T, withIndex bool) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ref.fa")
	// Two sequences wrapped at 8 bases per line.
	fasta := ">chr1 test\nACGTACGT\nTTGGCCAA\nGG\n>chr2\nNNNNAAAA\n"
	require.NoError(t, os.WriteFile(path, []byte(fasta), 0o644))
	if withIndex {
		index := "chr1\t18\t11\t8\t9\nchr2\t8\t38\t8\t9\n"
		require.NoError(t, os.WriteFile(path+".fai", []byte(index), 0o644))
	}
	return path
}

func TestFastaGenome(t *testing.T) {
	for _, withIndex := range []bool{true, false} {
		name := "built index"
		if withIndex {
			name = "fai file"
		}
		t.Run(name, func(t *testing.T) {
			g, err := OpenFasta(writeFasta(t, withIndex))
			require.NoError(t, err)
			defer g.Close()

			got, err := g.GetBases("chr1", 7, 10)
			require.NoError(t, err)
			assert.Equal(t, "GTTT", got, "read spans a line break")

			got, err = g.GetBases("1", 17, 18)
			require.NoError(t, err)
			assert.Equal(t, "GG", got)

			got, err = g.GetBases("chr2", 5, 8)
			require.NoError(t, err)
			assert.Equal(t, "AAAA", got)

			_, err = g.GetBases("chr1", 18, 19)
			assert.ErrorIs(t, err, ErrOutOfRange)

			_, err = g.GetBases("chr3", 1, 1)
			assert.ErrorIs(t, err, ErrUnknownChromosome)

			assert.ElementsMatch(t, []string{"chr1", "chr2"}, g.Chromosomes())
		})
	}
}

func TestOpenFasta_Missing(t *testing.T) {
	_, err := OpenFasta(filepath.Join(t.TempDir(), "missing.fa"))
	assert.Error(t, err)
}
