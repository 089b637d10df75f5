package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *DuckDBStore {
	t.Helper()
	store, err := NewDuckDBStore(filepath.Join(t.TempDir(), "genes.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.CreateSchema())
	return store
}

func createKRASTranscript() *Transcript {
	return &Transcript{
		ID:          "ENST00000311936",
		GeneID:      "ENSG00000133703",
		GeneName:    "KRAS",
		Chrom:       "12",
		Start:       25205246,
		End:         25250929,
		Strand:      StrandReverse,
		Biotype:     "protein_coding",
		IsCanonical: true,
		Coding:      &CodingRange{Start: 25209798, End: 25245384},
		Exons: []Exon{
			{Rank: 1, Start: 25250751, End: 25250929},
			{Rank: 2, Start: 25245274, End: 25245395},
			{Rank: 3, Start: 25227234, End: 25227412},
			{Rank: 4, Start: 25225614, End: 25225773},
			{Rank: 5, Start: 25205246, End: 25209911},
		},
	}
}

func TestDuckDBStore_RoundTrip(t *testing.T) {
	store := openStore(t)
	kras := createKRASTranscript()
	require.NoError(t, store.InsertTranscript(kras))
	require.NoError(t, store.InsertTranscript(&Transcript{
		ID: "NC1", GeneName: "LNC", Chrom: "1", Start: 10, End: 20, Strand: StrandForward,
		Exons: []Exon{{Rank: 1, Start: 10, End: 20}},
	}))

	count, err := store.TranscriptCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := store.GetTranscript(kras.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, kras, got)

	nc, err := store.GetTranscript("NC1")
	require.NoError(t, err)
	assert.Nil(t, nc.Coding, "NULL coding bounds load as non-coding")
	assert.Empty(t, nc.Biotype)

	missing, err := store.GetTranscript("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	chroms, err := store.Chromosomes()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "12"}, chroms)
}

func TestDuckDBStore_FindAndLoad(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.InsertTranscript(createKRASTranscript()))

	found, err := store.FindTranscripts("12", 25245351)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Len(t, found[0].Exons, 5)

	none, err := store.FindTranscripts("12", 1)
	require.NoError(t, err)
	assert.Empty(t, none)

	c := New()
	require.NoError(t, store.LoadAll(c))
	require.Equal(t, 1, c.TranscriptCount())
	tx := c.GetTranscript("ENST00000311936")
	require.NotNil(t, tx)
	assert.Equal(t, 1, tx.Exons[0].Rank)
	assert.NoError(t, tx.Validate())

	byChrom := New()
	require.NoError(t, store.Load(byChrom, "12"))
	assert.Len(t, byChrom.TranscriptsOverlapping("12", 25245351), 1)
}

func TestDuckDBStore_DuplicateInsertFails(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.InsertTranscript(createKRASTranscript()))
	assert.Error(t, store.InsertTranscript(createKRASTranscript()))

	count, err := store.TranscriptCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count, "failed insert rolls back")
}

func TestIsDuckDB(t *testing.T) {
	assert.True(t, IsDuckDB("genes.duckdb"))
	assert.True(t, IsDuckDB("genes.db"))
	assert.False(t, IsDuckDB("genes.json"))
}
