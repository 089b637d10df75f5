package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createForwardTranscript() *Transcript {
	return &Transcript{
		ID: "TX_FWD", GeneName: "FWD", Chrom: "1",
		Start: 100, End: 400, Strand: StrandForward,
		Exons: []Exon{
			{Rank: 1, Start: 100, End: 150},
			{Rank: 2, Start: 201, End: 250},
			{Rank: 3, Start: 301, End: 400},
		},
		Coding: &CodingRange{Start: 121, End: 330},
	}
}

func TestParseStrand(t *testing.T) {
	tests := []struct {
		in   string
		want Strand
	}{
		{"+", StrandForward},
		{"1", StrandForward},
		{"-", StrandReverse},
		{"-1", StrandReverse},
		{".", StrandUnknown},
		{"reverse", StrandUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseStrand(tt.in), tt.in)
	}
}

func TestTranscript_CodingLength(t *testing.T) {
	tx := createForwardTranscript()
	// 121-150 (30) + 201-250 (50) + 301-330 (30)
	assert.Equal(t, int64(110), tx.CodingLength())

	tx.Coding = nil
	assert.Zero(t, tx.CodingLength())
}

func TestTranscript_FindExon(t *testing.T) {
	tx := createForwardTranscript()
	require.NotNil(t, tx.FindExon(150))
	assert.Equal(t, 1, tx.FindExon(150).Rank)
	assert.Equal(t, 2, tx.FindExon(201).Rank)
	assert.Nil(t, tx.FindExon(175))
}

func TestTranscript_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Transcript)
		ok     bool
	}{
		{"valid", func(*Transcript) {}, true},
		{"non-coding", func(tx *Transcript) { tx.Coding = nil }, true},
		{"no exons", func(tx *Transcript) { tx.Exons = nil }, false},
		{"unknown strand", func(tx *Transcript) { tx.Strand = StrandUnknown }, false},
		{"coding end before start", func(tx *Transcript) { tx.Coding = &CodingRange{Start: 300, End: 130} }, false},
		{"coding start intronic", func(tx *Transcript) { tx.Coding.Start = 175 }, false},
		{"exons out of order", func(tx *Transcript) { tx.Exons[0], tx.Exons[1] = tx.Exons[1], tx.Exons[0] }, false},
		{"inverted exon", func(tx *Transcript) { tx.Exons[2].End = 299 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := createForwardTranscript()
			tt.mutate(tx)
			err := tx.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidTranscript)
		})
	}
}

func TestTranscript_ValidateReverse(t *testing.T) {
	tx := &Transcript{
		ID: "TX_REV", Chrom: "1", Start: 100, End: 400, Strand: StrandReverse,
		Exons: []Exon{
			{Rank: 1, Start: 301, End: 400},
			{Rank: 2, Start: 100, End: 250},
		},
	}
	assert.NoError(t, tx.Validate())
	assert.Equal(t, int64(400), tx.FivePrimeEnd())
}
