package vcf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariant_Type(t *testing.T) {
	tests := []struct {
		name     string
		ref, alt string
		want     Type
		indel    int
	}{
		{"SNV", "A", "G", TypeSNV, 0},
		{"MNV", "AT", "GC", TypeMNV, 0},
		{"deletion", "ATCG", "A", TypeDeletion, -3},
		{"insertion", "A", "ACT", TypeInsertion, 2},
		{"complex shrink", "ATG", "C", TypeComplex, -2},
		{"complex grow", "A", "TTT", TypeComplex, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Variant{Ref: tt.ref, Alt: tt.alt}
			assert.Equal(t, tt.want, v.Type())
			assert.Equal(t, tt.indel, v.IndelLength())
			assert.Equal(t, tt.indel != 0, v.IsIndel())
		})
	}
}

func TestVariant_Predicates(t *testing.T) {
	del := &Variant{Pos: 100, Ref: "ATCG", Alt: "A"}
	assert.True(t, del.IsDeletion())
	assert.False(t, del.IsInsertion())
	assert.False(t, del.IsSNV())
	assert.Equal(t, int64(103), del.End())

	ins := &Variant{Pos: 100, Ref: "A", Alt: "AT"}
	assert.True(t, ins.IsInsertion())
	assert.Equal(t, int64(100), ins.End())
}

func TestVariant_PhaseSet(t *testing.T) {
	v := &Variant{Chrom: "chr1", Pos: 1, Ref: "A", Alt: "T"}
	_, ok := v.PhaseSet()
	assert.False(t, ok)

	phased := v.WithPhaseSet(7)
	id, ok := phased.PhaseSet()
	assert.True(t, ok)
	assert.Equal(t, 7, id)
	assert.Nil(t, v.LocalPhaseSet, "original untouched")

	assert.Equal(t, "1", v.NormalizeChrom())
}
