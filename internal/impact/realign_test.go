package impact

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealignRight(t *testing.T) {
	tests := []struct {
		name     string
		pos      int64
		ref, alt string
		maxShift int
		wantPos  int64
		wantRef  string
		wantAlt  string
		moved    bool
	}{
		{"deletion into exon", 299, "AG", "A", 500, 300, "GG", "G", true},
		{"deletion along run", 160, "GA", "G", 500, 162, "AA", "A", true},
		{"insertion along run", 160, "G", "GA", 500, 163, "A", "AA", true},
		{"shift capped", 160, "GA", "G", 1, 161, "AA", "A", true},
		{"deletion past repeat", 120, "ATCG", "A", 500, 121, "TCGT", "T", true},
		{"nowhere to go", 297, "ATAG", "A", 500, 297, "ATAG", "A", false},
		{"snv", 82, "C", "A", 500, 82, "C", "A", false},
		{"disabled", 160, "GA", "G", 0, 160, "GA", "G", false},
	}
	g := testGenome()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := variant("1", tt.pos, tt.ref, tt.alt)
			before := *v
			got, moved, err := RealignRight(v, g, tt.maxShift)
			require.NoError(t, err)
			assert.Equal(t, tt.moved, moved)
			assert.Equal(t, tt.wantPos, got.Pos)
			assert.Equal(t, tt.wantRef, got.Ref)
			assert.Equal(t, tt.wantAlt, got.Alt)
			if diff := cmp.Diff(before, *v); diff != "" {
				t.Errorf("input modified (-before +after):\n%s", diff)
			}
		})
	}
}
