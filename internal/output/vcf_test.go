package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-pave/internal/impact"
	"github.com/inodb/vibe-pave/internal/vcf"
)

var testHeader = []string{
	"##fileformat=VCFv4.2",
	"##INFO=<ID=IMPACT,Number=.,Type=String,Description=\"stale\">",
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1",
}

func TestVCFWriter_WriteHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewVCFWriter(&buf, testHeader)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "##fileformat=VCFv4.2", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "##INFO=<ID=IMPACT,"))
	assert.Contains(t, lines[1], "Allele|Gene|Feature")
	assert.True(t, strings.HasPrefix(lines[2], "##INFO=<ID=IMPACT_WORST,"))
	assert.True(t, strings.HasPrefix(lines[3], "#CHROM"))
	assert.NotContains(t, buf.String(), "stale")
}

func TestVCFWriter_WriteHeader_NoChromLine(t *testing.T) {
	w := NewVCFWriter(&bytes.Buffer{}, []string{"##fileformat=VCFv4.2"})
	assert.Error(t, w.WriteHeader())
}

func TestVCFWriter_Write(t *testing.T) {
	r := krasImpacts()
	r.Variant.RawInfo = "DP=50;IMPACT=old|entry"
	r.Variant.SampleColumns = "GT\t0/1"

	var buf bytes.Buffer
	w := NewVCFWriter(&buf, testHeader)
	require.NoError(t, w.Write(r))
	require.NoError(t, w.Flush())

	fields := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\t")
	require.Len(t, fields, 10)
	assert.Equal(t, []string{"12", "25245351", ".", "C", "A", ".", "PASS"}, fields[:7])
	assert.Equal(t, "GT", fields[8])

	info := fields[7]
	assert.True(t, strings.HasPrefix(info, "DP=50;IMPACT="))
	assert.NotContains(t, info, "old")
	assert.Contains(t, info, "A|KRAS|ENST00000311936|YES|missense_variant|CODING|2|c.34G>T|p.Gly12Cys|||CLASSIFIED")
	assert.Contains(t, info, ",A|KRAS|ENST00000556131||intron_variant|CODING||||||CLASSIFIED")
	assert.Contains(t, info, ";IMPACT_WORST=A|KRAS|ENST00000311936|")
}

func TestVCFWriter_MergesSplitAlleles(t *testing.T) {
	a := krasImpacts()
	b := krasImpacts()
	b.Variant.Alt = "T"

	var buf bytes.Buffer
	w := NewVCFWriter(&buf, testHeader)
	require.NoError(t, w.Write(a))
	require.NoError(t, w.Write(b))
	require.NoError(t, w.Write(&impact.VariantImpacts{Variant: &vcf.Variant{Chrom: "12", Pos: 25245400, Ref: "G", Alt: "A"}}))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "A,T", strings.Split(lines[0], "\t")[4])
	assert.Equal(t, 5, strings.Count(strings.Split(lines[0], "\t")[7], "KRAS|"), "four entries plus the worst")
	assert.Equal(t, ".", strings.Split(lines[1], "\t")[7])
}

func TestVCFWriter_MinEffect(t *testing.T) {
	var buf bytes.Buffer
	w := NewVCFWriter(&buf, testHeader)
	w.SetMinEffect(impact.EffectMissense)
	require.NoError(t, w.Write(krasImpacts()))
	require.NoError(t, w.Flush())
	assert.NotContains(t, buf.String(), "intron_variant")
	assert.Contains(t, buf.String(), "missense_variant")
}

func TestStripImpactInfo(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", "."},
		{".", "."},
		{"DP=3", "DP=3"},
		{"IMPACT=x", "."},
		{"DP=3;IMPACT=x;IMPACT_WORST=y;SOMATIC", "DP=3;SOMATIC"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripImpactInfo(tt.raw), tt.raw)
	}
}
