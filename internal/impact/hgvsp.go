package impact

import (
	"fmt"
	"strings"
)

// FormatHgvsProtein renders the p. notation for a protein context and its
// effects. flank supplies reference amino acids outside the window; it may
// be nil.
func FormatHgvsProtein(pc *ProteinContext, fx EffectSet, flank func(codon int) (byte, bool)) string {
	return formatHgvsProtein(pc, fx, flank)
}

func formatHgvsProtein(pc *ProteinContext, fx EffectSet, flank func(codon int) (byte, bool)) string {
	if pc == nil || pc.RefAminoAcids == "" {
		return ""
	}
	ref, alt, idx := pc.RefAminoAcids, pc.AltAminoAcids, pc.CodonIndex

	switch {
	case fx.Has(EffectStartLost):
		return "p.Met1?"
	case fx.Has(EffectFrameshift):
		return frameshiftNotation(ref, alt, idx)
	case fx.Has(EffectStopLost):
		k := strings.IndexByte(ref, '*')
		if k >= 0 && k < len(alt) {
			return fmt.Sprintf("p.Ter%d%sext*?", idx+k, aaThree(alt[k]))
		}
		return fmt.Sprintf("p.Ter%dext*?", idx+max(k, 0))
	}

	pre, suf := commonAffixes(ref, alt)
	r, a := ref[pre:len(ref)-suf], alt[pre:len(alt)-suf]
	pos := idx + pre

	switch {
	case r == "" && a == "":
		if k := strings.IndexByte(ref, '*'); k >= 0 && fx.Has(EffectStopRetained) {
			return fmt.Sprintf("p.Ter%d=", idx+k)
		}
		return fmt.Sprintf("p.%s%d=", aaThree(ref[0]), idx)
	case len(r) == 1 && len(a) == 1:
		return fmt.Sprintf("p.%s%d%s", aaThree(r[0]), pos, aaThree(a[0]))
	case a == "":
		return aaRange(r, pos) + "del"
	case r == "":
		return insertionNotation(ref, a, pre, idx, flank)
	default:
		return aaRange(r, pos) + "delins" + aaThreeSeq(a)
	}
}

// commonAffixes returns the shared prefix length and then the shared suffix
// length of what remains.
func commonAffixes(ref, alt string) (int, int) {
	pre := 0
	for pre < len(ref) && pre < len(alt) && ref[pre] == alt[pre] {
		pre++
	}
	suf := 0
	for suf < len(ref)-pre && suf < len(alt)-pre && ref[len(ref)-1-suf] == alt[len(alt)-1-suf] {
		suf++
	}
	return pre, suf
}

// aaRange renders "p.Gly12" or "p.Gly12_Val14" for the amino acids aas
// starting at pos.
func aaRange(aas string, pos int) string {
	if len(aas) == 1 {
		return fmt.Sprintf("p.%s%d", aaThree(aas[0]), pos)
	}
	return fmt.Sprintf("p.%s%d_%s%d", aaThree(aas[0]), pos, aaThree(aas[len(aas)-1]), pos+len(aas)-1)
}

func insertionNotation(ref, ins string, at, idx int, flank func(int) (byte, bool)) string {
	n := len(ins)
	if at >= n && ref[at-n:at] == ins {
		return aaRange(ins, idx+at-n) + "dup"
	}
	left, right := idx+at-1, idx+at
	var la, ra byte
	var ok bool
	if at > 0 {
		la, ok = ref[at-1], true
	} else if flank != nil {
		la, ok = flank(left)
	}
	if !ok {
		return ""
	}
	ok = false
	if at < len(ref) {
		ra, ok = ref[at], true
	} else if flank != nil {
		ra, ok = flank(right)
	}
	if !ok {
		return ""
	}
	return fmt.Sprintf("p.%s%d_%s%dins%s", aaThree(la), left, aaThree(ra), right, aaThreeSeq(ins))
}

func frameshiftNotation(ref, alt string, idx int) string {
	i := 0
	for i < len(ref) && i < len(alt) && ref[i] == alt[i] {
		i++
	}
	if i >= len(ref) {
		i = len(ref) - 1
	}
	if i < len(alt) && alt[i] != ref[i] {
		if alt[i] == '*' {
			return fmt.Sprintf("p.%s%dTer", aaThree(ref[i]), idx+i)
		}
		return fmt.Sprintf("p.%s%d%sfs", aaThree(ref[i]), idx+i, aaThree(alt[i]))
	}
	return fmt.Sprintf("p.%s%dfs", aaThree(ref[i]), idx+i)
}

// shiftedResidueNotation renders a frameshift from its first changed residue.
func shiftedResidueNotation(at int, ref, alt byte) string {
	if alt == '*' {
		return fmt.Sprintf("p.%s%dTer", aaThree(ref), at)
	}
	return fmt.Sprintf("p.%s%d%sfs", aaThree(ref), at, aaThree(alt))
}
