package impact

import "github.com/inodb/vibe-pave/internal/vcf"

// GroupKey identifies the members of one local phase set on one transcript.
type GroupKey struct {
	PhaseSet     int
	TranscriptID string
}

// PhasedMember is one variant's impact inside a phasing group.
type PhasedMember struct {
	Index   int // position of the variant in the batch
	Variant *vcf.Variant
	Impact  *VariantTransImpact
}

// GroupPhased collects impacts of phased variants by phase set and
// transcript. Only groups with at least two members are returned.
func GroupPhased(results []*VariantImpacts) map[GroupKey][]PhasedMember {
	groups := make(map[GroupKey][]PhasedMember)
	for i, r := range results {
		if r == nil {
			continue
		}
		ps, ok := r.Variant.PhaseSet()
		if !ok {
			continue
		}
		for _, imp := range r.All() {
			k := GroupKey{PhaseSet: ps, TranscriptID: imp.TranscriptID}
			groups[k] = append(groups[k], PhasedMember{Index: i, Variant: r.Variant, Impact: imp})
		}
	}
	for k, m := range groups {
		if len(m) < 2 {
			delete(groups, k)
		}
	}
	return groups
}

// ProteinNotation renders the p. notation of variants applied together to
// one transcript under fx, or "" when it cannot.
type ProteinNotation func(transcriptID string, variants []*vcf.Variant, fx EffectSet) string

// MergePhased combines the members of one group. It returns replacement
// members carrying merged copies of their impacts; inputs are not modified.
//
// Frameshifts whose summed length change is a multiple of three become
// inframe, and SNVs sharing a codon are translated together. notate renders
// the combined protein change of merged frameshifts; nil leaves it blank.
func MergePhased(members []PhasedMember, notate ProteinNotation) []PhasedMember {
	var out []PhasedMember
	out = append(out, mergeFrameshifts(members, notate)...)
	out = append(out, mergeCodonSNVs(members)...)
	return out
}

func mergeFrameshifts(members []PhasedMember, notate ProteinNotation) []PhasedMember {
	var shifts []PhasedMember
	net := 0
	for _, m := range members {
		if m.Impact.Coding.IsFrameShift {
			shifts = append(shifts, m)
			net += m.Impact.Coding.InsertedCodingBases - m.Impact.Coding.DeletedCodingBases
		}
	}
	if len(shifts) < 2 || net%3 != 0 {
		return nil
	}
	replacement := EffectMissense
	switch {
	case net < 0:
		replacement = EffectInframeDeletion
	case net > 0:
		replacement = EffectInframeInsertion
	}
	var hgvs string
	if notate != nil {
		vs := make([]*vcf.Variant, len(shifts))
		for i, m := range shifts {
			vs[i] = m.Variant
		}
		hgvs = notate(shifts[0].Impact.TranscriptID, vs, NewEffectSet(replacement))
	}
	out := make([]PhasedMember, 0, len(shifts))
	for _, m := range shifts {
		imp := m.Impact.Clone()
		imp.Effects = imp.Effects.Remove(EffectFrameshift).Remove(EffectStopLost).Add(replacement)
		imp.Coding.IsFrameShift = false
		if imp.Protein != nil {
			imp.Protein.Hgvs = hgvs
		}
		imp.State = StateMerged
		out = append(out, PhasedMember{Index: m.Index, Variant: m.Variant, Impact: imp})
	}
	return out
}

var codonEffects = []Effect{EffectSynonymous, EffectMissense, EffectStopGained, EffectStopLost, EffectStopRetained, EffectStartLost}

func mergeCodonSNVs(members []PhasedMember) []PhasedMember {
	byCodon := make(map[int][]PhasedMember)
	var order []int
	for _, m := range members {
		pc := m.Impact.Protein
		if !m.Variant.IsSNV() || pc == nil || len(pc.RefCodonBases) != 3 || len(pc.AltCodonBases) != 3 {
			continue
		}
		if _, ok := byCodon[pc.CodonIndex]; !ok {
			order = append(order, pc.CodonIndex)
		}
		byCodon[pc.CodonIndex] = append(byCodon[pc.CodonIndex], m)
	}

	var out []PhasedMember
	for _, codon := range order {
		group := byCodon[codon]
		if len(group) < 2 {
			continue
		}
		ref := group[0].Impact.Protein.RefCodonBases
		alt := []byte(ref)
		for _, m := range group {
			j := (m.Impact.Coding.CodingBase - 1) % 3
			alt[j] = m.Impact.Protein.AltCodonBases[j]
		}
		refAA, altAA := TranslateCodon(ref), TranslateCodon(string(alt))

		effect := EffectMissense
		switch {
		case codon == 1 && refAA == 'M' && altAA != 'M':
			effect = EffectStartLost
		case refAA == altAA && refAA == '*':
			effect = EffectStopRetained
		case refAA == altAA:
			effect = EffectSynonymous
		case altAA == '*':
			effect = EffectStopGained
		case refAA == '*':
			effect = EffectStopLost
		}
		for _, m := range group {
			imp := m.Impact.Clone()
			for _, e := range codonEffects {
				imp.Effects = imp.Effects.Remove(e)
			}
			imp.Effects = imp.Effects.Add(effect)
			imp.Protein.AltCodonBases = string(alt)
			imp.Protein.AltAminoAcids = string(altAA)
			imp.Protein.Hgvs = formatHgvsProtein(imp.Protein, imp.Effects, nil)
			imp.State = StateMerged
			out = append(out, PhasedMember{Index: m.Index, Variant: m.Variant, Impact: imp})
		}
	}
	return out
}

// Reconcile returns a copy of results with merged impacts swapped in by
// batch index and transcript.
func Reconcile(results []*VariantImpacts, merged map[GroupKey][]PhasedMember) []*VariantImpacts {
	byIndex := make(map[int]map[string]*VariantTransImpact)
	for _, members := range merged {
		for _, m := range members {
			if byIndex[m.Index] == nil {
				byIndex[m.Index] = make(map[string]*VariantTransImpact)
			}
			byIndex[m.Index][m.Impact.TranscriptID] = m.Impact
		}
	}

	out := make([]*VariantImpacts, len(results))
	copy(out, results)
	for i, repl := range byIndex {
		src := results[i]
		r := &VariantImpacts{Variant: src.Variant, Genes: src.Genes, Impacts: make(map[string][]*VariantTransImpact, len(src.Impacts))}
		for gene, imps := range src.Impacts {
			list := make([]*VariantTransImpact, len(imps))
			for j, imp := range imps {
				if m, ok := repl[imp.TranscriptID]; ok {
					list[j] = m
				} else {
					list[j] = imp
				}
			}
			r.Impacts[gene] = list
		}
		out[i] = r
	}
	return out
}

// MergeBatch groups, merges and reconciles phased variants in one pass.
func MergeBatch(results []*VariantImpacts, notate ProteinNotation) []*VariantImpacts {
	groups := GroupPhased(results)
	if len(groups) == 0 {
		return results
	}
	merged := make(map[GroupKey][]PhasedMember, len(groups))
	for k, members := range groups {
		if m := MergePhased(members, notate); len(m) > 0 {
			merged[k] = m
		}
	}
	return Reconcile(results, merged)
}
