package impact

import (
	"sort"
	"strings"
)

// Effect is a consequence term. The zero value is EffectNone.
type Effect int

// Effects in ascending severity; Severity and Top rely on this ordering.
const (
	EffectNone Effect = iota
	EffectNonCodingTranscript
	EffectUpstreamGene
	EffectIntron
	EffectThreePrimeUTR
	EffectFivePrimeUTR
	EffectSynonymous
	EffectStopRetained
	EffectSpliceRegion
	EffectMissense
	EffectInframeDeletion
	EffectInframeInsertion
	EffectSpliceDonor
	EffectSpliceAcceptor
	EffectFrameshift
	EffectStartLost
	EffectStopLost
	EffectStopGained
	numEffects
)

var effectNames = [numEffects]string{
	EffectNone:                "none",
	EffectNonCodingTranscript: "non_coding_transcript_variant",
	EffectUpstreamGene:        "upstream_gene_variant",
	EffectIntron:              "intron_variant",
	EffectThreePrimeUTR:       "3_prime_UTR_variant",
	EffectFivePrimeUTR:        "5_prime_UTR_variant",
	EffectSynonymous:          "synonymous_variant",
	EffectStopRetained:        "stop_retained_variant",
	EffectSpliceRegion:        "splice_region_variant",
	EffectMissense:            "missense_variant",
	EffectInframeDeletion:     "inframe_deletion",
	EffectInframeInsertion:    "inframe_insertion",
	EffectSpliceDonor:         "splice_donor_variant",
	EffectSpliceAcceptor:      "splice_acceptor_variant",
	EffectFrameshift:          "frameshift_variant",
	EffectStartLost:           "start_lost",
	EffectStopLost:            "stop_lost",
	EffectStopGained:          "stop_gained",
}

// String returns the Sequence Ontology term.
func (e Effect) String() string {
	if e < 0 || e >= numEffects {
		return effectNames[EffectNone]
	}
	return effectNames[e]
}

// Severity ranks effects; higher is worse.
func (e Effect) Severity() int {
	return int(e)
}

// ParseEffect maps a term to an Effect. Unknown terms map to EffectNone.
func ParseEffect(s string) Effect {
	s = strings.TrimSpace(s)
	for e, name := range effectNames {
		if strings.EqualFold(name, s) {
			return Effect(e)
		}
	}
	switch strings.ToLower(s) {
	case "nonsense", "stop_gain":
		return EffectStopGained
	case "splice_acceptor", "splice_acceptor_disruption":
		return EffectSpliceAcceptor
	case "splice_donor", "splice_donor_disruption":
		return EffectSpliceDonor
	}
	return EffectNone
}

// MarshalText implements encoding.TextMarshaler.
func (e Effect) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler; unknown values decode to
// EffectNone rather than failing.
func (e *Effect) UnmarshalText(b []byte) error {
	*e = ParseEffect(string(b))
	return nil
}

// EffectSet is a set of effects.
type EffectSet uint32

// NewEffectSet builds a set from the given effects.
func NewEffectSet(effects ...Effect) EffectSet {
	var s EffectSet
	for _, e := range effects {
		s = s.Add(e)
	}
	return s
}

// Add returns s with e included. EffectNone is never stored.
func (s EffectSet) Add(e Effect) EffectSet {
	if e <= EffectNone || e >= numEffects {
		return s
	}
	return s | 1<<uint(e)
}

// Remove returns s without e.
func (s EffectSet) Remove(e Effect) EffectSet {
	return s &^ (1 << uint(e))
}

// Has reports whether e is in s.
func (s EffectSet) Has(e Effect) bool {
	return s&(1<<uint(e)) != 0
}

// Empty reports whether s holds no effects.
func (s EffectSet) Empty() bool {
	return s == 0
}

// HasAny reports whether any of the given effects is in s.
func (s EffectSet) HasAny(effects ...Effect) bool {
	for _, e := range effects {
		if s.Has(e) {
			return true
		}
	}
	return false
}

// Effects returns the members sorted from most to least severe.
func (s EffectSet) Effects() []Effect {
	var out []Effect
	for e := numEffects - 1; e > EffectNone; e-- {
		if s.Has(e) {
			out = append(out, e)
		}
	}
	return out
}

// Top returns the most severe effect, or EffectNone for an empty set.
func (s EffectSet) Top() Effect {
	for e := numEffects - 1; e > EffectNone; e-- {
		if s.Has(e) {
			return e
		}
	}
	return EffectNone
}

// String joins the terms with '&', most severe first.
func (s EffectSet) String() string {
	effects := s.Effects()
	if len(effects) == 0 {
		return EffectNone.String()
	}
	names := make([]string, len(effects))
	for i, e := range effects {
		names[i] = e.String()
	}
	return strings.Join(names, "&")
}

// MarshalText implements encoding.TextMarshaler.
func (s EffectSet) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses an '&' or ',' separated list, dropping unknown terms.
func (s *EffectSet) UnmarshalText(b []byte) error {
	fields := strings.FieldsFunc(string(b), func(r rune) bool { return r == '&' || r == ',' })
	var out EffectSet
	for _, f := range fields {
		out = out.Add(ParseEffect(f))
	}
	*s = out
	return nil
}

// SortBySeverity orders effects from most to least severe.
func SortBySeverity(effects []Effect) {
	sort.SliceStable(effects, func(i, j int) bool { return effects[i] > effects[j] })
}
