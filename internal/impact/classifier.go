// Package impact classifies the effect of variants on transcripts.
package impact

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-pave/internal/cache"
	"github.com/inodb/vibe-pave/internal/refgenome"
	"github.com/inodb/vibe-pave/internal/vcf"
)

// TranscriptLookup finds transcripts whose span or upstream buffer covers a position.
type TranscriptLookup interface {
	TranscriptsOverlapping(chrom string, pos int64) []*cache.Transcript
}

// Classifier classifies variants against the transcripts they overlap.
type Classifier struct {
	lookup TranscriptLookup
	genome refgenome.SequenceAccessor
	opts   Options
	logger *zap.Logger
}

// NewClassifier creates a classifier. Zero-valued option fields take their defaults.
func NewClassifier(lookup TranscriptLookup, genome refgenome.SequenceAccessor, opts Options) *Classifier {
	def := DefaultOptions()
	if opts.PromoterGenes == nil {
		opts.PromoterGenes = def.PromoterGenes
	}
	if opts.MaxPromoterDistance <= 0 {
		opts.MaxPromoterDistance = def.MaxPromoterDistance
	}
	if opts.UpstreamDistance <= 0 {
		opts.UpstreamDistance = def.UpstreamDistance
	}
	if opts.SpliceRegionExon <= 0 {
		opts.SpliceRegionExon = def.SpliceRegionExon
	}
	if opts.SpliceRegionIntron <= 0 {
		opts.SpliceRegionIntron = def.SpliceRegionIntron
	}
	return &Classifier{
		lookup: lookup,
		genome: genome,
		opts:   opts,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for warnings.
func (c *Classifier) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Options returns the effective options.
func (c *Classifier) Options() Options { return c.opts }

// VariantImpacts holds every transcript impact of one variant, grouped by gene.
type VariantImpacts struct {
	Variant *vcf.Variant
	Impacts map[string][]*VariantTransImpact
	Genes   []string // gene order of first appearance
}

func newVariantImpacts(v *vcf.Variant) *VariantImpacts {
	return &VariantImpacts{Variant: v, Impacts: make(map[string][]*VariantTransImpact)}
}

func (r *VariantImpacts) add(gene string, imp *VariantTransImpact) {
	if _, ok := r.Impacts[gene]; !ok {
		r.Genes = append(r.Genes, gene)
	}
	r.Impacts[gene] = append(r.Impacts[gene], imp)
}

// All returns the impacts in gene order.
func (r *VariantImpacts) All() []*VariantTransImpact {
	var out []*VariantTransImpact
	for _, g := range r.Genes {
		out = append(out, r.Impacts[g]...)
	}
	return out
}

// Worst returns the most severe impact, preferring canonical transcripts on ties.
func (r *VariantImpacts) Worst() *VariantTransImpact {
	var worst *VariantTransImpact
	for _, imp := range r.All() {
		if worst == nil {
			worst = imp
			continue
		}
		a, b := imp.TopEffect().Severity(), worst.TopEffect().Severity()
		if a > b || (a == b && imp.Canonical && !worst.Canonical) {
			worst = imp
		}
	}
	return worst
}

// isSymbolic reports alleles that cannot be classified base by base.
func isSymbolic(allele string) bool {
	return allele == "" || allele == "." || allele == "*" || strings.ContainsAny(allele, "<>[]")
}

// Classify classifies v against every overlapping transcript. Transcripts
// that fail validation are skipped with a warning.
func (c *Classifier) Classify(v *vcf.Variant) (*VariantImpacts, error) {
	res := newVariantImpacts(v)
	if isSymbolic(v.Alt) || isSymbolic(v.Ref) {
		c.logger.Debug("skipping symbolic allele",
			zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos), zap.String("alt", v.Alt))
		return res, nil
	}

	refDiag := c.checkReference(v)
	for _, t := range c.transcripts(v) {
		imp, err := c.ClassifyTranscript(v, t)
		if err != nil {
			c.logger.Warn("skipping transcript",
				zap.String("transcript", t.ID), zap.Error(err))
			continue
		}
		if refDiag != "" {
			imp.Diagnostics = append(imp.Diagnostics, refDiag)
		}
		res.add(t.GeneName, imp)
	}
	return res, nil
}

// transcripts returns the transcripts covering either end of v.
func (c *Classifier) transcripts(v *vcf.Variant) []*cache.Transcript {
	chrom := v.NormalizeChrom()
	ts := c.lookup.TranscriptsOverlapping(chrom, v.Pos)
	if end := v.End(); end != v.Pos {
		seen := make(map[string]bool, len(ts))
		for _, t := range ts {
			seen[t.ID] = true
		}
		for _, t := range c.lookup.TranscriptsOverlapping(chrom, end) {
			if !seen[t.ID] {
				ts = append(ts, t)
			}
		}
	}
	return ts
}

// checkReference compares the VCF reference allele with the genome.
func (c *Classifier) checkReference(v *vcf.Variant) string {
	seq, err := c.genome.GetBases(v.Chrom, v.Pos, v.End())
	if err != nil {
		c.logger.Warn("reference read failed",
			zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos), zap.Error(err))
		return "reference read failed: " + err.Error()
	}
	if seq != v.Ref {
		c.logger.Warn("reference allele mismatch",
			zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos),
			zap.String("vcf", v.Ref), zap.String("genome", seq))
		return fmt.Sprintf("reference mismatch: VCF %s, genome %s", v.Ref, seq)
	}
	return ""
}

// ClassifyTranscript classifies v against a single transcript.
func (c *Classifier) ClassifyTranscript(v *vcf.Variant, t *cache.Transcript) (*VariantTransImpact, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	imp := c.classifyPair(v, t)
	if !imp.Splice.Disruptive() || !v.IsIndel() || c.opts.MaxRealignShift <= 0 {
		return imp, nil
	}

	shifted := v.Realigned
	if shifted == nil {
		var moved bool
		var err error
		shifted, moved, err = RealignRight(v, c.genome, c.opts.MaxRealignShift)
		if err != nil || !moved {
			return imp, nil
		}
	}
	alt := c.classifyPair(shifted, t)
	if alt.Splice.Disruptive() {
		return imp, nil
	}
	alt.Realigned = true
	return alt, nil
}

func (c *Classifier) classifyPair(v *vcf.Variant, t *cache.Transcript) *VariantTransImpact {
	p := newPairing(t, v, c.genome, c.opts)
	imp := &VariantTransImpact{
		TranscriptID: t.ID,
		GeneName:     t.GeneName,
		Canonical:    t.IsCanonical,
		State:        StateClassified,
	}
	imp.Coding = p.o.codingContext(p.e, c.opts)
	imp.Coding.Hgvs = p.hgvsCoding(imp.Coding)

	var proteinFx EffectSet
	imp.Protein, proteinFx = p.proteinContext(imp.Coding)
	imp.Splice = p.spliceImpact()
	imp.Effects = p.effects(imp.Coding, imp.Protein, proteinFx, imp.Splice)
	imp.Diagnostics = p.diags

	for _, d := range p.diags {
		c.logger.Warn("classification diagnostic",
			zap.String("transcript", t.ID), zap.Int64("pos", v.Pos), zap.String("detail", d))
	}
	return imp
}

// effects combines the structural, protein and splice consequences.
func (p *pairing) effects(cc CodingContext, pc *ProteinContext, proteinFx EffectSet, sp SpliceImpact) EffectSet {
	fx := proteinFx
	switch cc.RegionType {
	case RegionUnknown:
		return fx
	case RegionUpstream:
		if -cc.NearestExonDistance <= p.opts.UpstreamDistance {
			fx = fx.Add(EffectUpstreamGene)
		}
		return fx
	case RegionIntronic:
		fx = fx.Add(EffectIntron)
	}
	if !p.o.coding {
		fx = fx.Add(EffectNonCodingTranscript)
	} else if cc.RegionType == RegionExonic && pc == nil {
		switch {
		case cc.CodingType == CodingUTR5P:
			fx = fx.Add(EffectFivePrimeUTR)
		case cc.CodingType == CodingUTR3P:
			fx = fx.Add(EffectThreePrimeUTR)
		case cc.SpansSpliceJunction:
			// Bases added at the exon edge land in the intron.
			fx = fx.Add(EffectIntron)
		}
	}
	if sp.Disruptive() {
		fx = fx.Add(sp.Effect())
	} else if p.spliceRegion() {
		fx = fx.Add(EffectSpliceRegion)
	}
	return fx
}

// ClassifyBatch classifies variants concurrently and merges phased groups.
// Results keep the input order.
func (c *Classifier) ClassifyBatch(ctx context.Context, variants []*vcf.Variant, workers int) ([]*VariantImpacts, error) {
	items := make(chan WorkItem)
	go func() {
		defer close(items)
		for i, v := range variants {
			select {
			case items <- WorkItem{Seq: i, Variant: v}:
			case <-ctx.Done():
				return
			}
		}
	}()

	out := make([]*VariantImpacts, 0, len(variants))
	err := OrderedCollect(c.ParallelClassify(ctx, items, workers), func(r WorkResult) error {
		if r.Err != nil {
			return fmt.Errorf("classify %s:%d: %w", r.Variant.Chrom, r.Variant.Pos, r.Err)
		}
		out = append(out, r.Impacts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return MergeBatch(out, c.CombinedProteinNotation), nil
}

// CombinedProteinNotation renders variants applied together to the
// transcript id. It is the ProteinNotation ClassifyBatch merges with.
func (c *Classifier) CombinedProteinNotation(id string, variants []*vcf.Variant, fx EffectSet) string {
	if len(variants) == 0 {
		return ""
	}
	for _, t := range c.transcripts(variants[0]) {
		if t.ID == id {
			return combinedProteinHgvs(t, variants, c.genome, c.opts, fx)
		}
	}
	return ""
}

// pairing holds the per-(variant, transcript) state used while classifying.
type pairing struct {
	o      *orientedTranscript
	e      edit
	v      *vcf.Variant
	genome refgenome.SequenceAccessor
	chrom  string
	opts   Options
	diags  []string
}

func newPairing(t *cache.Transcript, v *vcf.Variant, g refgenome.SequenceAccessor, opts Options) *pairing {
	o := newOrientedTranscript(t)
	return &pairing{o: o, e: newEdit(v, o), v: v, genome: g, chrom: v.Chrom, opts: opts}
}

func (p *pairing) orientedFetch(lo, hi int64) (string, error) {
	return p.o.fetch(p.genome, p.chrom, lo, hi)
}

func (p *pairing) diagnose(what string, err error) {
	p.diags = append(p.diags, what+": "+err.Error())
}
