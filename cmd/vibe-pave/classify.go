package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-pave/internal/cache"
	"github.com/inodb/vibe-pave/internal/impact"
	"github.com/inodb/vibe-pave/internal/output"
	"github.com/inodb/vibe-pave/internal/refgenome"
	"github.com/inodb/vibe-pave/internal/vcf"
)

func newClassifyCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "classify [flags] <input.vcf>",
		Short: "Classify the transcript impact of VCF variants",
		Long: `Classify every variant of a VCF file against the overlapping transcripts of a
gene model, using a FASTA reference for flanking sequence.

The gene model may be a JSON file or directory, a GTF file, or a DuckDB
database written by 'vibe-pave convert'.`,
		Example: `  vibe-pave classify --genes genes.duckdb --fasta GRCh38.fa input.vcf
  vibe-pave classify --genes gencode.gtf.gz --fasta GRCh38.fa -f vcf -o out.vcf input.vcf.gz
  cat input.vcf | vibe-pave classify --genes genes.json --fasta ref.fa -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			if outputPath != "" && outputPath != "-" {
				f, err := os.Create(outputPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			return runClassify(ctx, viper.GetViper(), args[0], out)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&outputPath, "output", "o", "", "output file (default: stdout)")
	flags.StringP("format", "f", "tab", "output format: tab, vcf")
	flags.String("genes", "", "gene model: JSON file or directory, GTF, or DuckDB")
	flags.String("fasta", "", "indexed FASTA reference")
	flags.Int("workers", 0, "classification workers (0 = number of CPUs)")
	flags.String("min-effect", "", "omit impacts less severe than this consequence term")
	flags.StringSlice("promoter-genes", nil, "genes whose promoter variants are reported")
	flags.Int("upstream-distance", impact.DefaultUpstreamDistance, "upstream_gene_variant distance")
	flags.Int("max-realign-shift", impact.DefaultMaxRealignShift, "right shift tried for splice-disrupting indels (0 disables)")

	for key, flag := range map[string]string{
		keyOutputFormat:     "format",
		keyGenesPath:        "genes",
		keyReferenceFasta:   "fasta",
		keyWorkers:          "workers",
		keyOutputMinEffect:  "min-effect",
		keyPromoterGenes:    "promoter-genes",
		keyUpstreamDistance: "upstream-distance",
		keyRealignMaxShift:  "max-realign-shift",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}

// impactWriter is implemented by every output format.
type impactWriter interface {
	WriteHeader() error
	Write(r *impact.VariantImpacts) error
	Flush() error
}

func runClassify(ctx context.Context, v *viper.Viper, inputPath string, out io.Writer) error {
	opts, err := classifierOptions(v)
	if err != nil {
		return err
	}
	minEffect, err := parseMinEffect(v.GetString(keyOutputMinEffect))
	if err != nil {
		return err
	}
	genesPath, fastaPath := v.GetString(keyGenesPath), v.GetString(keyReferenceFasta)
	if genesPath == "" {
		return fmt.Errorf("no gene model: set --genes or %s", keyGenesPath)
	}
	if fastaPath == "" {
		return fmt.Errorf("no reference: set --fasta or %s", keyReferenceFasta)
	}

	parser, err := vcf.NewParser(inputPath)
	if err != nil {
		return err
	}
	defer parser.Close()
	if !parser.DeclaresInfo(vcf.LocalPhaseSetKey) {
		logger.Debug("input declares no local phase sets", zap.String("key", vcf.LocalPhaseSetKey))
	}

	c := cache.New()
	c.SetUpstreamDistance(int64(max(opts.UpstreamDistance, opts.MaxPromoterDistance)))
	var genome *refgenome.FastaGenome

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := loadGeneModel(genesPath, c); err != nil {
			return fmt.Errorf("load gene model %s: %w", genesPath, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		genome, err = refgenome.OpenFasta(fastaPath)
		return err
	})
	if err := g.Wait(); err != nil {
		if genome != nil {
			genome.Close()
		}
		return err
	}
	defer genome.Close()

	logger.Info("loaded gene model",
		zap.String("path", genesPath),
		zap.Int("transcripts", c.TranscriptCount()),
		zap.Int("chromosomes", len(c.Chromosomes())))

	writer, err := newImpactWriter(v.GetString(keyOutputFormat), out, parser.Header(), minEffect)
	if err != nil {
		return err
	}
	if err := writer.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	classifier := impact.NewClassifier(c, genome, opts)
	classifier.SetLogger(logger)

	n, err := classifyStream(ctx, classifier, parser, writer, v.GetInt(keyWorkers))
	if err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	logger.Info("classified variants", zap.Int("alleles", n))
	return nil
}

// classifyStream classifies the input one chromosome at a time so that every
// phasing group is complete before it is merged.
func classifyStream(ctx context.Context, c *impact.Classifier, p vcf.VariantParser, w impactWriter, workers int) (int, error) {
	var batch []*vcf.Variant
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		results, err := c.ClassifyBatch(ctx, batch, workers)
		if err != nil {
			return fmt.Errorf("classify %s: %w", batch[0].Chrom, err)
		}
		for _, r := range results {
			if err := w.Write(r); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
		total += len(batch)
		batch = nil
		return nil
	}

	for {
		v, err := p.Next()
		if err != nil {
			return total, err
		}
		if v == nil {
			break
		}
		if len(batch) > 0 && batch[0].Chrom != v.Chrom {
			if err := flush(); err != nil {
				return total, err
			}
		}
		batch = append(batch, vcf.SplitMultiAllelic(v)...)
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

func newImpactWriter(format string, out io.Writer, header []string, minEffect impact.Effect) (impactWriter, error) {
	switch strings.ToLower(format) {
	case "tab", "":
		w := output.NewTabWriter(out)
		w.SetMinEffect(minEffect)
		return w, nil
	case "vcf":
		w := output.NewVCFWriter(out, header)
		w.SetMinEffect(minEffect)
		return w, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// loadGeneModel dispatches on the gene model file type.
func loadGeneModel(path string, c *cache.Cache) error {
	switch {
	case cache.IsDuckDB(path):
		store, err := cache.NewDuckDBStore(path)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.LoadAll(c)
	case isGTF(path):
		return cache.NewGTFLoader(path).LoadAll(c)
	default:
		return cache.NewLoader(path).LoadAll(c)
	}
}

func isGTF(path string) bool {
	p := strings.TrimSuffix(strings.ToLower(path), ".gz")
	return strings.HasSuffix(p, ".gtf") || strings.HasSuffix(p, ".gff")
}

func parseMinEffect(s string) (impact.Effect, error) {
	if strings.TrimSpace(s) == "" {
		return impact.EffectNone, nil
	}
	e := impact.ParseEffect(s)
	if e == impact.EffectNone && !strings.EqualFold(strings.TrimSpace(s), impact.EffectNone.String()) {
		return impact.EffectNone, fmt.Errorf("unknown consequence term %q", s)
	}
	return e, nil
}
