package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-pave/internal/cache"
)

func newConvertCmd() *cobra.Command {
	var (
		inputPath  string
		outputPath string
		chrom      string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a JSON or GTF gene model to DuckDB",
		Long: `Convert a JSON or GTF gene model to a DuckDB database for faster loading.
Invalid transcripts are skipped with a warning.`,
		Example: `  vibe-pave convert -i gencode.v46.annotation.gtf.gz -o genes.duckdb
  vibe-pave convert -i genes/ -o chr12.duckdb --chrom 12`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.ErrOrStderr(), inputPath, outputPath, chrom)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "input gene model: JSON file or directory, or GTF")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output DuckDB file path")
	cmd.Flags().StringVar(&chrom, "chrom", "", "only convert this chromosome")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runConvert(w io.Writer, inputPath, outputPath, chrom string) error {
	if cache.IsDuckDB(inputPath) {
		return fmt.Errorf("input %s is already a DuckDB database", inputPath)
	}

	// Ensure output has .duckdb extension
	if !cache.IsDuckDB(outputPath) {
		outputPath += ".duckdb"
	}

	// Remove existing output file if it exists
	if _, err := os.Stat(outputPath); err == nil {
		if err := os.Remove(outputPath); err != nil {
			return fmt.Errorf("removing existing file: %w", err)
		}
	}

	src := cache.New()
	if err := loadGeneModel(inputPath, src); err != nil {
		return fmt.Errorf("load gene model %s: %w", inputPath, err)
	}

	chroms := src.Chromosomes()
	if chrom != "" {
		chroms = []string{chrom}
	}

	store, err := cache.NewDuckDBStore(outputPath)
	if err != nil {
		return fmt.Errorf("creating DuckDB: %w", err)
	}
	defer store.Close()

	if err := store.CreateSchema(); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	var inserted, skipped int
	for _, c := range chroms {
		for _, t := range src.FindTranscriptsByChrom(c) {
			if err := t.Validate(); err != nil {
				logger.Warn("skipping transcript", zap.String("transcript", t.ID), zap.Error(err))
				skipped++
				continue
			}
			if err := store.InsertTranscript(t); err != nil {
				return fmt.Errorf("inserting transcript %s: %w", t.ID, err)
			}
			inserted++
			if inserted%10000 == 0 {
				logger.Info("inserted transcripts", zap.Int("count", inserted))
			}
		}
	}

	finalCount, err := store.TranscriptCount()
	if err != nil {
		return fmt.Errorf("verifying count: %w", err)
	}

	sizeStr := "unknown"
	if stat, err := os.Stat(outputPath); err == nil {
		sizeStr = fmt.Sprintf("%.2f MB", float64(stat.Size())/(1024*1024))
	}

	abs, _ := filepath.Abs(outputPath)
	fmt.Fprintf(w, "Conversion complete!\n")
	fmt.Fprintf(w, "  Transcripts: %d (%d skipped)\n", finalCount, skipped)
	fmt.Fprintf(w, "  Output size: %s\n", sizeStr)
	fmt.Fprintf(w, "  Output file: %s\n", abs)
	return nil
}
