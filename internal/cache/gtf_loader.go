package cache

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// GTFLoader builds transcripts from a GENCODE/Ensembl GTF file.
type GTFLoader struct {
	path string
}

// NewGTFLoader creates a new GTF loader.
func NewGTFLoader(path string) *GTFLoader {
	return &GTFLoader{path: path}
}

// LoadAll loads all transcripts from the GTF file into the cache.
func (l *GTFLoader) LoadAll(c *Cache) error {
	return l.load(c, "")
}

// LoadChromosome loads transcripts for a single chromosome.
func (l *GTFLoader) LoadChromosome(c *Cache, chrom string) error {
	return l.load(c, chrom)
}

func (l *GTFLoader) load(c *Cache, filterChrom string) error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(l.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	transcripts, err := ParseGTF(reader, filterChrom)
	if err != nil {
		return err
	}
	for _, t := range transcripts {
		c.AddTranscript(t)
	}
	c.Build()
	return nil
}

type gtfFeature struct {
	chrom       string
	featureType string
	start       int64
	end         int64
	strand      string
	attributes  map[string]string
}

// ParseGTF reads transcript, exon, CDS and stop_codon features and returns
// transcripts ordered by chromosome and start. Malformed lines are skipped.
// Stop codons are folded into the coding range, matching the convention that
// the coding range ends on the last base of the stop codon.
func ParseGTF(r io.Reader, filterChrom string) ([]*Transcript, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	byID := make(map[string]*Transcript)
	exons := make(map[string][]Exon)
	coding := make(map[string]*CodingRange)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		feat, err := parseGTFLine(line)
		if err != nil {
			continue
		}
		if filterChrom != "" && feat.chrom != normalizeChrom(filterChrom) {
			continue
		}
		id := stripVersion(feat.attributes["transcript_id"])
		if id == "" {
			continue
		}

		switch feat.featureType {
		case "transcript":
			byID[id] = &Transcript{
				ID:          id,
				GeneID:      stripVersion(feat.attributes["gene_id"]),
				GeneName:    feat.attributes["gene_name"],
				Chrom:       feat.chrom,
				Start:       feat.start,
				End:         feat.end,
				Strand:      ParseStrand(feat.strand),
				Biotype:     feat.attributes["transcript_type"],
				IsCanonical: strings.Contains(feat.attributes["tag"], "Ensembl_canonical"),
			}
		case "exon":
			rank, _ := strconv.Atoi(feat.attributes["exon_number"])
			exons[id] = append(exons[id], Exon{Rank: rank, Start: feat.start, End: feat.end})
		case "CDS", "stop_codon":
			cr, ok := coding[id]
			if !ok {
				coding[id] = &CodingRange{Start: feat.start, End: feat.end}
				continue
			}
			cr.Start = min(cr.Start, feat.start)
			cr.End = max(cr.End, feat.end)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}

	result := make([]*Transcript, 0, len(byID))
	for id, t := range byID {
		ex := exons[id]
		if len(ex) == 0 {
			continue
		}
		sort.Slice(ex, func(i, j int) bool {
			if t.IsReverseStrand() {
				return ex[i].Start > ex[j].Start
			}
			return ex[i].Start < ex[j].Start
		})
		for i := range ex {
			ex[i].Rank = i + 1
		}
		t.Exons = ex
		t.Coding = coding[id]
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Chrom != result[j].Chrom {
			return result[i].Chrom < result[j].Chrom
		}
		if result[i].Start != result[j].Start {
			return result[i].Start < result[j].Start
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func parseGTFLine(line string) (*gtfFeature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return nil, fmt.Errorf("invalid GTF line: expected 9 fields, got %d", len(fields))
	}
	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}
	return &gtfFeature{
		chrom:       normalizeChrom(fields[0]),
		featureType: fields[2],
		start:       start,
		end:         end,
		strand:      fields[6],
		attributes:  parseAttributes(fields[8]),
	}, nil
}

// parseAttributes parses the attribute column: key "value"; key "value"; ...
// Repeated tag attributes are joined with commas.
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)
	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		key, value, ok := strings.Cut(part, " ")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), "\"")
		if prev, seen := attrs[key]; seen && key == "tag" {
			value = prev + "," + value
		}
		attrs[key] = value
	}
	return attrs
}

// stripVersion removes the version suffix from an Ensembl ID.
func stripVersion(id string) string {
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}

// normalizeChrom removes a "chr" prefix.
func normalizeChrom(chrom string) string {
	return strings.TrimPrefix(chrom, "chr")
}

// NormalizeChrom removes a "chr" prefix so lookups match across sources.
func NormalizeChrom(chrom string) string {
	return normalizeChrom(chrom)
}
