package cache

// Gene represents a genomic region with associated transcripts.
type Gene struct {
	ID          string        // Gene identifier (e.g., ENSG00000133703)
	Name        string        // Gene symbol (e.g., KRAS)
	Chrom       string        // Chromosome
	Start       int64         // Smallest transcript start (1-based)
	End         int64         // Largest transcript end (1-based, inclusive)
	Strand      Strand        // Strand of the first transcript seen
	Transcripts []*Transcript // Associated transcripts
}

// Contains returns true if the given position is within the gene boundaries.
func (g *Gene) Contains(pos int64) bool {
	return pos >= g.Start && pos <= g.End
}

// groupGenes collects transcripts into genes keyed by gene ID, falling back
// to the gene name when no ID is present. Order follows first appearance.
func groupGenes(transcripts []*Transcript) []*Gene {
	byKey := make(map[string]*Gene)
	var genes []*Gene
	for _, t := range transcripts {
		key := t.GeneID
		if key == "" {
			key = t.GeneName
		}
		g, ok := byKey[key]
		if !ok {
			g = &Gene{
				ID:     t.GeneID,
				Name:   t.GeneName,
				Chrom:  t.Chrom,
				Start:  t.Start,
				End:    t.End,
				Strand: t.Strand,
			}
			byKey[key] = g
			genes = append(genes, g)
		}
		g.Start = min(g.Start, t.Start)
		g.End = max(g.End, t.End)
		g.Transcripts = append(g.Transcripts, t)
	}
	return genes
}
