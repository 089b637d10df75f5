package cache

import (
	"sort"
)

// DefaultUpstreamDistance is the number of bases upstream of a transcript's
// 5' end within which the transcript is still returned by lookups.
const DefaultUpstreamDistance = 1000

// Cache holds transcripts per chromosome and answers overlap lookups.
// AddTranscript must not be called concurrently with lookups; after Build
// the cache is safe for concurrent reads.
type Cache struct {
	transcripts map[string][]*Transcript
	trees       map[string]*IntervalTree
	genes       map[string][]*Gene
	upstream    int64
}

// New creates a new empty cache.
func New() *Cache {
	return &Cache{
		transcripts: make(map[string][]*Transcript),
		upstream:    DefaultUpstreamDistance,
	}
}

// SetUpstreamDistance sets the upstream buffer applied by lookups.
// It takes effect at the next Build.
func (c *Cache) SetUpstreamDistance(d int64) {
	c.upstream = max(0, d)
}

// UpstreamDistance returns the configured upstream buffer.
func (c *Cache) UpstreamDistance() int64 {
	return c.upstream
}

// AddTranscript adds a transcript to the cache. Any built index is discarded.
func (c *Cache) AddTranscript(t *Transcript) {
	chrom := normalizeChrom(t.Chrom)
	c.transcripts[chrom] = append(c.transcripts[chrom], t)
	c.trees = nil
	c.genes = nil
}

// Build indexes all loaded transcripts for overlap queries.
func (c *Cache) Build() {
	c.trees = make(map[string]*IntervalTree, len(c.transcripts))
	c.genes = make(map[string][]*Gene, len(c.transcripts))
	for chrom, ts := range c.transcripts {
		c.trees[chrom] = BuildIntervalTree(ts, c.upstream)
		c.genes[chrom] = groupGenes(ts)
	}
}

// TranscriptsOverlapping returns transcripts whose span, extended by the
// upstream buffer, contains pos.
func (c *Cache) TranscriptsOverlapping(chrom string, pos int64) []*Transcript {
	chrom = normalizeChrom(chrom)
	if c.trees != nil {
		tree, ok := c.trees[chrom]
		if !ok {
			return nil
		}
		return tree.FindOverlaps(pos)
	}

	// Unbuilt caches fall back to a linear scan.
	var result []*Transcript
	for _, t := range c.transcripts[chrom] {
		if c.withinBuffer(t, pos) {
			result = append(result, t)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Start < result[j].Start })
	return result
}

// GenesOverlapping returns genes with at least one transcript whose buffered
// span contains pos.
func (c *Cache) GenesOverlapping(chrom string, pos int64) []*Gene {
	chrom = normalizeChrom(chrom)
	genes := c.genes[chrom]
	if genes == nil {
		genes = groupGenes(c.transcripts[chrom])
	}
	var result []*Gene
	for _, g := range genes {
		for _, t := range g.Transcripts {
			if c.withinBuffer(t, pos) {
				result = append(result, g)
				break
			}
		}
	}
	return result
}

func (c *Cache) withinBuffer(t *Transcript, pos int64) bool {
	start, end := t.Start, t.End
	if t.IsReverseStrand() {
		end += c.upstream
	} else {
		start -= c.upstream
	}
	return pos >= start && pos <= end
}

// GetTranscript returns a specific transcript by ID, or nil if not found.
func (c *Cache) GetTranscript(id string) *Transcript {
	for _, transcripts := range c.transcripts {
		for _, t := range transcripts {
			if t.ID == id {
				return t
			}
		}
	}
	return nil
}

// TranscriptCount returns the total number of transcripts in the cache.
func (c *Cache) TranscriptCount() int {
	count := 0
	for _, transcripts := range c.transcripts {
		count += len(transcripts)
	}
	return count
}

// Chromosomes returns the sorted chromosome names, without any "chr" prefix.
func (c *Cache) Chromosomes() []string {
	chroms := make([]string, 0, len(c.transcripts))
	for chrom := range c.transcripts {
		chroms = append(chroms, chrom)
	}
	sort.Strings(chroms)
	return chroms
}

// FindTranscriptsByChrom returns all transcripts for a chromosome.
func (c *Cache) FindTranscriptsByChrom(chrom string) []*Transcript {
	return c.transcripts[normalizeChrom(chrom)]
}
