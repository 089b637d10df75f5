package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
)

const transcriptColumns = `id, gene_id, gene_name, chrom, start, end_, strand, biotype,
		       is_canonical, coding_start, coding_end`

// DuckDBStore keeps the gene model in a DuckDB database.
type DuckDBStore struct {
	db   *sql.DB
	path string
}

// NewDuckDBStore opens (or creates) a DuckDB gene-model database.
// An empty path opens an in-memory database.
func NewDuckDBStore(path string) (*DuckDBStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &DuckDBStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *DuckDBStore) Close() error {
	return s.db.Close()
}

// CreateSchema creates the transcript and exon tables.
func (s *DuckDBStore) CreateSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS transcripts (
			id VARCHAR PRIMARY KEY,
			gene_id VARCHAR,
			gene_name VARCHAR,
			chrom VARCHAR,
			start BIGINT,
			end_ BIGINT,
			strand TINYINT,
			biotype VARCHAR,
			is_canonical BOOLEAN,
			coding_start BIGINT,
			coding_end BIGINT
		);

		CREATE TABLE IF NOT EXISTS exons (
			transcript_id VARCHAR,
			exon_rank INTEGER,
			start BIGINT,
			end_ BIGINT,
			PRIMARY KEY (transcript_id, exon_rank)
		);

		CREATE INDEX IF NOT EXISTS idx_transcripts_pos ON transcripts(chrom, start, end_);
		CREATE INDEX IF NOT EXISTS idx_exons_transcript ON exons(transcript_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// InsertTranscript inserts a transcript and its exons in one transaction.
func (s *DuckDBStore) InsertTranscript(t *Transcript) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var codingStart, codingEnd sql.NullInt64
	if t.Coding != nil {
		codingStart = sql.NullInt64{Int64: t.Coding.Start, Valid: true}
		codingEnd = sql.NullInt64{Int64: t.Coding.End, Valid: true}
	}

	_, err = tx.Exec(`
		INSERT INTO transcripts (id, gene_id, gene_name, chrom, start, end_, strand,
		                         biotype, is_canonical, coding_start, coding_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.GeneID, t.GeneName, t.Chrom, t.Start, t.End, int8(t.Strand),
		nullString(t.Biotype), t.IsCanonical, codingStart, codingEnd)
	if err != nil {
		return fmt.Errorf("insert transcript %s: %w", t.ID, err)
	}

	for _, e := range t.Exons {
		_, err := tx.Exec(`
			INSERT INTO exons (transcript_id, exon_rank, start, end_)
			VALUES (?, ?, ?, ?)
		`, t.ID, e.Rank, e.Start, e.End)
		if err != nil {
			return fmt.Errorf("insert exon %s/%d: %w", t.ID, e.Rank, err)
		}
	}
	return tx.Commit()
}

// LoadAll loads every transcript into the cache and builds its index.
func (s *DuckDBStore) LoadAll(c *Cache) error {
	transcripts, err := s.queryTranscripts(`SELECT `+transcriptColumns+` FROM transcripts ORDER BY chrom, start`)
	if err != nil {
		return err
	}
	if err := s.attachAllExons(transcripts); err != nil {
		return err
	}
	for _, t := range transcripts {
		c.AddTranscript(t)
	}
	c.Build()
	return nil
}

// Load loads the transcripts of one chromosome into the cache.
func (s *DuckDBStore) Load(c *Cache, chrom string) error {
	transcripts, err := s.queryTranscripts(`SELECT `+transcriptColumns+`
		FROM transcripts WHERE chrom = ? ORDER BY start`, chrom)
	if err != nil {
		return err
	}
	for _, t := range transcripts {
		if err := s.loadExons(t); err != nil {
			return err
		}
		c.AddTranscript(t)
	}
	c.Build()
	return nil
}

// FindTranscripts returns all transcripts whose span contains pos.
func (s *DuckDBStore) FindTranscripts(chrom string, pos int64) ([]*Transcript, error) {
	transcripts, err := s.queryTranscripts(`SELECT `+transcriptColumns+`
		FROM transcripts
		WHERE chrom = ? AND start <= ? AND end_ >= ?
		ORDER BY start`, chrom, pos, pos)
	if err != nil {
		return nil, err
	}
	for _, t := range transcripts {
		if err := s.loadExons(t); err != nil {
			return nil, err
		}
	}
	return transcripts, nil
}

// GetTranscript returns a transcript by ID, or nil if it does not exist.
func (s *DuckDBStore) GetTranscript(id string) (*Transcript, error) {
	row := s.db.QueryRow(`SELECT `+transcriptColumns+` FROM transcripts WHERE id = ?`, id)
	t, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadExons(t); err != nil {
		return nil, err
	}
	return t, nil
}

// TranscriptCount returns the total number of transcripts in the database.
func (s *DuckDBStore) TranscriptCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM transcripts").Scan(&count)
	return count, err
}

// Chromosomes returns a sorted list of chromosomes in the database.
func (s *DuckDBStore) Chromosomes() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT chrom FROM transcripts ORDER BY chrom")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chroms []string
	for rows.Next() {
		var chrom string
		if err := rows.Scan(&chrom); err != nil {
			return nil, err
		}
		chroms = append(chroms, chrom)
	}
	return chroms, rows.Err()
}

func (s *DuckDBStore) queryTranscripts(query string, args ...any) ([]*Transcript, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		transcripts = append(transcripts, t)
	}
	return transcripts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTranscript(row rowScanner) (*Transcript, error) {
	t := &Transcript{}
	var strand int8
	var biotype sql.NullString
	var codingStart, codingEnd sql.NullInt64
	err := row.Scan(
		&t.ID, &t.GeneID, &t.GeneName, &t.Chrom, &t.Start, &t.End,
		&strand, &biotype, &t.IsCanonical, &codingStart, &codingEnd,
	)
	if err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}
	t.Strand = Strand(strand)
	t.Biotype = biotype.String
	if codingStart.Valid && codingEnd.Valid {
		t.Coding = &CodingRange{Start: codingStart.Int64, End: codingEnd.Int64}
	}
	return t, nil
}

// loadExons loads exons for a single transcript.
func (s *DuckDBStore) loadExons(t *Transcript) error {
	rows, err := s.db.Query(`
		SELECT exon_rank, start, end_ FROM exons
		WHERE transcript_id = ?
		ORDER BY exon_rank
	`, t.ID)
	if err != nil {
		return fmt.Errorf("query exons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e Exon
		if err := rows.Scan(&e.Rank, &e.Start, &e.End); err != nil {
			return fmt.Errorf("scan exon: %w", err)
		}
		t.Exons = append(t.Exons, e)
	}
	return rows.Err()
}

// attachAllExons loads the whole exon table in one pass.
func (s *DuckDBStore) attachAllExons(transcripts []*Transcript) error {
	byID := make(map[string]*Transcript, len(transcripts))
	for _, t := range transcripts {
		byID[t.ID] = t
	}

	rows, err := s.db.Query(`SELECT transcript_id, exon_rank, start, end_ FROM exons ORDER BY transcript_id, exon_rank`)
	if err != nil {
		return fmt.Errorf("query exons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var e Exon
		if err := rows.Scan(&id, &e.Rank, &e.Start, &e.End); err != nil {
			return fmt.Errorf("scan exon: %w", err)
		}
		if t, ok := byID[id]; ok {
			t.Exons = append(t.Exons, e)
		}
	}
	return rows.Err()
}

// nullString returns nil if s is empty, otherwise s.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// IsDuckDB reports whether a path names a DuckDB database file.
func IsDuckDB(path string) bool {
	return strings.HasSuffix(path, ".duckdb") || strings.HasSuffix(path, ".db")
}
