package vcf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LocalPhaseSetKey is the INFO key carrying the local phasing group id.
const LocalPhaseSetKey = "LPS"

// Fixed VCF columns.
const (
	colChrom = iota
	colPos
	colID
	colRef
	colAlt
	colQual
	colFilter
	colInfo
	colFormat
)

// Parser reads variants from a plain or gzipped VCF stream.
type Parser struct {
	r          *bufio.Reader
	closers    []io.Closer
	lineNumber int

	header      []string
	sampleNames []string
	infoIDs     map[string]bool
}

// NewParser opens a VCF file. The path "-" reads stdin.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}
	p, err := newParser(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	p.closers = append(p.closers, f)
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
// Gzipped input is detected from its magic bytes.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	return newParser(r)
}

func newParser(r io.Reader) (*Parser, error) {
	p := &Parser{r: bufio.NewReader(r), infoIDs: make(map[string]bool)}

	magic, err := p.r.Peek(2)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read vcf header: %w", err)
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(p.r)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.closers = append(p.closers, gz)
		p.r = bufio.NewReader(gz)
	}

	if err := p.readHeader(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// readLine returns the next line without its terminator, or io.EOF.
func (p *Parser) readLine() (string, error) {
	line, err := p.r.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		if err == io.EOF {
			return "", io.EOF
		}
		return "", fmt.Errorf("read line %d: %w", p.lineNumber+1, err)
	}
	p.lineNumber++
	return strings.TrimRight(line, "\r\n"), nil
}

// readHeader consumes meta lines up to and including #CHROM.
func (p *Parser) readHeader() error {
	for {
		line, err := p.readLine()
		if err == io.EOF {
			return p.errorf("no #CHROM header line found")
		}
		if err != nil {
			return err
		}

		switch {
		case strings.HasPrefix(line, "##"):
			p.header = append(p.header, line)
			if id, ok := infoID(line); ok {
				p.infoIDs[id] = true
			}
		case strings.HasPrefix(line, "#CHROM"):
			p.header = append(p.header, line)
			if cols := strings.Split(line, "\t"); len(cols) > colFormat+1 {
				p.sampleNames = cols[colFormat+1:]
			}
			return nil
		default:
			return p.errorf("expected #CHROM header line")
		}
	}
}

// infoID extracts the ID of an ##INFO=<ID=...> meta line.
func infoID(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, "##INFO=<ID=")
	if !ok {
		return "", false
	}
	id, _, _ := strings.Cut(rest, ",")
	return strings.TrimSuffix(id, ">"), id != ""
}

// Next reads the next variant. Returns nil, nil when there are no more variants.
func (p *Parser) Next() (*Variant, error) {
	for {
		line, err := p.readLine()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if line == "" {
			continue
		}
		return p.decode(line)
	}
}

// decode converts one data line into a Variant.
func (p *Parser) decode(line string) (*Variant, error) {
	cols := strings.SplitN(line, "\t", colFormat+1)
	if len(cols) < colInfo+1 {
		return nil, p.errorf("expected at least %d columns, found %d", colInfo+1, len(cols))
	}

	pos, err := strconv.ParseInt(cols[colPos], 10, 64)
	if err != nil || pos < 1 {
		return nil, p.errorf("invalid position: %s", cols[colPos])
	}
	if cols[colRef] == "" || cols[colRef] == "." {
		return nil, p.errorf("missing reference allele")
	}

	v := &Variant{
		Chrom:   cols[colChrom],
		Pos:     pos,
		ID:      cols[colID],
		Ref:     strings.ToUpper(cols[colRef]),
		Alt:     strings.ToUpper(cols[colAlt]),
		Filter:  cols[colFilter],
		Info:    parseInfo(cols[colInfo]),
		RawInfo: cols[colInfo],
	}
	if q := cols[colQual]; q != "." {
		v.Qual, _ = strconv.ParseFloat(q, 64)
	}
	if len(cols) > colFormat {
		v.SampleColumns = cols[colFormat]
	}

	if lps, ok := v.Info[LocalPhaseSetKey].(string); ok {
		id, err := strconv.Atoi(lps)
		if err != nil {
			return nil, p.errorf("invalid %s: %s", LocalPhaseSetKey, lps)
		}
		v.LocalPhaseSet = &id
	}
	return v, nil
}

// parseInfo parses the INFO column. Flags map to true.
func parseInfo(info string) map[string]any {
	result := make(map[string]any)
	if info == "." || info == "" {
		return result
	}
	for _, kv := range strings.Split(info, ";") {
		if key, value, ok := strings.Cut(kv, "="); ok {
			result[key] = value
		} else if kv != "" {
			result[kv] = true
		}
	}
	return result
}

// SplitMultiAllelic splits a multi-allelic variant into one variant per ALT.
func SplitMultiAllelic(v *Variant) []*Variant {
	alts := strings.Split(v.Alt, ",")
	if len(alts) == 1 {
		return []*Variant{v}
	}

	variants := make([]*Variant, len(alts))
	for i, alt := range alts {
		c := *v
		c.Alt = alt
		c.Realigned = nil
		variants[i] = &c // INFO is shared between the split alleles
	}
	return variants
}

// Header returns the meta and #CHROM header lines.
func (p *Parser) Header() []string {
	return p.header
}

// SampleNames returns sample names from the #CHROM header line, or nil.
func (p *Parser) SampleNames() []string {
	return p.sampleNames
}

// DeclaresInfo reports whether the header defines the INFO key id.
func (p *Parser) DeclaresInfo(id string) bool {
	return p.infoIDs[id]
}

// LineNumber returns the number of lines read so far.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close releases the gzip stream and file, innermost first.
func (p *Parser) Close() error {
	var first error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	p.closers = nil
	return first
}

func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{Line: p.lineNumber, Message: fmt.Sprintf(format, args...)}
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
