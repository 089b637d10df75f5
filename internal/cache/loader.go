package cache

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader loads transcripts from JSON gene-model files. A path may name a
// single file (optionally gzipped) or a directory of *.json / *.json.gz files.
type Loader struct {
	path string
}

// NewLoader creates a new JSON gene-model loader.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// LoadAll loads every transcript found at the loader's path into the cache
// and builds its index.
func (l *Loader) LoadAll(c *Cache) error {
	info, err := os.Stat(l.path)
	if err != nil {
		return fmt.Errorf("gene model not found: %w", err)
	}

	files := []string{l.path}
	if info.IsDir() {
		files, err = l.listFiles()
		if err != nil {
			return err
		}
	}

	for _, f := range files {
		if err := l.loadJSONFile(c, f); err != nil {
			return fmt.Errorf("load json file %s: %w", f, err)
		}
	}
	c.Build()
	return nil
}

func (l *Loader) listFiles() ([]string, error) {
	entries, err := os.ReadDir(l.path)
	if err != nil {
		return nil, fmt.Errorf("read gene model directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz")) {
			continue
		}
		files = append(files, filepath.Join(l.path, name))
	}
	sort.Strings(files)
	return files, nil
}

// loadJSONFile loads a JSON array of transcripts.
func (l *Loader) loadJSONFile(c *Cache, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	transcripts, err := DecodeTranscripts(r)
	if err != nil {
		return err
	}
	for _, t := range transcripts {
		c.AddTranscript(t)
	}
	return nil
}

// DecodeTranscripts decodes a JSON array of transcripts.
func DecodeTranscripts(r io.Reader) ([]*Transcript, error) {
	var transcripts []*Transcript
	if err := json.NewDecoder(r).Decode(&transcripts); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return transcripts, nil
}
