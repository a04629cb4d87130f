package crawler

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"

	"pyuml/internal/extractor"
)

// ErrNoSources is returned when the scanned tree holds no Python files.
var ErrNoSources = errors.New("no python files found")

// DefaultIgnored lists directory names never scanned or watched.
var DefaultIgnored = []string{".git", "__pycache__", ".venv", "venv", "node_modules"}

// Source is one decoded Python file. Text is UTF-8 regardless of the
// on-disk encoding.
type Source struct {
	Path    string // relative to the scanned root
	AbsPath string
	Text    []byte
}

// Crawler scans a directory tree for Python sources. The file encoding
// is probed once, on the first file found, and reused for the whole
// pass; files the established encoding cannot decode are skipped.
type Crawler struct {
	ignored  []string
	encoding string
	skipped  []extractor.Skip
}

func New() *Crawler {
	return &Crawler{
		ignored: append([]string(nil), DefaultIgnored...),
	}
}

// ScanProject walks root in lexical order and streams every decoded
// source. A file that cannot be read or decoded is recorded as skipped
// and the scan continues; an error from onSource aborts the walk.
func (c *Crawler) ScanProject(root string, onSource func(Source) error) error {
	c.encoding = ""
	c.skipped = nil

	found := false
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}
		found = true

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}

		data, err := os.ReadFile(path)
		if err != nil {
			c.skip(rel, fmt.Sprintf("read failed: %v", err))
			return nil
		}

		if c.encoding == "" {
			c.encoding = probeEncoding(data)
		}
		text, err := decode(c.encoding, data)
		if err != nil {
			c.skip(rel, fmt.Sprintf("decode failed (%s): %v", c.encoding, err))
			return nil
		}

		return onSource(Source{Path: rel, AbsPath: path, Text: text})
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrNoSources
	}
	return nil
}

// LoadSource reads and decodes a single file below root, probing the
// encoding first when no scan has established one yet.
func (c *Crawler) LoadSource(root, rel string) (Source, error) {
	path := filepath.Join(root, rel)
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, err
	}
	if c.encoding == "" {
		c.encoding = probeEncoding(data)
	}
	text, err := decode(c.encoding, data)
	if err != nil {
		return Source{}, fmt.Errorf("decode failed (%s): %w", c.encoding, err)
	}
	return Source{Path: rel, AbsPath: path, Text: text}, nil
}

// Encoding reports the encoding detected for the current pass.
func (c *Crawler) Encoding() string {
	return c.encoding
}

// Skipped lists files left out of the last scan.
func (c *Crawler) Skipped() []extractor.Skip {
	return append([]extractor.Skip(nil), c.skipped...)
}

func (c *Crawler) skip(path, reason string) {
	c.skipped = append(c.skipped, extractor.Skip{UnitPath: path, Reason: reason})
}

// probeEncoding tries utf-8, then gbk, then latin-1. latin-1 accepts
// every byte sequence, so the probe always lands somewhere.
func probeEncoding(data []byte) string {
	for _, enc := range []string{"utf-8", "gbk"} {
		if _, err := decode(enc, data); err == nil {
			return enc
		}
	}
	return "latin-1"
}

func decode(encoding string, data []byte) ([]byte, error) {
	switch encoding {
	case "utf-8":
		if !utf8.Valid(data) {
			return nil, errors.New("invalid utf-8 byte sequence")
		}
		return data, nil
	case "gbk":
		out, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
		if err != nil {
			return nil, err
		}
		// The decoder substitutes U+FFFD instead of failing; treat any
		// substitution as a decode failure so the probe can move on.
		if bytes.ContainsRune(out, utf8.RuneError) {
			return nil, errors.New("invalid gbk byte sequence")
		}
		return out, nil
	case "latin-1":
		return charmap.ISO8859_1.NewDecoder().Bytes(data)
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}
