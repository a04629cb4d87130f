package index

import (
	"context"
	"fmt"

	"pyuml/internal/crawler"
	"pyuml/internal/extractor"
	"pyuml/internal/model"
)

// Result is one completed extraction pass over a project tree.
type Result struct {
	Registry *model.Registry
	Origins  model.OriginIndex
	// Skipped merges files the crawler could not decode with units the
	// extractor could not parse.
	Skipped  []extractor.Skip
	Encoding string
	Units    int
}

// Indexer orchestrates crawling and extraction into one pass.
type Indexer struct {
	crawler *crawler.Crawler
}

func NewIndexer(c *crawler.Crawler) *Indexer {
	return &Indexer{crawler: c}
}

// BuildRegistry scans root and extracts every class into a fresh
// registry. Units are processed in lexical walk order, so cross-unit
// name collisions resolve to the lexically last unit, every run.
func (i *Indexer) BuildRegistry(ctx context.Context, root string) (*Result, error) {
	ext, err := extractor.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	units := 0
	err = i.crawler.ScanProject(root, func(src crawler.Source) error {
		units++
		return ext.RegisterUnit(ctx, src.Path, src.Text)
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	return &Result{
		Registry: ext.Registry(),
		Origins:  ext.Origins(),
		Skipped:  append(i.crawler.Skipped(), ext.Skipped()...),
		Encoding: i.crawler.Encoding(),
		Units:    units,
	}, nil
}
