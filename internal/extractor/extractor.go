package extractor

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"pyuml/internal/model"
)

const classQuery = `(class_definition) @class`

// Skip records one source unit left out of a pass and why.
type Skip struct {
	UnitPath string
	Reason   string
}

// Extractor walks parsed Python trees and builds the class registry.
// It owns the registry for the duration of one pass: a single logical
// writer registers one unit at a time, and a unit that fails to parse
// is recorded as skipped rather than failing the pass.
type Extractor struct {
	parser   *sitter.Parser
	query    *sitter.Query
	registry *model.Registry
	origins  model.OriginIndex
	skipped  []Skip
}

func New() (*Extractor, error) {
	lang := python.GetLanguage()
	query, err := sitter.NewQuery([]byte(classQuery), lang)
	if err != nil {
		return nil, fmt.Errorf("failed to create class query: %w", err)
	}
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	return &Extractor{
		parser:   parser,
		query:    query,
		registry: model.NewRegistry(),
		origins:  make(model.OriginIndex),
	}, nil
}

// RegisterUnit parses one decoded source unit and registers every
// class it defines. Parse failures mark the unit as skipped; the error
// return is reserved for context cancellation.
func (e *Extractor) RegisterUnit(ctx context.Context, unitPath string, src []byte) error {
	tree, err := e.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.skip(unitPath, fmt.Sprintf("parse failed: %v", err))
		return nil
	}
	e.RegisterTree(tree.RootNode(), src, unitPath)
	return nil
}

// RegisterTree registers every class found in an already-parsed tree,
// at any nesting depth. A tree carrying syntax errors is skipped
// whole, matching the all-or-nothing outcome of a failed parse.
func (e *Extractor) RegisterTree(root *sitter.Node, src []byte, unitPath string) {
	if root == nil {
		e.skip(unitPath, "empty syntax tree")
		return
	}
	if root.HasError() {
		e.skip(unitPath, "syntax errors in source")
		return
	}

	qc := sitter.NewQueryCursor()
	qc.Exec(e.query, root)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			e.registerClass(c.Node, src, unitPath)
		}
	}
}

func (e *Extractor) skip(unitPath, reason string) {
	e.skipped = append(e.skipped, Skip{UnitPath: unitPath, Reason: reason})
}

// Registry returns the registry built so far. Ownership transfers to
// the caller, read-only, once the pass is complete.
func (e *Extractor) Registry() *model.Registry {
	return e.registry
}

// Origins maps each registered class to the unit that defined it.
func (e *Extractor) Origins() model.OriginIndex {
	return e.origins
}

// Skipped lists the units excluded from the pass so far.
func (e *Extractor) Skipped() []Skip {
	return append([]Skip(nil), e.skipped...)
}
