package model

import (
	"errors"
	"fmt"
	"sort"
)

const (
	// LabelAny marks attributes and parameters with no readable type.
	LabelAny = "Any"
	// LabelNone is the return label for methods without a return annotation.
	LabelNone = "None"
)

// ErrEmptyModel is returned when an operation needs at least one class
// and the registry has none.
var ErrEmptyModel = errors.New("class model is empty")

// ShapeError reports a model that fails structural validation. It is
// raised before any serialization or rendering touches the filesystem.
type ShapeError struct {
	Class  string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Class == "" {
		return "invalid class model: " + e.Reason
	}
	return fmt.Sprintf("invalid class model for %q: %s", e.Class, e.Reason)
}

// MethodSignature describes one method of a class. Params hold
// "name: type" strings without the receiver. Decorators are
// informational only.
type MethodSignature struct {
	Name       string   `json:"name"`
	Params     []string `json:"args"`
	Decorators []string `json:"decorators"`
	ReturnType string   `json:"return_type"`
}

// ClassModel is the normalized record of one class: attributes,
// methods, and the base-class names exactly as written in source.
// ParentNames are unresolved and may point outside the scanned set.
type ClassModel struct {
	Attributes  *Attributes       `json:"attributes"`
	Methods     []MethodSignature `json:"methods"`
	ParentNames []string          `json:"parent_classes"`
}

func NewClassModel() *ClassModel {
	return &ClassModel{
		Attributes:  NewAttributes(),
		Methods:     []MethodSignature{},
		ParentNames: []string{},
	}
}

// AddMethod appends sig to the method list. A later method with the
// same name replaces the earlier one in place, keeping its position.
func (c *ClassModel) AddMethod(sig MethodSignature) {
	for i := range c.Methods {
		if c.Methods[i].Name == sig.Name {
			c.Methods[i] = sig
			return
		}
	}
	c.Methods = append(c.Methods, sig)
}

// Attributes maps attribute name to type label, preserving insertion
// order. Overwriting a name keeps its original position so repeated
// declarations do not reshuffle output.
type Attributes struct {
	names  []string
	labels map[string]string
}

func NewAttributes() *Attributes {
	return &Attributes{labels: make(map[string]string)}
}

func (a *Attributes) Set(name, label string) {
	if a.labels == nil {
		a.labels = make(map[string]string)
	}
	if _, ok := a.labels[name]; !ok {
		a.names = append(a.names, name)
	}
	a.labels[name] = label
}

func (a *Attributes) Get(name string) (string, bool) {
	label, ok := a.labels[name]
	return label, ok
}

func (a *Attributes) Names() []string {
	return append([]string(nil), a.names...)
}

func (a *Attributes) Len() int {
	return len(a.names)
}

// Registry is the class-name keyed model built by one extraction pass.
// Iteration order is insertion order; re-registering an existing name
// replaces the model but keeps the original position.
type Registry struct {
	names   []string
	classes map[string]*ClassModel
}

func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*ClassModel)}
}

func (r *Registry) Put(name string, c *ClassModel) {
	if r.classes == nil {
		r.classes = make(map[string]*ClassModel)
	}
	if _, ok := r.classes[name]; !ok {
		r.names = append(r.names, name)
	}
	r.classes[name] = c
}

func (r *Registry) Get(name string) (*ClassModel, bool) {
	c, ok := r.classes[name]
	return c, ok
}

func (r *Registry) Delete(name string) {
	if _, ok := r.classes[name]; !ok {
		return
	}
	delete(r.classes, name)
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
}

// Names returns class names in registry iteration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

func (r *Registry) Len() int {
	return len(r.names)
}

// Validate checks the structural invariants every consumer relies on:
// non-nil containers per class and named methods with non-nil
// containers. It never mutates the registry.
func (r *Registry) Validate() error {
	for _, name := range r.names {
		c := r.classes[name]
		if c == nil {
			return &ShapeError{Class: name, Reason: "class model is nil"}
		}
		if c.Attributes == nil {
			return &ShapeError{Class: name, Reason: "attributes missing"}
		}
		if c.Methods == nil {
			return &ShapeError{Class: name, Reason: "methods missing"}
		}
		if c.ParentNames == nil {
			return &ShapeError{Class: name, Reason: "parent_classes missing"}
		}
		for _, m := range c.Methods {
			if m.Name == "" {
				return &ShapeError{Class: name, Reason: "method with empty name"}
			}
			if m.Params == nil {
				return &ShapeError{Class: name, Reason: fmt.Sprintf("method %q: args missing", m.Name)}
			}
			if m.Decorators == nil {
				return &ShapeError{Class: name, Reason: fmt.Sprintf("method %q: decorators missing", m.Name)}
			}
		}
	}
	return nil
}

// OriginIndex records which source unit defined each class, keyed by
// class name. The extraction and diagram paths never read it; change
// analysis and diagnostics do.
type OriginIndex map[string]string

// ClassesIn returns the classes recorded against unitPath, sorted so
// callers get a stable order out of the map.
func (o OriginIndex) ClassesIn(unitPath string) []string {
	var out []string
	for name, path := range o {
		if path == unitPath {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
