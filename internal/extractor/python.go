package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"pyuml/internal/model"
)

// registerClass builds one ClassModel from a class_definition node and
// puts it in the registry, overwriting any prior entry with the same
// name. Attributes are merged from three sources in a fixed order:
// plain class-body assignments, annotated class-body assignments, then
// receiver assignments mined from the initializer. Later sources
// overwrite earlier ones on name collision.
func (e *Extractor) registerClass(node *sitter.Node, src []byte, unitPath string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(src)

	c := model.NewClassModel()
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		// Only bases written as simple names are kept; computed or
		// qualified base expressions are dropped from the parent list.
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			arg := supers.NamedChild(i)
			if arg.Type() == "identifier" {
				c.ParentNames = append(c.ParentNames, arg.Content(src))
			}
		}
	}

	if body := node.ChildByFieldName("body"); body != nil {
		e.collectPlainAttributes(body, src, c)
		e.collectAnnotatedAttributes(body, src, c)
		e.collectMethods(body, src, c)
	}

	e.registry.Put(name, c)
	e.origins[name] = unitPath
}

// collectPlainAttributes handles `name = value` statements directly in
// the class body. The type label comes from the literal kind of the
// right-hand side; any non-literal value yields "Any".
func (e *Extractor) collectPlainAttributes(body *sitter.Node, src []byte, c *model.ClassModel) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		assign := bodyAssignment(body.NamedChild(i))
		if assign == nil || assign.ChildByFieldName("type") != nil {
			continue
		}
		targets, rhs := unwrapAssignChain(assign)
		if rhs == nil {
			continue
		}
		label := literalLabel(rhs, src)
		for _, target := range targets {
			if target.Type() == "identifier" {
				c.Attributes.Set(target.Content(src), label)
			}
		}
	}
}

// collectAnnotatedAttributes handles `name: Type` and `name: Type = value`
// statements directly in the class body. The label is the annotation's
// source text, verbatim.
func (e *Extractor) collectAnnotatedAttributes(body *sitter.Node, src []byte, c *model.ClassModel) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		assign := bodyAssignment(body.NamedChild(i))
		if assign == nil {
			continue
		}
		typeNode := assign.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		target := assign.ChildByFieldName("left")
		if target == nil || target.Type() != "identifier" {
			continue
		}
		c.Attributes.Set(target.Content(src), typeNode.Content(src))
	}
}

// collectMethods turns every function definition directly in the class
// body into a MethodSignature, except the initializer, which is mined
// for instance attributes and never appears in the method list.
func (e *Extractor) collectMethods(body *sitter.Node, src []byte, c *model.ClassModel) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)

		fn := stmt
		decorators := []string{}
		if stmt.Type() == "decorated_definition" {
			fn = stmt.ChildByFieldName("definition")
			if fn == nil {
				continue
			}
			decorators = decoratorNames(stmt, src)
		}
		if fn.Type() != "function_definition" {
			continue
		}
		nameNode := fn.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Content(src)

		if name == "__init__" {
			e.mineInitializer(fn, src, c)
			continue
		}

		sig := model.MethodSignature{
			Name:       name,
			Params:     methodParams(fn, src),
			Decorators: decorators,
			ReturnType: model.LabelNone,
		}
		if ret := fn.ChildByFieldName("return_type"); ret != nil {
			sig.ReturnType = ret.Content(src)
		}
		c.AddMethod(sig)
	}
}

// mineInitializer records `receiver.name = value` statements in the
// initializer body as instance attributes. Unless the assignment
// carries an annotation, the label is "Any" regardless of the value:
// instance state is runtime state. Only direct statements are scanned.
func (e *Extractor) mineInitializer(fn *sitter.Node, src []byte, c *model.ClassModel) {
	receiver := firstPositionalName(fn, src)
	if receiver == "" {
		return
	}
	body := fn.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		assign := bodyAssignment(body.NamedChild(i))
		if assign == nil {
			continue
		}
		label := model.LabelAny
		if typeNode := assign.ChildByFieldName("type"); typeNode != nil {
			label = typeNode.Content(src)
		}
		targets, _ := unwrapAssignChain(assign)
		for _, target := range targets {
			if name := receiverAttribute(target, src, receiver); name != "" {
				c.Attributes.Set(name, label)
			}
		}
	}
}

// methodParams renders the positional parameters after the receiver as
// "name: type" strings. The first positional parameter is always the
// receiver and is dropped. A splat or bare * ends the positional part
// of the list; keyword-only parameters never contribute.
func methodParams(fn *sitter.Node, src []byte) []string {
	params := []string{}
	paramsNode := fn.ChildByFieldName("parameters")
	if paramsNode == nil {
		return params
	}

	positional := 0
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		p := paramsNode.NamedChild(i)

		var name, label string
		switch p.Type() {
		case "list_splat_pattern", "dictionary_splat_pattern", "keyword_separator":
			return params
		case "positional_separator":
			continue
		case "identifier":
			name, label = p.Content(src), model.LabelAny
		case "typed_parameter":
			inner := p.NamedChild(0)
			if inner == nil || inner.Type() != "identifier" {
				// typed *args / **kwargs
				return params
			}
			name, label = inner.Content(src), model.LabelAny
			if t := p.ChildByFieldName("type"); t != nil {
				label = t.Content(src)
			}
		case "default_parameter":
			n := p.ChildByFieldName("name")
			if n == nil || n.Type() != "identifier" {
				continue
			}
			name, label = n.Content(src), model.LabelAny
		case "typed_default_parameter":
			n := p.ChildByFieldName("name")
			if n == nil {
				continue
			}
			name, label = n.Content(src), model.LabelAny
			if t := p.ChildByFieldName("type"); t != nil {
				label = t.Content(src)
			}
		default:
			continue
		}

		positional++
		if positional == 1 {
			continue
		}
		params = append(params, name+": "+label)
	}
	return params
}

// firstPositionalName returns the name of the first positional
// parameter, which plays the receiver role in methods.
func firstPositionalName(fn *sitter.Node, src []byte) string {
	paramsNode := fn.ChildByFieldName("parameters")
	if paramsNode == nil {
		return ""
	}
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		p := paramsNode.NamedChild(i)
		switch p.Type() {
		case "identifier":
			return p.Content(src)
		case "typed_parameter":
			if inner := p.NamedChild(0); inner != nil && inner.Type() == "identifier" {
				return inner.Content(src)
			}
			return ""
		case "default_parameter", "typed_default_parameter":
			if n := p.ChildByFieldName("name"); n != nil && n.Type() == "identifier" {
				return n.Content(src)
			}
			return ""
		case "list_splat_pattern", "dictionary_splat_pattern", "keyword_separator":
			return ""
		case "positional_separator":
			continue
		}
	}
	return ""
}

// decoratorNames keeps decorators that are simple identifiers; calls
// and dotted decorators are ignored.
func decoratorNames(decorated *sitter.Node, src []byte) []string {
	names := []string{}
	for i := 0; i < int(decorated.NamedChildCount()); i++ {
		child := decorated.NamedChild(i)
		if child.Type() != "decorator" {
			continue
		}
		expr := child.NamedChild(0)
		if expr != nil && expr.Type() == "identifier" {
			names = append(names, expr.Content(src))
		}
	}
	return names
}

// bodyAssignment unwraps a block statement to the assignment node it
// carries, or nil when the statement is anything else.
func bodyAssignment(stmt *sitter.Node) *sitter.Node {
	if stmt == nil || stmt.Type() != "expression_statement" {
		return nil
	}
	assign := stmt.NamedChild(0)
	if assign == nil || assign.Type() != "assignment" {
		return nil
	}
	return assign
}

// unwrapAssignChain collects every assignment target through a chain
// like `a = b = value` and returns the terminal right-hand side.
func unwrapAssignChain(assign *sitter.Node) ([]*sitter.Node, *sitter.Node) {
	var targets []*sitter.Node
	cur := assign
	for {
		if left := cur.ChildByFieldName("left"); left != nil {
			targets = append(targets, left)
		}
		right := cur.ChildByFieldName("right")
		if right == nil {
			return targets, nil
		}
		if right.Type() == "assignment" {
			cur = right
			continue
		}
		return targets, right
	}
}

// receiverAttribute returns the attribute name when target is
// `receiver.name`, empty otherwise.
func receiverAttribute(target *sitter.Node, src []byte, receiver string) string {
	if target == nil || target.Type() != "attribute" {
		return ""
	}
	obj := target.ChildByFieldName("object")
	attr := target.ChildByFieldName("attribute")
	if obj == nil || attr == nil {
		return ""
	}
	if obj.Type() != "identifier" || obj.Content(src) != receiver {
		return ""
	}
	return attr.Content(src)
}

// literalLabel maps a right-hand side node to the runtime kind of the
// value it denotes. Anything that is not a literal yields "Any".
func literalLabel(node *sitter.Node, src []byte) string {
	switch node.Type() {
	case "string":
		return stringLabel(node.Content(src))
	case "concatenated_string":
		label := "str"
		for i := 0; i < int(node.NamedChildCount()); i++ {
			part := node.NamedChild(i)
			if part.Type() != "string" {
				continue
			}
			switch stringLabel(part.Content(src)) {
			case model.LabelAny:
				return model.LabelAny
			case "bytes":
				label = "bytes"
			}
		}
		return label
	case "integer":
		if hasImaginarySuffix(node.Content(src)) {
			return "complex"
		}
		return "int"
	case "float":
		if hasImaginarySuffix(node.Content(src)) {
			return "complex"
		}
		return "float"
	case "true", "false":
		return "bool"
	case "none":
		return "NoneType"
	case "ellipsis":
		return "ellipsis"
	}
	return model.LabelAny
}

// stringLabel inspects the prefix letters before the opening quote.
// A bytes prefix denotes bytes; a format prefix denotes a runtime
// value, not a constant.
func stringLabel(content string) string {
	for _, r := range content {
		switch r {
		case '"', '\'':
			return "str"
		case 'b', 'B':
			return "bytes"
		case 'f', 'F':
			return model.LabelAny
		}
	}
	return "str"
}

func hasImaginarySuffix(literal string) bool {
	return strings.HasSuffix(literal, "j") || strings.HasSuffix(literal, "J")
}
