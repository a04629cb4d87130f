package diagram

import (
	"fmt"
	"html"
	"strings"

	"pyuml/internal/model"
)

// Build renders a class registry as Graphviz DOT text: one plaintext
// node per class with an HTML table label, then one inheritance edge
// per (class, parent) pair. Output order follows registry order so the
// same registry always produces the same bytes. Edges may point at
// parents outside the registry; Graphviz renders those as implicit
// bare nodes, which is accepted.
func Build(reg *model.Registry) (string, error) {
	if reg == nil || reg.Len() == 0 {
		return "", model.ErrEmptyModel
	}
	if err := reg.Validate(); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("digraph G {\n")

	for _, name := range reg.Names() {
		c, _ := reg.Get(name)
		writeClassNode(&sb, name, c)
	}

	for _, name := range reg.Names() {
		c, _ := reg.Get(name)
		for _, parent := range c.ParentNames {
			fmt.Fprintf(&sb, "    %s -> %s [arrowhead=onormal];\n", parent, name)
		}
	}

	sb.WriteString("}\n")
	return sb.String(), nil
}

func writeClassNode(sb *strings.Builder, name string, c *model.ClassModel) {
	fmt.Fprintf(sb, "    %s [\n", name)
	sb.WriteString("        shape=plaintext\n")
	sb.WriteString("        label=<\n")
	sb.WriteString("            <table border=\"0\" cellborder=\"1\" cellspacing=\"0\">\n")
	fmt.Fprintf(sb, "                <tr><td><b>%s</b></td></tr>\n", html.EscapeString(name))

	for _, attr := range c.Attributes.Names() {
		label, _ := c.Attributes.Get(attr)
		fmt.Fprintf(sb, "                <tr><td align=\"left\">%s</td></tr>\n",
			html.EscapeString(fmt.Sprintf("- %s: %s", attr, label)))
	}

	// Parameter lists are modeled but not drawn; one row per method
	// keeps the node readable.
	for _, m := range c.Methods {
		fmt.Fprintf(sb, "                <tr><td align=\"left\">%s</td></tr>\n",
			html.EscapeString(fmt.Sprintf("+ %s(): %s", m.Name, m.ReturnType)))
	}

	sb.WriteString("            </table>\n")
	sb.WriteString("        >\n")
	sb.WriteString("    ];\n")
}
