package production

import (
	"bytes"
	"fmt"

	"github.com/comalice/attributex"
)

// Edge is a dependency between two graph nodes.
type Edge struct {
	From  string
	To    string
	Label string
}

// DOTVisualizer renders a container's attributes and rule dependencies as
// Graphviz DOT.
type DOTVisualizer struct{}

// ExportDOT returns DOT source for c. Attributes of c are boxes labelled with
// their current and base values; foreign attributes and binding targets are
// dashed. Edges point in the direction values flow.
func (v *DOTVisualizer) ExportDOT(c *attributex.Container) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", c.Class())
	buf.WriteString(`  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)

	own := make(map[string]bool)
	for _, attr := range c.Attributes() {
		own[attr.Name] = true
		fmt.Fprintf(&buf, "  %q [label=\"%s\\n%g (base %g)\"];\n",
			attr.Name, attr.Name, c.GetValue(attr), c.GetBaseValue(attr))
	}

	edges := CollectEdges(c)
	external := make(map[string]bool)
	for _, e := range edges {
		for _, id := range []string{e.From, e.To} {
			if !own[id] && !external[id] {
				external[id] = true
				fmt.Fprintf(&buf, "  %q [style=dashed];\n", id)
			}
		}
	}
	for _, e := range edges {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, e.Label)
	}
	buf.WriteString("}\n")
	return buf.String()
}

// CollectEdges lists the dependencies introduced by c's rules, in rule order.
func CollectEdges(c *attributex.Container) []Edge {
	var edges []Edge
	for i, rule := range c.Rules() {
		switch r := rule.(type) {
		case *attributex.ClampRule:
			if dep, ok := r.MinValue.DependsOn(); ok {
				edges = append(edges, Edge{From: nodeID(c, dep), To: nodeID(c, r.Attribute), Label: "clamp min"})
			}
			if dep, ok := r.MaxValue.DependsOn(); ok {
				edges = append(edges, Edge{From: nodeID(c, dep), To: nodeID(c, r.Attribute), Label: "clamp max"})
			}
		case *attributex.BindingRule:
			edges = append(edges, Edge{From: nodeID(c, r.Attribute), To: r.Target(), Label: "binding"})
		case *attributex.ScriptRule:
			for _, attr := range c.Attributes() {
				if r.Subscribed(attr) != (attributex.ScriptEvents{}) {
					edges = append(edges, Edge{From: nodeID(c, attr), To: fmt.Sprintf("script#%d", i), Label: "script"})
				}
			}
		case *PublisherRule:
			for _, attr := range r.Attributes {
				edges = append(edges, Edge{From: nodeID(c, attr), To: fmt.Sprintf("publisher#%d", i), Label: "publish"})
			}
		}
	}
	return edges
}

func nodeID(c *attributex.Container, attr attributex.Attribute) string {
	if attr.ClassPath == c.Class() {
		return attr.Name
	}
	return attr.String()
}
