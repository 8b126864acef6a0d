// Package uitree parses UiAutomator2 hierarchy XML into typed nodes.
package uitree

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/devicelab-dev/appcheck/pkg/core"
)

// Node is one element of the UI hierarchy.
type Node struct {
	Tag         string // element name, e.g. android.widget.ImageView
	Class       string
	Text        string
	ResourceID  string
	ContentDesc string
	Bounds      core.Bounds
	BoundsRaw   string
	Enabled     bool
	Displayed   bool
	Clickable   bool
	Depth       int

	Attrs    []xml.Attr
	Children []*Node
	Parent   *Node
}

// Tree is a parsed UI snapshot. Nodes is in document order.
type Tree struct {
	Roots []*Node
	Nodes []*Node
}

// Parse decodes an Android hierarchy document.
func Parse(source string) (*Tree, error) {
	decoder := xml.NewDecoder(strings.NewReader(source))

	tree := &Tree{}
	var stack []*Node
	foundHierarchy := false

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse ui tree: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "hierarchy" && len(stack) == 0 {
				foundHierarchy = true
				continue
			}

			node := newNode(t)
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				node.Parent = parent
				node.Depth = parent.Depth + 1
				parent.Children = append(parent.Children, node)
			} else {
				tree.Roots = append(tree.Roots, node)
			}
			tree.Nodes = append(tree.Nodes, node)
			stack = append(stack, node)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if !foundHierarchy {
		return nil, fmt.Errorf("invalid page source: no hierarchy element found")
	}
	return tree, nil
}

func newNode(t xml.StartElement) *Node {
	node := &Node{
		Tag:       t.Name.Local,
		Class:     t.Name.Local,
		Displayed: true,
		Attrs:     append([]xml.Attr(nil), t.Attr...),
	}

	for _, attr := range t.Attr {
		switch attr.Name.Local {
		case "text":
			node.Text = attr.Value
		case "resource-id":
			node.ResourceID = attr.Value
		case "content-desc":
			node.ContentDesc = attr.Value
		case "class":
			node.Class = attr.Value
		case "bounds":
			node.BoundsRaw = attr.Value
			node.Bounds = ParseBounds(attr.Value)
		case "enabled":
			node.Enabled = attr.Value == "true"
		case "displayed":
			node.Displayed = attr.Value != "false"
		case "clickable":
			node.Clickable = attr.Value == "true"
		}
	}
	return node
}

// ParseBounds parses Android bounds string "[x1,y1][x2,y2]".
func ParseBounds(s string) core.Bounds {
	s = strings.ReplaceAll(s, "][", ",")
	s = strings.Trim(s, "[]")
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return core.Bounds{}
	}

	x1, _ := strconv.Atoi(parts[0])
	y1, _ := strconv.Atoi(parts[1])
	x2, _ := strconv.Atoi(parts[2])
	y2, _ := strconv.Atoi(parts[3])

	return core.Bounds{
		X:      x1,
		Y:      y1,
		Width:  x2 - x1,
		Height: y2 - y1,
	}
}

// Attr returns the raw value of an attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Find returns every node matching pred, in document order.
func (t *Tree) Find(pred func(*Node) bool) []*Node {
	var out []*Node
	for _, n := range t.Nodes {
		if pred(n) {
			out = append(out, n)
		}
	}
	return out
}

// First returns the first node matching pred, or nil.
func (t *Tree) First(pred func(*Node) bool) *Node {
	for _, n := range t.Nodes {
		if pred(n) {
			return n
		}
	}
	return nil
}

// Labeled returns nodes carrying a resource id, text or content-desc.
func (t *Tree) Labeled() []*Node {
	return t.Find(func(n *Node) bool {
		return n.ResourceID != "" || n.Text != "" || n.ContentDesc != ""
	})
}

// WithText returns nodes with non-empty text.
func (t *Tree) WithText() []*Node {
	return t.Find(func(n *Node) bool { return n.Text != "" })
}

// WithContentDesc returns nodes with a non-empty content-desc.
func (t *Tree) WithContentDesc() []*Node {
	return t.Find(func(n *Node) bool { return n.ContentDesc != "" })
}

// Descendants returns every node below n in document order.
func (n *Node) Descendants() []*Node {
	var out []*Node
	for _, c := range n.Children {
		out = append(out, c)
		out = append(out, c.Descendants()...)
	}
	return out
}

// XML serializes the node and its subtree.
func (n *Node) XML() (string, error) {
	var sb strings.Builder
	enc := xml.NewEncoder(&sb)
	if err := n.encode(enc); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (n *Node) encode(enc *xml.Encoder) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Tag}, Attr: n.Attrs}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, child := range n.Children {
		if err := child.encode(enc); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}
