package uitree

import "strings"

// AppPackage prefixes the app's resource ids.
const AppPackage = "com.wjthinkbig.woongjinbooks"

// Pattern picks a container node out of a tree.
type Pattern struct {
	Name  string
	Match func(*Node) bool
}

func idEquals(class, id string) func(*Node) bool {
	return func(n *Node) bool {
		return (class == "" || n.Tag == class) && n.ResourceID == id
	}
}

func idContains(part string) func(*Node) bool {
	return func(n *Node) bool { return strings.Contains(n.ResourceID, part) }
}

// GNBPatterns locate the bottom navigation bar, most specific first.
var GNBPatterns = []Pattern{
	{"LinearLayout ll_gnb", idEquals("android.widget.LinearLayout", AppPackage+":id/ll_gnb")},
	{"LinearLayout bottom_navigation", idEquals("android.widget.LinearLayout", AppPackage+":id/bottom_navigation")},
	{"ll_gnb", idEquals("", AppPackage+":id/ll_gnb")},
	{"id contains gnb", idContains("gnb")},
	{"id contains bottom", idContains("bottom")},
	{"id contains navigation", idContains("navigation")},
}

// Extraction is the result of ExtractGNB.
type Extraction struct {
	XML     string
	Pattern string // matching pattern name; empty on fallback
	Found   bool
}

// FindGNB returns the navigation bar container and the name of the pattern
// that located it, or nil when no pattern matches.
func (t *Tree) FindGNB() (*Node, string) {
	for _, p := range GNBPatterns {
		if node := t.First(p.Match); node != nil {
			return node, p.Name
		}
	}
	return nil, ""
}

// ExtractGNB returns the subtree of the first GNB pattern that matches.
// When nothing matches or the source does not parse, the full source is
// returned with Found false.
func ExtractGNB(source string) Extraction {
	tree, err := Parse(source)
	if err != nil {
		return Extraction{XML: source}
	}

	node, pattern := tree.FindGNB()
	if node == nil {
		return Extraction{XML: source}
	}
	out, err := node.XML()
	if err != nil {
		return Extraction{XML: source}
	}
	return Extraction{XML: out, Pattern: pattern, Found: true}
}
