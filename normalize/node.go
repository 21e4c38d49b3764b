// Package normalize turns loosely structured ONVIF SOAP responses into typed records.
//
// Cameras disagree about namespace prefixes, about whether a repeated element is sent once or
// many times, and about whether a value is a child element or an attribute. Node hides those
// differences: every lookup matches local names case-insensitively and every accessor is safe on a
// missing node.
package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/viam-modules/onvifcore/xsd"
)

// ErrMissingResponse means the body parsed as XML but did not contain the expected response element.
var ErrMissingResponse = errors.New("response element not found")

// Node is a read-only view of an XML element. A nil *Node is valid and behaves as an empty element.
type Node struct {
	el *etree.Element
}

// Parse reads body into a Node tree rooted at the document element.
func Parse(body []byte) (*Node, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("failed to parse xml: %w", err)
	}
	if doc.Root() == nil {
		return nil, errors.New("failed to parse xml: empty document")
	}
	return &Node{el: doc.Root()}, nil
}

// Response parses body and returns the first element named name, wherever it sits.
func Response(body []byte, name string) (*Node, error) {
	root, err := Parse(body)
	if err != nil {
		return nil, err
	}
	resp := root.Descendant(name)
	if resp == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingResponse, name)
	}
	return resp, nil
}

func wrap(el *etree.Element) *Node {
	if el == nil {
		return nil
	}
	return &Node{el: el}
}

// Name returns the local name of the element.
func (n *Node) Name() string {
	if n == nil {
		return ""
	}
	return n.el.Tag
}

// Text returns the trimmed character data of the element.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.el.Text())
}

// Children returns the child elements in document order.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	children := n.el.ChildElements()
	out := make([]*Node, 0, len(children))
	for _, c := range children {
		out = append(out, wrap(c))
	}
	return out
}

// Child returns the first child element with the given local name.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.el.ChildElements() {
		if strings.EqualFold(c.Tag, name) {
			return wrap(c)
		}
	}
	return nil
}

// Find descends through path, taking the first match at every level.
func (n *Node) Find(path ...string) *Node {
	cur := n
	for _, name := range path {
		cur = cur.Child(name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// All returns every element matching path. Intermediate levels may also repeat, so a list that a
// camera sends as a single element and one it sends many times read the same way.
func (n *Node) All(path ...string) []*Node {
	if n == nil {
		return nil
	}
	if len(path) == 0 {
		return []*Node{n}
	}
	var out []*Node
	for _, c := range n.el.ChildElements() {
		if strings.EqualFold(c.Tag, path[0]) {
			out = append(out, wrap(c).All(path[1:]...)...)
		}
	}
	return out
}

// Descendant returns the first element named name in a depth-first walk, including n itself.
func (n *Node) Descendant(name string) *Node {
	if n == nil {
		return nil
	}
	if strings.EqualFold(n.el.Tag, name) {
		return n
	}
	for _, c := range n.el.ChildElements() {
		if found := wrap(c).Descendant(name); found != nil {
			return found
		}
	}
	return nil
}

// Attr returns the attribute with the given local name.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		if strings.EqualFold(a.Key, name) {
			return strings.TrimSpace(a.Value), true
		}
	}
	return "", false
}

// Attrs returns every non-namespace attribute keyed by local name.
func (n *Node) Attrs() map[string]string {
	if n == nil {
		return nil
	}
	out := map[string]string{}
	for _, a := range n.el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		out[a.Key] = strings.TrimSpace(a.Value)
	}
	return out
}

// Value returns the text of the child named name, or the attribute of that name when there is no
// such child.
func (n *Node) Value(name string) string {
	if c := n.Child(name); c != nil {
		return c.Text()
	}
	v, _ := n.Attr(name)
	return v
}

// Has reports whether n carries name as a child or as an attribute.
func (n *Node) Has(name string) bool {
	if n.Child(name) != nil {
		return true
	}
	_, ok := n.Attr(name)
	return ok
}

// Bool reads Value(name) as an xs:boolean. Anything unparseable is false.
func (n *Node) Bool(name string) bool {
	v, _ := xsd.ParseBool(n.Value(name))
	return v
}

// Int reads Value(name) as an integer, returning 0 when it is missing or malformed.
func (n *Node) Int(name string) int {
	v, err := strconv.Atoi(n.Value(name))
	if err != nil {
		return 0
	}
	return v
}

// Float reads Value(name) as a float, returning 0 when it is missing or malformed.
func (n *Node) Float(name string) float64 {
	v, err := strconv.ParseFloat(n.Value(name), 64)
	if err != nil {
		return 0
	}
	return v
}

// XAddr returns the service address carried by n. Cameras send it as the element's own text, as an
// XAddr child, or as an XAddr attribute.
func (n *Node) XAddr() string {
	if n == nil {
		return ""
	}
	if strings.EqualFold(n.el.Tag, "XAddr") {
		return n.Text()
	}
	if v := n.Value("XAddr"); v != "" {
		return v
	}
	if len(n.el.ChildElements()) == 0 {
		if t := n.Text(); looksLikeURL(t) {
			return t
		}
	}
	return ""
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "/")
}

// Texts returns the trimmed, non-empty text of every element matching path.
func (n *Node) Texts(path ...string) []string {
	var out []string
	for _, c := range n.All(path...) {
		if t := c.Text(); t != "" {
			out = append(out, t)
		}
	}
	return out
}
