// Package document provides an in-memory node tree and layout engine used
// by the headless runner and tests in place of a real rendering engine.
package document

import (
	"fmt"
	"strings"

	"github.com/entrhq/pageview/pkg/geom"
)

// NodeID is an opaque handle to a node in a Tree. The zero value is never
// assigned to a node.
type NodeID int

// NodeKind classifies a node for block zoom decisions.
type NodeKind int

const (
	KindBlock NodeKind = iota
	KindImage
	KindInput
	KindTextArea
	KindText
)

var kindNames = map[NodeKind]string{
	KindBlock:    "block",
	KindImage:    "image",
	KindInput:    "input",
	KindTextArea: "textarea",
	KindText:     "text",
}

func (k NodeKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseNodeKind returns the kind with the given name. An empty name is a block.
func ParseNodeKind(name string) (NodeKind, error) {
	if name == "" {
		return KindBlock, nil
	}
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, nil
		}
	}
	return KindBlock, fmt.Errorf("unknown node kind: %q", name)
}

type node struct {
	kind     NodeKind
	rect     geom.Rect
	parent   NodeID
	children []NodeID
}

// Tree is a rooted tree of rectangles in document coordinates.
type Tree struct {
	nodes map[NodeID]*node
	root  NodeID
	next  NodeID
}

// NewTree creates a tree whose root covers rootRect.
func NewTree(rootRect geom.Rect) *Tree {
	t := &Tree{nodes: make(map[NodeID]*node), next: 1}
	t.root = t.alloc(&node{kind: KindBlock, rect: rootRect})
	return t
}

func (t *Tree) alloc(n *node) NodeID {
	id := t.next
	t.next++
	t.nodes[id] = n
	return id
}

// Root returns the root node.
func (t *Tree) Root() NodeID { return t.root }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Add appends a child to parent.
func (t *Tree) Add(parent NodeID, kind NodeKind, rect geom.Rect) (NodeID, error) {
	p, ok := t.nodes[parent]
	if !ok {
		return 0, fmt.Errorf("parent node %d not found", parent)
	}
	id := t.alloc(&node{kind: kind, rect: rect, parent: parent})
	p.children = append(p.children, id)
	return id, nil
}

// SetRect moves or resizes a node.
func (t *Tree) SetRect(id NodeID, rect geom.Rect) {
	if n, ok := t.nodes[id]; ok {
		n.rect = rect
	}
}

// NodeAt returns the deepest node containing p. Later siblings win over
// earlier ones, matching paint order.
func (t *Tree) NodeAt(p geom.Point) (NodeID, bool) {
	root := t.nodes[t.root]
	if root == nil || !root.rect.Contains(p) {
		return 0, false
	}
	id := t.root
	for {
		next, found := NodeID(0), false
		children := t.nodes[id].children
		for i := len(children) - 1; i >= 0; i-- {
			if t.nodes[children[i]].rect.Contains(p) {
				next, found = children[i], true
				break
			}
		}
		if !found {
			return id, true
		}
		id = next
	}
}

// Parent returns the parent of id. The root has none.
func (t *Tree) Parent(id NodeID) (NodeID, bool) {
	n, ok := t.nodes[id]
	if !ok || n.parent == 0 {
		return 0, false
	}
	return n.parent, true
}

// Children returns the children of id in document order.
func (t *Tree) Children(id NodeID) []NodeID {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	return append([]NodeID(nil), n.children...)
}

// Rect returns the bounding rect of id, or the zero Rect.
func (t *Tree) Rect(id NodeID) geom.Rect {
	if n, ok := t.nodes[id]; ok {
		return n.rect
	}
	return geom.Rect{}
}

// Kind returns the kind of id.
func (t *Tree) Kind(id NodeID) NodeKind {
	if n, ok := t.nodes[id]; ok {
		return n.kind
	}
	return KindBlock
}

// IsDescendantOf reports whether id is ancestor or lies below it.
func (t *Tree) IsDescendantOf(id, ancestor NodeID) bool {
	for cur, ok := id, true; ok; cur, ok = t.Parent(cur) {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// NodeSpec describes a subtree for Build.
type NodeSpec struct {
	Name     string     `yaml:"name,omitempty" json:"name,omitempty"`
	Kind     string     `yaml:"kind,omitempty" json:"kind,omitempty"`
	Rect     geom.Rect  `yaml:"rect" json:"rect"`
	Children []NodeSpec `yaml:"children,omitempty" json:"children,omitempty"`
}

// Build creates a tree from spec. Named nodes are returned by name.
func Build(spec NodeSpec) (*Tree, map[string]NodeID, error) {
	kind, err := ParseNodeKind(spec.Kind)
	if err != nil {
		return nil, nil, err
	}
	t := NewTree(spec.Rect)
	t.nodes[t.root].kind = kind

	names := make(map[string]NodeID)
	if spec.Name != "" {
		names[spec.Name] = t.root
	}
	if err := t.build(t.root, spec.Children, names); err != nil {
		return nil, nil, err
	}
	return t, names, nil
}

func (t *Tree) build(parent NodeID, specs []NodeSpec, names map[string]NodeID) error {
	for _, s := range specs {
		kind, err := ParseNodeKind(s.Kind)
		if err != nil {
			return err
		}
		id, err := t.Add(parent, kind, s.Rect)
		if err != nil {
			return err
		}
		if s.Name != "" {
			if _, dup := names[s.Name]; dup {
				return fmt.Errorf("duplicate node name: %q", s.Name)
			}
			names[s.Name] = id
		}
		if err := t.build(id, s.Children, names); err != nil {
			return err
		}
	}
	return nil
}
