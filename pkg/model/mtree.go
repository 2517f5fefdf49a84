// ABOUTME: Node-labeled metadata tree
// ABOUTME: Directory-like containers with lazily mapped children

package model

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nainya/metatree/pkg/metapath"
)

// RootRecordName is the distinguished child name that anchors a dataset's
// MetadataRootRecord inside the dataset tree. A node carrying this child
// is a complete dataset boundary; tree search treats it as a non-greedy
// terminator during recursive descent.
const RootRecordName = ".dataset-root-record"

// Node kinds as encoded in mtree node blobs.
const (
	kindMTree      = "mtree"
	kindMetadata   = "metadata"
	kindRootRecord = "root-record"
)

// TreeElement is anything that can live in a metadata tree: an interior
// MTreeNode, a Metadata leaf, or a MetadataRootRecord.
type TreeElement interface {
	Mappable
}

// MTreeNode is an interior, directory-like node of a metadata tree. Its
// children are lazily mapped from the backing store.
type MTreeNode struct {
	mapped
	children map[string]TreeElement
}

// NewMTreeNode creates an empty, in-memory tree node.
func NewMTreeNode() *MTreeNode {
	return &MTreeNode{children: map[string]TreeElement{}}
}

// MTreeNodeFromRef creates an unmapped node shell backed by the store.
func MTreeNodeFromRef(store ObjectReader, ref Reference) *MTreeNode {
	return &MTreeNode{mapped: mapped{store: store, ref: ref}}
}

type childEntry struct {
	Kind      string    `json:"kind"`
	Reference Reference `json:"reference"`
}

type mtreeBlob struct {
	Children map[string]childEntry `json:"children"`
}

// EnsureMapped materializes the child table from the backing store.
// Children are created as unmapped shells; they load their own content on
// demand.
func (n *MTreeNode) EnsureMapped() (bool, error) {
	if n.IsMapped() {
		return false, nil
	}
	blob, err := n.store.GetObject(n.ref)
	if err != nil {
		return false, fmt.Errorf("mapping mtree node %s: %w", n.ref, err)
	}
	var decoded mtreeBlob
	if err := json.Unmarshal(blob, &decoded); err != nil {
		return false, fmt.Errorf("decoding mtree node %s: %w", n.ref, err)
	}

	n.children = make(map[string]TreeElement, len(decoded.Children))
	for name, entry := range decoded.Children {
		switch entry.Kind {
		case kindMTree:
			n.children[name] = MTreeNodeFromRef(n.store, entry.Reference)
		case kindMetadata:
			n.children[name] = MetadataFromRef(n.store, entry.Reference)
		case kindRootRecord:
			n.children[name] = RootRecordFromRef(n.store, entry.Reference)
		default:
			return false, fmt.Errorf(
				"decoding mtree node %s: unknown child kind %q", n.ref, entry.Kind)
		}
	}
	n.mapped.mapped = true
	return true, nil
}

// Purge releases the mapped child table.
func (n *MTreeNode) Purge() {
	if n.inMemory() {
		return
	}
	n.children = nil
	n.mapped.mapped = false
}

// HasChildren reports whether the node has any children. Requires the
// node to be mapped.
func (n *MTreeNode) HasChildren() bool {
	return len(n.children) > 0
}

// HasChild reports whether a child of the given name exists. Requires the
// node to be mapped.
func (n *MTreeNode) HasChild(name string) bool {
	_, ok := n.children[name]
	return ok
}

// Child returns the named child, or nil if absent. Requires the node to
// be mapped.
func (n *MTreeNode) Child(name string) TreeElement {
	return n.children[name]
}

// ChildNames returns all child names in sorted order. Requires the node
// to be mapped.
func (n *MTreeNode) ChildNames() []string {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddChild attaches a child to an in-memory node, replacing any existing
// child of the same name.
func (n *MTreeNode) AddChild(name string, element TreeElement) {
	if n.children == nil {
		n.children = map[string]TreeElement{}
	}
	n.children[name] = element
}

// AddChildAt attaches a leaf element at a slash-separated path below the
// node, creating intermediate in-memory nodes as needed.
func (n *MTreeNode) AddChildAt(path string, element TreeElement) {
	current := n
	segments := metapath.New(path).Segments()
	if len(segments) == 0 {
		return
	}
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current.children[segment].(*MTreeNode)
		if !ok {
			next = NewMTreeNode()
			current.AddChild(segment, next)
		}
		current = next
	}
	current.AddChild(segments[len(segments)-1], element)
}

// Write stores the node and its subtree post-order and returns the node's
// reference. The tree must be fully mapped.
func (n *MTreeNode) Write(store ObjectWriter) (Reference, error) {
	entries := make(map[string]childEntry, len(n.children))
	for name, child := range n.children {
		var (
			kind string
			ref  Reference
			err  error
		)
		switch element := child.(type) {
		case *MTreeNode:
			kind = kindMTree
			ref, err = element.Write(store)
		case *Metadata:
			kind = kindMetadata
			ref, err = element.Write(store)
		case *MetadataRootRecord:
			kind = kindRootRecord
			ref, err = element.Write(store)
		default:
			err = fmt.Errorf("unsupported tree element %T", child)
		}
		if err != nil {
			return "", fmt.Errorf("writing child %q: %w", name, err)
		}
		entries[name] = childEntry{Kind: kind, Reference: ref}
	}

	blob, err := json.Marshal(mtreeBlob{Children: entries})
	if err != nil {
		return "", fmt.Errorf("encoding mtree node: %w", err)
	}
	return store.PutObject(blob)
}
