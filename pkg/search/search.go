// ABOUTME: Pattern search over metadata trees
// ABOUTME: Segment wildcards, recursive descent, item-boundary handling

package search

import (
	"github.com/nainya/metatree/pkg/metapath"
	"github.com/nainya/metatree/pkg/model"
)

// Result is one match produced by a pattern search.
//
// Element is the tree element found at Path. An interior *model.MTreeNode
// marks a path that matched structurally but carries no metadata payload
// of its own; callers must distinguish that from "no match", which
// produces no result at all. Remaining holds pattern segments that were
// not consumed because an item boundary terminated the walk early; those
// segments address content inside the item, not further tree structure.
type Result struct {
	Path      metapath.Path
	Element   model.TreeElement
	Remaining metapath.Path
}

// Search enumerates elements of a metadata tree that match a path
// pattern. Pattern segments are literal names or the single-segment
// wildcard "*"; the parser never expands wildcards, matching happens
// here.
type Search struct {
	root *model.MTreeNode
}

// New creates a search over the given tree root.
func New(root *model.MTreeNode) *Search {
	return &Search{root: root}
}

// Pattern walks the tree along the pattern and calls fn for every match,
// in depth-first order with children visited in sorted name order. fn
// returning false stops the walk. With recursive set, every element below
// a match is reported as well.
//
// A non-empty itemIndicator names the distinguished child that marks a
// complete item (a dataset boundary): only nodes carrying that child are
// reported, they are reported even while pattern segments remain (the
// leftover segments are returned as Result.Remaining), and recursion does
// not cross an item boundary unless it was requested explicitly.
//
// Literal segments that match no child are skipped silently; the caller's
// zero-result check drives any reporting.
func (s *Search) Pattern(
	pattern metapath.Path,
	recursive bool,
	itemIndicator string,
	fn func(Result) bool,
) error {
	w := &walker{
		recursive: recursive,
		indicator: itemIndicator,
		fn:        fn,
	}
	_, err := w.visit(s.root, "", pattern.Segments())
	return err
}

type walker struct {
	recursive bool
	indicator string
	fn        func(Result) bool
}

// visit returns false when the consumer stopped the walk.
func (w *walker) visit(
	element model.TreeElement,
	path metapath.Path,
	pattern []string,
) (bool, error) {
	node, isNode := element.(*model.MTreeNode)
	if isNode {
		handle, err := model.Acquire(node)
		if err != nil {
			return false, err
		}
		defer handle.Release()
	}

	if w.indicator != "" {
		return w.visitItemMode(element, node, isNode, path, pattern)
	}
	return w.visitPlainMode(element, node, isNode, path, pattern)
}

// visitItemMode reports only nodes that carry the item indicator child.
func (w *walker) visitItemMode(
	element model.TreeElement,
	node *model.MTreeNode,
	isNode bool,
	path metapath.Path,
	pattern []string,
) (bool, error) {
	if isNode && node.HasChild(w.indicator) {
		result := Result{
			Path:      path,
			Element:   element,
			Remaining: metapath.FromSegments(pattern...),
		}
		if !w.fn(result) {
			return false, nil
		}
	}

	if len(pattern) == 0 {
		if !w.recursive || !isNode {
			return true, nil
		}
		return w.descendAll(node, path, nil)
	}
	return w.descendPattern(node, isNode, path, pattern)
}

// visitPlainMode reports every element at which the pattern is exhausted.
func (w *walker) visitPlainMode(
	element model.TreeElement,
	node *model.MTreeNode,
	isNode bool,
	path metapath.Path,
	pattern []string,
) (bool, error) {
	if len(pattern) == 0 {
		if !w.fn(Result{Path: path, Element: element}) {
			return false, nil
		}
		if !w.recursive || !isNode {
			return true, nil
		}
		return w.descendAll(node, path, nil)
	}
	return w.descendPattern(node, isNode, path, pattern)
}

// descendPattern consumes the first pattern segment. A literal segment
// without a matching child yields nothing for this branch.
func (w *walker) descendPattern(
	node *model.MTreeNode,
	isNode bool,
	path metapath.Path,
	pattern []string,
) (bool, error) {
	if !isNode {
		return true, nil
	}

	first, rest := pattern[0], pattern[1:]
	if first == metapath.Wildcard {
		return w.forEachChild(node, func(name string, child model.TreeElement) (bool, error) {
			return w.visit(child, path.JoinSegment(name), rest)
		})
	}

	if first == w.indicator && w.indicator != "" {
		// The indicator child is an item's payload, not tree structure.
		return true, nil
	}
	if !node.HasChild(first) {
		return true, nil
	}
	return w.visit(node.Child(first), path.JoinSegment(first), rest)
}

// descendAll recursively visits every child with an exhausted pattern.
func (w *walker) descendAll(
	node *model.MTreeNode,
	path metapath.Path,
	pattern []string,
) (bool, error) {
	return w.forEachChild(node, func(name string, child model.TreeElement) (bool, error) {
		return w.visit(child, path.JoinSegment(name), pattern)
	})
}

func (w *walker) forEachChild(
	node *model.MTreeNode,
	visit func(name string, child model.TreeElement) (bool, error),
) (bool, error) {
	for _, name := range node.ChildNames() {
		if w.indicator != "" && name == w.indicator {
			continue
		}
		keepGoing, err := visit(name, node.Child(name))
		if err != nil || !keepGoing {
			return keepGoing, err
		}
	}
	return true, nil
}
