// ABOUTME: Tests for tree pattern search
// ABOUTME: Wildcards, recursion, item boundaries and literal misses

package search

import (
	"testing"

	"github.com/google/uuid"

	"github.com/nainya/metatree/pkg/metapath"
	"github.com/nainya/metatree/pkg/model"
)

// buildFileTree returns a plain metadata tree:
//
//	a/b/f1  (metadata)
//	a/b/f2  (metadata)
//	a/c/f3  (metadata)
//	d/f4    (metadata)
func buildFileTree() *model.MTreeNode {
	tree := model.NewMTreeNode()
	tree.AddChildAt("a/b/f1", model.NewMetadata())
	tree.AddChildAt("a/b/f2", model.NewMetadata())
	tree.AddChildAt("a/c/f3", model.NewMetadata())
	tree.AddChildAt("d/f4", model.NewMetadata())
	return tree
}

// buildDatasetTree returns a dataset tree with root records at the tree
// root, at d1/d1.1 and at d2. d1 itself is plain structure.
func buildDatasetTree() *model.MTreeNode {
	record := func(n byte) *model.MetadataRootRecord {
		id := uuid.UUID{15: n}
		return model.NewMetadataRootRecord(id, "v1", nil, nil)
	}

	tree := model.NewMTreeNode()
	tree.AddChild(model.RootRecordName, record(1))
	tree.AddChildAt("d1/d1.1/"+model.RootRecordName, record(2))
	tree.AddChildAt("d2/"+model.RootRecordName, record(3))
	return tree
}

func collect(
	t *testing.T, tree *model.MTreeNode,
	pattern string, recursive bool, indicator string,
) []Result {
	t.Helper()
	var results []Result
	err := New(tree).Pattern(
		metapath.New(pattern), recursive, indicator,
		func(result Result) bool {
			results = append(results, result)
			return true
		})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	return results
}

func paths(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, result := range results {
		out = append(out, result.Path.String())
	}
	return out
}

func expectPaths(t *testing.T, results []Result, want ...string) {
	t.Helper()
	got := paths(results)
	if len(got) != len(want) {
		t.Fatalf("Expected paths %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected paths %v, got %v", want, got)
		}
	}
}

func TestLiteralMatch(t *testing.T) {
	results := collect(t, buildFileTree(), "a/b/f1", false, "")
	expectPaths(t, results, "a/b/f1")

	if _, ok := results[0].Element.(*model.Metadata); !ok {
		t.Errorf("Expected metadata element, got %T", results[0].Element)
	}
}

func TestLiteralMissIsSilent(t *testing.T) {
	results := collect(t, buildFileTree(), "a/nope/f1", false, "")
	if len(results) != 0 {
		t.Errorf("Expected no results, got %v", paths(results))
	}
}

func TestWildcardMatchesSiblingsInSortedOrder(t *testing.T) {
	results := collect(t, buildFileTree(), "a/*/*", false, "")
	expectPaths(t, results, "a/b/f1", "a/b/f2", "a/c/f3")
}

func TestEmptyPatternMatchesRoot(t *testing.T) {
	results := collect(t, buildFileTree(), "", false, "")
	expectPaths(t, results, "")
}

func TestRecursiveDescent(t *testing.T) {
	results := collect(t, buildFileTree(), "a", true, "")
	expectPaths(t, results, "a", "a/b", "a/b/f1", "a/b/f2", "a/c", "a/c/f3")
}

func TestInteriorNodesAreReported(t *testing.T) {
	// The caller distinguishes structural nodes from metadata by type.
	results := collect(t, buildFileTree(), "a/b", false, "")
	expectPaths(t, results, "a/b")
	if _, ok := results[0].Element.(*model.MTreeNode); !ok {
		t.Errorf("Expected tree node element, got %T", results[0].Element)
	}
}

func TestItemModeReportsOnlyDatasets(t *testing.T) {
	results := collect(t, buildDatasetTree(), "*", false, model.RootRecordName)
	// The root is an item and is always eligible; "d1" matches the
	// pattern but carries no root record.
	expectPaths(t, results, "", "d2")
}

func TestItemModeEmptyPatternMatchesRootDataset(t *testing.T) {
	results := collect(t, buildDatasetTree(), "", false, model.RootRecordName)
	expectPaths(t, results, "")
}

func TestItemModeReportsRemainingPattern(t *testing.T) {
	// The first segments address datasets; the leftovers address content
	// inside the matched dataset.
	results := collect(
		t, buildDatasetTree(), "d2/sub/file", false, model.RootRecordName)
	expectPaths(t, results, "", "d2")
	if results[0].Remaining != "d2/sub/file" {
		t.Errorf("Expected full pattern remaining at root, got %q", results[0].Remaining)
	}
	if results[1].Remaining != "sub/file" {
		t.Errorf("Expected remaining 'sub/file', got %q", results[1].Remaining)
	}
}

func TestItemModeRecursiveFindsNestedDatasets(t *testing.T) {
	results := collect(t, buildDatasetTree(), "", true, model.RootRecordName)
	expectPaths(t, results, "", "d1/d1.1", "d2")
}

func TestItemModeSkipsIndicatorChild(t *testing.T) {
	// The indicator child is dataset payload, not tree structure.
	results := collect(
		t, buildDatasetTree(), model.RootRecordName, false, model.RootRecordName)
	expectPaths(t, results, "")
}

func TestEarlyTermination(t *testing.T) {
	count := 0
	err := New(buildFileTree()).Pattern(
		metapath.New("a/*/*"), false, "",
		func(Result) bool {
			count++
			return false
		})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected walk to stop after first result, got %d", count)
	}
}
