package models

import "testing"

func TestBuildCategoryTree_SynthesizesRoot(t *testing.T) {
	categories := []*Category{
		{ID: 1, Name: "ملابس", ParentCategoryId: 0, SortOrder: 2},
		{ID: 2, Name: "أحذية", ParentCategoryId: 0, SortOrder: 1},
		{ID: 3, Name: "رجالي", ParentCategoryId: 1},
		{ID: 4, Name: "نسائي", ParentCategoryId: 1},
	}

	root := BuildCategoryTree(categories)

	if root.Category.Name != RootCategoryName {
		t.Fatalf("expected synthesized root %q, got %q", RootCategoryName, root.Category.Name)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 top-level categories, got %d", len(root.Children))
	}
	// sort order before name
	if root.Children[0].Category.ID != 2 || root.Children[1].Category.ID != 1 {
		t.Fatalf("expected أحذية before ملابس, got %d,%d",
			root.Children[0].Category.ID, root.Children[1].Category.ID)
	}

	clothes := root.Children[1]
	if len(clothes.Children) != 2 {
		t.Fatalf("expected 2 sub-categories under ملابس, got %d", len(clothes.Children))
	}
	// equal sort order falls back to name
	if clothes.Children[0].Category.Name != "رجالي" {
		t.Fatalf("expected رجالي first by name, got %q", clothes.Children[0].Category.Name)
	}
}

func TestBuildCategoryTree_OrphansAttachToRoot(t *testing.T) {
	categories := []*Category{
		{ID: 1, Name: "ملابس", ParentCategoryId: 99}, // parent row missing
	}

	root := BuildCategoryTree(categories)
	if len(root.Children) != 1 || root.Children[0].Category.ID != 1 {
		t.Fatalf("orphans must attach to the root, got %+v", root.Children)
	}
}

func TestBuildCategoryTree_Empty(t *testing.T) {
	root := BuildCategoryTree(nil)
	if root.Category.Name != RootCategoryName || len(root.Children) != 0 {
		t.Fatalf("empty input still yields a bare root, got %+v", root)
	}
}

func TestBuildCategoryTree_SelfParent(t *testing.T) {
	categories := []*Category{
		{ID: 7, Name: "عام", ParentCategoryId: 7},
	}

	root := BuildCategoryTree(categories)
	if len(root.Children) != 1 || root.Children[0].Category.ID != 7 {
		t.Fatalf("a self-parented row must fall back to the root, got %+v", root.Children)
	}
	if len(root.Children[0].Children) != 0 {
		t.Fatal("a self-parented row must not nest under itself")
	}
}
