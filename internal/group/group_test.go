package group

import (
	"reflect"
	"testing"

	"github.com/scansort/scansort/internal/batch"
)

func pagesFromCategories(categories []string) []batch.Page {
	pages := make([]batch.Page, len(categories))
	for i, c := range categories {
		pages[i] = batch.Page{Number: i + 1, Category: c}
	}
	return pages
}

func TestConsecutive(t *testing.T) {
	tests := []struct {
		name       string
		categories []string
		want       []batch.DocumentGroup
	}{
		{
			name:       "interleaved categories stay separate",
			categories: []string{"a", "a", "b", "b", "a", "other"},
			want: []batch.DocumentGroup{
				{Category: "a", Pages: []int{1, 2}},
				{Category: "b", Pages: []int{3, 4}},
				{Category: "a", Pages: []int{5}},
				{Category: "other", Pages: []int{6}},
			},
		},
		{
			name:       "single run",
			categories: []string{"x", "x", "x"},
			want:       []batch.DocumentGroup{{Category: "x", Pages: []int{1, 2, 3}}},
		},
		{
			name:       "every page distinct",
			categories: []string{"a", "b", "c"},
			want: []batch.DocumentGroup{
				{Category: "a", Pages: []int{1}},
				{Category: "b", Pages: []int{2}},
				{Category: "c", Pages: []int{3}},
			},
		},
		{
			name:       "empty stream",
			categories: nil,
			want:       nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Consecutive(pagesFromCategories(tt.categories))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Consecutive() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConsecutive_UnclassifiedPageBecomesOther(t *testing.T) {
	got := Consecutive([]batch.Page{{Number: 1, Category: ""}})
	if len(got) != 1 || got[0].Category != batch.CategoryOther {
		t.Fatalf("Consecutive() = %+v, want one other group", got)
	}
}

func TestReconcile_NoLostPages(t *testing.T) {
	groups := []batch.DocumentGroup{
		{Category: "a", Pages: []int{1, 2}},
		{Category: "b", Pages: []int{3}},
	}
	got, lost := Reconcile(groups, []int{1, 2, 3}, "batch1")
	if len(lost) != 0 {
		t.Errorf("expected no lost pages, got %v", lost)
	}
	if len(got) != 2 {
		t.Errorf("expected groups unchanged, got %d", len(got))
	}
}

func TestReconcile_CollectsLostPages(t *testing.T) {
	groups := []batch.DocumentGroup{
		{Category: "a", Pages: []int{1, 4}},
	}
	got, lost := Reconcile(groups, []int{1, 2, 3, 4}, "batch1")

	if !reflect.DeepEqual(lost, []int{2, 3}) {
		t.Fatalf("lost = %v, want [2 3]", lost)
	}
	last := got[len(got)-1]
	if last.Category != batch.CategoryLostAndFound {
		t.Errorf("synthetic group category = %q, want %q", last.Category, batch.CategoryLostAndFound)
	}
	if !reflect.DeepEqual(last.Pages, []int{2, 3}) {
		t.Errorf("synthetic group pages = %v, want [2 3]", last.Pages)
	}
	if last.Title == "" {
		t.Error("synthetic group should carry a derived title")
	}
}

func TestVerify(t *testing.T) {
	all := []int{1, 2, 3}

	if err := Verify([]batch.DocumentGroup{{Pages: []int{1, 2}}, {Pages: []int{3}}}, all); err != nil {
		t.Errorf("valid partition rejected: %v", err)
	}
	if err := Verify([]batch.DocumentGroup{{Pages: []int{1, 2}}}, all); err == nil {
		t.Error("missing page 3 not detected")
	}
	if err := Verify([]batch.DocumentGroup{{Pages: []int{1, 2}}, {Pages: []int{2, 3}}}, all); err == nil {
		t.Error("duplicated page 2 not detected")
	}
}
