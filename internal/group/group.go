// Package group assembles classified pages into logical documents and
// guarantees that every input page ends up in exactly one group.
package group

import (
	"fmt"
	"sort"

	"github.com/scansort/scansort/internal/batch"
)

// Consecutive merges consecutive pages sharing a category into document
// groups. The scan is greedy and order-preserving: non-contiguous runs
// of the same category become separate groups, because a physical scan
// batch interleaves unrelated documents of the same type.
func Consecutive(pages []batch.Page) []batch.DocumentGroup {
	var groups []batch.DocumentGroup

	currentCategory := ""
	var currentPages []int

	flush := func() {
		if len(currentPages) == 0 {
			return
		}
		groups = append(groups, batch.DocumentGroup{
			Category: currentCategory,
			Pages:    currentPages,
		})
		currentPages = nil
	}

	for _, p := range pages {
		category := p.Category
		if category == "" {
			category = batch.CategoryOther
		}
		if category != currentCategory {
			flush()
			currentCategory = category
		}
		currentPages = append(currentPages, p.Number)
	}
	flush()

	return groups
}

// Reconcile is the safety net: it compares the union of all group pages
// against the batch's full page set and collects any unaccounted page
// into a synthetic lost-and-found group so nothing is silently dropped.
// It also returns the numbers of the recovered pages for logging.
// Runs unconditionally after ordering and before finalization.
func Reconcile(groups []batch.DocumentGroup, allPages []int, batchLabel string) ([]batch.DocumentGroup, []int) {
	claimed := make(map[int]struct{})
	for _, g := range groups {
		for _, n := range g.Pages {
			claimed[n] = struct{}{}
		}
	}

	var lost []int
	for _, n := range allPages {
		if _, ok := claimed[n]; !ok {
			lost = append(lost, n)
		}
	}
	if len(lost) == 0 {
		return groups, nil
	}

	sort.Ints(lost)
	groups = append(groups, batch.DocumentGroup{
		Category: batch.CategoryLostAndFound,
		Pages:    lost,
		Title:    fmt.Sprintf("lost_and_found_%s", batchLabel),
	})
	return groups, lost
}

// Verify checks the no-loss/no-duplication invariant over finalized
// groups. Returns an error describing the first violation found.
func Verify(groups []batch.DocumentGroup, allPages []int) error {
	claimed := make(map[int]int) // page -> group index
	for i, g := range groups {
		for _, n := range g.Pages {
			if prev, dup := claimed[n]; dup {
				return fmt.Errorf("page %d appears in groups %d and %d", n, prev, i)
			}
			claimed[n] = i
		}
	}

	for _, n := range allPages {
		if _, ok := claimed[n]; !ok {
			return fmt.Errorf("page %d is in no group", n)
		}
	}
	if len(claimed) != len(allPages) {
		return fmt.Errorf("groups claim %d pages, batch has %d", len(claimed), len(allPages))
	}
	return nil
}
