package search

import (
	"fmt"
	"testing"

	"streamvault/models"
)

func testCatalog() []models.StreamItem {
	return []models.StreamItem{
		{ID: 1, Name: "Matrix", Kind: models.KindVOD},
		{ID: 2, Name: "The Matrix Reloaded", Kind: models.KindVOD},
		{ID: 3, Name: "Inception", Kind: models.KindVOD},
	}
}

func TestQuery_CaseInsensitiveSubstring(t *testing.T) {
	idx := NewIndex()
	idx.SetCatalog(testCatalog())

	res := idx.Query("matrix")
	if res.State != StateResults {
		t.Fatalf("expected results state, got %v", res.State)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(res.Items))
	}
	// Catalog order is preserved.
	if res.Items[0].Name != "Matrix" || res.Items[1].Name != "The Matrix Reloaded" {
		t.Errorf("unexpected order: %q, %q", res.Items[0].Name, res.Items[1].Name)
	}
}

func TestQuery_NoMatches(t *testing.T) {
	idx := NewIndex()
	idx.SetCatalog(testCatalog())

	res := idx.Query("westworld")
	if res.State != StateResults {
		t.Fatalf("expected results state, got %v", res.State)
	}
	if len(res.Items) != 0 {
		t.Errorf("expected no matches, got %d", len(res.Items))
	}
}

func TestQuery_EmptyIsAwaitingInput(t *testing.T) {
	idx := NewIndex()
	idx.SetCatalog(testCatalog())

	for _, q := range []string{"", "   "} {
		res := idx.Query(q)
		if res.State != StateAwaitingInput {
			t.Errorf("query %q: expected awaiting-input state, got %v", q, res.State)
		}
	}
}

func TestQuery_LoadingBeforeCatalog(t *testing.T) {
	idx := NewIndex()

	res := idx.Query("matrix")
	if res.State != StateLoading {
		t.Errorf("expected loading state before any catalog, got %v", res.State)
	}
}

func TestQuery_CapsResults(t *testing.T) {
	var items []models.StreamItem
	for i := 0; i < MaxResults+50; i++ {
		items = append(items, models.StreamItem{ID: i + 1, Name: fmt.Sprintf("Movie %d", i), Kind: models.KindVOD})
	}
	idx := NewIndex()
	idx.SetCatalog(items)

	res := idx.Query("movie")
	if len(res.Items) != MaxResults {
		t.Errorf("expected %d results, got %d", MaxResults, len(res.Items))
	}
}

func TestQuery_DiacriticInsensitive(t *testing.T) {
	idx := NewIndex()
	idx.SetCatalog([]models.StreamItem{
		{ID: 1, Name: "Amélie", Kind: models.KindVOD},
	})

	res := idx.Query("amelie")
	if len(res.Items) != 1 {
		t.Errorf("expected diacritic-insensitive match, got %d results", len(res.Items))
	}
}

func TestSetCatalog_ReplacesProjection(t *testing.T) {
	idx := NewIndex()
	idx.SetCatalog(testCatalog())
	idx.SetCatalog([]models.StreamItem{{ID: 9, Name: "Solaris", Kind: models.KindVOD}})

	if res := idx.Query("matrix"); len(res.Items) != 0 {
		t.Error("old catalog entries still visible after rebuild")
	}
	if res := idx.Query("solaris"); len(res.Items) != 1 {
		t.Error("new catalog entries not visible after rebuild")
	}
}

func TestSetCatalog_CallerMutationDoesNotLeak(t *testing.T) {
	items := testCatalog()
	idx := NewIndex()
	idx.SetCatalog(items)

	items[0].Name = "Mutated"

	if res := idx.Query("matrix"); len(res.Items) != 2 {
		t.Error("index shares backing storage with the caller's slice")
	}
}
