package search

import (
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/search"

	"streamvault/models"
)

// MaxResults caps how many matches a single query returns.
const MaxResults = 100

// State distinguishes "no query yet" from "no matches" and from "catalog not
// ready yet".
type State int

const (
	// StateAwaitingInput is returned for an empty query.
	StateAwaitingInput State = iota
	// StateLoading is returned while no catalog has been published.
	StateLoading
	// StateResults carries the (possibly empty) match list.
	StateResults
)

// Result is the outcome of one query.
type Result struct {
	State State
	Items []models.StreamItem
}

// Index answers substring, case-folded name queries against the current
// catalog snapshot. The projection is immutable: SetCatalog swaps in a new
// copy, it never mutates in place, so queries running concurrently with a
// rebuild stay consistent.
type Index struct {
	mu    sync.RWMutex
	items []models.StreamItem
	ready bool
}

// NewIndex creates an empty, not-yet-ready index.
func NewIndex() *Index {
	return &Index{}
}

// SetCatalog replaces the searchable projection. Intended to be wired to the
// catalog synchronizer's subscription.
func (i *Index) SetCatalog(items []models.StreamItem) {
	copied := make([]models.StreamItem, len(items))
	copy(copied, items)

	i.mu.Lock()
	i.items = copied
	i.ready = true
	i.mu.Unlock()
}

// Ready reports whether a catalog has been published to the index.
func (i *Index) Ready() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.ready
}

// Query returns the items whose name contains text, case- and
// diacritic-insensitively, preserving catalog order and capped at MaxResults.
func (i *Index) Query(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{State: StateAwaitingInput}
	}

	i.mu.RLock()
	items := i.items
	ready := i.ready
	i.mu.RUnlock()

	if !ready {
		return Result{State: StateLoading}
	}

	pattern := search.New(language.Und, search.Loose).CompileString(text)

	matches := make([]models.StreamItem, 0, MaxResults)
	for _, item := range items {
		if start, _ := pattern.IndexString(item.Name); start >= 0 {
			matches = append(matches, item)
			if len(matches) >= MaxResults {
				break
			}
		}
	}
	return Result{State: StateResults, Items: matches}
}
