package catalog

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"streamvault/internal/database"
	"streamvault/models"
	"streamvault/services/xtream"
)

// LocalWindowPerKind bounds the cold-start read of the local store.
const LocalWindowPerKind = 2000

// Options tune the synchronizer.
type Options struct {
	// IncludeLive also pulls live channels during a refresh.
	IncludeLive bool
	// LocalWindow overrides the per-kind cold-start window.
	LocalWindow int
}

// Service merges the persisted local catalog with live API refreshes into a
// single published snapshot. The snapshot is copy-on-rebuild: readers always
// see a complete, immutable slice.
type Service struct {
	client *xtream.Client
	repo   *database.CatalogRepository
	opts   Options

	mu         sync.RWMutex
	snapshot   []models.StreamItem
	loaded     bool
	remoteSeen bool

	subMu       sync.Mutex
	subscribers []func([]models.StreamItem)
}

// NewService creates a catalog synchronizer.
func NewService(client *xtream.Client, repo *database.CatalogRepository, opts Options) *Service {
	if opts.LocalWindow <= 0 {
		opts.LocalWindow = LocalWindowPerKind
	}
	return &Service{client: client, repo: repo, opts: opts}
}

// Subscribe registers a callback invoked with every newly published snapshot.
// Callbacks run on the publishing goroutine and must not block.
func (s *Service) Subscribe(fn func([]models.StreamItem)) {
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.subMu.Unlock()
}

// Snapshot returns the current catalog and whether anything has been
// published yet.
func (s *Service) Snapshot() ([]models.StreamItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.loaded
}

// Start publishes the locally persisted catalog immediately and refreshes
// from the remote API concurrently. The two publishes are independent: the
// local one never waits on the network.
func (s *Service) Start(ctx context.Context, sess models.Session) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.LoadLocal(); err != nil {
			log.Printf("[catalog] local load failed: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Refresh(ctx, sess); err != nil {
			log.Printf("[catalog] remote refresh failed, keeping local catalog: %v", err)
		}
	}()

	wg.Wait()
}

// LoadLocal publishes the recent-N window of the local store. An empty store
// publishes nothing so a later remote result is not preceded by an empty
// catalog.
func (s *Service) LoadLocal() error {
	var items []models.StreamItem
	for _, kind := range []models.StreamKind{models.KindVOD, models.KindSeries, models.KindLive} {
		rows, err := s.repo.RecentByKind(kind, s.opts.LocalWindow)
		if err != nil {
			return fmt.Errorf("read local %s catalog: %w", kind, err)
		}
		items = append(items, rows...)
	}
	if len(items) == 0 {
		log.Printf("[catalog] local store empty, waiting for remote refresh")
		return nil
	}

	if !s.publish(items, false) {
		log.Printf("[catalog] remote refresh already published, skipping local publish")
		return nil
	}
	log.Printf("[catalog] published %d items from local store", len(items))
	return nil
}

// Refresh fetches the full remote catalog. A successful non-empty result
// replaces the published snapshot wholesale and is upserted back to the local
// store; a failed or empty fetch leaves the current snapshot authoritative.
// Records are never merged field-by-field between sources.
func (s *Service) Refresh(ctx context.Context, sess models.Session) error {
	kinds := []models.StreamKind{models.KindVOD, models.KindSeries}
	if s.opts.IncludeLive {
		kinds = append(kinds, models.KindLive)
	}

	fetched := make([][]models.StreamItem, len(kinds))
	p := pool.New().WithMaxGoroutines(len(kinds)).WithErrors()
	for i, kind := range kinds {
		i, kind := i, kind
		p.Go(func() error {
			items, err := s.client.Streams(ctx, sess, kind, "")
			if err != nil {
				if xtream.IsDecodeError(err) {
					// Malformed response counts as empty, but is logged
					// apart from transport failures.
					log.Printf("[catalog] %s listing unparseable, treating as empty: %v", kind, err)
					return nil
				}
				return fmt.Errorf("fetch %s streams: %w", kind, err)
			}
			fetched[i] = items
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	var items []models.StreamItem
	for _, part := range fetched {
		items = append(items, part...)
	}
	if len(items) == 0 {
		// Never publish an empty catalog over a previously good one.
		log.Printf("[catalog] remote returned no items, keeping current catalog")
		return nil
	}

	s.publish(items, true)

	if err := s.repo.UpsertStreams(items); err != nil {
		return fmt.Errorf("persist remote catalog: %w", err)
	}
	log.Printf("[catalog] published and persisted %d items from remote", len(items))
	return nil
}

// publish replaces the snapshot and reports whether it did. A local-store
// publish is dropped once remote data has been published: remote always wins
// over the cache.
func (s *Service) publish(items []models.StreamItem, fromRemote bool) bool {
	// Snapshot is replaced, never mutated: concurrent readers keep their
	// slice untouched.
	copied := make([]models.StreamItem, len(items))
	copy(copied, items)

	s.mu.Lock()
	if !fromRemote && s.remoteSeen {
		s.mu.Unlock()
		return false
	}
	s.snapshot = copied
	s.loaded = true
	if fromRemote {
		s.remoteSeen = true
	}
	s.mu.Unlock()

	s.subMu.Lock()
	subs := make([]func([]models.StreamItem), len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(copied)
	}
	return true
}
