package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"streamvault/models"
	"streamvault/services/catalog"
	"streamvault/services/credentials"
)

// DefaultRefreshInterval is how often the catalog is re-synchronized while a
// session is active.
const DefaultRefreshInterval = 6 * time.Hour

// Service periodically refreshes the catalog in the background. Runs are
// skipped while no session is stored and never overlap.
type Service struct {
	catalog  *catalog.Service
	creds    *credentials.Service
	interval time.Duration

	mu         sync.Mutex
	running    bool
	refreshing bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewService creates a scheduler driving the given catalog. A non-positive
// interval gets the default.
func NewService(cat *catalog.Service, creds *credentials.Service, interval time.Duration) *Service {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Service{
		catalog:  cat,
		creds:    creds,
		interval: interval,
	}
}

// Start begins the background loop. Starting twice is a no-op.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.loop(ctx)

	log.Println("[scheduler] started")
}

// Stop cancels the loop and waits for an in-flight refresh to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	log.Println("[scheduler] stopped")
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runRefresh(ctx)
		}
	}
}

// runRefresh performs one catalog refresh if a session exists and no other
// refresh is in flight.
func (s *Service) runRefresh(ctx context.Context) {
	session, err := s.creds.Load()
	if err != nil {
		return
	}

	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		log.Println("[scheduler] refresh already running, skipping")
		return
	}
	s.refreshing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
	}()

	s.refresh(ctx, session)
}

func (s *Service) refresh(ctx context.Context, session models.Session) {
	start := time.Now()
	if err := s.catalog.Refresh(ctx, session); err != nil {
		log.Printf("[scheduler] catalog refresh failed: %v", err)
		return
	}
	log.Printf("[scheduler] catalog refreshed in %s", time.Since(start).Round(time.Millisecond))
}
