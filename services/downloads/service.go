package downloads

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"streamvault/internal/database"
	"streamvault/models"
	"streamvault/services/transfer"
	"streamvault/utils"
)

var (
	// ErrSourceUnreachable is returned when the reachability probe of the
	// source URL fails; no ledger record is created in that case.
	ErrSourceUnreachable = errors.New("download source is unreachable")

	// ErrNotFound is returned when a local download id has no ledger row.
	ErrNotFound = errors.New("download not found")
)

const probeTimeout = 10 * time.Second

// Request describes a download the user asked for. SourceURL is the direct
// stream URL the transfer facility will pull from.
type Request struct {
	StreamID     int
	Kind         models.StreamKind
	DisplayName  string
	EpisodeLabel string
	PosterURL    string
	SourceURL    string
}

// Service is the download ledger. It owns the durable record of every
// download and reconciles it against the transfer facility's status
// notifications. Status and progress change only through reconciliation.
type Service struct {
	repo       *database.DownloadRepository
	facility   transfer.Facility
	fs         afero.Fs
	dir        string
	httpClient *http.Client
}

// NewService creates a ledger writing files under dir on fs. A nil client
// gets a default used only for reachability probes.
func NewService(repo *database.DownloadRepository, facility transfer.Facility, fs afero.Fs, dir string, client *http.Client) *Service {
	if client == nil {
		client = &http.Client{Timeout: probeTimeout}
	}
	return &Service{
		repo:       repo,
		facility:   facility,
		fs:         fs,
		dir:        dir,
		httpClient: client,
	}
}

// Start consumes facility notifications until ctx is cancelled. Each
// notification triggers a reconciliation for its handle; notifications are
// independent events and may arrive more than once per handle.
func (s *Service) Start(ctx context.Context) {
	go func() {
		log.Println("[downloads] reconciliation loop started")
		for {
			select {
			case <-ctx.Done():
				log.Println("[downloads] reconciliation loop stopped")
				return
			case n, ok := <-s.facility.Notifications():
				if !ok {
					return
				}
				s.reconcile(n.Handle)
			}
		}
	}()
}

// Enqueue probes the source, hands the job to the transfer facility, and
// records it. If the probe or the facility fails, no record is created and
// the error names which precondition failed.
func (s *Service) Enqueue(ctx context.Context, req Request) (*models.DownloadRecord, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("invalid stream kind %q", req.Kind)
	}
	if err := utils.ValidateMediaURL(req.SourceURL); err != nil {
		return nil, err
	}
	if err := s.probe(ctx, req.SourceURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreachable, err)
	}

	// Opaque filename: the kind/id/timestamp triple namespaces the file
	// without exposing the title, and the fixed suffix keeps it out of
	// media scanners.
	name := fmt.Sprintf("%s_%d_%d.dat", req.Kind, req.StreamID, time.Now().Unix())
	dest := filepath.Join(s.dir, name)

	handle, err := s.facility.Enqueue(ctx, transfer.Request{
		SourceURL: req.SourceURL,
		DestPath:  dest,
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue transfer: %w", err)
	}

	rec := &models.DownloadRecord{
		LocalID:        uuid.NewString(),
		TransferHandle: handle,
		StreamID:       req.StreamID,
		Kind:           req.Kind,
		DisplayName:    req.DisplayName,
		EpisodeLabel:   req.EpisodeLabel,
		PosterURL:      req.PosterURL,
		FilePath:       dest,
		Status:         models.DownloadQueued,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.Insert(rec); err != nil {
		return nil, fmt.Errorf("record download: %w", err)
	}

	log.Printf("[downloads] enqueued %s (%s id=%d handle=%d)", rec.LocalID, rec.Kind, rec.StreamID, handle)
	return rec, nil
}

// List returns every ledger row, newest first.
func (s *Service) List() ([]models.DownloadRecord, error) {
	return s.repo.ListAll()
}

// Get returns one record by its local id.
func (s *Service) Get(localID string) (*models.DownloadRecord, error) {
	rec, err := s.repo.GetByLocalID(localID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

// OpenFile opens the backing file of a record for playback. The caller owns
// the returned file.
func (s *Service) OpenFile(rec *models.DownloadRecord) (afero.File, error) {
	file, err := s.fs.Open(rec.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", rec.FilePath, err)
	}
	return file, nil
}

// Delete removes the backing file and the ledger row. A missing file is not
// an error; a missing row is.
func (s *Service) Delete(localID string) error {
	rec, err := s.repo.GetByLocalID(localID)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrNotFound
	}

	if err := s.fs.Remove(rec.FilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", rec.FilePath, err)
	}
	s.facility.Remove(rec.TransferHandle)

	if err := s.repo.Delete(localID); err != nil {
		return err
	}
	log.Printf("[downloads] deleted %s", localID)
	return nil
}

// reconcile re-queries the facility's authoritative status for the handle and
// settles the record accordingly. The notification itself carries no trusted
// state. Settling is idempotent: records already terminal, or already
// deleted, are left alone.
func (s *Service) reconcile(handle int64) {
	var (
		changed bool
		err     error
	)
	switch s.facility.Status(handle) {
	case transfer.StatusSuccessful:
		progress := 100
		changed, err = s.repo.SettleByHandle(handle, models.DownloadComplete, &progress)
	case transfer.StatusFailed:
		changed, err = s.repo.SettleByHandle(handle, models.DownloadFailed, nil)
	case transfer.StatusRunning:
		changed, err = s.repo.MarkActiveByHandle(handle)
	default:
		// Pending or unknown on the facility's side; leave the record as is.
		return
	}
	if err != nil {
		log.Printf("[downloads] reconciling handle=%d: %v", handle, err)
		return
	}
	if changed {
		log.Printf("[downloads] settled handle=%d", handle)
	}
}

func (s *Service) probe(ctx context.Context, sourceURL string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, sourceURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}
