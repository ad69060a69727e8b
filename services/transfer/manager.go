package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/semaphore"
)

// ErrEnqueueRejected is returned when the facility refuses a job before any
// bytes move, e.g. a malformed request or a facility that has been shut down.
var ErrEnqueueRejected = errors.New("transfer facility rejected the job")

// JobStatus is the facility's own view of a job. Callers receiving a
// notification must re-query this rather than trust the notification
// payload.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusRunning    JobStatus = "running"
	StatusSuccessful JobStatus = "successful"
	StatusFailed     JobStatus = "failed"
	StatusUnknown    JobStatus = "unknown"
)

// Request describes one transfer job.
type Request struct {
	SourceURL string
	DestPath  string
}

// Notification is emitted when a job changes state: once when it starts
// running and once when it reaches a terminal state. It carries the handle
// only; status is authoritative via Status(handle).
type Notification struct {
	Handle int64
}

// Facility accepts transfer jobs and reports their lifecycle. Enqueue returns
// an opaque numeric handle; state transitions are broadcast on the
// Notifications channel.
type Facility interface {
	Enqueue(ctx context.Context, req Request) (int64, error)
	Status(handle int64) JobStatus
	Notifications() <-chan Notification
	Remove(handle int64)
}

const (
	maxConcurrentTransfers = 3
	notificationBuffer     = 64
)

// HTTPFacility downloads jobs over HTTP into the given filesystem. It
// implements Facility with a bounded worker budget; Enqueue never blocks on
// the transfer itself.
type HTTPFacility struct {
	fs         afero.Fs
	httpClient *http.Client
	sem        *semaphore.Weighted

	mu       sync.Mutex
	statuses map[int64]JobStatus

	nextHandle  atomic.Int64
	notifications chan Notification

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

// NewHTTPFacility creates a facility writing into fs. A nil client gets a
// default with a generous timeout suited to large media files.
func NewHTTPFacility(fs afero.Fs, client *http.Client) *HTTPFacility {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Minute}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &HTTPFacility{
		fs:          fs,
		httpClient:  client,
		sem:         semaphore.NewWeighted(maxConcurrentTransfers),
		statuses:    make(map[int64]JobStatus),
		notifications: make(chan Notification, notificationBuffer),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Enqueue accepts a job and returns its handle. The transfer runs in the
// background; rejection happens only before any state is recorded.
func (f *HTTPFacility) Enqueue(ctx context.Context, req Request) (int64, error) {
	if f.closed.Load() {
		return 0, fmt.Errorf("%w: facility is shut down", ErrEnqueueRejected)
	}
	if strings.TrimSpace(req.SourceURL) == "" {
		return 0, fmt.Errorf("%w: source URL is empty", ErrEnqueueRejected)
	}
	if strings.TrimSpace(req.DestPath) == "" {
		return 0, fmt.Errorf("%w: destination path is empty", ErrEnqueueRejected)
	}
	if !strings.HasPrefix(req.SourceURL, "http://") && !strings.HasPrefix(req.SourceURL, "https://") {
		return 0, fmt.Errorf("%w: unsupported source scheme", ErrEnqueueRejected)
	}

	handle := f.nextHandle.Add(1)
	f.setStatus(handle, StatusPending)

	f.wg.Add(1)
	go f.run(handle, req)

	log.Printf("[transfer] enqueued handle=%d dest=%s", handle, req.DestPath)
	return handle, nil
}

func (f *HTTPFacility) run(handle int64, req Request) {
	defer f.wg.Done()

	if err := f.sem.Acquire(f.ctx, 1); err != nil {
		f.finish(handle, StatusFailed)
		return
	}
	defer f.sem.Release(1)

	f.setStatus(handle, StatusRunning)
	f.notify(handle)

	if err := f.download(req); err != nil {
		log.Printf("[transfer] handle=%d failed: %v", handle, err)
		f.finish(handle, StatusFailed)
		return
	}
	f.finish(handle, StatusSuccessful)
}

func (f *HTTPFacility) download(req Request) error {
	httpReq, err := http.NewRequestWithContext(f.ctx, http.MethodGet, req.SourceURL, nil)
	if err != nil {
		return err
	}
	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("source returned status %d", resp.StatusCode)
	}

	if err := f.fs.MkdirAll(filepath.Dir(req.DestPath), 0755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}

	// Write to a sidecar first so a partial transfer never occupies the
	// final path.
	tmp := req.DestPath + ".part"
	file, err := f.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		f.fs.Remove(tmp)
		return fmt.Errorf("write destination file: %w", err)
	}
	if err := file.Close(); err != nil {
		f.fs.Remove(tmp)
		return err
	}
	if err := f.fs.Rename(tmp, req.DestPath); err != nil {
		f.fs.Remove(tmp)
		return fmt.Errorf("finalize destination file: %w", err)
	}
	return nil
}

func (f *HTTPFacility) finish(handle int64, status JobStatus) {
	f.setStatus(handle, status)
	f.notify(handle)
}

func (f *HTTPFacility) notify(handle int64) {
	select {
	case f.notifications <- Notification{Handle: handle}:
	case <-f.ctx.Done():
	}
}

func (f *HTTPFacility) setStatus(handle int64, status JobStatus) {
	f.mu.Lock()
	f.statuses[handle] = status
	f.mu.Unlock()
}

// Status reports the facility's view of a handle. Unknown handles, including
// removed ones, report StatusUnknown.
func (f *HTTPFacility) Status(handle int64) JobStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.statuses[handle]; ok {
		return s
	}
	return StatusUnknown
}

// Notifications returns the channel state transitions are announced on.
func (f *HTTPFacility) Notifications() <-chan Notification {
	return f.notifications
}

// Remove forgets a handle. Removing an unknown handle is a no-op.
func (f *HTTPFacility) Remove(handle int64) {
	f.mu.Lock()
	delete(f.statuses, handle)
	f.mu.Unlock()
}

// Close stops accepting jobs and cancels in-flight transfers.
func (f *HTTPFacility) Close() {
	if f.closed.Swap(true) {
		return
	}
	f.cancel()
	f.wg.Wait()
}
