package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Config is the application's persisted configuration.
type Config struct {
	// CandidateHosts are the backend base URLs the prober races at login.
	CandidateHosts []string `json:"candidateHosts"`

	// DataDir is the root for all app-private storage: database, credential
	// file, metadata cache, downloaded assets.
	DataDir string `json:"dataDir"`

	// ListenAddr is the HTTP API bind address.
	ListenAddr string `json:"listenAddr"`

	// MetadataAPIKey authenticates against the metadata provider. Empty
	// disables metadata enrichment.
	MetadataAPIKey string `json:"metadataApiKey"`

	// IncludeLive controls whether the live catalog is synchronized.
	IncludeLive bool `json:"includeLive"`
}

func defaults() Config {
	return Config{
		DataDir:     "data",
		ListenAddr:  ":8085",
		IncludeLive: true,
	}
}

// DatabasePath is the SQLite file location under the data dir.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "streamvault.db")
}

// DownloadDir is where transfer destinations live. It is app-private and not
// meant to be browsed directly.
func (c Config) DownloadDir() string {
	return filepath.Join(c.DataDir, "assets")
}

// MetadataCacheDir holds cached metadata provider responses.
func (c Config) MetadataCacheDir() string {
	return filepath.Join(c.DataDir, "metadata_cache")
}

// Manager loads and persists the configuration file.
type Manager struct {
	mu   sync.RWMutex
	path string
	cfg  Config
}

// NewManager reads the configuration at path, creating it with defaults when
// absent.
func NewManager(path string) (*Manager, error) {
	m := &Manager{path: path, cfg: defaults()}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create config dir: %w", err)
		}
		if err := m.saveLocked(); err != nil {
			return nil, err
		}
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &m.cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	return m, nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := m.cfg
	cfg.CandidateHosts = append([]string(nil), m.cfg.CandidateHosts...)
	return cfg
}

// SetCandidateHosts replaces the probed host list and persists it.
func (m *Manager) SetCandidateHosts(hosts []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.CandidateHosts = append([]string(nil), hosts...)
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	tmp := m.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create config temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.cfg); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode config: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync config: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close config temp file: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	return nil
}
