package prober

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout is the per-candidate request timeout when none is given.
const DefaultTimeout = 10 * time.Second

// Prober verifies backend candidates against the player API with the user's
// credentials. It is a pure probe: the caller persists the winning host.
type Prober struct {
	httpClient *http.Client
}

// NewProber creates a prober. A nil client gets a default tuned for probing:
// short connect and header timeouts so dead hosts fail fast.
func NewProber(client *http.Client) *Prober {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
				ResponseHeaderTimeout: 5 * time.Second,
				MaxIdleConns:          10,
			},
		}
	}
	return &Prober{httpClient: client}
}

// authResponse is the subset of the player API login response the prober
// inspects. Auth is 1 when the credentials were accepted.
type authResponse struct {
	UserInfo struct {
		Auth json.Number `json:"auth"`
	} `json:"user_info"`
}

// ProbeAll dispatches one verification request per candidate concurrently and
// returns the first host whose response is a successful authentication. The
// remaining in-flight requests are cancelled best-effort. When no candidate
// succeeds it returns ok == false, and only after every candidate has either
// responded or timed out; an unreachable host and a host that rejected the
// credentials are indistinguishable here.
func (p *Prober) ProbeAll(ctx context.Context, candidates []string, username, password string, timeout time.Duration) (string, bool) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	hosts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			hosts = append(hosts, strings.TrimRight(strings.TrimSpace(c), "/"))
		}
	}
	if len(hosts) == 0 {
		return "", false
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wins := make(chan string, len(hosts))
	var wg sync.WaitGroup

	for _, host := range hosts {
		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			if err := p.probeOne(ctx, host, username, password, timeout); err != nil {
				// Per-candidate failures are swallowed; only the
				// aggregate outcome is surfaced to the caller.
				log.Printf("[prober] candidate %s failed: %v", host, err)
				return
			}
			wins <- host
		}(host)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case host := <-wins:
		cancel() // abandon the losers
		return host, true
	case <-done:
		// All candidates responded or timed out. A late winner may have
		// landed between the last send and the close.
		select {
		case host := <-wins:
			return host, true
		default:
			return "", false
		}
	case <-ctx.Done():
		return "", false
	}
}

// probeOne performs a single authentication request against one host.
func (p *Prober) probeOne(ctx context.Context, host, username, password string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	apiURL := fmt.Sprintf("%s/player_api.php?username=%s&password=%s",
		host, url.QueryEscape(username), url.QueryEscape(password))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return fmt.Errorf("decode probe response: %w", err)
	}
	if auth.UserInfo.Auth.String() != "1" {
		return fmt.Errorf("credentials rejected")
	}
	return nil
}
