package remotewallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cuemby/walletstore/pkg/health"
	"github.com/cuemby/walletstore/pkg/metrics"
	"github.com/cuemby/walletstore/pkg/security"
	"github.com/cuemby/walletstore/pkg/storage"
)

// client wraps the HTTP round-trips every remote-backend call makes:
// path composition, the bearer header, optional mTLS, and status-code
// translation into the storage error taxonomy. It generalizes the
// request-building/header-injection pattern of pkg/health.HTTPChecker
// into something reusable across GET/POST/PUT calls.
type client struct {
	httpClient *http.Client
	baseURL    string
	authToken  string
}

func newClient(cfg Config, creds Credentials) (*client, error) {
	transport := http.DefaultTransport
	if cfg.TLS != nil {
		tlsConfig, err := security.LoadClientTLSConfig(*cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("remote client tls: %w", err)
		}
		t, _ := http.DefaultTransport.(*http.Transport)
		t = t.Clone()
		t.TLSClientConfig = tlsConfig
		transport = t
	}
	return &client{
		httpClient: &http.Client{
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
			Transport: transport,
		},
		baseURL:   strings.TrimRight(cfg.Endpoint, "/"),
		authToken: creds.AuthToken,
	}, nil
}

func (c *client) healthURL() string { return c.baseURL + "/schema/" }
func (c *client) authURL() string   { return c.baseURL + "/api-token-auth/" }

func (c *client) listURL(virtualWallet, itemType string) string {
	return fmt.Sprintf("%s/keyval/%s/%s/", c.baseURL, url.PathEscape(virtualWallet), url.PathEscape(itemType))
}

func (c *client) itemURL(virtualWallet, itemType, itemID string) string {
	return fmt.Sprintf("%s/keyval/%s/%s/%s/", c.baseURL, url.PathEscape(virtualWallet), url.PathEscape(itemType), url.PathEscape(itemID))
}

func (c *client) createURL() string { return c.baseURL + "/keyval/" }

func (c *client) updateURL(serverID string) string {
	return fmt.Sprintf("%s/keyval/%s/", c.baseURL, url.PathEscape(serverID))
}

// keyvalBody is the shape of every keyval request/response body (spec §6
// "Remote HTTP surface"): wallet_name, item_type, item_id, item_value,
// id, created. Fields are omitted on requests that don't set them.
type keyvalBody struct {
	WalletName string `json:"wallet_name,omitempty"`
	ItemType   string `json:"item_type,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	ItemValue  string `json:"item_value"`
	ID         string `json:"id,omitempty"`
	Created    string `json:"created,omitempty"`
}

// do issues an HTTP request and, on a 2xx response with out non-nil,
// decodes the JSON body into it. skipAuth suppresses the Authorization
// header, used for the initial authentication exchange; the health
// check does not go through do (spec §4.5 "every request except health
// and initial authentication").
func (c *client) do(ctx context.Context, method, rawURL string, body any, out any, skipAuth bool) (status int, err error) {
	timer := metrics.NewTimer()
	defer func() {
		statusLabel := "error"
		if status > 0 {
			statusLabel = fmt.Sprintf("%d", status)
		}
		metrics.RemoteRequestsTotal.WithLabelValues(method, statusLabel).Inc()
		timer.ObserveDurationVec(metrics.RemoteRequestDuration, method)
	}()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, storage.Wrap(storage.IOError, "encode remote request body", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return 0, storage.Wrap(storage.InvalidStructure, "build remote request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !skipAuth {
		req.Header.Set("Authorization", "Token "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, storage.Wrap(storage.IOError, "remote request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, storage.Wrap(storage.IOError, "decode remote response", err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}

// checkReachable probes the health endpoint via pkg/health.HTTPChecker,
// the HTTP counterpart of the TCPChecker pkg/pgwallet uses for TCP
// reachability (spec §4.5 "create_storage verifies
// the server is reachable via health").
func (c *client) checkReachable(ctx context.Context) error {
	checker := health.NewHTTPChecker(c.healthURL()).WithTimeout(c.httpClient.Timeout)
	checker.Client = c.httpClient
	result := checker.Check(ctx)
	if !result.Healthy {
		return storage.Newf(storage.AccessFailed, "remote endpoint unreachable: %s", result.Message)
	}
	return nil
}

// authenticate performs the one-time token exchange `remote.rs` issues
// against api-token-auth/ before any keyval call, invoked once from
// OpenStorage and not retried per-operation (SPEC_FULL §4.5).
func (c *client) authenticate(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodPost, c.authURL(), map[string]string{"token": c.authToken}, nil, true)
	if err != nil {
		return err
	}
	if status >= 300 {
		return storage.Newf(storage.AccessFailed, "remote authentication failed: HTTP %d", status)
	}
	return nil
}

// statusKind maps an HTTP status code to the storage error taxonomy for
// keyval calls.
func statusKind(status int) storage.Kind {
	switch {
	case status == http.StatusNotFound:
		return storage.ItemNotFound
	case status == http.StatusConflict:
		return storage.ItemAlreadyExists
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return storage.AccessFailed
	case status >= 500:
		return storage.IOError
	default:
		return storage.IOError
	}
}
