//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DeBrosOfficial/pubsub-relay/pkg/config"
)

var (
	gatewayURLCache string
	cacheMutex      sync.RWMutex
)

// GetGatewayURL returns the relay under test: RELAY_GATEWAY_URL, then the
// listen address in ~/.relay/relay.yaml, then http://localhost:8080.
func GetGatewayURL() string {
	cacheMutex.RLock()
	if gatewayURLCache != "" {
		defer cacheMutex.RUnlock()
		return gatewayURLCache
	}
	cacheMutex.RUnlock()

	url := "http://localhost:8080"
	if v := strings.TrimSpace(os.Getenv("RELAY_GATEWAY_URL")); v != "" {
		url = strings.TrimRight(v, "/")
	} else if path, err := config.DefaultPath(config.DefaultFileName); err == nil {
		if cfg, err := config.Load(path); err == nil {
			if _, port, err := net.SplitHostPort(cfg.Gateway.ListenAddr); err == nil {
				url = fmt.Sprintf("http://localhost:%s", port)
			}
		}
	}

	cacheMutex.Lock()
	gatewayURLCache = url
	cacheMutex.Unlock()
	return url
}

// GetPeerGatewayURL returns a second relay on the same gossip network, if configured.
func GetPeerGatewayURL() string {
	return strings.TrimRight(strings.TrimSpace(os.Getenv("RELAY_PEER_GATEWAY_URL")), "/")
}

// SkipIfMissingGateway skips the test if the relay is not accessible
func SkipIfMissingGateway(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if !IsGatewayReady(ctx, GetGatewayURL()) {
		t.Skip("Relay gateway not accessible; tests skipped")
	}
}

// IsGatewayReady checks if the gateway at baseURL is accessible and healthy
func IsGatewayReady(ctx context.Context, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// NewHTTPClient creates an HTTP client for gateway requests
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// HTTPRequest is a helper for making gateway requests
type HTTPRequest struct {
	Method  string
	URL     string
	Body    interface{}
	Headers map[string]string
	Timeout time.Duration
}

// Do executes an HTTP request and returns the response body
func (hr *HTTPRequest) Do(ctx context.Context) ([]byte, int, error) {
	if hr.Timeout == 0 {
		hr.Timeout = 30 * time.Second
	}

	var reqBody io.Reader
	if hr.Body != nil {
		data, err := json.Marshal(hr.Body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, hr.Method, hr.URL, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range hr.Headers {
		req.Header.Set(k, v)
	}
	if hr.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := NewHTTPClient(hr.Timeout).Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// DecodeJSON unmarshals response body into v
func DecodeJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// PublishBody builds a publish request body for payload.
func PublishBody(payload []byte) map[string]string {
	return map[string]string{"data": base64.StdEncoding.EncodeToString(payload)}
}

// GenerateUniqueID generates a unique identifier for test resources
func GenerateUniqueID(prefix string) string {
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano(), rand.Intn(10000))
}

// GenerateTopic generates a unique topic name for relay tests
func GenerateTopic() string {
	return GenerateUniqueID("e2e_topic")
}

// WaitForCondition waits for a condition with exponential backoff
func WaitForCondition(maxWait time.Duration, check func() bool) error {
	deadline := time.Now().Add(maxWait)
	backoff := 100 * time.Millisecond

	for {
		if check() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("condition not met within %v", maxWait)
		}
		time.Sleep(backoff)
		if backoff < 2*time.Second {
			backoff = backoff * 2
		}
	}
}
