package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"MicroFrontend-Portal/pkg/plugin"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client.
const DefaultHTTPTimeout = 15 * time.Second

// DefaultConfigURL is where the sample config server listens.
const DefaultConfigURL = "http://localhost:3001/config"

// Client fetches plugin descriptors from a config server.
type Client struct {
	configURL  *url.URL
	httpClient *http.Client
}

// APIError represents a non-2xx answer from the config server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("portal config error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("portal config error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the config endpoint at rawURL. When
// httpClient is nil, a default client with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	if rawURL == "" {
		rawURL = DefaultConfigURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid config url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid config url %q: scheme must be http or https", rawURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{configURL: parsed, httpClient: httpClient}, nil
}

// URL returns the config endpoint the client talks to.
func (c *Client) URL() string {
	return c.configURL.String()
}

// FetchConfig retrieves the plugin descriptor list.
func (c *Client) FetchConfig(ctx context.Context) ([]plugin.Descriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.configURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var descriptors []plugin.Descriptor
	if err := c.do(req, &descriptors); err != nil {
		return nil, err
	}
	return descriptors, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &struct {
				Error *APIError `json:"error"`
			}{Error: &apiErr}); err != nil {
				_ = json.Unmarshal(data, &apiErr)
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return &apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
