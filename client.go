package nespreso

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Merger combines multiple NetCDF files into a single output file. It is
// injected through Config so the batch logic can run, and be tested,
// without the merge capability present.
type Merger interface {
	Merge(ctx context.Context, inputs []string, output string) error
}

// Client issues synchronous requests against the NeSPReSO profile and grid
// endpoints. It is safe for concurrent use, although all batch and
// multi-date operations issue their calls strictly one at a time.
type Client struct {
	profileURL    string
	gridURL       string
	gridOutputDir string
	batchSize     int
	merger        Merger

	profileHTTP *http.Client
	gridHTTP    *http.Client
}

// New returns a Client for the given configuration. conf may be nil or
// partially populated; zero fields fall back to the package defaults.
func New(conf *Config) (*Client, error) {
	if conf == nil {
		conf = &Config{}
	}
	c := &Client{
		profileURL:    conf.ProfileURL,
		gridURL:       conf.GridURL,
		gridOutputDir: conf.GridOutputDir,
		batchSize:     conf.BatchSize,
		merger:        conf.Merger,
	}
	if c.profileURL == "" {
		c.profileURL = DefaultProfileURL
	}
	if c.gridURL == "" {
		c.gridURL = DefaultGridURL
	}
	if c.gridOutputDir == "" {
		c.gridOutputDir = DefaultGridOutputDir
	}
	if c.batchSize == 0 {
		c.batchSize = DefaultBatchSize
	}
	if c.batchSize < 1 {
		return nil, ErrInvalidBatchSize.WithErr(fmt.Errorf("configured batch size %d", c.batchSize))
	}
	for _, endpoint := range []string{c.profileURL, c.gridURL} {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, ErrInvalidEndpoint.WithErr(err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, ErrInvalidEndpoint.WithErr(fmt.Errorf("unsupported scheme in %q", endpoint))
		}
	}

	profileTimeout := conf.ProfileTimeout
	if profileTimeout == 0 {
		profileTimeout = DefaultProfileTimeout
	}
	gridTimeout := conf.GridTimeout
	if gridTimeout == 0 {
		gridTimeout = DefaultGridTimeout
	}
	connectTimeout := conf.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = DefaultConnectTimeout
	}
	c.profileHTTP = newHTTPClient(profileTimeout, connectTimeout)
	c.gridHTTP = newHTTPClient(gridTimeout, connectTimeout)
	return c, nil
}

func newHTTPClient(timeout, connectTimeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:       http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
		},
	}
}

// postJSON issues a POST request with a JSON body and returns the response.
// Connection failures and timeouts surface as network errors.
func (c *Client) postJSON(ctx context.Context, hc *http.Client, endpoint string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, ErrRequestFailed.WithErr(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, ErrRequestFailed.WithErr(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := hc.Do(req)
	if err != nil {
		return nil, ErrRequestFailed.WithErr(err)
	}
	return resp, nil
}

// readSuccess drains the response and returns its body. Non-2xx statuses
// become network errors carrying the status code and an excerpt of the
// server reply.
func readSuccess(resp *http.Response) ([]byte, error) {
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		detail := strings.TrimSpace(string(excerpt))
		return nil, ErrUnexpectedStatus.
			WithStatus(resp.StatusCode).
			WithErr(fmt.Errorf("%s: %s", resp.Status, detail))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrRequestFailed.WithErr(err)
	}
	return body, nil
}

// saveBody persists the full response body to path in a single write.
func saveBody(path string, body []byte) error {
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return ErrWriteOutput.WithErr(err)
	}
	return nil
}
