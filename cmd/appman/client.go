package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// APIClient provides HTTP client functionality to communicate with the appman daemon
type APIClient struct {
	baseURL string
	client  *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8090"
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *APIClient) decodeError(resp *http.Response) error {
	var errorResp struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil || errorResp.Error == "" {
		return fmt.Errorf("API error: status %d", resp.StatusCode)
	}
	return fmt.Errorf("API error: %s", errorResp.Error)
}

// ListApps fetches all apps with their live status
func (c *APIClient) ListApps() ([]map[string]any, error) {
	resp, err := c.client.Get(c.baseURL + "/apps")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}
	var out []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// lifecycle posts to /apps/{id}/{action} and returns the response body
func (c *APIClient) lifecycle(id int64, action string) (map[string]any, error) {
	url := fmt.Sprintf("%s/apps/%d/%s", c.baseURL, id, action)
	resp, err := c.client.Post(url, "application/json", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// StartApp launches a catalog app via the daemon
func (c *APIClient) StartApp(id int64) (map[string]any, error) {
	return c.lifecycle(id, "start")
}

// StopApp stops a catalog app via the daemon
func (c *APIClient) StopApp(id int64) (map[string]any, error) {
	return c.lifecycle(id, "stop")
}

// RestartApp restarts a catalog app via the daemon
func (c *APIClient) RestartApp(id int64) (map[string]any, error) {
	return c.lifecycle(id, "restart")
}

// AppLogs fetches an app's in-memory log tail
func (c *APIClient) AppLogs(id int64) ([]string, error) {
	resp, err := c.client.Get(fmt.Sprintf("%s/apps/%d/logs", c.baseURL, id))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}
	var out struct {
		Lines []string `json:"lines"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Lines, nil
}

// ImportYAML asks the daemon to upsert apps from a YAML catalog on its filesystem
func (c *APIClient) ImportYAML(path string) (int, error) {
	body, err := json.Marshal(map[string]string{"path": path})
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Post(c.baseURL+"/apps/import-yaml", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0, c.decodeError(resp)
	}
	var out struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Count, nil
}
