package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/foundry/internal/model"
)

// HTTPClient implements FoundryClient using the foundry HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ FoundryClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:6500").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func recordPath(resource string, id int64) string {
	return "/api/" + resource + "/" + strconv.FormatInt(id, 10)
}

// --- Records ---

func (c *HTTPClient) ListRecords(ctx context.Context, resource string) ([]model.Record, error) {
	data, err := c.do(ctx, http.MethodGet, c.baseURL+"/api/"+resource, nil)
	if err != nil {
		return nil, err
	}
	recs, err := recordsFromPayload(data)
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return recs, nil
}

func (c *HTTPClient) GetRecord(ctx context.Context, resource string, id int64) (model.Record, error) {
	return c.doRecord(ctx, http.MethodGet, recordPath(resource, id), nil)
}

func (c *HTTPClient) CreateRecord(ctx context.Context, resource string, rec model.Record) (model.Record, error) {
	return c.doRecord(ctx, http.MethodPost, "/api/"+resource, &rec)
}

func (c *HTTPClient) UpdateRecord(ctx context.Context, resource string, id int64, rec model.Record) (model.Record, error) {
	return c.doRecord(ctx, http.MethodPut, recordPath(resource, id), &rec)
}

func (c *HTTPClient) PatchRecord(ctx context.Context, resource string, id int64, patch model.Record) (model.Record, error) {
	return c.doRecord(ctx, http.MethodPatch, recordPath(resource, id), &patch)
}

func (c *HTTPClient) DeleteRecord(ctx context.Context, resource string, id int64) (string, error) {
	data, err := c.do(ctx, http.MethodDelete, c.baseURL+recordPath(resource, id), nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		Message string `json:"message"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &resp); err != nil {
			return "", fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.Message, nil
}

func (c *HTTPClient) AddChild(ctx context.Context, resource string, id int64, kind string, rec model.Record) (model.Record, error) {
	return c.doRecord(ctx, http.MethodPost, recordPath(resource, id)+"/"+kind, &rec)
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	data, err := c.do(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return resp.Status, nil
}

// FetchJSON GETs an absolute URL and returns the raw body. It lets the
// keyword searcher reuse this client's transport and error handling.
func (c *HTTPClient) FetchJSON(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (c *HTTPClient) doRecord(ctx context.Context, method, path string, body *model.Record) (model.Record, error) {
	data, err := c.do(ctx, method, c.baseURL+path, body)
	if err != nil {
		return model.Record{}, err
	}
	rec, err := model.ParseRecord(data)
	if err != nil {
		return model.Record{}, fmt.Errorf("decoding response: %w", err)
	}
	return rec, nil
}

// do performs an HTTP request with an optional JSON body and returns the
// response body. Status codes of 400 and above become *APIError.
func (c *HTTPClient) do(ctx context.Context, method, url string, body *model.Record) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := body.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}
