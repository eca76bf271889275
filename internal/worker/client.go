package worker

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

	"github.com/atlantishq/dispatchd/pkg/models"
)

// Client speaks the dispatch worker protocol against the relay server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a relay API client.
func NewClient(serverURL, token string, timeout time.Duration) (*Client, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type requestOptions struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// APIError is an error envelope returned by the relay.
type APIError struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	ErrorType  string `json:"error_type,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.ErrorType != "" {
		return fmt.Sprintf("%s: %s", e.ErrorType, e.Message)
	}
	return e.Message
}

func (c *Client) doJSON(ctx context.Context, opts requestOptions, result any) error {
	reqURL, err := url.Parse(c.baseURL + opts.Path)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if opts.Query != nil {
		reqURL.RawQuery = opts.Query.Encode()
	}

	var body io.Reader
	if opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "dispatchd-worker/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr APIError
		if err := json.Unmarshal(respBody, &apiErr); err != nil {
			return &APIError{
				Status:     "error",
				Message:    string(respBody),
				StatusCode: resp.StatusCode,
			}
		}
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

type dispatchListResponse struct {
	Status string                `json:"status"`
	Data   []models.DispatchView `json:"data"`
}

type reconcileResponse struct {
	Status string                   `json:"status"`
	Data   models.ReconcileResponse `json:"data"`
}

// GetDispatch pulls the due entries for a delivery method.
func (c *Client) GetDispatch(ctx context.Context, method models.DeliveryMethod) ([]models.DispatchView, error) {
	query := url.Values{}
	query.Set("method", string(method))

	var resp dispatchListResponse
	if err := c.doJSON(ctx, requestOptions{
		Method: http.MethodGet,
		Path:   "/get-dispatch",
		Query:  query,
	}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Confirm acknowledges delivered entries so the relay drops them.
func (c *Client) Confirm(ctx context.Context, uuids []string) (models.ReconcileResponse, error) {
	confirms := make([]models.ConfirmItem, 0, len(uuids))
	for _, id := range uuids {
		confirms = append(confirms, models.ConfirmItem{UUID: id})
	}

	var resp reconcileResponse
	if err := c.doJSON(ctx, requestOptions{
		Method: http.MethodPost,
		Path:   "/confirm-dispatch",
		Body:   confirms,
	}, &resp); err != nil {
		return models.ReconcileResponse{}, err
	}
	return resp.Data, nil
}

// ReportFailure records delivery failures so the relay keeps the entries queued.
func (c *Client) ReportFailure(ctx context.Context, reports []models.FailureReport) (models.ReconcileResponse, error) {
	var resp reconcileResponse
	if err := c.doJSON(ctx, requestOptions{
		Method: http.MethodPost,
		Path:   "/report-dispatch-failed",
		Body:   reports,
	}, &resp); err != nil {
		return models.ReconcileResponse{}, err
	}
	return resp.Data, nil
}
