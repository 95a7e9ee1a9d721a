package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"csv-telemetry-plotter/src/types"
)

const (
	UploadPath          = "/upload"
	DetectAnomaliesPath = "/detect_anomalies"

	maxErrorBody = 512
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type uploadResponse struct {
	ChartData       []types.Point `json:"chartData"`
	MatchingIndices []int         `json:"matchingIndices"`
	MatchingValues  []float64     `json:"matchingValues"`
}

type anomalyResponse struct {
	AnomalyIndices []int            `json:"anomalyIndices"`
	Anomalies      []float64        `json:"anomalies"`
	Thresholds     types.Thresholds `json:"thresholds"`
	AllValues      []float64        `json:"allValues"`
}

// Upload posts one file to /upload and returns its chart points and matching indices.
func (c *Client) Upload(ctx context.Context, file types.File) (*types.UploadResult, error) {
	var resp uploadResponse
	if err := c.postFile(ctx, UploadPath, file, &resp); err != nil {
		return nil, err
	}
	return &types.UploadResult{
		FileName:        file.Name,
		ChartData:       resp.ChartData,
		MatchingIndices: resp.MatchingIndices,
		MatchingValues:  resp.MatchingValues,
	}, nil
}

// DetectAnomalies posts one file to /detect_anomalies.
func (c *Client) DetectAnomalies(ctx context.Context, file types.File) (*types.AnomalyResult, error) {
	var resp anomalyResponse
	if err := c.postFile(ctx, DetectAnomaliesPath, file, &resp); err != nil {
		return nil, err
	}
	return &types.AnomalyResult{
		FileName:       file.Name,
		AnomalyIndices: resp.AnomalyIndices,
		Anomalies:      resp.Anomalies,
		Thresholds:     resp.Thresholds,
		AllValues:      resp.AllValues,
	}, nil
}

func (c *Client) postFile(ctx context.Context, path string, file types.File, out interface{}) error {
	body, contentType, err := multipartBody(file)
	if err != nil {
		return fmt.Errorf("failed to build form for %s: %w", file.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	res, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &StatusError{Endpoint: path, StatusCode: res.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func multipartBody(file types.File) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Content); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
