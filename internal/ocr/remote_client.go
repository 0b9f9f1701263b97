package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/adverant/nexus/loanprocess-worker/internal/logging"
)

// RemoteClient talks to the remote GPU-backed OCR service. It is the
// "gpu" method: higher accuracy, guarded by the breaker, with the
// Tesseract fallback behind it.
type RemoteClient struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *logging.Logger
}

// NewRemoteClient builds a RemoteClient against baseURL, authenticating
// with token when non-empty.
func NewRemoteClient(baseURL, token string, timeout time.Duration) *RemoteClient {
	return &RemoteClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logging.NewLogger("RemoteOCRClient"),
	}
}

type remoteOCRResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// ExtractPage sends one rendered page image and returns its recognized
// text and the service's self-reported confidence.
func (c *RemoteClient) ExtractPage(ctx context.Context, pageNumber int, imageBytes []byte) (PageResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fmt.Sprintf("page-%d.png", pageNumber))
	if err != nil {
		return PageResult{}, fmt.Errorf("remote ocr: build form: %w", err)
	}
	if _, err := part.Write(imageBytes); err != nil {
		return PageResult{}, fmt.Errorf("remote ocr: write form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return PageResult{}, fmt.Errorf("remote ocr: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr/page", &body)
	if err != nil {
		return PageResult{}, fmt.Errorf("remote ocr: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return PageResult{}, fmt.Errorf("remote ocr: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return PageResult{}, fmt.Errorf("remote ocr: status %d: %s", resp.StatusCode, string(data))
	}

	var parsed remoteOCRResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return PageResult{}, fmt.Errorf("remote ocr: decode response: %w", err)
	}

	return PageResult{PageNumber: pageNumber, Text: parsed.Text, Confidence: parsed.Confidence}, nil
}

// HealthCheck reports whether the remote service is reachable, used by
// the router's health probe (run through the breaker) before each
// per-page fan-out.
func (c *RemoteClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("remote ocr: build health request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote ocr: health request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote ocr: health status %d", resp.StatusCode)
	}
	return nil
}
