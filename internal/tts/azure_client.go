package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/lexiqai/deck-narrator/internal/config"
)

const (
	synthesisPath  = "/cognitiveservices/v1"
	voicesListPath = "/cognitiveservices/voices/list"
	userAgent      = "deck-narrator"
)

// AzureClient implements Synthesizer and VoiceLister against the Azure
// Speech text-to-speech REST API
type AzureClient struct {
	baseURL      string
	key          string
	outputFormat string
	httpClient   *http.Client
}

// NewAzureClient creates a new Azure speech client
func NewAzureClient(cfg *config.Config) *AzureClient {
	return &AzureClient{
		baseURL:      cfg.SpeechBaseURL(),
		key:          cfg.SubscriptionKey,
		outputFormat: cfg.OutputFormat,
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout()},
	}
}

// BaseURL returns the service root the client talks to
func (c *AzureClient) BaseURL() string {
	return c.baseURL
}

// SynthesizeToFile synthesizes text with the given voice and writes the
// returned audio to path.
func (c *AzureClient) SynthesizeToFile(ctx context.Context, text, voice, path string) (*Result, error) {
	body, err := BuildSSML(text, voice)
	if err != nil {
		return nil, fmt.Errorf("failed to build SSML: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+synthesisPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", c.outputFormat)
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return canceled(start, transportCancellation(ctx, err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return canceled(start, &CancellationDetails{
			Reason:       CancellationError,
			ErrorCode:    statusErrorCode(resp.StatusCode),
			ErrorDetails: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, readSnippet(resp.Body)),
		}), nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio file: %w", err)
	}

	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		return canceled(start, transportCancellation(ctx, copyErr)), nil
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to write audio file: %w", closeErr)
	}
	if n == 0 {
		return canceled(start, &CancellationDetails{
			Reason:       CancellationError,
			ErrorCode:    ErrorCodeServiceError,
			ErrorDetails: "service returned no audio",
		}), nil
	}

	return &Result{
		Reason:     ReasonSynthesizingAudioCompleted,
		AudioPath:  path,
		AudioBytes: n,
		Latency:    time.Since(start),
	}, nil
}

// ListVoices fetches the voices available in the configured region
func (c *AzureClient) ListVoices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+voicesListPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: readSnippet(resp.Body)}
	}

	var voices []Voice
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		return nil, fmt.Errorf("failed to decode voice list: %w", err)
	}
	return voices, nil
}

func canceled(start time.Time, details *CancellationDetails) *Result {
	return &Result{
		Reason:       ReasonCanceled,
		Latency:      time.Since(start),
		Cancellation: details,
	}
}

func transportCancellation(ctx context.Context, err error) *CancellationDetails {
	if ctx.Err() != nil {
		return &CancellationDetails{
			Reason:       CancellationCancelledByUser,
			ErrorCode:    ErrorCodeNoError,
			ErrorDetails: ctx.Err().Error(),
		}
	}

	code := ErrorCodeConnectionFailure
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		code = ErrorCodeServiceTimeout
	}
	return &CancellationDetails{
		Reason:       CancellationError,
		ErrorCode:    code,
		ErrorDetails: err.Error(),
	}
}

func statusErrorCode(status int) CancellationErrorCode {
	switch status {
	case http.StatusBadRequest:
		return ErrorCodeBadRequest
	case http.StatusUnauthorized:
		return ErrorCodeAuthenticationFailure
	case http.StatusForbidden:
		return ErrorCodeForbidden
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrorCodeServiceTimeout
	case http.StatusTooManyRequests:
		return ErrorCodeTooManyRequests
	case http.StatusServiceUnavailable:
		return ErrorCodeServiceUnavailable
	}
	if status >= 500 {
		return ErrorCodeServiceError
	}
	return ErrorCodeRuntimeError
}
