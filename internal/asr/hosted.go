package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/meetscribe/insights/internal/insighterrors"
)

const (
	defaultTimeout  = 5 * time.Minute
	defaultRetryMax = 2
	// maxErrorBodyBytes caps how much of an error response is read for the message.
	maxErrorBodyBytes = 4096
)

// HostedClientOptions configures the hosted ASR client.
type HostedClientOptions struct {
	// BaseURL is the provider's API root, without a trailing slash.
	BaseURL string
	// APIKey is sent as a bearer token.
	APIKey string
	// Timeout bounds one HTTP call including body read (default: 5 minutes;
	// transcription of long recordings is slow).
	Timeout time.Duration
	// RetryMax is the number of transport-level retries for connection
	// failures and 5xx responses (default: 2). A completed provider error
	// response is not retried beyond this; pipeline-level retry is the
	// caller's responsibility.
	RetryMax int
}

// HostedClient calls a hosted speech-to-text HTTP API.
type HostedClient struct {
	baseURL    string
	apiKey     string
	httpClient *retryablehttp.Client
}

var _ Provider = (*HostedClient)(nil)

// NewHostedClient creates a hosted ASR client.
func NewHostedClient(opts HostedClientOptions) *HostedClient {
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RetryMax == 0 {
		opts.RetryMax = defaultRetryMax
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.Logger = nil

	return &HostedClient{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: retryClient,
	}
}

// errorResponse is the provider's error envelope.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Transcribe sends the transcription request and decodes the result.
// Provider-reported failures come back as a ProviderError carrying the
// provider's own message, which the pipeline stores on the failed record.
func (c *HostedClient) Transcribe(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal transcription request: %w", err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transcriptions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build transcription request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, insighterrors.NewProviderError("asr", fmt.Sprintf("transcription call failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, insighterrors.NewProviderError("asr", readErrorMessage(resp))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, insighterrors.NewProviderError("asr", fmt.Sprintf("invalid transcription response: %v", err))
	}

	return &result, nil
}

// readErrorMessage extracts the provider's message from an error response,
// falling back to the status when the body is not the expected envelope.
func readErrorMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil || len(raw) == 0 {
		return fmt.Sprintf("transcription failed with status %d", resp.StatusCode)
	}

	var envelope errorResponse
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}

	return fmt.Sprintf("transcription failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
