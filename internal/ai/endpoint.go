package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jersjar7/Fit14-sub001/internal/planner"
)

// maxReplySize bounds the reply body; a 14-day plan is a few kilobytes.
const maxReplySize = 1 << 20

// Endpoint posts goals to a generation endpoint that answers with the reply envelope directly.
type Endpoint struct {
	url        string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewEndpoint creates a transport for the generation endpoint at url. The request timeout is governed by the
// caller's context.
func NewEndpoint(url, apiKey string, httpClient *http.Client, logger *slog.Logger) *Endpoint {
	if httpClient == nil {
		httpClient = &http.Client{} //nolint:exhaustruct // zero value is the default client.
	}
	return &Endpoint{
		url:        url,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger.With(slog.String("transport", "endpoint")),
		now:        time.Now,
	}
}

type endpointRequest struct {
	UserGoals string `json:"userGoals"`
	RequestID string `json:"requestId"`
}

// errorReply is the subset of the envelope used to describe a non-2xx reply.
type errorReply struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Generate sends the full prompt as userGoals so that the endpoint receives every output constraint.
func (e *Endpoint) Generate(ctx context.Context, req planner.Request) ([]byte, error) {
	body, err := json.Marshal(endpointRequest{
		UserGoals: req.Prompt,
		RequestID: req.RequestID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	start := time.Now()
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	e.logger.LogAttrs(ctx, slog.LevelDebug, "generation endpoint replied",
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(raw)),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(resp.StatusCode, resp.Header, errorMessage(raw), e.now())
	}
	return raw, nil
}

func errorMessage(raw []byte) string {
	var reply errorReply
	if err := json.Unmarshal(raw, &reply); err == nil {
		if msg := strings.TrimSpace(reply.Error); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(reply.Message); msg != "" {
			return msg
		}
	}
	return ""
}
