// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/muster-robotics/muster/lib/clock"
)

// Model parameters with defaults chosen for small local models.
const (
	DefaultAttempts = 2
	DefaultBackoff  = 500 * time.Millisecond
)

// ModelConfig configures the chat-completions decider.
type ModelConfig struct {
	// Endpoint is the server base URL, e.g. "http://localhost:11434".
	// The client appends /v1/chat/completions.
	Endpoint string

	// Model is the model name passed through in each request.
	Model string

	// Attempts is how many times each chat call is tried before the
	// error is returned. Zero means DefaultAttempts.
	Attempts int

	// Backoff is the fixed delay between attempts. Zero means
	// DefaultBackoff.
	Backoff time.Duration

	// HTTPClient overrides the transport. Nil means
	// http.DefaultClient; the engine's per-call context carries the
	// deadline, so no client timeout is set here.
	HTTPClient *http.Client

	Clock  clock.Clock
	Logger *slog.Logger
}

// Model is a Decider backed by an OpenAI-compatible chat completions
// server. Decisions are made in two chat calls mirroring the rover
// perception bridge: a free-form scene analysis, then a strict
// command-format prompt over the analysis. Both calls are bounded by
// the caller's context and retried a fixed number of times.
type Model struct {
	endpoint   string
	model      string
	attempts   int
	backoff    time.Duration
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger
}

// NewModel creates a model decider.
func NewModel(cfg ModelConfig) *Model {
	m := &Model{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		attempts:   cfg.Attempts,
		backoff:    cfg.Backoff,
		httpClient: cfg.HTTPClient,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}
	if m.attempts <= 0 {
		m.attempts = DefaultAttempts
	}
	if m.backoff <= 0 {
		m.backoff = DefaultBackoff
	}
	if m.httpClient == nil {
		m.httpClient = http.DefaultClient
	}
	if m.clock == nil {
		m.clock = clock.Real()
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	return m
}

// Decide runs the two-step decision: analyze the scene, then reduce
// the analysis to a single command token. The returned command is
// whatever Parse extracts from the second response.
func (m *Model) Decide(ctx context.Context, scene string) (Command, error) {
	analysisPrompt := fmt.Sprintf(
		"Analyze this scene description for a search and rescue rover: %s. "+
			"Provide a brief summary of what the rover sees.", scene)
	analysis, err := m.chat(ctx, analysisPrompt)
	if err != nil {
		return Command{}, fmt.Errorf("scene analysis: %w", err)
	}

	decisionPrompt := fmt.Sprintf(
		"Based on this scene analysis: '%s', respond with ONLY ONE of these exact commands:\n"+
			"- SEARCH_AREA (if no targets nearby)\n"+
			"- MOVE_TO_TARGET x,y (if target coordinates are known)\n"+
			"- REPORT_FINDING (if target is found)\n"+
			"- IDLE (if no action needed)\n\n"+
			"Respond with just the command, nothing else.", analysis)
	decision, err := m.chat(ctx, decisionPrompt)
	if err != nil {
		return Command{}, fmt.Errorf("decision: %w", err)
	}
	return Parse(decision), nil
}

// chat sends one user message and returns the assistant reply,
// retrying transient failures up to the configured attempt count with
// a fixed backoff.
func (m *Model) chat(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		if attempt > 1 {
			m.logger.Debug("retrying chat call", "attempt", attempt, "error", lastErr)
			select {
			case <-m.clock.After(m.backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		reply, err := m.chatOnce(ctx, prompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (m *Model) chatOnce(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: m.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := m.endpoint + "/v1/chat/completions"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := m.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("chat completions request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return "", fmt.Errorf("chat completions: HTTP %d: %s", response.StatusCode, detail)
	}

	var parsed chatResponse
	if err := json.NewDecoder(response.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completions: response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// Chat completions wire format, request and response. Only the fields
// this client uses.

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
