package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
)

// Message is one turn of a conversation sent to the completion endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the text-completion and embedding boundary used by the rest of
// the backend. Callers treat both models as opaque services.
type Client interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)

	// Complete returns the full completion for the given messages. An empty
	// model falls back to the client default.
	Complete(ctx context.Context, messages []Message, model string) (string, error)

	// StreamCompletion streams completion deltas through onDelta and returns
	// the accumulated text.
	StreamCompletion(ctx context.Context, messages []Message, model string, onDelta func(delta string)) (string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	embedModel string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = "gpt-4o"
	}

	embed := strings.TrimSpace(os.Getenv("OPENAI_EMBED_MODEL"))
	if embed == "" {
		embed = "text-embedding-3-small"
	}

	timeoutSec := 120
	if v := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 3
	if v := strings.TrimSpace(os.Getenv("OPENAI_MAX_RETRIES")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &client{
		log:        log.With("service", "OpenAIClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		embedModel: embed,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, truncate(e.Body, 300))
}

func retryable(err error) bool {
	if he, ok := err.(*httpError); ok {
		return he.StatusCode == http.StatusTooManyRequests || he.StatusCode >= 500
	}
	// Network-level failures are retried; context cancellation is not.
	return err != nil && !strings.Contains(err.Error(), "context canceled")
}

func (c *client) doJSON(ctx context.Context, path string, body any, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			c.log.Warn("retrying openai request", "path", path, "attempt", attempt, "delay", delay.String(), "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if retryable(err) {
				continue
			}
			return err
		}
		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = &httpError{StatusCode: resp.StatusCode, Body: string(respBody)}
			if retryable(lastErr) {
				continue
			}
			return lastErr
		}
		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode openai response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func backoffDelay(attempt int) time.Duration {
	base := time.Duration(math.Pow(2, float64(attempt-1))) * 500 * time.Millisecond
	if base > 8*time.Second {
		base = 8 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base / 4)))
	return base + jitter
}

func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"model": c.embedModel,
		"input": inputs,
	}
	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, "/v1/embeddings", reqBody, &out); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(out.Data) != len(inputs) {
		return nil, fmt.Errorf("embed: got %d vectors for %d inputs", len(out.Data), len(inputs))
	}
	vectors := make([][]float32, len(inputs))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embed: index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

func (c *client) Complete(ctx context.Context, messages []Message, model string) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("complete: no messages")
	}
	if strings.TrimSpace(model) == "" {
		model = c.model
	}
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.doJSON(ctx, "/v1/chat/completions", chatRequest{Model: model, Messages: messages}, &out); err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("complete: empty choices")
	}
	return out.Choices[0].Message.Content, nil
}

func (c *client) StreamCompletion(ctx context.Context, messages []Message, model string, onDelta func(delta string)) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("stream: no messages")
	}
	if strings.TrimSpace(model) == "" {
		model = c.model
	}

	raw, err := json.Marshal(chatRequest{Model: model, Messages: messages, Stream: true})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", &httpError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var full strings.Builder
	err = streamSSE(resp.Body, func(_ string, data string) error {
		data = strings.TrimSpace(data)
		if data == "" || data == "[DONE]" {
			return nil
		}
		var obj struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal([]byte(data), &obj); err != nil {
			return nil
		}
		if obj.Error != nil {
			return fmt.Errorf("openai stream error: %s", obj.Error.Message)
		}
		for _, ch := range obj.Choices {
			if ch.Delta.Content == "" {
				continue
			}
			full.WriteString(ch.Delta.Content)
			if onDelta != nil {
				onDelta(ch.Delta.Content)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return full.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
