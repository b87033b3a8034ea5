package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tryout/internal/domain/event"
)

// Client posts generated sessions to a running service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a simulator client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type wireEvent struct {
	Type          string          `json:"type"`
	Origin        string          `json:"origin,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Data          json.RawMessage `json:"data,omitempty"`
	FilePath      string          `json:"file_path,omitempty"`
	QuestionIndex int             `json:"question_index,omitempty"`
}

type batchRequest struct {
	Nonce  string      `json:"nonce"`
	Events []wireEvent `json:"events"`
}

// PostEvents sends one batch of events with a fresh nonce.
func (c *Client) PostEvents(ctx context.Context, sessionID string, events []event.SessionEvent) error {
	wire := make([]wireEvent, len(events))
	for i, e := range events {
		wire[i] = wireEvent{
			Type:          e.Type,
			Origin:        string(e.Origin),
			Timestamp:     e.Timestamp,
			Data:          e.Data,
			FilePath:      e.FilePath,
			QuestionIndex: e.QuestionIndex,
		}
	}
	body, err := json.Marshal(batchRequest{
		Nonce:  uuid.New().String(),
		Events: wire,
	})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	url := fmt.Sprintf("%s/sessions/%s/events", c.baseURL, sessionID)
	resp, err := c.post(ctx, url, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post events: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// TriggerEvaluation schedules an evaluation and returns its id.
func (c *Client) TriggerEvaluation(ctx context.Context, sessionID, candidateID string) (string, error) {
	body, _ := json.Marshal(map[string]string{"candidate_id": candidateID})
	url := fmt.Sprintf("%s/sessions/%s/evaluation", c.baseURL, sessionID)
	resp, err := c.post(ctx, url, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("trigger evaluation: unexpected status %d", resp.StatusCode)
	}

	var ack struct {
		EvaluationID string `json:"evaluation_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return "", fmt.Errorf("decode evaluation ack: %w", err)
	}
	return ack.EvaluationID, nil
}

// FetchEvaluation polls for the latest completed evaluation until the
// deadline. Returns the raw result JSON.
func (c *Client) FetchEvaluation(ctx context.Context, sessionID string, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	url := fmt.Sprintf("%s/sessions/%s/evaluation", c.baseURL, sessionID)

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch evaluation: %w", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("evaluation not ready after %s (last status %d)", timeout, resp.StatusCode)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (c *Client) post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", url, err)
	}
	return resp, nil
}
