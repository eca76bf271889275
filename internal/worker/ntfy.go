package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/atlantishq/dispatchd/internal/config"
	"github.com/atlantishq/dispatchd/pkg/models"
)

// NtfySender publishes to an ntfy server. Without a fixed topic each
// recipient's username is used as their topic.
type NtfySender struct {
	url        string
	username   string
	password   string
	topic      string
	httpClient *http.Client
}

type ntfyPublishRequest struct {
	Topic   string `json:"topic"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
	Click   string `json:"click,omitempty"`
}

// NewNtfySender creates a sender publishing to the configured ntfy server.
func NewNtfySender(cfg config.NtfyConfig, timeout time.Duration) (*NtfySender, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("ntfy server URL is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NtfySender{
		url:      strings.TrimSuffix(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		topic:    cfg.Topic,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (s *NtfySender) Method() models.DeliveryMethod {
	return models.MethodNtfy
}

func (s *NtfySender) Send(ctx context.Context, view models.DispatchView) error {
	topic := s.topic
	if topic == "" {
		topic = view.Username
	}
	if topic == "" {
		return fmt.Errorf("no ntfy topic for dispatch %s", view.UUID)
	}

	payload, err := json.Marshal(ntfyPublishRequest{
		Topic:   topic,
		Title:   view.Title,
		Message: view.Message,
		Click:   view.Link,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal ntfy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create ntfy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ntfy publish failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ntfy publish returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
