package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WhatsAppProvider sends messages through a WhatsApp HTTP gateway.
//
// The gateway API is a thin REST surface:
//
//	POST {base}/messages  {"to":"+65...","body":"..."}  (bearer auth)
//	GET  {base}/health
type WhatsAppProvider struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewWhatsAppProvider(baseURL, token string) *WhatsAppProvider {
	return &WhatsAppProvider{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *WhatsAppProvider) Name() string { return "whatsapp" }

func (p *WhatsAppProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway health returned %d", resp.StatusCode)
	}
	return nil
}

type sendRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

func (p *WhatsAppProvider) SendText(ctx context.Context, phone, text string) error {
	if phone == "" {
		return errors.New("gateway: phone is required")
	}
	if text == "" {
		return errors.New("gateway: text is required")
	}

	body, err := json.Marshal(sendRequest{To: phone, Body: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Truncated body only; provider error pages can be large.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("gateway send returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
