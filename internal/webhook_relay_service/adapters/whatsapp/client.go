package whatsapp

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

	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/domain"
)

const messagingProduct = "whatsapp"

// ClientConfig holds the Cloud API coordinates for one business phone number.
type ClientConfig struct {
	BaseURL       string // e.g. https://graph.facebook.com
	APIVersion    string // e.g. v22.0
	PhoneNumberID string
	AccessToken   string
	Timeout       time.Duration
}

// Client calls the WhatsApp Cloud API send-message endpoint.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	endpoint   string
	token      string
}

// SendTextRequest is the JSON body for a text message.
type SendTextRequest struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Text             TextPayload `json:"text"`
}

type TextPayload struct {
	Body string `json:"body"`
}

// SendTextResponse is the success body returned by the Send API.
type SendTextResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// ErrorResponse is the Graph API error envelope.
type ErrorResponse struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// NewClient builds a Send API client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg ClientConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		logger:     logger.With("component", "whatsapp_client"),
		httpClient: httpClient,
		endpoint:   fmt.Sprintf("%s/%s/%s/messages", strings.TrimRight(cfg.BaseURL, "/"), cfg.APIVersion, cfg.PhoneNumberID),
		token:      cfg.AccessToken,
	}
}

// Endpoint returns the send-message URL this client posts to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// SendText posts a single text message to `to`. It never retries.
func (c *Client) SendText(ctx context.Context, to string, body string) (*domain.SendResult, error) {
	reqBytes, err := json.Marshal(SendTextRequest{
		MessagingProduct: messagingProduct,
		To:               to,
		Text:             TextPayload{Body: body},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %w", domain.ErrSendFailure, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", domain.ErrSendFailure, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	c.logger.DebugContext(ctx, "Sending WhatsApp text message", "to", to, "body_len", len(body))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSendFailure, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response (status %d): %w", domain.ErrSendFailure, httpResp.StatusCode, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", domain.ErrSendFailure, describeAPIError(httpResp.StatusCode, respBody))
	}

	result := &domain.SendResult{StatusCode: httpResp.StatusCode}
	var parsed SendTextResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		c.logger.WarnContext(ctx, "Send accepted but response body could not be parsed", "status_code", httpResp.StatusCode, "error", err)
		return result, nil
	}
	if len(parsed.Messages) > 0 {
		result.ProviderMessageID = parsed.Messages[0].ID
	}
	return result, nil
}

func describeAPIError(status int, body []byte) string {
	var apiErr ErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Sprintf("whatsapp API status %d: %s (type=%s code=%d)", status, apiErr.Error.Message, apiErr.Error.Type, apiErr.Error.Code)
	}
	if len(body) > 0 && len(body) < 256 {
		return fmt.Sprintf("whatsapp API status %d: %s", status, string(body))
	}
	return fmt.Sprintf("whatsapp API status %d", status)
}
