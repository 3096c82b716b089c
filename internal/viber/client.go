package viber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"uk.co.dudmesh.viberrelay/internal/model"
)

const (
	AuthTokenHeader = "X-Viber-Auth-Token"

	OpSendMessage    = "send_message"
	OpGetAccountInfo = "get_account_info"
	OpSetWebhook     = "set_webhook"

	maxResponseSize = 1 << 20
)

type Config interface {
	ViberAPIURL() string
	RemoteTimeout() time.Duration
	SenderName() string
	SenderAvatar() string
	MinAPIVersion() int
}

// Client translates relay requests into platform REST calls. It never retries;
// every outcome is either a typed payload, a *model.RemoteRejectedError or a
// *model.RemoteUnavailableError.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	sender        *sender
	minAPIVersion int
}

func New(config Config) *Client {
	var defaultSender *sender
	if config.SenderName() != "" {
		defaultSender = &sender{Name: config.SenderName(), Avatar: config.SenderAvatar()}
	}
	return &Client{
		baseURL:       strings.TrimRight(config.ViberAPIURL(), "/"),
		httpClient:    &http.Client{Timeout: config.RemoteTimeout()},
		sender:        defaultSender,
		minAPIVersion: config.MinAPIVersion(),
	}
}

func (c *Client) SendMessage(ctx context.Context, token string, message *model.OutboundMessage) (*model.SendResult, error) {
	req := newSendMessageRequest(message, c.sender, c.minAPIVersion)

	var resp sendMessageResponse
	if err := c.post(ctx, token, OpSendMessage, req, &resp); err != nil {
		return nil, err
	}

	return &model.SendResult{
		Receiver:     message.Receiver,
		Type:         message.Type,
		Success:      true,
		MessageToken: resp.MessageToken,
		ChatHostname: resp.ChatHostname,
	}, nil
}

func (c *Client) GetAccountInfo(ctx context.Context, token string) (*model.AccountInfo, error) {
	var resp accountInfoResponse
	if err := c.post(ctx, token, OpGetAccountInfo, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

// SetWebhook points the bot's callbacks at url. A nil eventTypes requests
// DefaultEventTypes.
func (c *Client) SetWebhook(ctx context.Context, token string, url string, eventTypes []string) error {
	if eventTypes == nil {
		eventTypes = DefaultEventTypes
	}
	req := &setWebhookRequest{
		URL:        url,
		EventTypes: eventTypes,
		SendName:   true,
		SendPhoto:  true,
	}
	var resp setWebhookResponse
	return c.post(ctx, token, OpSetWebhook, req, &resp)
}

func (c *Client) post(ctx context.Context, token string, op string, body interface{}, out statusCarrier) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshalling %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(AuthTokenHeader, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &model.RemoteUnavailableError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &model.RemoteUnavailableError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return &model.RemoteUnavailableError{Op: op, Err: fmt.Errorf("unexpected http status %d", resp.StatusCode)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &model.RemoteUnavailableError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}

	result := out.result()
	if result.Status != StatusOK {
		statusMessage := result.StatusMessage
		if statusMessage == "" {
			statusMessage = StatusName(result.Status)
		}
		return &model.RemoteRejectedError{
			Op:            op,
			Status:        result.Status,
			StatusMessage: statusMessage,
			Detail:        json.RawMessage(raw),
		}
	}

	return nil
}
