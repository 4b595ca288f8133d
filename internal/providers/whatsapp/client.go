package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/invoicepadi/internal/config"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured    = errors.New("whatsapp_not_configured")
	ErrInvalidRecipient = errors.New("whatsapp_invalid_recipient")
)

const (
	MediaDocument = "document"
	MediaImage    = "image"
)

type Media struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// SendResult is the delivery outcome. A rejected message is not an error.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

type Sender interface {
	SendText(ctx context.Context, phone, text string) (*SendResult, error)
	SendMedia(ctx context.Context, phone, mediaType string, media Media) (*SendResult, error)
}

type termiiClient struct {
	cfg  config.TermiiConfig
	http *http.Client
	log  *zap.Logger
}

type sendRequest struct {
	APIKey  string `json:"api_key"`
	To      string `json:"to"`
	From    string `json:"from"`
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Media   Media  `json:"media"`
	SMS     string `json:"sms,omitempty"`
}

type sendResponse struct {
	Code      string `json:"code"`
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
}

func NewSender(cfg config.Config, log *zap.Logger) Sender {
	return New(cfg.Termii, log)
}

func New(cfg config.TermiiConfig, log *zap.Logger) Sender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &termiiClient{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log.Named("whatsapp.termii"),
	}
}

func (c *termiiClient) SendText(ctx context.Context, phone, text string) (*SendResult, error) {
	return c.send(ctx, phone, sendRequest{Type: "text", SMS: text})
}

func (c *termiiClient) SendMedia(ctx context.Context, phone, mediaType string, media Media) (*SendResult, error) {
	if mediaType == "" {
		mediaType = MediaDocument
	}
	return c.send(ctx, phone, sendRequest{Type: mediaType, Media: media})
}

func (c *termiiClient) send(ctx context.Context, phone string, req sendRequest) (*SendResult, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	to := NormalizePhone(phone)
	if to == "" {
		return nil, ErrInvalidRecipient
	}

	req.APIKey = c.cfg.APIKey
	req.To = to
	req.From = c.cfg.ChannelID
	req.Channel = "whatsapp"

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/send/whatsapp", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Warn("termii request failed", zap.Error(err))
		return nil, fmt.Errorf("termii send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("termii read: %w", err)
	}

	var out sendResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("termii decode: %w", err)
		}
	}

	if out.Code != "ok" {
		message := out.Message
		if message == "" {
			message = "Failed to send WhatsApp message"
		}
		c.log.Info("termii rejected message",
			zap.Int("status_code", resp.StatusCode),
			zap.String("message", message),
		)
		return &SendResult{Success: false, Message: message}, nil
	}

	return &SendResult{
		Success:   true,
		MessageID: out.MessageID,
		Message:   "WhatsApp message sent successfully",
	}, nil
}
