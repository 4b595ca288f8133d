package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/invoicepadi/internal/config"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=mock/mock_client.go -package=mock github.com/smallbiznis/invoicepadi/internal/providers/paystack Client

// Client is the subset of the Paystack API used for card tokenization,
// subscription charges, invoice collection and merchant payouts.
type Client interface {
	InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*Transaction, error)
	ChargeAuthorization(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	CreateSubaccount(ctx context.Context, req SubaccountRequest) (*SubaccountResult, error)
}

type httpClient struct {
	baseURL   string
	secretKey string
	http      *http.Client
	log       *zap.Logger
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func NewClient(cfg config.Config, log *zap.Logger) Client {
	return New(cfg.Paystack, log)
}

func New(cfg config.PaystackConfig, log *zap.Logger) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &httpClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		http:      &http.Client{Timeout: timeout},
		log:       log.Named("paystack.client"),
	}
}

func (c *httpClient) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	body := map[string]any{
		"email":    req.Email,
		"amount":   req.AmountKobo,
		"currency": req.Currency,
	}
	if req.CallbackURL != "" {
		body["callback_url"] = req.CallbackURL
	}
	if req.Reference != "" {
		body["reference"] = req.Reference
	}
	if len(req.Channels) > 0 {
		body["channels"] = req.Channels
	}
	if req.Subaccount != "" {
		body["subaccount"] = req.Subaccount
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	msg, err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &data)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return &InitializeResult{Success: false, Message: apiErr.Message}, nil
		}
		return nil, err
	}

	return &InitializeResult{
		Success:    true,
		Message:    msg,
		PaymentURL: data.AuthorizationURL,
		AccessCode: data.AccessCode,
		Reference:  data.Reference,
	}, nil
}

func (c *httpClient) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, &APIError{StatusCode: http.StatusBadRequest, Message: "reference is required"}
	}

	var tx Transaction
	if _, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *httpClient) ChargeAuthorization(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	body := map[string]any{
		"authorization_code": req.AuthorizationCode,
		"email":              req.Email,
		"amount":             req.AmountKobo,
		"currency":           req.Currency,
		"reference":          req.Reference,
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	var data Transaction
	msg, err := c.do(ctx, http.MethodPost, "/transaction/charge_authorization", body, &data)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return &ChargeResult{Success: false, Status: StatusFailed, Message: apiErr.Message, Reference: req.Reference}, nil
		}
		return nil, err
	}

	result := &ChargeResult{
		Success:   data.Succeeded(),
		Status:    data.Status,
		Message:   msg,
		Reference: data.Reference,
		PaidAt:    data.PaidAt,
	}
	if result.Reference == "" {
		result.Reference = req.Reference
	}
	if !result.Success && data.GatewayResponse != "" {
		result.Message = data.GatewayResponse
	}
	return result, nil
}

func (c *httpClient) CreateSubaccount(ctx context.Context, req SubaccountRequest) (*SubaccountResult, error) {
	body := map[string]any{
		"business_name":     req.BusinessName,
		"settlement_bank":   req.SettlementBank,
		"account_number":    req.AccountNumber,
		"percentage_charge": req.PercentageCharge,
	}
	if req.Description != "" {
		body["description"] = req.Description
	}

	var data struct {
		SubaccountCode string `json:"subaccount_code"`
		SettlementBank string `json:"settlement_bank"`
		AccountName    string `json:"account_name"`
		BusinessName   string `json:"business_name"`
	}
	msg, err := c.do(ctx, http.MethodPost, "/subaccount", body, &data)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return &SubaccountResult{Success: false, Message: apiErr.Message}, nil
		}
		return nil, err
	}

	accountName := data.AccountName
	if accountName == "" {
		accountName = data.BusinessName
	}
	return &SubaccountResult{
		Success:        true,
		Message:        msg,
		SubaccountCode: data.SubaccountCode,
		SettlementBank: data.SettlementBank,
		AccountName:    accountName,
	}, nil
}

// do sends one request. Transport failures and 5xx become ErrUpstreamUnavailable;
// a 4xx or status=false envelope becomes *APIError.
func (c *httpClient) do(ctx context.Context, method, path string, body any, out any) (string, error) {
	if c.secretKey == "" {
		return "", ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return "", err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("paystack request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %s %s: %v", ErrUpstreamUnavailable, method, path, transportReason(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("%w: %s %s returned %d", ErrUpstreamUnavailable, method, path, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("%w: decode %s: %v", ErrUpstreamUnavailable, path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Status {
		message := strings.TrimSpace(env.Message)
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("%w: decode %s data: %v", ErrUpstreamUnavailable, path, err)
		}
	}
	return env.Message, nil
}

func transportReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "transport error"
}
