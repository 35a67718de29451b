// Package paystack implements the payment gateway on the Paystack REST API.
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
	"strings"
	"time"

	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
	"github.com/codeabuu/simplifydocs/internal/infrastructure/metrics"
)

const (
	defaultBaseURL = "https://api.paystack.co"
	defaultTimeout = 10 * time.Second
)

// Config configures the Paystack client.
type Config struct {
	SecretKey string
	BaseURL   string
	Currency  string
	Timeout   time.Duration
}

// PaystackProvider implements provider.PaymentGateway.
type PaystackProvider struct {
	secretKey string
	baseURL   string
	currency  string
	timeout   time.Duration
	client    *http.Client
	logger    *zap.Logger
}

var _ provider.PaymentGateway = (*PaystackProvider)(nil)

// NewPaystackProvider creates a new Paystack gateway
func NewPaystackProvider(cfg Config, logger *zap.Logger) *PaystackProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &PaystackProvider{
		secretKey: cfg.SecretKey,
		baseURL:   baseURL,
		currency:  cfg.Currency,
		timeout:   timeout,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.Named("paystack"),
	}
}

// GetProviderName returns the provider name
func (p *PaystackProvider) GetProviderName() string {
	return string(provider.ProviderTypePaystack)
}

// envelope is the common Paystack response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta,omitempty"`
}

// call performs one API request and decodes data into out. Failures are
// classified as ProviderUnavailable, NotFound or VerificationFailed.
func (p *PaystackProvider) call(ctx context.Context, operation, method, path string, body interface{}, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveGatewayRequest(operation, outcomeLabel(err), time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return billingerrors.Internal("failed to encode paystack request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return billingerrors.Internal("failed to create paystack request", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("Paystack request failed",
			zap.String("operation", operation),
			zap.Error(err))
		return billingerrors.ProviderUnavailable("payment provider unavailable", &provider.ProviderError{
			Code:    "NETWORK_ERROR",
			Message: "Paystack request failed",
			Details: describeNetError(err),
		})
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return billingerrors.ProviderUnavailable("payment provider unavailable", &provider.ProviderError{
			Code:    "RESPONSE_ERROR",
			Message: "Failed to read Paystack response",
			Details: err.Error(),
		})
	}

	var env envelope
	decodeErr := json.Unmarshal(respBody, &env)

	providerErr := &provider.ProviderError{
		Code:       fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Message:    env.Message,
		StatusCode: resp.StatusCode,
	}
	if providerErr.Message == "" {
		providerErr.Message = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		p.logger.Warn("Paystack server error",
			zap.String("operation", operation),
			zap.Int("status_code", resp.StatusCode))
		return billingerrors.ProviderUnavailable("payment provider unavailable", providerErr)
	case resp.StatusCode == http.StatusNotFound:
		return billingerrors.NotFoundWrap(operation+": not found at payment provider", providerErr)
	case resp.StatusCode == http.StatusTooManyRequests:
		return billingerrors.ProviderUnavailable("payment provider rate limited", providerErr)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// A rejected key is a configuration fault, not a verdict on the object.
		p.logger.Error("Paystack rejected credentials",
			zap.String("operation", operation),
			zap.Int("status_code", resp.StatusCode))
		return billingerrors.Internal(operation+": payment provider rejected credentials", providerErr)
	case resp.StatusCode >= http.StatusBadRequest:
		p.logger.Warn("Paystack rejected request",
			zap.String("operation", operation),
			zap.Int("status_code", resp.StatusCode),
			zap.String("message", env.Message))
		return billingerrors.VerificationFailed(operation+": rejected by payment provider", providerErr)
	}

	if decodeErr != nil {
		providerErr.Code = "PARSE_ERROR"
		providerErr.Details = decodeErr.Error()
		return billingerrors.ProviderUnavailable("unreadable payment provider response", providerErr)
	}
	if !env.Status {
		providerErr.Code = "STATUS_FALSE"
		return billingerrors.VerificationFailed(operation+": "+providerErr.Message, providerErr)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return billingerrors.ProviderUnavailable("unreadable payment provider response", &provider.ProviderError{
				Code:    "PARSE_ERROR",
				Message: "Failed to parse Paystack data",
				Details: err.Error(),
			})
		}
	}
	return nil
}

func describeNetError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout: " + err.Error()
	}
	return err.Error()
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case billingerrors.IsProviderUnavailable(err):
		return "unavailable"
	case billingerrors.IsNotFound(err):
		return "not_found"
	case billingerrors.IsVerificationFailed(err):
		return "rejected"
	default:
		return "error"
	}
}
