// Package dodo is the REST adapter for the subscription provider's HTTP API.
// Responses are decoded loosely and normalized by the mapper package.
package dodo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wekeepgrowing/billing-gateway/internal/domain/provider"
	"github.com/wekeepgrowing/billing-gateway/pkg/errors"
	"go.uber.org/zap"
)

const (
	LiveBaseURL = "https://live.dodopayments.com"
	TestBaseURL = "https://test.dodopayments.com"

	headerIdempotencyKey = "Idempotency-Key"
	maxResponseBytes     = 4 << 20
)

// Provider implements provider.Gateway over the REST API.
type Provider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

var _ provider.Gateway = (*Provider)(nil)

func NewProvider(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Provider {
	if baseURL == "" {
		baseURL = TestBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("dodo"),
	}
}

func (p *Provider) Name() provider.ProviderType {
	return provider.ProviderTypeDodo
}

// do sends one request and returns the raw body of a 2xx response. Non-2xx
// responses become *provider.ProviderError; transport failures are returned
// wrapped so the resilience layer can classify them.
func (p *Provider) do(ctx context.Context, method, path string, query url.Values, body interface{}, idempotencyKey string) ([]byte, error) {
	endpoint := p.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidArgument, "failed to encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternal, "failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set(headerIdempotencyKey, idempotencyKey)
	}

	started := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	p.logger.Debug("Provider API call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

func parseError(status int, body []byte) *provider.ProviderError {
	provErr := &provider.ProviderError{HTTPStatus: status, Message: http.StatusText(status)}

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		provErr.Code = payload.Code
		switch {
		case payload.Message != "":
			provErr.Message = payload.Message
		case payload.Error != "":
			provErr.Message = payload.Error
		}
	}
	return provErr
}

func decodeError(op string, err error) error {
	return errors.NewAppError(errors.ErrInternal, "unexpected "+op+" response", err)
}
