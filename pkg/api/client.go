package api

// CALCULATOR API CLIENT

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"webcalc/internal/calculator"
	"webcalc/internal/leads"
)

const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
	userAgent      = "webcalc-wizard/1.0"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// SubmitResponse mirrors the lead endpoint reply.
type SubmitResponse struct {
	OK          bool                    `json:"ok"`
	PriceResult *calculator.PriceResult `json:"priceResult,omitempty"`
	Error       string                  `json:"error,omitempty"`
}

// ResponseError is returned for non-2xx replies and for ok:false bodies.
type ResponseError struct {
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status: %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// UserMessage is the server provided text shown to the visitor.
func (e *ResponseError) UserMessage() string {
	return e.Message
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Submit posts the calculator to /api/calculator. It does not retry: a
// failed submission is repeated by the visitor.
//
// The visitor's address and user agent from leads.MetaFromContext are
// forwarded, so the lead endpoint rate limits and records the visitor rather
// than this host. The endpoint has to list this host in HTTP_TRUSTED_PROXIES
// to honour X-Forwarded-For.
func (c *Client) Submit(ctx context.Context, sub calculator.Submission) (*calculator.PriceResult, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/api/calculator", c.baseURL),
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Double-submit pair: the same random value in the cookie and the header.
	token := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	meta := leads.MetaFromContext(ctx)
	if meta.IP != "" {
		req.Header.Set("X-Forwarded-For", meta.IP)
	}
	if meta.UserAgent != "" {
		req.Header.Set("User-Agent", meta.UserAgent)
	}
	if meta.Referer != "" {
		req.Header.Set("Referer", meta.Referer)
	}
	req.Header.Set(CSRFHeaderName, token)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: token})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out SubmitResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("Calculator API returned a non-JSON body",
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &ResponseError{StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !out.OK {
		return nil, &ResponseError{StatusCode: resp.StatusCode, Message: out.Error}
	}
	if out.PriceResult == nil {
		return nil, fmt.Errorf("response without price result")
	}
	return out.PriceResult, nil
}
