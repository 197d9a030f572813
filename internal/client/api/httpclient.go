package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/common"
)

// HTTPClient implements Client over the server's JSON API. Every call is
// bound to the caller's context; timeouts are the caller's responsibility
// so the scheduler can apply per-phase budgets.
type HTTPClient struct {
	baseURL     string
	deviceToken string
	httpClient  *http.Client
}

// NewHTTPClient builds a client for the ingest API at baseURL, e.g.
// "http://127.0.0.1:8080". deviceToken is the pre-issued bearer token.
func NewHTTPClient(baseURL string, deviceToken string) *HTTPClient {
	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		deviceToken: deviceToken,
		httpClient:  &http.Client{},
	}
}

func (c *HTTPClient) Close() error { return nil }

// Ping probes the unauthenticated health endpoint.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping returned %s", common.ErrUnavailable, resp.Status)
	}
	return nil
}

// RequestUploadCredential obtains a presigned upload target.
func (c *HTTPClient) RequestUploadCredential(ctx context.Context, req CredentialRequest) (*UploadCredential, error) {
	var cred UploadCredential
	if err := c.postJSON(ctx, "/api/v1/uploads", req, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// Confirm reports a completed transfer for verification.
func (c *HTTPClient) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	var result ConfirmResult
	if err := c.postJSON(ctx, "/api/v1/uploads/confirm", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.AuthorizationHeaderName, "Bearer "+c.deviceToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return json.NewDecoder(resp.Body).Decode(out)
	}

	return c.mapError(resp)
}

// errorBody is the server's JSON error shape.
type errorBody struct {
	Error string `json:"error"`
}

func (c *HTTPClient) mapError(resp *http.Response) error {
	var eb errorBody
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(b, &eb)
	detail := eb.Error
	if detail == "" {
		detail = strings.TrimSpace(string(b))
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", common.ErrUnauthorized, detail)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", common.ErrIntegrityMismatch, detail)
	case http.StatusUnprocessableEntity, http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: %s", common.ErrValidation, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, detail)
	default:
		// 5xx and anything unexpected counts as transient
		return fmt.Errorf("%w: %s: %s", common.ErrUnavailable, resp.Status, detail)
	}
}
