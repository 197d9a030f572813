package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/common"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/logging"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/server/auth"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/server/models"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/server/services"
)

var testSecret = []byte("test-secret")

// stubMedia is a scripted MediaProvider for handler tests.
type stubMedia struct {
	credential *services.Credential
	credErr    error

	confirmResult *services.ConfirmResult
	confirmErr    error
	lastDeviceID  string

	records []*models.MediaRecord
	listErr error
}

func (s *stubMedia) IssueUploadCredential(ctx context.Context, deviceID string, req services.CredentialRequest) (*services.Credential, error) {
	s.lastDeviceID = deviceID
	return s.credential, s.credErr
}

func (s *stubMedia) Confirm(ctx context.Context, deviceID string, req services.ConfirmRequest) (*services.ConfirmResult, error) {
	s.lastDeviceID = deviceID
	return s.confirmResult, s.confirmErr
}

func (s *stubMedia) ListReportMedia(ctx context.Context, reportID string) ([]*models.MediaRecord, error) {
	return s.records, s.listErr
}

func newTestServer(t *testing.T, media MediaProvider) *httptest.Server {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(NewRouter(media, testSecret, logger))
	t.Cleanup(srv.Close)
	return srv
}

func deviceToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken("device-7", testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestPing_NoAuthRequired(t *testing.T) {
	srv := newTestServer(t, &stubMedia{})

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubMedia{})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIssueCredential_RequiresToken(t *testing.T) {
	srv := newTestServer(t, &stubMedia{})

	resp := postJSON(t, srv.URL+"/api/v1/uploads", "", map[string]string{"id": "x"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIssueCredential_InvalidTokenRejected(t *testing.T) {
	srv := newTestServer(t, &stubMedia{})

	resp := postJSON(t, srv.URL+"/api/v1/uploads", "garbage", map[string]string{"id": "x"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIssueCredential_Success(t *testing.T) {
	stub := &stubMedia{credential: &services.Credential{
		UploadTarget:    "http://minio/presigned",
		PublicReference: "reports/r1/media/m1",
		ExpiresAt:       time.Now().Add(15 * time.Minute),
	}}
	srv := newTestServer(t, stub)

	resp := postJSON(t, srv.URL+"/api/v1/uploads", deviceToken(t), credentialRequest{
		ID: "m1", ReportID: "r1", Kind: "photo", MimeType: "image/jpeg",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got credentialResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "http://minio/presigned", got.UploadTarget)
	assert.Equal(t, "reports/r1/media/m1", got.PublicReference)
	assert.Equal(t, "device-7", stub.lastDeviceID)
}

func TestIssueCredential_ValidationMapsTo422(t *testing.T) {
	stub := &stubMedia{credErr: common.ErrValidation}
	srv := newTestServer(t, stub)

	resp := postJSON(t, srv.URL+"/api/v1/uploads", deviceToken(t), credentialRequest{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestConfirm_Success(t *testing.T) {
	stub := &stubMedia{confirmResult: &services.ConfirmResult{
		Accepted:           true,
		CanonicalReference: "reports/r1/media/m1",
	}}
	srv := newTestServer(t, stub)

	resp := postJSON(t, srv.URL+"/api/v1/uploads/confirm", deviceToken(t), confirmRequest{
		ID: "m1", ReportID: "r1", Kind: "photo", MimeType: "image/jpeg",
		ContentDigest: "abcd", ByteSize: 4, CapturedAt: time.Now(),
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got confirmResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.True(t, got.Accepted)
	assert.Equal(t, "reports/r1/media/m1", got.CanonicalReference)
}

func TestConfirm_IntegrityMismatchMapsTo409(t *testing.T) {
	stub := &stubMedia{confirmErr: common.ErrIntegrityMismatch}
	srv := newTestServer(t, stub)

	resp := postJSON(t, srv.URL+"/api/v1/uploads/confirm", deviceToken(t), confirmRequest{ID: "m1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var eb map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&eb))
	assert.Contains(t, eb["error"], "digest mismatch")
}

func TestConfirm_MalformedJSON(t *testing.T) {
	srv := newTestServer(t, &stubMedia{})

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/uploads/confirm", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	req.Header.Set(common.AuthorizationHeaderName, "Bearer "+deviceToken(t))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListReportMedia(t *testing.T) {
	stub := &stubMedia{records: []*models.MediaRecord{{
		ID:            "m1",
		ReportID:      "r1",
		Kind:          "photo",
		MimeType:      "image/jpeg",
		ByteSize:      4,
		ContentDigest: "abcd",
		StorageKey:    "reports/r1/media/m1",
		CapturedAt:    time.Now(),
	}}}
	srv := newTestServer(t, stub)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/reports/r1/media", nil)
	require.NoError(t, err)
	req.Header.Set(common.AuthorizationHeaderName, "Bearer "+deviceToken(t))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []mediaRecordResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "reports/r1/media/m1", got[0].StorageKey)
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	stub := &stubMedia{confirmErr: assertAnError{}}
	srv := newTestServer(t, stub)

	resp := postJSON(t, srv.URL+"/api/v1/uploads/confirm", deviceToken(t), confirmRequest{ID: "m1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var eb map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&eb))
	assert.Equal(t, "internal error", eb["error"])
}

type assertAnError struct{}

func (assertAnError) Error() string { return "pg: connection refused" }
