package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go-receipt-scanner/internal/auth"
	"go-receipt-scanner/internal/config"
	apperrors "go-receipt-scanner/internal/errors"
	"go-receipt-scanner/internal/observer"
	"go-receipt-scanner/internal/ocr"
	"go-receipt-scanner/internal/receipt"
	"go-receipt-scanner/internal/service"
	"go-receipt-scanner/internal/transaction"

	"github.com/gin-gonic/gin"
)

type fakeScanService struct {
	result *service.ScanResult
	err    error

	lastPrincipal string
	lastFilename  string
	lastURL       string
	lastExpected  string
}

func (f *fakeScanService) ScanUpload(_ context.Context, principal, filename string, _ []byte, expectedText string, _ ocr.ProgressFunc) (*service.ScanResult, error) {
	f.lastPrincipal = principal
	f.lastFilename = filename
	f.lastExpected = expectedText
	return f.result, f.err
}

func (f *fakeScanService) ScanURL(_ context.Context, principal, imageURL, expectedText string, _ ocr.ProgressFunc) (*service.ScanResult, error) {
	f.lastPrincipal = principal
	f.lastURL = imageURL
	f.lastExpected = expectedText
	return f.result, f.err
}

type testEnv struct {
	router http.Handler
	scans  *fakeScanService
	token  string
	userID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	users, err := auth.NewUserStore(filepath.Join(dir, "users.json"))
	if err != nil {
		t.Fatalf("NewUserStore failed: %v", err)
	}
	transactions, err := transaction.NewStore(filepath.Join(dir, "transactions.json"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	tokens := auth.NewTokenIssuer("test-secret")
	scans := &fakeScanService{
		result: &service.ScanResult{
			OCRText:       "Total: $10.00",
			Confidence:    0.9,
			ExtractedData: receipt.Parse("Total: $10.00"),
		},
	}

	cfg := &config.Config{
		MaxUploadBytes: 10 * 1024 * 1024,
		RequestTimeout: 5 * time.Second,
	}

	router := NewHandler(Deps{
		Scans:        scans,
		Transactions: transactions,
		Users:        users,
		Tokens:       tokens,
		Metrics:      observer.NewMetricsObserver(),
		Config:       cfg,
	})

	user, err := users.Create("test@example.com", "password1", "Test User")
	if err != nil {
		t.Fatalf("seeding user failed: %v", err)
	}
	token, err := tokens.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	return &testEnv{router: router, scans: scans, token: token, userID: user.ID}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte, contentType string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload interface{}, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshalling payload: %v", err)
	}
	return e.do(t, method, path, body, "application/json", authed)
}

func multipartUpload(t *testing.T, filename, expectedText string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("receipt", filename)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	part.Write([]byte("fake image bytes"))
	if expectedText != "" {
		writer.WriteField("expected_text", expectedText)
	}
	writer.Close()
	return buf.Bytes(), writer.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil, "", false)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "new@example.com",
		"password": "secret99",
		"name":     "New User",
	}, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding register response: %v", err)
	}
	if created.Token == "" || created.User.ID == "" {
		t.Error("register must return a token and user")
	}

	rec = env.doJSON(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "new@example.com",
		"password": "secret99",
	}, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = env.doJSON(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "new@example.com",
		"password": "wrong",
	}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	rec := env.doJSON(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "test@example.com",
		"password": "secret99",
		"name":     "Dup",
	}, false)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", rec.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/ocr/process"},
		{http.MethodPost, "/api/ocr/scan-url"},
		{http.MethodGet, "/api/transactions"},
		{http.MethodGet, "/api/metrics"},
	} {
		rec := env.do(t, route.method, route.path, nil, "", false)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", route.method, route.path, rec.Code)
		}
	}
}

func TestProcessReceipt(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartUpload(t, "receipt.png", "Total: $10.00")
	rec := env.do(t, http.MethodPost, "/api/ocr/process", body, contentType, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if env.scans.lastPrincipal != env.userID {
		t.Errorf("scan principal = %q, want %q", env.scans.lastPrincipal, env.userID)
	}
	if env.scans.lastFilename != "receipt.png" {
		t.Errorf("scan filename = %q", env.scans.lastFilename)
	}
	if env.scans.lastExpected != "Total: $10.00" {
		t.Errorf("expected text = %q", env.scans.lastExpected)
	}

	var result service.ScanResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.OCRText != "Total: $10.00" {
		t.Errorf("ocrText = %q", result.OCRText)
	}
}

func TestProcessReceipt_MissingFile(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.Close()

	rec := env.do(t, http.MethodPost, "/api/ocr/process", buf.Bytes(), writer.FormDataContentType(), true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestProcessReceipt_UnsupportedExtension(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := multipartUpload(t, "receipt.pdf", "")
	rec := env.do(t, http.MethodPost, "/api/ocr/process", body, contentType, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unsupported file type") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestProcessReceipt_ServiceErrorMapping(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ocr failure", apperrors.NewOCRError("engine failed", nil), http.StatusUnprocessableEntity},
		{"superseded", apperrors.NewConflictError("scan superseded by a newer submission", service.ErrScanSuperseded), http.StatusConflict},
		{"timeout", apperrors.NewTimeoutError("text extraction timed out", nil), http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.scans.err = tt.err
			body, contentType := multipartUpload(t, "receipt.png", "")
			rec := env.do(t, http.MethodPost, "/api/ocr/process", body, contentType, true)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestScanURL(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/ocr/scan-url", map[string]string{
		"url": "https://example.com/receipt.png",
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if env.scans.lastURL != "https://example.com/receipt.png" {
		t.Errorf("scan url = %q", env.scans.lastURL)
	}

	rec = env.doJSON(t, http.MethodPost, "/api/ocr/scan-url", map[string]string{}, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing url status = %d, want 400", rec.Code)
	}
}

func TestTransactionCRUD(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]interface{}{
		"type":          "expense",
		"amount":        23.45,
		"description":   "Joe's Diner",
		"category":      "Cafe & Restaurants",
		"date":          "2024-03-15",
		"paymentMethod": "credit",
		"account":       "personal",
	}
	rec := env.doJSON(t, http.MethodPost, "/api/transactions", payload, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created transaction.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding create response: %v", err)
	}

	rec = env.do(t, http.MethodGet, "/api/transactions", nil, "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list []transaction.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("list length = %d, want 1", len(list))
	}

	rec = env.do(t, http.MethodGet, "/api/transactions/"+created.ID, nil, "", true)
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec = env.doJSON(t, http.MethodPut, "/api/transactions/"+created.ID, map[string]interface{}{
		"amount": 25.00,
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated transaction.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decoding update response: %v", err)
	}
	if updated.Amount != 25.00 {
		t.Errorf("updated amount = %v, want 25", updated.Amount)
	}
	if updated.Description != "Joe's Diner" {
		t.Errorf("partial update must keep description, got %q", updated.Description)
	}

	rec = env.do(t, http.MethodDelete, "/api/transactions/"+created.ID, nil, "", true)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/transactions/"+created.ID, nil, "", true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestCreateTransaction_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/transactions", map[string]interface{}{
		"type":   "expense",
		"amount": 5.0,
	}, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "missing required fields") {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = env.doJSON(t, http.MethodPost, "/api/transactions", map[string]interface{}{
		"type":          "bogus",
		"amount":        5.0,
		"description":   "x",
		"category":      "Other",
		"date":          "2024-01-01",
		"paymentMethod": "cash",
		"account":       "personal",
	}, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid type status = %d, want 400", rec.Code)
	}
}

func TestListTransactions_QueryFilters(t *testing.T) {
	env := newTestEnv(t)

	for i, cat := range []string{"Travel", "Other"} {
		payload := map[string]interface{}{
			"type":          "expense",
			"amount":        float64(10 + i),
			"description":   fmt.Sprintf("tx-%d", i),
			"category":      cat,
			"date":          fmt.Sprintf("2024-0%d-01", i+1),
			"paymentMethod": "cash",
			"account":       "personal",
		}
		if rec := env.doJSON(t, http.MethodPost, "/api/transactions", payload, true); rec.Code != http.StatusCreated {
			t.Fatalf("seed create status = %d", rec.Code)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/transactions?category=Travel", nil, "", true)
	var list []transaction.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(list) != 1 || list[0].Category != "Travel" {
		t.Errorf("filtered list = %+v", list)
	}
}

func TestScanMetrics(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/metrics", nil, "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var metrics map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("decoding metrics: %v", err)
	}
	if _, ok := metrics["total_scans"]; !ok {
		t.Error("metrics must include total_scans")
	}
}
