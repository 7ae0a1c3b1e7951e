package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hospitalops/parlogic/internal/analysis"
	"github.com/hospitalops/parlogic/internal/api/middleware"
	"github.com/hospitalops/parlogic/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, keySpec string) *gin.Engine {
	t.Helper()

	keys, err := middleware.ParseAPIKeys(keySpec)
	require.NoError(t, err)

	engine := analysis.NewEngine(0.95, 7)
	svc := service.NewInventoryService(engine, nil, nil)

	return NewRouter(svc, RouterConfig{
		APIKeys:   keys,
		UploadDir: t.TempDir(),
	})
}

func doRequest(router *gin.Engine, method, path, apiKey string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if apiKey != "" {
		req.Header.Set(middleware.APIKeyHeader, apiKey)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// steadyTransactionsCSV emits one transaction per month of 2023 with a
// constant 900/month total, so PAR numbers are month-independent.
func steadyTransactionsCSV() string {
	var b strings.Builder
	b.WriteString("item_id,timestamp,quantity,transaction_type\n")
	for m := 1; m <= 12; m++ {
		fmt.Fprintf(&b, "SUP001,2023-%02d-15,900,issue\n", m)
	}
	return b.String()
}

func uploadCSV(t *testing.T, router *gin.Engine, csv string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "usage.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	w := doRequest(router, http.MethodPost, "/api/v1/upload", testAPIKey, body, writer.FormDataContentType())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHealthUnauthenticated(t *testing.T) {
	router := newTestRouter(t, "test-key:test-client:100")

	w := doRequest(router, http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestAuthRejectsMissingAndInvalidKeys(t *testing.T) {
	router := newTestRouter(t, "test-key:test-client:100")

	w := doRequest(router, http.MethodGet, "/api/v1/analyze/usage", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Missing API key")

	w = doRequest(router, http.MethodGet, "/api/v1/analyze/usage", "wrong-key", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API key")
}

func TestAuthRejectsExpiredKey(t *testing.T) {
	keys := middleware.NewAPIKeyStore()
	keys.Add("stale-key", middleware.Client{
		ClientID:  "stale-client",
		RateLimit: 100,
		ExpiresAt: time.Now().Add(-time.Hour),
	})

	engine := analysis.NewEngine(0.95, 7)
	svc := service.NewInventoryService(engine, nil, nil)
	router := NewRouter(svc, RouterConfig{APIKeys: keys, UploadDir: t.TempDir()})

	w := doRequest(router, http.MethodGet, "/api/v1/analyze/usage", "stale-key", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "API key has expired")
}

func TestRateLimitPerClient(t *testing.T) {
	router := newTestRouter(t, "test-key:test-client:3")
	uploadCSV(t, router, steadyTransactionsCSV())

	// the upload already consumed one request from the window
	for i := 0; i < 2; i++ {
		w := doRequest(router, http.MethodGet, "/api/v1/analyze/usage", testAPIKey, nil, "")
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(router, http.MethodGet, "/api/v1/analyze/usage", testAPIKey, nil, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Rate limit exceeded")
}

func TestAnalyzeBeforeUploadConflicts(t *testing.T) {
	router := newTestRouter(t, "test-key:test-client:100")

	w := doRequest(router, http.MethodGet, "/api/v1/analyze/usage", testAPIKey, nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "no data has been set")
}

func TestUploadAndAnalyzeFlow(t *testing.T) {
	router := newTestRouter(t, "test-key:test-client:100")
	uploadCSV(t, router, steadyTransactionsCSV())

	w := doRequest(router, http.MethodGet, "/api/v1/analyze/range", testAPIKey, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var rangeResp struct {
		UsageRange map[string]struct {
			AvgMonthly float64 `json:"avg_monthly"`
		} `json:"usage_range"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rangeResp))
	require.Contains(t, rangeResp.UsageRange, "SUP001")
	assert.InDelta(t, 900.0, rangeResp.UsageRange["SUP001"].AvgMonthly, 1e-9)
}

func TestPARLevelsEndpoint(t *testing.T) {
	router := newTestRouter(t, "test-key:test-client:100")
	uploadCSV(t, router, steadyTransactionsCSV())

	w := doRequest(router, http.MethodGet, "/api/v1/par/levels?item_id=SUP001", testAPIKey, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		PARLevels map[string]struct {
			MinPAR       float64 `json:"min_par"`
			MaxPAR       float64 `json:"max_par"`
			ReorderPoint float64 `json:"reorder_point"`
			LeadTimeDays int     `json:"lead_time_days"`
		} `json:"par_levels"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.PARLevels, "SUP001")

	// default 14-day lead time over 30/day with no variance
	l := resp.PARLevels["SUP001"]
	assert.Equal(t, 14, l.LeadTimeDays)
	assert.InDelta(t, 420.0, l.ReorderPoint, 1e-9)
	assert.Equal(t, l.ReorderPoint, l.MinPAR)
	assert.InDelta(t, 630.0, l.MaxPAR, 1e-9)
}

func TestPARLevelsUnknownItem(t *testing.T) {
	router := newTestRouter(t, "test-key:test-client:100")
	uploadCSV(t, router, steadyTransactionsCSV())

	w := doRequest(router, http.MethodGet, "/api/v1/par/levels?item_id=SUP999", testAPIKey, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetLeadTimeEndpoint(t *testing.T) {
	router := newTestRouter(t, "test-key:test-client:100")
	uploadCSV(t, router, steadyTransactionsCSV())

	body := bytes.NewBufferString(`{"item_id":"SUP001","days":10}`)
	w := doRequest(router, http.MethodPost, "/api/v1/par/lead_time", testAPIKey, body, "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/par/levels?item_id=SUP001", testAPIKey, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"lead_time_days":10`)
}

func TestSetLeadTimeRejectsBadValues(t *testing.T) {
	router := newTestRouter(t, "test-key:test-client:100")
	uploadCSV(t, router, steadyTransactionsCSV())

	// days missing fails binding
	body := bytes.NewBufferString(`{"item_id":"SUP001"}`)
	w := doRequest(router, http.MethodPost, "/api/v1/par/lead_time", testAPIKey, body, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// negative days fails engine validation
	body = bytes.NewBufferString(`{"item_id":"SUP001","days":-5}`)
	w = doRequest(router, http.MethodPost, "/api/v1/par/lead_time", testAPIKey, body, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "positive number of days")
}

func TestRecommendationsEndpoint(t *testing.T) {
	router := newTestRouter(t, "test-key:test-client:100")
	uploadCSV(t, router, steadyTransactionsCSV())

	body := bytes.NewBufferString(`{"current_stock":{"SUP001":100}}`)
	w := doRequest(router, http.MethodPost, "/api/v1/recommendations", testAPIKey, body, "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Recommendations map[string]struct {
			NeedsReorder   bool    `json:"needs_reorder"`
			ReorderAmount  float64 `json:"reorder_amount"`
			Status         string  `json:"status"`
			Recommendation string  `json:"recommendation"`
		} `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Recommendations, "SUP001")

	r := resp.Recommendations["SUP001"]
	assert.True(t, r.NeedsReorder)
	assert.Equal(t, "BELOW_MIN", r.Status)
	assert.InDelta(t, 530.0, r.ReorderAmount, 1e-9)
	assert.Contains(t, r.Recommendation, "Place order")
}

func TestUploadRejectsEmptyForm(t *testing.T) {
	router := newTestRouter(t, "test-key:test-client:100")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.Close())

	w := doRequest(router, http.MethodPost, "/api/v1/upload", testAPIKey, body, writer.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadBadSchemaColumns(t *testing.T) {
	router := newTestRouter(t, "test-key:test-client:100")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "usage.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("item_id,quantity\nSUP001,25\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	w := doRequest(router, http.MethodPost, "/api/v1/upload", testAPIKey, body, writer.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing required columns")
}
