package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/spendsort/internal/plugins"
	"github.com/ArionMiles/spendsort/internal/upload"
	"github.com/ArionMiles/spendsort/pkg/api"
	"github.com/ArionMiles/spendsort/pkg/ingest"
	"github.com/ArionMiles/spendsort/pkg/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingStore struct{}

func (failingStore) Commit(context.Context, *api.BatchResult) ([]api.Transaction, error) {
	return nil, &api.StoreError{Op: "commit", Err: errors.New("connection refused")}
}

func (failingStore) ListTransactions(context.Context) ([]api.Transaction, error) {
	return nil, &api.StoreError{Op: "list", Err: errors.New("connection refused")}
}

type panickingUploader struct{}

func (panickingUploader) Upload(context.Context, string, []byte) (*api.BatchResult, error) {
	panic("boom")
}

type testServer struct {
	*Server
	store *memory.Store
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	registry, err := plugins.Builtin()
	require.NoError(t, err)

	store := memory.New(testLogger())
	svc := upload.New(ingest.New(nil, testLogger()), registry, store, testLogger())
	return &testServer{
		Server: New(cfg, svc, store, registry, testLogger()),
		store:  store,
	}
}

func newFailingServer(t *testing.T) *Server {
	t.Helper()
	registry, err := plugins.Builtin()
	require.NoError(t, err)

	svc := upload.New(ingest.New(nil, testLogger()), registry, failingStore{}, testLogger())
	return New(Config{}, svc, failingStore{}, registry, testLogger())
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postFile(t *testing.T, h http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, "file", filename, content)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	dec := json.NewDecoder(rec.Body)
	dec.UseNumber()
	var out map[string]any
	require.NoError(t, dec.Decode(&out))
	return out
}

func TestUpload_Success(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := postFile(t, srv.Handler(), "statement.csv",
		"Transaction Date,Merchant,Price\n2024-01-05,Joe's Pharmacy,$42.10\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	assert.Equal(t, "Upload successful", body["message"])
	assert.NotEmpty(t, body["batch_id"])
	assert.Equal(t, json.Number("0"), body["rejected_rows"])

	stats := body["stats"].(map[string]any)
	assert.Equal(t, json.Number("1"), stats["total_rows"])
	assert.Equal(t, json.Number("42.10"), stats["total_amount"])

	txs := body["transactions"].([]any)
	require.Len(t, txs, 1)
	tx := txs[0].(map[string]any)
	assert.Equal(t, "2024-01-05", tx["date"])
	assert.Equal(t, "Joe's Pharmacy", tx["description"])
	assert.Equal(t, json.Number("42.10"), tx["amount"])
	assert.Equal(t, "Healthcare", tx["category"])
	assert.Equal(t, json.Number("1"), tx["id"])

	list, err := srv.store.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpload_DebitCreditWithRejectedRow(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := postFile(t, srv.Handler(), "card.CSV",
		"Date,Description,Debit,Credit\n2024-02-01,Bus fare,3.50,\nnot-a-date,Refund,,10.00\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, json.Number("1"), body["rejected_rows"])

	txs := body["transactions"].([]any)
	require.Len(t, txs, 1)
	tx := txs[0].(map[string]any)
	assert.Equal(t, json.Number("-3.50"), tx["amount"])
	assert.Equal(t, "Transportation", tx["category"])
}

func TestUpload_InputErrors(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		content   string
		wantError string
	}{
		{"unsupported type", "statement.pdf", "%PDF-1.4", "File must be one of: .csv, .txt, .xls, .xlsx"},
		{"empty file", "empty.csv", "", "File contains no transactions"},
		{"header only", "header.csv", "Date,Description,Amount\n", "File contains no transactions"},
		{"unparseable", "broken.csv", "Date,Description,Amount\n2024-01-01,\"unterminated,5\n", "Error processing file: "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, Config{})

			rec := postFile(t, srv.Handler(), tc.filename, tc.content)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.Contains(t, body["error"], tc.wantError)

			list, err := srv.store.ListTransactions(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestUpload_SchemaError(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := postFile(t, srv.Handler(), "statement.csv", "Date,Amount\n2024-01-01,5\n")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Missing required columns: Description", body["error"])
	assert.Equal(t, []any{"Description"}, body["missing"])
	assert.Equal(t, []any{"Date", "Amount"}, body["found"])
}

func TestUpload_MissingFile(t *testing.T) {
	srv := newTestServer(t, Config{})

	body, contentType := multipartBody(t, "attachment", "statement.csv", "Date,Description,Amount\n")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", decode(t, rec)["error"])
}

func TestUpload_NotMultipart(t *testing.T) {
	srv := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", decode(t, rec)["error"])
}

func TestUpload_TooLarge(t *testing.T) {
	srv := newTestServer(t, Config{MaxUploadBytes: 256})

	content := "Date,Description,Amount\n" + strings.Repeat("2024-01-01,Coffee,1.00\n", 100)
	rec := postFile(t, srv.Handler(), "big.csv", content)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "File too large")
}

func TestUpload_StoreFailure(t *testing.T) {
	srv := newFailingServer(t)

	rec := postFile(t, srv.Handler(), "statement.csv", "Date,Description,Amount\n2024-01-01,Taxi,5\n")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error saving to database", decode(t, rec)["error"])
}

func TestUpload_PanicRecovered(t *testing.T) {
	registry, err := plugins.Builtin()
	require.NoError(t, err)
	srv := New(Config{}, panickingUploader{}, memory.New(nil), registry, testLogger())

	rec := postFile(t, srv.Handler(), "statement.csv", "Date,Description,Amount\n")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec)["error"])
}

func TestUpload_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/upload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTransactions_JSON(t *testing.T) {
	srv := newTestServer(t, Config{})
	h := srv.Handler()

	rec := postFile(t, h, "a.csv", "Date,Description,Amount\n2024-01-01,Coffee,1.5\n2024-01-03,Taxi home,20\n")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	assert.Equal(t, json.Number("2"), body["count"])

	txs := body["transactions"].([]any)
	require.Len(t, txs, 2)
	first := txs[0].(map[string]any)
	assert.Equal(t, "Taxi home", first["description"])
	assert.Equal(t, json.Number("20.00"), first["amount"])
	assert.Equal(t, "Transportation", first["category"])
	assert.NotEmpty(t, first["created_at"])
}

func TestTransactions_EmptyJSON(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, []any{}, body["transactions"])
	assert.Equal(t, json.Number("0"), body["count"])
}

func TestTransactions_CSV(t *testing.T) {
	srv := newTestServer(t, Config{})
	h := srv.Handler()

	rec := postFile(t, h, "a.csv", "Date,Description,Amount\n2024-01-01,Coffee,1.5\n")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "transactions.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,date,description,amount,category,created_at", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,2024-01-01,Coffee,1.50,Miscellaneous,"), lines[1])
}

func TestTransactions_UnknownFormat(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions?format=xml", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactions_StoreFailure(t *testing.T) {
	srv := newFailingServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error fetching transactions", decode(t, rec)["error"])
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID_Propagated(t *testing.T) {
	srv := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	srv := newTestServer(t, Config{ShutdownTimeout: time.Second})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
