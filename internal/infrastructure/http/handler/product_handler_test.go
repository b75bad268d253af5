package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supermercado/products-api/internal/app/service"
	"github.com/supermercado/products-api/internal/domain"
	"github.com/supermercado/products-api/internal/infrastructure/config"
	apphttp "github.com/supermercado/products-api/internal/infrastructure/http"
	"github.com/supermercado/products-api/internal/infrastructure/http/handler"
	"github.com/supermercado/products-api/internal/infrastructure/http/response"
	"github.com/supermercado/products-api/internal/infrastructure/repository/memory"
	"github.com/supermercado/products-api/internal/infrastructure/telemetry"
)

type productResponse struct {
	ID       string  `json:"id"`
	Code     int     `json:"code"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// mockRepo records calls and optionally fails, for asserting which requests
// never reach the store.
type mockRepo struct {
	calls int
	err   error
}

func (m *mockRepo) EnsureSchema(ctx context.Context) error { return nil }

func (m *mockRepo) Create(ctx context.Context, p *domain.Product) error {
	m.calls++
	return m.err
}

func (m *mockRepo) FindAll(ctx context.Context) ([]*domain.Product, error) {
	m.calls++
	return nil, m.err
}

func (m *mockRepo) FindByCode(ctx context.Context, code int) (*domain.Product, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return nil, domain.ErrProductNotFound
}

func (m *mockRepo) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return nil, domain.ErrProductNotFound
}

func (m *mockRepo) FindByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	m.calls++
	return nil, m.err
}

func (m *mockRepo) Update(ctx context.Context, code int, updates map[string]any) (int64, error) {
	m.calls++
	return 0, m.err
}

func (m *mockRepo) Delete(ctx context.Context, code int) (int64, error) {
	m.calls++
	return 0, m.err
}

func newTestRouter(t *testing.T, repo domain.ProductRepository) http.Handler {
	t.Helper()

	telem := telemetry.NewNoOpTelemetry(&config.OTLPConfig{
		ServiceName: "products-api-test",
		Environment: "test",
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := service.NewProductService(
		repo,
		telem.TracerProvider.Tracer("test"),
		telem.MeterProvider.Meter("test"),
		logger,
	)
	h := handler.NewProductHandler(svc, logger)
	srv := apphttp.NewServer(&config.ServerConfig{Host: "127.0.0.1", Port: "0"}, h, logger, telem)
	return srv.Router()
}

func newMemoryRouter(t *testing.T) (http.Handler, *memory.ProductRepository) {
	t.Helper()

	telem := telemetry.NewNoOpTelemetry(&config.OTLPConfig{
		ServiceName: "products-api-test",
		Environment: "test",
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.NewProductRepository(telem.TracerProvider.Tracer("test"), logger)
	return newTestRouter(t, repo), repo
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeProduct(t *testing.T, rec *httptest.ResponseRecorder) productResponse {
	t.Helper()

	var p productResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	return p
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()

	var e response.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&e))
	return e
}

func TestProductLifecycle(t *testing.T) {
	router, _ := newMemoryRouter(t)

	// Create
	rec := doRequest(t, router, http.MethodPost, "/productos",
		`{"code":101,"name":"Milk","price":2.5,"category":"Dairy"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeProduct(t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 101, created.Code)
	assert.Equal(t, "Milk", created.Name)
	assert.Equal(t, 2.5, created.Price)
	assert.Equal(t, "Dairy", created.Category)

	// Read back by code
	rec = doRequest(t, router, http.MethodGet, "/productos/codigo/101", "")
	require.Equal(t, http.StatusOK, rec.Code)
	fetched := decodeProduct(t, rec)
	assert.Equal(t, created, fetched)

	// Partial update: only price changes
	rec = doRequest(t, router, http.MethodPut, "/productos/codigo/101", `{"price":3.0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeProduct(t, rec)
	assert.Equal(t, 3.0, updated.Price)
	assert.Equal(t, 101, updated.Code)
	assert.Equal(t, "Milk", updated.Name)
	assert.Equal(t, "Dairy", updated.Category)

	// Delete
	rec = doRequest(t, router, http.MethodDelete, "/productos/codigo/101", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var confirmation map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&confirmation))
	assert.Equal(t, "product deleted", confirmation["message"])

	// Gone now
	rec = doRequest(t, router, http.MethodGet, "/productos/codigo/101", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Deleting again reports not found
	rec = doRequest(t, router, http.MethodDelete, "/productos/codigo/101", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListProducts(t *testing.T) {
	router, _ := newMemoryRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/productos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	doRequest(t, router, http.MethodPost, "/productos",
		`{"code":1,"name":"Milk","price":2.5,"category":"Dairy"}`)
	doRequest(t, router, http.MethodPost, "/productos",
		`{"code":2,"name":"Bread","price":1.2,"category":"Bakery"}`)

	rec = doRequest(t, router, http.MethodGet, "/productos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var products []productResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&products))
	assert.Len(t, products, 2)
}

func TestCreateProductValidation(t *testing.T) {
	testCases := []struct {
		name        string
		body        string
		wantField   string
		wantMessage string
	}{
		{
			name:      "missing category with otherwise valid fields",
			body:      `{"code":101,"name":"Milk","price":2.5}`,
			wantField: "category",
		},
		{
			name:      "string code is rejected without coercion",
			body:      `{"code":"101","name":"Milk","price":2.5,"category":"Dairy"}`,
			wantField: "code",
		},
		{
			name:      "negative price",
			body:      `{"code":101,"name":"Milk","price":-2.5,"category":"Dairy"}`,
			wantField: "price",
		},
		{
			name:      "blank name",
			body:      `{"code":101,"name":"  ","price":2.5,"category":"Dairy"}`,
			wantField: "name",
		},
		{
			name:      "first failing field wins when several are invalid",
			body:      `{"code":"x","name":"","price":-1,"category":""}`,
			wantField: "code",
		},
		{
			name:        "malformed JSON body",
			body:        `{"code":`,
			wantMessage: "invalid request body",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := newMemoryRouter(t)

			rec := doRequest(t, router, http.MethodPost, "/productos", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			errResp := decodeError(t, rec)
			assert.Equal(t, "bad_request", errResp.Error)
			if tc.wantField != "" {
				assert.Contains(t, errResp.Message, tc.wantField)
			}
			if tc.wantMessage != "" {
				assert.Equal(t, tc.wantMessage, errResp.Message)
			}
		})
	}
}

func TestGetProductByCodeRejectsBadCodeBeforeStore(t *testing.T) {
	repo := &mockRepo{}
	router := newTestRouter(t, repo)

	for _, path := range []string{
		"/productos/codigo/abc",
		"/productos/codigo/2.5",
	} {
		rec := doRequest(t, router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
	assert.Zero(t, repo.calls, "store must not be touched for malformed codes")
}

func TestGetProductByName(t *testing.T) {
	router, _ := newMemoryRouter(t)

	doRequest(t, router, http.MethodPost, "/productos",
		`{"code":1,"name":"Milk","price":2.5,"category":"Dairy"}`)
	doRequest(t, router, http.MethodPost, "/productos",
		`{"code":2,"name":"Milk","price":9.9,"category":"Organic"}`)

	rec := doRequest(t, router, http.MethodGet, "/productos/nombre/Milk", "")
	require.Equal(t, http.StatusOK, rec.Code)
	// Names are not unique, yet the endpoint returns a single product. The
	// first stored match wins; this pins the current contract.
	p := decodeProduct(t, rec)
	assert.Equal(t, 1, p.Code)

	rec = doRequest(t, router, http.MethodGet, "/productos/nombre/Cheese", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/productos/nombre/%20%20", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProductsByCategory(t *testing.T) {
	router, _ := newMemoryRouter(t)

	doRequest(t, router, http.MethodPost, "/productos",
		`{"code":1,"name":"Milk","price":2.5,"category":"Dairy"}`)
	doRequest(t, router, http.MethodPost, "/productos",
		`{"code":2,"name":"Cheese","price":4.0,"category":"Dairy"}`)

	rec := doRequest(t, router, http.MethodGet, "/productos/categoria/Dairy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var products []productResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&products))
	assert.Len(t, products, 2)

	// An empty result is a 404, not an empty array
	rec = doRequest(t, router, http.MethodGet, "/productos/categoria/Bakery", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/productos/categoria/%20", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProductByCode(t *testing.T) {
	t.Run("zero recognized fields never reach the store", func(t *testing.T) {
		repo := &mockRepo{}
		router := newTestRouter(t, repo)

		rec := doRequest(t, router, http.MethodPut, "/productos/codigo/101", `{}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "no fields to update", decodeError(t, rec).Message)
		assert.Zero(t, repo.calls)
	})

	t.Run("negative price never reaches the store", func(t *testing.T) {
		repo := &mockRepo{}
		router := newTestRouter(t, repo)

		rec := doRequest(t, router, http.MethodPut, "/productos/codigo/101", `{"price":-1}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Message, "price")
		assert.Zero(t, repo.calls)
	})

	t.Run("non-integer code never reaches the store", func(t *testing.T) {
		repo := &mockRepo{}
		router := newTestRouter(t, repo)

		rec := doRequest(t, router, http.MethodPut, "/productos/codigo/abc", `{"price":3}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, repo.calls)
	})

	t.Run("unknown code is a 404", func(t *testing.T) {
		router, _ := newMemoryRouter(t)

		rec := doRequest(t, router, http.MethodPut, "/productos/codigo/999", `{"price":3}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("code field in the payload is ignored", func(t *testing.T) {
		router, _ := newMemoryRouter(t)

		doRequest(t, router, http.MethodPost, "/productos",
			`{"code":101,"name":"Milk","price":2.5,"category":"Dairy"}`)

		rec := doRequest(t, router, http.MethodPut, "/productos/codigo/101",
			`{"code":999,"price":3.0}`)
		require.Equal(t, http.StatusOK, rec.Code)
		p := decodeProduct(t, rec)
		assert.Equal(t, 101, p.Code)
		assert.Equal(t, 3.0, p.Price)
	})

	t.Run("string fields are trimmed before storage", func(t *testing.T) {
		router, _ := newMemoryRouter(t)

		doRequest(t, router, http.MethodPost, "/productos",
			`{"code":101,"name":"Milk","price":2.5,"category":"Dairy"}`)

		rec := doRequest(t, router, http.MethodPut, "/productos/codigo/101",
			`{"name":"  Whole Milk "}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Whole Milk", decodeProduct(t, rec).Name)
	})
}

func TestStorageFailureIsGeneric500(t *testing.T) {
	repo := &mockRepo{err: errors.New("connection reset by peer")}
	router := newTestRouter(t, repo)

	rec := doRequest(t, router, http.MethodGet, "/productos", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "internal_server_error", errResp.Error)
	assert.Equal(t, "internal server error", errResp.Message)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestUnmatchedRouteIs404(t *testing.T) {
	router, _ := newMemoryRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/clientes", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "not_found", errResp.Error)
	assert.Equal(t, "route not found", errResp.Message)
}

func TestMethodMismatchAnswersCatchAll(t *testing.T) {
	router, _ := newMemoryRouter(t)

	doRequest(t, router, http.MethodPost, "/productos",
		`{"code":101,"name":"Milk","price":2.5,"category":"Dairy"}`)

	// Known paths with the wrong method fall into the same catch-all as
	// unknown paths, never a bare 405
	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/productos/codigo/101"},
		{http.MethodDelete, "/productos"},
		{http.MethodPut, "/productos/nombre/Milk"},
	} {
		rec := doRequest(t, router, tc.method, tc.path, "")
		require.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.path)
		errResp := decodeError(t, rec)
		assert.Equal(t, "not_found", errResp.Error)
		assert.Equal(t, "route not found", errResp.Message)
	}
}
