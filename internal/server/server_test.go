package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"inventory-catalog/internal/config"
	"inventory-catalog/internal/domain"
	"inventory-catalog/internal/pkg/clock"
	"inventory-catalog/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: "0", Env: "test"},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"*"}},
		Catalog: config.CatalogConfig{DefaultPageSize: 10},
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newTestServer(t *testing.T, cfg *config.Config, deps Dependencies) (*Server, *repository.MemoryStore) {
	t.Helper()

	store := repository.NewMemoryStore(clock.New())
	if deps.Products == nil {
		deps.Products = store.Products()
		deps.Categories = store.Categories()
	}
	srv, err := NewServer(cfg, zap.NewNop(), deps)
	require.NoError(t, err)
	return srv, store
}

func TestHealth(t *testing.T) {
	up := func(ctx context.Context) map[string]string { return map[string]string{"status": "up"} }
	down := func(ctx context.Context) map[string]string { return map[string]string{"status": "down"} }

	tests := []struct {
		name   string
		health HealthFunc
		code   int
		body   string
	}{
		{"no check", nil, http.StatusOK, `{"status":"ok"}`},
		{"store up", up, http.StatusOK, `{"status":"ok"}`},
		{"store down", down, http.StatusServiceUnavailable, `{"status":"unavailable"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, testConfig(), Dependencies{Health: tt.health})

			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.code, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestServer_ServesCatalogEndToEnd(t *testing.T) {
	srv, store := newTestServer(t, testConfig(), Dependencies{})
	category := &domain.Category{Name: "Books"}
	require.NoError(t, store.Categories().Create(context.Background(), category))

	body := `{"name":"Atlas","description":"Maps","quantity":2,"categories":["` + category.ID + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products?search=atl", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
}

func TestServer_UnknownRoutesUseErrorEnvelope(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), Dependencies{})

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"route not found"`)

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/products", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_RateLimitsCatalogButNotHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Minute}
	srv, _ := newTestServer(t, cfg, Dependencies{Redis: redisClient})

	codes := []int{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_CloseReleasesEveryResource(t *testing.T) {
	closed := []string{}
	srv, _ := newTestServer(t, testConfig(), Dependencies{Closers: []io.Closer{
		closerFunc(func() error { closed = append(closed, "redis"); return errors.New("already closed") }),
		closerFunc(func() error { closed = append(closed, "store"); return nil }),
	}})

	require.NoError(t, srv.Close())
	assert.Equal(t, []string{"redis", "store"}, closed)
}
