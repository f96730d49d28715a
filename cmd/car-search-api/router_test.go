package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thomaz-Klifson/car-search/internal/api/rpc"
	"github.com/Thomaz-Klifson/car-search/internal/app"
	"github.com/Thomaz-Klifson/car-search/internal/config"
	"github.com/Thomaz-Klifson/car-search/internal/observability"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Catalog.Path = filepath.Join("..", "..", "data", "cars.json")

	a, err := app.New(context.Background(), cfg, observability.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	return NewRouter(observability.Nop(), a)
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var ready map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, float64(16), ready["catalogEntries"])
	assert.Equal(t, false, ready["chat"])
}

func TestRouter_ChatWithoutProvider(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/api/chat", "/api/v1/chat"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"messages":[{"role":"user","content":"oi"}]}`))
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get("X-Turn-ID"))
	}
}

func TestRouter_SearchRoutes(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		body   string
		want   string
	}{
		{http.MethodPost, "/api/v1/cars/search", `{"name":"Toyota"}`, `"Model":"Yaris"`},
		{http.MethodPost, "/api/v1/cars/similar", `{"referenceCar":"Hyundai i30"}`, `"count":2`},
		{http.MethodPost, "/api/v1/cars/advise", `{"name":"Jeep","location":"Recife"}`, `"searchType":"location-adjusted"`},
		{http.MethodGet, "/api/v1/cars/locations", ``, `"Fortaleza"`},
		{http.MethodPost, "/api/v1/query/parse", `{"utterance":"Quero um Onix no Rio de Janeiro"}`, `"name":"Chevrolet Onix"`},
		{http.MethodPost, "/api/v1/query/fallback", `{"utterance":"Tem Renault Kwid em Fortaleza?"}`, `"stage":"EXACT"`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestRouter_RPCMounted(t *testing.T) {
	r := newTestRouter(t)

	body, _ := json.Marshal(rpc.SearchCarsRequest{Name: "Jeep"})
	req := httptest.NewRequest(http.MethodPost, rpc.SearchCarsProcedure, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"Model":"Compass"`)
}
