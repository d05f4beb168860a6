package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jobly-Solutions/steeltiger-middleware/config"
	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
	"github.com/Jobly-Solutions/steeltiger-middleware/internal/infrastructure/cache"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: "0", Environment: "test", AllowedOrigins: []string{"*"}},
		Provider: config.ProviderConfig{MaxAttempts: 1},
		Cache:    config.CacheConfig{Type: "memory"},
		Refresh:  config.RefreshConfig{Cron: "5 * * * *", Timeout: time.Second},
		Matching: config.MatchingConfig{MinSimilarity: 0.4, DefaultList: "LISTA 1"},
	}
}

func TestNew_WithoutProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)

	a, err := New(context.Background(), testConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &cache.MemoryStore{}, a.Store)
	assert.Nil(t, a.Client)
	assert.Nil(t, a.Refresher)
	assert.NotNil(t, a.Queries)
	assert.NotNil(t, a.Datasets)

	scheduler, err := a.Scheduler()
	require.NoError(t, err)
	assert.Nil(t, scheduler)

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestNew_WithProvider(t *testing.T) {
	erp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Datos":[{"COD_ALFABA":"ASE011","DETALLE":"DEFENSA TOYOTA","CATEGORIA":"LISTA 1","PRE_NETO":100}]}`))
	}))
	defer erp.Close()

	cfg := testConfig()
	cfg.Provider.License = "LIC-1"
	cfg.Provider.APIURL = erp.URL
	cfg.Provider.AuthURL = erp.URL

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Client)
	require.NotNil(t, a.Refresher)

	result, err := a.Refresher.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Datasets, 4)
	assert.Len(t, a.Store.GetDataset(context.Background(), domain.DatasetProducts).Rows, 1)

	scheduler, err := a.Scheduler()
	require.NoError(t, err)
	assert.NotNil(t, scheduler)
}

func TestDiagnostic_AgainstERP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	erp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth" {
			_, _ = w.Write([]byte(`{"Respuesta":"Autorizado"}`))
			return
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["_query"] == "ListaDePrecios" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"Datos":[{"COD_ALFABA":"ASE011","DETALLE":"DEFENSA TOYOTA"}]}`))
	}))
	defer erp.Close()

	cfg := testConfig()
	cfg.Provider.License = "LIC-1"
	cfg.Provider.Email = "ops@steeltiger.com.ar"
	cfg.Provider.APIURL = erp.URL + "/query"
	cfg.Provider.AuthURL = erp.URL + "/auth"

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Refresher.Refresh(context.Background())
	require.ErrorIs(t, err, domain.ErrRefreshFailed)

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/diagnostic", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success       bool `json:"success"`
		Authorization struct {
			Success  bool           `json:"success"`
			Status   int            `json:"status"`
			Response map[string]any `json:"response"`
		} `json:"authorization"`
		Datasets map[string]struct {
			Success     bool   `json:"success"`
			Count       int    `json:"count"`
			HasData     bool   `json:"hasData"`
			LastFetched string `json:"lastFetched"`
			Error       string `json:"error"`
		} `json:"datasets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.True(t, body.Success)
	assert.True(t, body.Authorization.Success)
	assert.Equal(t, http.StatusOK, body.Authorization.Status)
	assert.Equal(t, "Autorizado", body.Authorization.Response["Respuesta"])

	require.Len(t, body.Datasets, 4)
	products := body.Datasets[domain.DatasetProducts]
	assert.True(t, products.Success)
	assert.Equal(t, 1, products.Count)
	assert.True(t, products.HasData)
	assert.NotEmpty(t, products.LastFetched)

	prices := body.Datasets[domain.DatasetPrices]
	assert.False(t, prices.Success)
	assert.False(t, prices.HasData)
	assert.Contains(t, prices.Error, domain.DatasetPrices)
}

func TestNew_RedisFallsBackToMemory(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Type = "redis"
	cfg.Cache.RedisURL = "redis://127.0.0.1:1/0"

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &cache.MemoryStore{}, a.Store)
}

func TestNew_UnknownLLMProvider(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Provider = "claude"
	cfg.LLM.APIKey = "k"

	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
