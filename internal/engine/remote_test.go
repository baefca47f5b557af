package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"backtest-service/internal/model"
)

func TestRemoteEngine_Unconfigured(t *testing.T) {
	e := NewRemoteEngine("", zap.NewNop())
	assert.False(t, e.Available())

	_, err := e.Run(context.Background(), testConfig())
	assert.Error(t, err)
}

func TestRemoteEngine_CompletedRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/backtest/run", r.URL.Path)

		var cfg model.BacktestConfig
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&cfg))
		assert.Equal(t, "BTCUSDT", cfg.Symbol)

		json.NewEncoder(w).Encode(model.BacktestResults{Status: model.StatusCompleted})
	}))
	defer srv.Close()

	e := NewRemoteEngine(srv.URL, zap.NewNop())
	assert.True(t, e.Available())

	cfg := testConfig()
	results, err := e.Run(context.Background(), cfg)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, results.Status)
	assert.Equal(t, string(TypeRemote), results.Engine)
	assert.Equal(t, cfg.Symbol, results.Config.Symbol)
}

func TestRemoteEngine_ProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := NewRemoteEngine(srv.URL, zap.NewNop())
	results, err := e.Run(context.Background(), testConfig())

	// Provider faults terminate the run, they do not error the call.
	assert.NoError(t, err)
	assert.Equal(t, model.StatusFailed, results.Status)
	assert.Contains(t, results.Error, "429")
}

func TestRemoteEngine_Unreachable(t *testing.T) {
	e := NewRemoteEngine("http://127.0.0.1:1", zap.NewNop())
	results, err := e.Run(context.Background(), testConfig())

	assert.NoError(t, err)
	assert.Equal(t, model.StatusFailed, results.Status)
	assert.Contains(t, results.Error, "unreachable")
}
