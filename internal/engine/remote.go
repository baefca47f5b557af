package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"backtest-service/internal/model"
)

// RemoteEngine forwards a run to a hosted backtest provider exposing the
// same Run(config) -> results contract over HTTP. It is unavailable until a
// provider URL is configured.
type RemoteEngine struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewRemoteEngine(baseURL string, logger *zap.Logger) *RemoteEngine {
	return &RemoteEngine{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Minute},
		logger:  logger,
	}
}

func (e *RemoteEngine) Name() string {
	return "Remote Provider"
}

func (e *RemoteEngine) Available() bool {
	return e.baseURL != ""
}

// Run posts the config to the provider and maps the response onto results.
// A provider rejection or transport fault terminates the run as Failed.
func (e *RemoteEngine) Run(ctx context.Context, cfg model.BacktestConfig) (*model.BacktestResults, error) {
	if !e.Available() {
		return nil, fmt.Errorf("remote engine has no provider configured")
	}

	body, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/backtest/run", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return failed(cfg, string(TypeRemote), fmt.Sprintf("remote provider unreachable: %v", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		e.logger.Warn("remote provider rejected run",
			zap.Int("status", resp.StatusCode),
			zap.String("symbol", cfg.Symbol),
		)
		return failed(cfg, string(TypeRemote), fmt.Sprintf("remote provider returned %d: %s", resp.StatusCode, payload)), nil
	}

	var results model.BacktestResults
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return failed(cfg, string(TypeRemote), fmt.Sprintf("invalid remote provider response: %v", err)), nil
	}
	results.Config = cfg
	results.Engine = string(TypeRemote)
	if !results.Status.Terminal() {
		results.Status = model.StatusCompleted
	}
	return &results, nil
}
