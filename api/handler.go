package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"backtest-service/internal/model"
	"backtest-service/internal/service"
	"backtest-service/internal/storage"
)

type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// backtestRequest is the JSON body for the run endpoints. Dates accept
// YYYY-MM-DD or RFC3339.
type backtestRequest struct {
	Symbol         string                     `json:"symbol" binding:"required"`
	AssetClass     string                     `json:"asset_class"`
	Timeframe      string                     `json:"timeframe"`
	StartDate      string                     `json:"start_date" binding:"required"`
	EndDate        string                     `json:"end_date" binding:"required"`
	InitialCapital *decimal.Decimal           `json:"initial_capital"`
	CommissionRate *decimal.Decimal           `json:"commission_rate"`
	SlippageRate   *decimal.Decimal           `json:"slippage_rate"`
	Strategy       string                     `json:"strategy"`
	StrategyParams map[string]any             `json:"strategy_params"`
	Indicators     []model.IndicatorSelection `json:"indicators"`

	Engine string `json:"engine"`
}

func (r *backtestRequest) toConfig() (model.BacktestConfig, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return model.BacktestConfig{}, fmt.Errorf("invalid start_date: %w", err)
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return model.BacktestConfig{}, fmt.Errorf("invalid end_date: %w", err)
	}

	cfg := model.BacktestConfig{
		Symbol:         r.Symbol,
		AssetClass:     r.AssetClass,
		Timeframe:      r.Timeframe,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: decimal.NewFromInt(10000),
		CommissionRate: decimal.NewFromFloat(0.001),
		SlippageRate:   decimal.NewFromFloat(0.0005),
		Strategy:       r.Strategy,
		StrategyParams: r.StrategyParams,
		Indicators:     r.Indicators,
	}
	if r.InitialCapital != nil {
		cfg.InitialCapital = *r.InitialCapital
	}
	if r.CommissionRate != nil {
		cfg.CommissionRate = *r.CommissionRate
	}
	if r.SlippageRate != nil {
		cfg.SlippageRate = *r.SlippageRate
	}
	return cfg, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC3339: %s", s)
	}
	return t.UTC(), nil
}

func (h *Handler) GetConfigOptions(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ConfigOptions())
}

func (h *Handler) GetIndicators(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"indicators": h.svc.Indicators()})
}

func (h *Handler) RunBacktest(c *gin.Context) {
	h.runBacktest(c, false)
}

// RunBacktestWithEngine behaves as RunBacktest but requires an explicit
// engine selector and rejects unavailable engines.
func (h *Handler) RunBacktestWithEngine(c *gin.Context) {
	h.runBacktest(c, true)
}

func (h *Handler) runBacktest(c *gin.Context, engineRequired bool) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if engineRequired && req.Engine == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "engine is required"})
		return
	}

	cfg, err := req.toConfig()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.svc.RunWithEngine(c.Request.Context(), cfg, req.Engine)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *Handler) GetResults(c *gin.Context) {
	results, err := h.svc.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *Handler) GetHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	summaries, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(summaries), "backtests": summaries})
}

func (h *Handler) DeleteBacktest(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "backtest not found"})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
