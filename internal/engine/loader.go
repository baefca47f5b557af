package engine

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"backtest-service/internal/model"
)

// DataLoader reads historical candles from the market-data store.
type DataLoader struct {
	pool *pgxpool.Pool
}

func NewDataLoader(pool *pgxpool.Pool) *DataLoader {
	return &DataLoader{pool: pool}
}

func (l *DataLoader) GetCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]model.Candle, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT symbol, time, open, high, low, close, volume
		FROM market_candles
		WHERE symbol = $1 AND timeframe = $2 AND time >= $3 AND time <= $4
		ORDER BY time ASC`,
		symbol, timeframe, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		if err := rows.Scan(&c.Symbol, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}
