package infrastructure

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"backtest-service/internal/model"
)

func InitNATS(url string, logger *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, nil, err
	}

	// Create stream if it doesn't exist
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     "BACKTESTS",
		Subjects: []string{"backtest.*.*"},
	})
	if err != nil {
		_, err = js.UpdateStream(&nats.StreamConfig{
			Name:     "BACKTESTS",
			Subjects: []string{"backtest.*.*"},
		})
		if err != nil {
			logger.Warn("failed to create or update stream", zap.Error(err))
		}
	}

	return nc, js, nil
}

// EventPublisher announces terminal backtest runs on JetStream so downstream
// consumers (dashboards, alerting) can react without polling. A nil
// publisher is a no-op.
type EventPublisher struct {
	js     nats.JetStreamContext
	logger *zap.Logger
}

func NewEventPublisher(js nats.JetStreamContext, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{js: js, logger: logger}
}

// PublishRunFinished emits backtest.<status>.<symbol> with the run summary.
func (p *EventPublisher) PublishRunFinished(results *model.BacktestResults) {
	if p == nil || p.js == nil {
		return
	}
	subject := fmt.Sprintf("backtest.%s.%s", results.Status, results.Config.Symbol)
	data, err := json.Marshal(results.Summary())
	if err != nil {
		p.logger.Error("failed to marshal backtest event", zap.Error(err))
		return
	}
	if _, err := p.js.Publish(subject, data); err != nil {
		p.logger.Error("failed to publish backtest event", zap.Error(err), zap.String("subject", subject))
	}
}
