// Package events publishes domain events to NATS JetStream. Publishing is
// fire-and-forget telemetry; the bot's behavior never depends on it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/lipo-out/linebot/internal/model"
	"github.com/lipo-out/linebot/pkg/logger"
)

const (
	// StreamName is the name of the bot events stream.
	StreamName = "BOT_EVENTS"

	// SubjectPrefix is the prefix for all bot event subjects.
	SubjectPrefix = "bot"
)

// Publisher emits domain events.
type Publisher interface {
	EventReceived(ctx context.Context, kind model.EventKind, source model.SourceType)
	FoodSaved(ctx context.Context, userID string, analysis *model.FoodAnalysis)
	OrderCreated(ctx context.Context, userID string, order *model.Order)

	// Ready reports whether the publisher can currently deliver events.
	Ready() bool
	Close()
}

// Config holds NATS connection configuration.
type Config struct {
	URL   string
	Token string
}

// New returns a NATS-backed publisher, or a no-op publisher when no URL is
// configured.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Publisher, error) {
	if cfg.URL == "" {
		return NopPublisher{}, nil
	}
	return connect(ctx, cfg, log)
}

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) EventReceived(context.Context, model.EventKind, model.SourceType) {}
func (NopPublisher) FoodSaved(context.Context, string, *model.FoodAnalysis)          {}
func (NopPublisher) OrderCreated(context.Context, string, *model.Order)              {}
func (NopPublisher) Ready() bool                                                     { return true }
func (NopPublisher) Close()                                                          {}

// natsPublisher publishes events to a JetStream stream.
type natsPublisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *logger.Logger
}

func connect(ctx context.Context, cfg Config, log *logger.Logger) (*natsPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &natsPublisher{conn: nc, js: js, logger: log}
	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

func (p *natsPublisher) ensureStream(ctx context.Context) error {
	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Bot domain events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

func (p *natsPublisher) EventReceived(ctx context.Context, kind model.EventKind, source model.SourceType) {
	p.publish(ctx, fmt.Sprintf("%s.event.received", SubjectPrefix), map[string]any{
		"kind":   kind,
		"source": source,
		"at":     time.Now().UTC(),
	})
}

func (p *natsPublisher) FoodSaved(ctx context.Context, userID string, analysis *model.FoodAnalysis) {
	p.publish(ctx, fmt.Sprintf("%s.food.saved", SubjectPrefix), map[string]any{
		"user_id":  userID,
		"calories": analysis.Calories,
		"protein":  analysis.Protein,
		"carb":     analysis.Carbohydrates,
		"fat":      analysis.Fat,
		"at":       time.Now().UTC(),
	})
}

func (p *natsPublisher) OrderCreated(ctx context.Context, userID string, order *model.Order) {
	p.publish(ctx, fmt.Sprintf("%s.order.created", SubjectPrefix), map[string]any{
		"user_id":    userID,
		"order_id":   order.OrderID,
		"product_id": order.ProductID,
		"at":         time.Now().UTC(),
	})
}

func (p *natsPublisher) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to marshal event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		p.logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}

func (p *natsPublisher) Ready() bool {
	return p.conn != nil && p.conn.IsConnected()
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
