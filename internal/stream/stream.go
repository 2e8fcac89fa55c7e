// Package stream consumes canonical storefront events from NATS.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/FairForge/webpixels/internal/config"
	"github.com/FairForge/webpixels/internal/pixel"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SubjectPrefix is the subject namespace events are published under. The
// token after it names the store.
const SubjectPrefix = "storefront.events."

// Handler processes one event for a store.
type Handler interface {
	Handle(ctx context.Context, store string, ev pixel.Event) ([]pixel.Dispatch, error)
}

// Connect dials NATS with reconnect logging.
func Connect(cfg config.NATSConfig, logger *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("webpixels"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Consumer feeds events from a queue subscription into a Handler.
type Consumer struct {
	conn    *nats.Conn
	subject string
	queue   string
	timeout time.Duration
	handler Handler
	logger  *zap.Logger
	sub     *nats.Subscription
}

// NewConsumer creates a consumer for cfg.Subject in queue group cfg.Queue.
func NewConsumer(conn *nats.Conn, cfg config.NATSConfig, handler Handler, logger *zap.Logger) *Consumer {
	subject := cfg.Subject
	if subject == "" {
		subject = SubjectPrefix + ">"
	}
	return &Consumer{
		conn:    conn,
		subject: subject,
		queue:   cfg.Queue,
		timeout: 10 * time.Second,
		handler: handler,
		logger:  logger,
	}
}

// Start subscribes. Messages are handled on the subscription's goroutine.
func (c *Consumer) Start() error {
	sub, err := c.conn.QueueSubscribe(c.subject, c.queue, c.handleMsg)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.subject, err)
	}
	c.sub = sub
	c.logger.Info("consuming storefront events",
		zap.String("subject", c.subject),
		zap.String("queue", c.queue))
	return nil
}

// Stop drains the subscription so in-flight messages finish.
func (c *Consumer) Stop() error {
	if c.sub == nil {
		return nil
	}
	return c.sub.Drain()
}

func (c *Consumer) handleMsg(msg *nats.Msg) {
	store := StoreFromSubject(msg.Subject)
	if store == "" {
		c.logger.Warn("dropping event with no store in subject", zap.String("subject", msg.Subject))
		return
	}

	ev, err := pixel.DecodeEvent(msg.Data)
	if err != nil {
		c.logger.Warn("dropping malformed event",
			zap.String("store", store),
			zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	sent, err := c.handler.Handle(ctx, store, ev)
	if err != nil {
		c.logger.Error("event relay failed",
			zap.String("store", store),
			zap.String("event", string(ev.Name)),
			zap.Error(err))
		return
	}

	if msg.Reply != "" {
		if sent == nil {
			sent = []pixel.Dispatch{}
		}
		reply, _ := json.Marshal(sent)
		if err := msg.Respond(reply); err != nil {
			c.logger.Debug("reply failed", zap.Error(err))
		}
	}
}

// StoreFromSubject returns the store token of an event subject, or "" when
// the subject is not under SubjectPrefix.
func StoreFromSubject(subject string) string {
	if !strings.HasPrefix(subject, SubjectPrefix) {
		return ""
	}
	store := strings.TrimPrefix(subject, SubjectPrefix)
	if store == "" || strings.Contains(store, ".") {
		return ""
	}
	return store
}

// Publish sends ev for store.
func Publish(nc *nats.Conn, store string, ev pixel.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := nc.Publish(SubjectPrefix+store, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nc.Flush()
}
