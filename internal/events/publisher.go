package events

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Publisher emits product events. Implementations never report failures to
// the caller.
type Publisher interface {
	Publish(ctx context.Context, event ProductEvent)
}

// Message is an encoded event addressed to a topic.
type Message struct {
	Topic   string
	Key     string
	ID      string
	Payload []byte
}

// SendResult is the outcome of one asynchronous send.
type SendResult struct {
	Stream    string
	Subject   string
	Sequence  uint64
	Duplicate bool
	Err       error
}

// Sender hands messages to a broker without waiting for the acknowledgement.
// The returned channel yields exactly one result.
type Sender interface {
	SendAsync(ctx context.Context, msg Message) (<-chan SendResult, error)
}

// DefaultAckTimeout bounds the wait for a broker acknowledgement when no
// timeout is configured.
const DefaultAckTimeout = 5 * time.Second

// PublisherConfig controls the best-effort publisher.
type PublisherConfig struct {
	Enabled    bool
	Topic      string
	AckTimeout time.Duration
}

// BestEffortPublisher sends events fire-and-forget: at most once, no retries.
// Acknowledgements are only ever inspected for logging.
type BestEffortPublisher struct {
	cfg    PublisherConfig
	sender Sender
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewBestEffortPublisher builds a publisher. A nil sender behaves like a
// disabled configuration.
func NewBestEffortPublisher(cfg PublisherConfig, sender Sender, logger *zap.Logger) *BestEffortPublisher {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &BestEffortPublisher{cfg: cfg, sender: sender, logger: logger}
	logger.Info("product event publisher initialized", zap.Bool("messaging_enabled", p.enabled()))
	return p
}

func (p *BestEffortPublisher) enabled() bool {
	return p.cfg.Enabled && p.sender != nil
}

// MessageKey is the partitioning key used for a product's events.
func MessageKey(productID int64) string {
	return "product-" + strconv.FormatInt(productID, 10)
}

// Publish encodes and sends the event without blocking on the broker.
func (p *BestEffortPublisher) Publish(ctx context.Context, event ProductEvent) {
	meta := event.Meta()
	fields := []zap.Field{
		zap.String("event_type", string(meta.EventType)),
		zap.Int64("product_id", meta.ProductID),
	}
	if !p.enabled() {
		p.logger.Info("messaging disabled; skipping event", fields...)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("could not encode event", append(fields, zap.Error(err))...)
		return
	}

	msg := Message{
		Topic:   p.cfg.Topic,
		Key:     MessageKey(meta.ProductID),
		ID:      meta.EventID,
		Payload: payload,
	}
	p.logger.Info("publishing event", append(fields, zap.String("topic", msg.Topic))...)

	results, err := p.sender.SendAsync(context.WithoutCancel(ctx), msg)
	if err != nil {
		p.logger.Warn("could not publish event; broker may be unavailable", append(fields, zap.Error(err))...)
		return
	}

	p.wg.Add(1)
	go p.awaitResult(results, fields)
}

func (p *BestEffortPublisher) awaitResult(results <-chan SendResult, fields []zap.Field) {
	defer p.wg.Done()

	timer := time.NewTimer(p.cfg.AckTimeout)
	defer timer.Stop()

	select {
	case res := <-results:
		if res.Err != nil {
			p.logger.Warn("failed to publish event", append(fields, zap.Error(res.Err))...)
			return
		}
		p.logger.Info("event published", append(fields,
			zap.String("stream", res.Stream),
			zap.String("subject", res.Subject),
			zap.Uint64("sequence", res.Sequence),
			zap.Bool("duplicate", res.Duplicate))...)
	case <-timer.C:
		p.logger.Warn("event acknowledgement timed out", append(fields, zap.Duration("timeout", p.cfg.AckTimeout))...)
	}
}

// Close waits for outstanding acknowledgements or until ctx is done.
func (p *BestEffortPublisher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
