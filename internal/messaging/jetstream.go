package messaging

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/spec-kit/store-management/internal/config"
	"github.com/spec-kit/store-management/internal/events"
)

// HeaderMessageKey carries the partitioning key of a message.
const HeaderMessageKey = "Nats-Msg-Key"

// ErrAckTimeout reports a publish whose acknowledgement never arrived.
var ErrAckTimeout = errors.New("jetstream acknowledgement timed out")

// JetStreamSender publishes events to a JetStream stream named after the topic.
// Each key is pinned to one of the configured partition subjects.
type JetStreamSender struct {
	nc         *nats.Conn
	js         jetstream.JetStream
	stream     string
	partitions int
	ackTimeout time.Duration
	logger     *zap.Logger
}

// StreamName derives the stream name for a topic, e.g. "product-events" -> "PRODUCT_EVENTS".
func StreamName(topic string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, topic)
}

// Connect dials NATS and creates or updates the topic's stream.
func Connect(ctx context.Context, cfg config.MessagingConfig, logger *zap.Logger) (*JetStreamSender, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("store-management"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	ackTimeout := cfg.AckTimeout
	if ackTimeout <= 0 {
		ackTimeout = events.DefaultAckTimeout
	}

	js, err := jetstream.New(nc, jetstream.WithPublishAsyncTimeout(ackTimeout))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	replicas := cfg.Replicas
	if replicas < 1 {
		replicas = 1
	}
	partitions := cfg.Partitions
	if partitions < 1 {
		partitions = 1
	}

	name := StreamName(cfg.Topic)
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        name,
		Description: "Product change events",
		Subjects:    []string{cfg.Topic + ".*"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    replicas,
		Duplicates:  2 * time.Minute,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream %s: %w", name, err)
	}

	logger.Info("connected to nats",
		zap.String("url", cfg.URL),
		zap.String("stream", name),
		zap.Int("partitions", partitions),
		zap.Int("replicas", replicas),
		zap.Duration("ack_timeout", ackTimeout))

	return &JetStreamSender{
		nc:         nc,
		js:         js,
		stream:     name,
		partitions: partitions,
		ackTimeout: ackTimeout,
		logger:     logger,
	}, nil
}

// Subject returns the partition subject a key is published on.
func (s *JetStreamSender) Subject(topic, key string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return topic + "." + strconv.FormatUint(uint64(h.Sum32()%uint32(s.partitions)), 10)
}

// SendAsync publishes without waiting for the stream acknowledgement. The
// result channel always yields within the ack timeout, even when the caller's
// context can never be cancelled.
func (s *JetStreamSender) SendAsync(ctx context.Context, msg events.Message) (<-chan events.SendResult, error) {
	m := nats.NewMsg(s.Subject(msg.Topic, msg.Key))
	m.Data = msg.Payload
	m.Header.Set(HeaderMessageKey, msg.Key)

	var opts []jetstream.PublishOpt
	if msg.ID != "" {
		opts = append(opts, jetstream.WithMsgID(msg.ID))
	}

	future, err := s.js.PublishMsgAsync(m, opts...)
	if err != nil {
		return nil, err
	}

	ackTimeout := s.ackTimeout
	if ackTimeout <= 0 {
		ackTimeout = events.DefaultAckTimeout
	}

	out := make(chan events.SendResult, 1)
	go func() {
		timer := time.NewTimer(ackTimeout)
		defer timer.Stop()
		select {
		case ack := <-future.Ok():
			out <- events.SendResult{Stream: ack.Stream, Subject: m.Subject, Sequence: ack.Sequence, Duplicate: ack.Duplicate}
		case err := <-future.Err():
			out <- events.SendResult{Subject: m.Subject, Err: err}
		case <-ctx.Done():
			out <- events.SendResult{Subject: m.Subject, Err: ctx.Err()}
		case <-timer.C:
			out <- events.SendResult{Subject: m.Subject, Err: fmt.Errorf("%w after %s", ErrAckTimeout, ackTimeout)}
		}
	}()
	return out, nil
}

// IsConnected reports the connection state.
func (s *JetStreamSender) IsConnected() bool {
	return s != nil && s.nc != nil && s.nc.IsConnected()
}

// Ping reports an error when the connection is down.
func (s *JetStreamSender) Ping(context.Context) error {
	if !s.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (s *JetStreamSender) Close() error {
	if s == nil || s.nc == nil {
		return nil
	}
	err := s.nc.Drain()
	s.logger.Info("nats connection closed")
	return err
}
