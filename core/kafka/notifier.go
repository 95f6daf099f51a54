// Package kafka publishes change notifications of the backend to a Kafka topic.
package kafka

import (
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/relabs-tech/homesense/core"
	"github.com/relabs-tech/homesense/core/logger"
)

// DefaultTopic is the topic notifications are written to if none is configured
const DefaultTopic = "homesense.changes"

// header keys of a notification message
const (
	HeaderOperation = "operation"
	HeaderContext   = "context"
)

// Event is the value of a notification message. The message key is the resource.
type Event struct {
	Resource  string          `json:"resource"`
	Operation core.Operation  `json:"operation"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Notifier implements core.Notifier by writing one message per change
type Notifier struct {
	writer messageWriter
	now    func() time.Time
}

var _ core.Notifier = (*Notifier)(nil)

// NewNotifier returns a notifier writing to topic on brokers, a comma separated list
// of host:port addresses
func NewNotifier(brokers string, topic string) *Notifier {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &Notifier{writer: w, now: time.Now}
}

// Notify writes the change to Kafka. Failures are logged and otherwise ignored, the
// change itself has already been committed.
func (n *Notifier) Notify(ctx context.Context, resource string, operation core.Operation, payload []byte) {
	rlog := logger.FromContext(ctx)
	value, err := json.Marshal(Event{
		Resource:  resource,
		Operation: operation,
		Payload:   payload,
		Timestamp: n.now().UTC(),
	})
	if err != nil {
		rlog.WithError(err).Errorf("Error 4801: cannot marshal %s notification", resource)
		return
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(resource),
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderOperation, Value: []byte(operation)},
			{Key: HeaderContext, Value: logger.SerializeLoggerContext(ctx)},
		},
	})
	if err != nil {
		rlog.WithError(err).Errorf("Error 4802: cannot publish %s %s notification", operation, resource)
		return
	}
	rlog.Debugln("published", operation, resource, "notification")
}

// Close flushes pending messages and closes the writer
func (n *Notifier) Close() error {
	return n.writer.Close()
}

// ParseMessage decodes a notification message. The returned context carries the
// logger of the request that caused the change.
func ParseMessage(ctx context.Context, msg kafka.Message) (context.Context, Event, error) {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return ctx, ev, err
	}
	var loggerData []byte
	for _, h := range msg.Headers {
		if h.Key == HeaderContext {
			loggerData = h.Value
		}
	}
	return logger.ContextWithLoggerFromData(ctx, loggerData), ev, nil
}
