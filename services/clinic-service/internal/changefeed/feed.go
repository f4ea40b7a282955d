package changefeed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Noah202226/dental-clinic-v3-arctech/libs/kafkax"
)

// Handler is invoked once per change notification. The payload is not passed
// through: subscribers re-derive their state with a full reload, so the event
// only signals "something changed".
type Handler func(ctx context.Context)

// Feed is the change-subscription side of the appointment collection. Each
// dashboard session subscribes under its own consumer group so every session
// observes every mutation, including those from the public booking channel.
type Feed struct {
	brokers []string
	topic   string
	logger  *slog.Logger
}

type Config struct {
	Brokers string
	Topic   string
}

func New(logger *slog.Logger, cfg Config) *Feed {
	return &Feed{
		brokers: kafkax.SplitBrokers(cfg.Brokers),
		topic:   cfg.Topic,
		logger:  logger,
	}
}

// Subscribe starts consuming change events and invokes handler for each one.
// The returned func cancels the subscription and blocks until the consume
// loop has stopped. With no brokers configured the subscription is inert.
func (f *Feed) Subscribe(ctx context.Context, handler Handler) (unsubscribe func()) {
	if len(f.brokers) == 0 {
		f.logger.Warn("change feed disabled (no kafka brokers configured)")
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  f.brokers,
		GroupID:  "clinic-session-" + uuid.NewString(),
		Topic:    f.topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer reader.Close()
		f.run(ctx, reader, handler)
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

func (f *Feed) run(ctx context.Context, reader *kafka.Reader, handler Handler) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Error("change feed read error", "err", err)
			time.Sleep(1 * time.Second)
			continue
		}

		ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
		ctxSpan, span := otel.Tracer("changefeed").Start(ctxMsg, "changefeed.consume",
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination", msg.Topic),
			),
		)

		meta := kafkax.ExtractEventMeta(msg)
		f.logger.Debug("appointment change notification", "event_id", meta.EventID, "event_type", meta.EventType)
		handler(ctxSpan)
		span.End()
	}
}
