package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"storefront-api/internal/products"
	"storefront-api/pkg/logkey"

	"github.com/twmb/franz-go/pkg/kgo"
)

// RunStockConsumer consumes order-paid events and decrements the stock
// counter for each paid product line. It blocks until ctx is cancelled.
func RunStockConsumer(ctx context.Context, brokers []string, p *products.Conf) error {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(ConsumerGroup),
		kgo.ConsumeTopics(TopicOrderPaid),
	)
	if err != nil {
		return fmt.Errorf("creating kafka consumer: %w", err)
	}
	defer client.Close()

	for {
		fetches := client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if fetches.IsClientClosed() {
			return errors.New("kafka client closed")
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			slog.Error("kafka fetch error", slog.String("topic", topic),
				slog.Int("partition", int(partition)), slog.String(logkey.ERROR, err.Error()))
		})

		fetches.EachRecord(func(record *kgo.Record) {
			var event OrderPaidEvent
			if err := json.Unmarshal(record.Value, &event); err != nil {
				slog.Error("failed to decode order paid event", slog.String(logkey.ERROR, err.Error()))
				return
			}
			if err := p.DecrementStock(ctx, event.ProductID, event.Quantity); err != nil {
				slog.Error("failed to decrement stock", slog.Int64("product_id", event.ProductID),
					slog.String("order_number", event.OrderNumber), slog.String(logkey.ERROR, err.Error()))
				return
			}
			slog.Info("stock decremented", slog.Int64("product_id", event.ProductID),
				slog.Int("quantity", event.Quantity), slog.String("order_number", event.OrderNumber))
		})
	}
}
