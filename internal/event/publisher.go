package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EVMEventPublisher publishes batch lifecycle and indicator alert events.
type EVMEventPublisher struct {
	conn              *RabbitMQConnection
	messagesPublished int64
	messagesFailed    int64
	lastPublishTime   time.Time
}

func NewEVMEventPublisher(conn *RabbitMQConnection) *EVMEventPublisher {
	return &EVMEventPublisher{
		conn:            conn,
		lastPublishTime: time.Now(),
	}
}

// PublishBatchCompleted publishes a batch status event to the evm_batch_events queue
func (p *EVMEventPublisher) PublishBatchCompleted(ctx context.Context, evt BatchCompletedEvent) error {
	if err := p.publish(ctx, BatchEventQueue, evt); err != nil {
		return err
	}

	slog.Info("Batch event published",
		"queue", BatchEventQueue,
		"batch_id", evt.BatchID,
		"status", evt.Status,
	)
	return nil
}

// PublishIndicatorAlert publishes a performance alert to the evm_indicator_alerts queue
func (p *EVMEventPublisher) PublishIndicatorAlert(ctx context.Context, evt IndicatorAlertEvent) error {
	if err := p.publish(ctx, IndicatorAlertQueue, evt); err != nil {
		return err
	}

	slog.Info("Indicator alert published",
		"queue", IndicatorAlertQueue,
		"program_id", evt.ProgramID,
		"indicator", evt.Indicator,
		"value", evt.Value,
	)
	return nil
}

func (p *EVMEventPublisher) publish(ctx context.Context, queue string, payload any) error {
	_, err := p.conn.Channel.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.conn.Channel.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key (queue name)
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.messagesPublished++
	p.lastPublishTime = time.Now()
	return nil
}
