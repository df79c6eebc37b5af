package amqp

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/simaogato/recurring-ledger/internal/domain"
	"github.com/simaogato/recurring-ledger/internal/logging"
)

const publishTimeout = 5 * time.Second

// channel is the subset of *amqp091.Channel used for publishing
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends ExecutionEvents to a direct exchange. It implements domain.ExecutionNotifier.
type Publisher struct {
	conn       *amqp091.Connection
	channel    channel
	exchange   string
	routingKey string
	now        func() time.Time
	logger     logrus.FieldLogger
}

var _ domain.ExecutionNotifier = (*Publisher)(nil)

// NewPublisher dials the broker, opens a channel and declares the exchange
func NewPublisher(url, exchange, routingKey string, logger logrus.FieldLogger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	p := newPublisher(ch, exchange, routingKey, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange, routingKey string, logger logrus.FieldLogger) *Publisher {
	return &Publisher{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		now:        time.Now,
		logger:     logging.OrDiscard(logger),
	}
}

// NotifyExecuted publishes one persistent JSON message for the transaction
func (p *Publisher) NotifyExecuted(ctx context.Context, series *domain.RecurringSeries, tx *domain.Transaction) error {
	if series == nil || tx == nil {
		return fmt.Errorf("publish execution event: missing series or transaction")
	}

	now := p.now()
	body, err := NewExecutionEvent(series, tx, now).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal execution event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,   // exchange
		p.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    tx.ID.String(),
			Timestamp:    now,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish execution event: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"series_id":      series.ID,
		"transaction_id": tx.ID,
		"exchange":       p.exchange,
		"routing_key":    p.routingKey,
	}).Debug("Notifier.Publish.Complete")

	return nil
}

// Close closes the channel and then the connection
func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
