package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends OTPRequestedEvents to a durable queue.  It satisfies the
// account service's code sender, so selecting the queue driver moves mail
// delivery off the request path.
type Publisher struct {
	url   string
	queue string
	log   *zap.Logger
}

func NewPublisher(url, queueName string, log *zap.Logger) *Publisher {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	return &Publisher{url: url, queue: queueName, log: log.Named("otp-publisher")}
}

// SendCode publishes the code for asynchronous delivery.  A connection is
// dialled per message; code requests are rare enough that pooling is not
// worth the reconnect bookkeeping.
func (p *Publisher) SendCode(ctx context.Context, email, code string) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Error("dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Error("channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		p.log.Error("queue declare failed", zap.String("queue", p.queue), zap.Error(err))
		return err
	}

	now := time.Now().UTC()
	body, err := json.Marshal(OTPRequestedEvent{Email: email, Code: code, RequestedAt: now.Format(time.RFC3339)})
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		// an undelivered code is useless once it expires in the store
		Expiration: "300000",
		Body:       body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.log.Error("publish failed", zap.String("queue", p.queue), zap.Error(err))
		return err
	}
	p.log.Debug("otp event published", zap.String("email", email))
	return nil
}
