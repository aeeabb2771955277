package queue

import (
	"encoding/json"
	"time"

	"github.com/streadway/amqp"
)

// MessageEvent is published on every terminal transition of a scheduled
// message so downstream consumers (dashboard live view, audit) can react
// without polling the database.
type MessageEvent struct {
	MessageID  int       `json:"message_id"`
	RuleID     *int      `json:"rule_id,omitempty"`
	CampaignID *int      `json:"campaign_id,omitempty"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher fans out message events
type EventPublisher interface {
	Publish(event MessageEvent) error
}

// AMQPPublisher publishes events to a durable RabbitMQ queue
type AMQPPublisher struct {
	channel   *amqp.Channel
	queueName string
}

// NewAMQPPublisher declares the durable event queue on an open connection
func NewAMQPPublisher(conn *amqp.Connection, queueName string) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, err
	}

	return &AMQPPublisher{channel: ch, queueName: queueName}, nil
}

func (p *AMQPPublisher) Publish(event MessageEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.channel.Publish(
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	return p.channel.Close()
}

// NoopPublisher is used when AMQP is not configured and in tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(event MessageEvent) error { return nil }

var _ EventPublisher = (*AMQPPublisher)(nil)
var _ EventPublisher = NoopPublisher{}
