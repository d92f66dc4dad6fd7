package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "loja_online"
	ExchangeType = "topic"
)

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitPublisher struct {
	ch   Channel
	conn *amqp.Connection
}

// DialRabbit connects with a few retries and declares the topic exchange.
func DialRabbit(url string, attempts int) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection
	var err error

	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.Printf("events.DialRabbit - attempt %d failed: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("could not declare exchange: %w", err)
	}
	return conn, ch, nil
}

// NewRabbitPublisher wraps an open channel. conn may be nil; when set it is
// closed together with the channel.
func NewRabbitPublisher(ch Channel, conn *amqp.Connection) *RabbitPublisher {
	return &RabbitPublisher{ch: ch, conn: conn}
}

func (p *RabbitPublisher) PublishOrderPlaced(ctx context.Context, evt OrderPlaced) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("could not marshal order event: %w", err)
	}
	return p.ch.PublishWithContext(ctx,
		ExchangeName,
		TopicOrderPlaced,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    evt.EventID,
			Timestamp:    evt.OccurredAt,
			Body:         body,
		},
	)
}

func (p *RabbitPublisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
