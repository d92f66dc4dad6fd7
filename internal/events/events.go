package events

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TopicOrderPlaced = "loja.order.placed"

	BackendNone     = "none"
	BackendKafka    = "kafka"
	BackendRabbitMQ = "rabbitmq"
)

var ErrDisabled = errors.New("events disabled")

// OrderPlaced is emitted once per committed checkout.
type OrderPlaced struct {
	EventID    string          `json:"event_id"`
	OrderID    int64           `json:"order_id"`
	CustomerID int64           `json:"customer_id"`
	Total      decimal.Decimal `json:"total"`
	Lines      []OrderLine     `json:"lines"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type OrderLine struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// NewOrderPlaced stamps a new event id and time.
func NewOrderPlaced(orderID, customerID int64, total decimal.Decimal, lines []OrderLine) OrderPlaced {
	return OrderPlaced{
		EventID:    uuid.NewString(),
		OrderID:    orderID,
		CustomerID: customerID,
		Total:      total,
		Lines:      lines,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers order events to a broker.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, evt OrderPlaced) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(ctx context.Context, evt OrderPlaced) error {
	log.Printf("NopPublisher.PublishOrderPlaced - order %d (events disabled)", evt.OrderID)
	return nil
}

func (NopPublisher) Close() error { return nil }

// SplitBrokers parses a comma separated broker list.
func SplitBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
