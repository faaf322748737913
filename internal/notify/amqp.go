package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

const routingConfirmed = "booking.confirmed"

// AMQPDispatcher публикует события в topic-exchange RabbitMQ.
// Консюмеры каналов доставки живут в отдельном сервисе.
type AMQPDispatcher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQPDispatcher(url, exchange string) (*AMQPDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPDispatcher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (d *AMQPDispatcher) Dispatch(ctx context.Context, event ConfirmationEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("[notify] marshal event for booking %s: %v", event.BookingID, err)
		return
	}
	err = d.ch.PublishWithContext(ctx, d.exchange, routingConfirmed, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		// Сбой доставки не поднимаем наверх: бронь уже подтверждена.
		log.Printf("[notify] publish %s for booking %s: %v", routingConfirmed, event.BookingID, err)
	}
}

func (d *AMQPDispatcher) Close() error {
	if d.ch != nil {
		_ = d.ch.Close()
	}
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}
