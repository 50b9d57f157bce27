// Package eventpub delivers completed-transfer events to a RabbitMQ topic
// exchange. Publishing happens after the database commit and is best effort:
// the engine logs failures and moves on, it never unwinds a committed
// transfer because a broker was unreachable.
package eventpub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/go-arno/peerbank/internal/domain"
)

const routingKey = "transaction.created"

// TransactionCreated is the event payload sent to both participants'
// channels.
type TransactionCreated struct {
	Transaction     domain.Transaction `json:"transaction"`
	SenderBalance   decimal.Decimal    `json:"sender_balance"`
	ReceiverBalance decimal.Decimal    `json:"receiver_balance"`
	Channels        []string           `json:"channels"`
}

// Publisher publishes transfer events.
type Publisher struct {
	channel  *amqp.Channel
	exchange string
}

// New returns a Publisher bound to the given exchange.
func New(channel *amqp.Channel, exchange string) *Publisher {
	return &Publisher{
		channel:  channel,
		exchange: exchange,
	}
}

// Notify publishes the completed transfer with both new balances.
func (p *Publisher) Notify(ctx context.Context, transaction domain.Transaction, senderBalance, receiverBalance decimal.Decimal) error {
	event := TransactionCreated{
		Transaction:     transaction,
		SenderBalance:   senderBalance,
		ReceiverBalance: receiverBalance,
		Channels: []string{
			fmt.Sprintf("public-user.%d", transaction.SenderID),
			fmt.Sprintf("public-user.%d", transaction.ReceiverID),
		},
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Timestamp:    time.Now(),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
