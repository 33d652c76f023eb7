package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"autolead_backend/internal/events"
	"autolead_backend/platform/config"
	"autolead_backend/platform/logger"
)

// AlertPayload is the message the sales-rep alerting consumers receive on
// the broker for every committed lead.
type AlertPayload struct {
	LeadID    string `json:"lead_id"`
	TenantID  string `json:"tenant_id"`
	InquiryID string `json:"inquiry_id"`
	Source    string `json:"source"`
	Merged    bool   `json:"merged"`
	EmittedAt string `json:"emitted_at"`
}

// AlertPublisher pushes lead alerts to a RabbitMQ topic exchange so
// downstream consumers (CRM sync, on-call paging) can react without
// touching this service.
type AlertPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *logger.Logger
}

// NewAlertPublisher dials the broker and declares the topic exchange.
func NewAlertPublisher(cfg config.NotifyConfig, log *logger.Logger) (*AlertPublisher, error) {
	conn, err := amqp.Dial(cfg.GetAMQPURL())
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	exchange := cfg.GetAlertExchange()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}

	return &AlertPublisher{conn: conn, ch: ch, exchange: exchange, log: log}, nil
}

// Publish emits one alert with routing key "lead.committed.<source>".
func (p *AlertPublisher) Publish(ctx context.Context, payload AlertPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("alert payload: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		"lead.committed."+payload.Source,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("alert publish: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *AlertPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// RegisterHandlers subscribes the publisher to domain events on the bus.
func (p *AlertPublisher) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCommitted{}.EventName(), p)
}

// Handle routes events to the broker. Test submissions are committed but
// never alerted.
func (p *AlertPublisher) Handle(ctx context.Context, event events.Event) error {
	committed, ok := event.(events.LeadCommitted)
	if !ok {
		return nil
	}
	if committed.IsTest {
		return nil
	}

	return p.Publish(ctx, AlertPayload{
		LeadID:    committed.LeadID.String(),
		TenantID:  committed.TenantID.String(),
		InquiryID: committed.InquiryID.String(),
		Source:    committed.Source,
		Merged:    committed.Merged,
		EmittedAt: time.Now().UTC().Format(time.RFC3339),
	})
}
