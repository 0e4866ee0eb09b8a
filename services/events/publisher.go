// Package eventsvc publishes admission progress changes to a RabbitMQ topic exchange.
package eventsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
	"github.com/rudradrivingschool/rudra-driving-school/core/progress"
)

// Routing keys
const (
	KeyProgress  = "admission.progress"
	KeyCompleted = "admission.completed"
)

const confirmTimeout = 5 * time.Second

var errNotAcked = errors.New("publish not acknowledged by the broker")

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	conn     io.Closer
	ch       channel
	confirms <-chan amqp.Confirmation
	exchange string
	logger   core.Logger

	mu sync.Mutex // one publish at a time keeps the confirms in order
}

var _ progress.Listener = (*Publisher)(nil) // interface compliance check

// Dial connects to the broker, declares the durable topic exchange and puts the channel in confirm mode.
func Dial(conf *core.Config, logger core.Logger) (*Publisher, error) {
	conn, err := amqp.DialConfig(conf.RabbitMQ.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		return nil, errors.Wrap(err, "dialing rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "opening rabbitmq channel")
	}
	if err = ch.ExchangeDeclare(conf.RabbitMQ.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declaring exchange %q", conf.RabbitMQ.Exchange)
	}
	if err = ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "enabling publisher confirms")
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	pub := newPublisher(ch, confirms, conf.RabbitMQ.Exchange, logger)
	pub.conn = conn
	return pub, nil
}

func newPublisher(ch channel, confirms <-chan amqp.Confirmation, exchange string, logger core.Logger) *Publisher {
	return &Publisher{ch: ch, confirms: confirms, exchange: exchange, logger: logger}
}

// RoutingKey is KeyCompleted for the reconciliation that completed the admission, KeyProgress otherwise.
func RoutingKey(p admission.Progress) string {
	if p.Completed {
		return KeyCompleted
	}
	return KeyProgress
}

// Publish sends p as a persistent JSON message and waits for the broker's confirm.
func (pub *Publisher) Publish(ctx context.Context, p admission.Progress) error {
	body, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "marshalling progress")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	if err = pub.ch.PublishWithContext(ctx, pub.exchange, RoutingKey(p), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    core.NowFunc().UTC(),
		Body:         body,
	}); err != nil {
		return errors.Wrap(err, "publishing progress")
	}
	if pub.confirms == nil {
		return nil
	}

	select {
	case c, ok := <-pub.confirms:
		if !ok || !c.Ack {
			return errNotAcked
		}
		return nil
	case <-ctx.Done():
		// a late confirm still belongs to this publish: drain it so the next one reads its own
		select {
		case <-pub.confirms:
		case <-time.After(2 * time.Second):
		}
		return errors.Wrap(ctx.Err(), "waiting for publish confirm")
	}
}

// ProgressChanged publishes p. Failures are logged: the reconciliation already happened.
func (pub *Publisher) ProgressChanged(ctx context.Context, p admission.Progress) {
	if err := pub.Publish(ctx, p); err != nil {
		pub.logger.Warn(
			fmt.Sprintf("progress of admission %s not published", p.AdmissionID),
			err,
			map[string]interface{}{"admission_id": p.AdmissionID},
		)
	}
}

func (pub *Publisher) Close() error {
	err := pub.ch.Close()
	if pub.conn != nil {
		if cErr := pub.conn.Close(); err == nil {
			err = cErr
		}
	}
	return errors.Wrap(err, "closing rabbitmq publisher")
}
