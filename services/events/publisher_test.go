package eventsvc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
	"github.com/rudradrivingschool/rudra-driving-school/tests"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

// fakeChannel acks (or nacks) every publish on confirms.
type fakeChannel struct {
	sent     []published
	confirms chan amqp.Confirmation
	ack      bool
	err      error
	closed   bool
}

func newFakeChannel(ack bool) *fakeChannel {
	return &fakeChannel{confirms: make(chan amqp.Confirmation, 1), ack: ack}
}

func (ch *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if ch.err != nil {
		return ch.err
	}
	ch.sent = append(ch.sent, published{exchange: exchange, key: key, msg: msg})
	ch.confirms <- amqp.Confirmation{DeliveryTag: uint64(len(ch.sent)), Ack: ch.ack}
	return nil
}

func (ch *fakeChannel) Close() error {
	ch.closed = true
	return nil
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, KeyProgress, RoutingKey(admission.Progress{RidesCompleted: 3}))
	assert.Equal(t, KeyProgress, RoutingKey(admission.Progress{Status: admission.StatusCompleted}))
	assert.Equal(t, KeyCompleted, RoutingKey(admission.Progress{Status: admission.StatusCompleted, Completed: true}))
}

func TestPublisher_Publish(t *testing.T) {
	orig := core.NowFunc
	now := time.Date(2024, 5, 17, 14, 5, 0, 0, time.UTC)
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })

	ctx := context.Background()
	ch := newFakeChannel(true)
	pub := newPublisher(ch, ch.confirms, "admissions", testutil.NewLogger())

	p := admission.Progress{
		AdmissionID:    "adm-1",
		StudentName:    "Asha",
		RidesCompleted: 8,
		TotalRides:     8,
		Status:         admission.StatusCompleted,
		Completed:      true,
	}
	require.NoError(t, pub.Publish(ctx, p))
	require.Len(t, ch.sent, 1)

	sent := ch.sent[0]
	assert.Equal(t, "admissions", sent.exchange)
	assert.Equal(t, KeyCompleted, sent.key)
	assert.Equal(t, uint8(amqp.Persistent), sent.msg.DeliveryMode)
	assert.Equal(t, "application/json", sent.msg.ContentType)
	assert.Equal(t, now, sent.msg.Timestamp)

	var got admission.Progress
	require.NoError(t, json.Unmarshal(sent.msg.Body, &got))
	assert.Equal(t, p, got)

	require.NoError(t, pub.Close())
	assert.True(t, ch.closed)
}

func TestPublisher_ProgressChanged(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		ch      *fakeChannel
		wantLog bool
	}{
		{name: "acked", ch: newFakeChannel(true)},
		{name: "nacked", ch: newFakeChannel(false), wantLog: true},
		{
			name: "publish failed",
			ch: func() *fakeChannel {
				ch := newFakeChannel(true)
				ch.err = errors.New("channel/connection is not open")
				return ch
			}(),
			wantLog: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := testutil.NewLogger()
			pub := newPublisher(tt.ch, tt.ch.confirms, "admissions", logger)
			pub.ProgressChanged(ctx, admission.Progress{AdmissionID: "adm-1", RidesCompleted: 1, TotalRides: 8})

			if tt.wantLog {
				require.Len(t, logger.Logs("warn"), 1)
				assert.Contains(t, logger.Logs("warn")[0], "progress of admission adm-1 not published")
			} else {
				assert.Empty(t, logger.Logs("warn"))
				assert.Equal(t, KeyProgress, tt.ch.sent[0].key)
			}
		})
	}
}

func TestPublisher_noConfirms(t *testing.T) {
	ch := newFakeChannel(true)
	pub := newPublisher(ch, nil, "admissions", testutil.NewLogger())
	require.NoError(t, pub.Publish(context.Background(), admission.Progress{AdmissionID: "adm-2"}))
	assert.Len(t, ch.sent, 1)
}
