package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cabinbook/internal/domain"
	"cabinbook/internal/pkg/logger"
)

type recordingPublisher struct {
	events []Event
	err    error
	closed bool
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return r.err
}

func sampleEvent() Event {
	r := &domain.Reservation{
		ID:            17,
		ResourceID:    4,
		ContainerID:   2,
		UserID:        9,
		Status:        domain.ReservationConfirmed,
		PaymentStatus: domain.PaymentPartial,
		StartDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC),
	}
	return FromReservation(ReservationConfirmed, r, time.Date(2023, 12, 20, 10, 0, 0, 0, time.UTC))
}

func TestFromReservation(t *testing.T) {
	e := sampleEvent()
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, ReservationConfirmed, e.Type)
	assert.Equal(t, int64(17), e.ReservationID)
	assert.Equal(t, int64(2), e.ContainerID)
	assert.Equal(t, domain.PaymentPartial, e.PaymentStatus)
}

func TestFanout(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("broker down")}
	f := Fanout{ok, failing}

	err := f.Publish(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "broker down")
	assert.Len(t, ok.events, 1)
	assert.Len(t, failing.events, 1)

	assert.Error(t, f.Close())
	assert.True(t, ok.closed)
	assert.True(t, failing.closed)

	assert.NoError(t, Fanout{ok}.Publish(context.Background(), sampleEvent()))
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_KeysByReservation(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}
	e := sampleEvent()

	require.NoError(t, p.Publish(context.Background(), e))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "17", string(msg.Key))
	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, e.ID, headers[headerEventID])
	assert.Equal(t, string(ReservationConfirmed), headers[headerEventType])

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, e.ReservationID, decoded.ReservationID)
}

func TestNewKafkaPublisher_Validates(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "reservations", nil)
	assert.Error(t, err)
	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "", nil)
	assert.Error(t, err)
}

type fakeChannel struct {
	key string
	msg amqp.Publishing
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	c.key = key
	c.msg = msg
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func TestAMQPPublisher_PersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{ch: ch, queue: "reservation.events"}
	e := sampleEvent()

	require.NoError(t, p.Publish(context.Background(), e))
	assert.Equal(t, "reservation.events", ch.key)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, e.ID, ch.msg.MessageId)
	assert.NoError(t, p.Close())
}

func TestOpenBrokers(t *testing.T) {
	none, err := OpenBrokers(BrokerConfig{}, logger.Discard())
	require.NoError(t, err)
	assert.Empty(t, none)

	// the kafka writer connects lazily
	kafkaOnly, err := OpenBrokers(BrokerConfig{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "reservation-events"}, logger.Discard())
	require.NoError(t, err)
	require.Len(t, kafkaOnly, 1)
	assert.IsType(t, &KafkaPublisher{}, kafkaOnly[0])
	assert.NoError(t, kafkaOnly.Close())

	_, err = OpenBrokers(BrokerConfig{KafkaBrokers: []string{"localhost:9092"}}, logger.Discard())
	assert.Error(t, err)
}
