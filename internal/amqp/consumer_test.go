package amqp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConsumeChannel struct {
	bindings []string
	msgs     chan amqp091.Delivery
}

func (f *fakeConsumeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	return nil
}

func (f *fakeConsumeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error) {
	return amqp091.Queue{Name: "amq.gen-test"}, nil
}

func (f *fakeConsumeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error {
	f.bindings = append(f.bindings, exchange+":"+key+"->"+name)
	return nil
}

func (f *fakeConsumeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error) {
	return f.msgs, nil
}

func (f *fakeConsumeChannel) Close() error { return nil }

// recordingAcker captures the acknowledgement of each delivery.
type recordingAcker struct {
	mu      sync.Mutex
	acks    []uint64
	nacks   []uint64
	requeue []bool
}

func (r *recordingAcker) Ack(tag uint64, multiple bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acks = append(r.acks, tag)
	return nil
}

func (r *recordingAcker) Nack(tag uint64, multiple, requeue bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nacks = append(r.nacks, tag)
	r.requeue = append(r.requeue, requeue)
	return nil
}

func (r *recordingAcker) Reject(tag uint64, requeue bool) error { return nil }

func delivery(t *testing.T, acker amqp091.Acknowledger, tag uint64, body []byte) amqp091.Delivery {
	t.Helper()
	return amqp091.Delivery{Acknowledger: acker, DeliveryTag: tag, Body: body}
}

func TestSubscriber_Run(t *testing.T) {
	ch := &fakeConsumeChannel{msgs: make(chan amqp091.Delivery, 4)}
	s, err := newSubscriber(ch, Config{Exchange: "budget", RoutingKey: "ledger.changed"})
	require.NoError(t, err)
	assert.Equal(t, []string{"budget:ledger.changed.#->amq.gen-test"}, ch.bindings)

	acker := &recordingAcker{}
	good, err := NewLedgerEvent(Created, TransactionEntity, 1).ToJSON()
	require.NoError(t, err)
	failing, err := NewLedgerEvent(Deleted, CategoryEntity, 2).ToJSON()
	require.NoError(t, err)

	ch.msgs <- delivery(t, acker, 1, good)
	ch.msgs <- delivery(t, acker, 2, []byte("not json"))
	ch.msgs <- delivery(t, acker, 3, failing)
	close(ch.msgs)

	var handled []int64
	err = s.Run(context.Background(), func(ctx context.Context, e LedgerEvent) error {
		handled = append(handled, e.EntityID)
		if e.Entity == CategoryEntity {
			return errors.New("not now")
		}
		return nil
	})
	assert.ErrorContains(t, err, "delivery channel closed")

	assert.Equal(t, []int64{1, 2}, handled)
	assert.Equal(t, []uint64{1}, acker.acks)
	assert.Equal(t, []uint64{2, 3}, acker.nacks)
	assert.Equal(t, []bool{false, true}, acker.requeue)
}

func TestSubscriber_RunStopsOnCancel(t *testing.T) {
	ch := &fakeConsumeChannel{msgs: make(chan amqp091.Delivery)}
	s, err := newSubscriber(ch, Config{Exchange: "budget", RoutingKey: "ledger.changed"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = s.Run(ctx, func(context.Context, LedgerEvent) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
