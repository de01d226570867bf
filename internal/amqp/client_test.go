package amqp

import (
	"context"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	declared   []string
	published  []amqp091.Publishing
	keys       []string
	publishErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func newTestPublisher(t *testing.T) (*Publisher, *fakeChannel) {
	t.Helper()
	ch := &fakeChannel{}
	p, err := newPublisher(ch, Config{Exchange: "budget", RoutingKey: "ledger.changed"})
	require.NoError(t, err)
	return p, ch
}

func TestPublisher_Publish(t *testing.T) {
	p, ch := newTestPublisher(t)
	assert.Equal(t, []string{"budget:topic"}, ch.declared)

	event := NewLedgerEvent(Updated, CategoryEntity, 7)
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, ch.published, 1)
	assert.Equal(t, []string{"budget/ledger.changed.category.updated"}, ch.keys)

	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp091.Persistent, msg.DeliveryMode)
	assert.Equal(t, event.ID.String(), msg.MessageId)

	decoded, err := LedgerEventFromJSON(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, int64(7), decoded.EntityID)
	assert.Equal(t, Updated, decoded.Kind)
}

func TestPublisher_CircuitOpensAfterFailures(t *testing.T) {
	p, ch := newTestPublisher(t)
	ch.publishErr = errors.New("connection closed")

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := p.Publish(ctx, NewLedgerEvent(Created, TransactionEntity, int64(i)))
		require.Error(t, err)
	}

	ch.publishErr = nil
	err := p.Publish(ctx, NewLedgerEvent(Created, TransactionEntity, 99))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Empty(t, ch.published)
}

func TestPublisher_CancelledContext(t *testing.T) {
	p, ch := newTestPublisher(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, NewLedgerEvent(Deleted, TransactionEntity, 1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ch.published)
}

func TestPublisher_Close(t *testing.T) {
	p, ch := newTestPublisher(t)
	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", errors.New("dial tcp 127.0.0.1:5672: connect: connection refused"), true},
		{"closed", errors.New("connection closed"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"recoverable amqp", &amqp091.Error{Code: amqp091.ChannelError, Recover: true}, true},
		{"access refused", &amqp091.Error{Code: amqp091.AccessRefused}, false},
		{"other", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isConnectionError(tt.err))
		})
	}
}

func TestLedgerEventFromJSON_Invalid(t *testing.T) {
	_, err := LedgerEventFromJSON([]byte(`{"id": 12}`))
	assert.Error(t, err)

	_, err = LedgerEventFromJSON([]byte(`{"kind": "created"}`))
	assert.Error(t, err)
}
