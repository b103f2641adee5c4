package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu        sync.Mutex
	published []amqp.Publishing
	keys      []string
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return nil, nil
}

func (f *fakeChannel) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// dialer hands out the given channels in order, then fails.
type dialer struct {
	channels []*fakeChannel
	calls    int
}

func (d *dialer) dial() (RabbitChannel, error) {
	if d.calls >= len(d.channels) {
		d.calls++
		return nil, errors.New("connection refused")
	}
	ch := d.channels[d.calls]
	d.calls++
	return ch, nil
}

func TestRabbitNotifier(t *testing.T) {
	ch := &fakeChannel{}
	d := &dialer{channels: []*fakeChannel{ch}}
	n, err := NewRabbitNotifier(d.dial, "orders-cancel.ex", "cancellation")
	require.NoError(t, err)

	require.NoError(t, n.NotifyCancellation(context.Background(), "o-1"))
	require.Equal(t, []string{"orders-cancel.ex/cancellation"}, ch.keys)
	require.Equal(t, "o-1", string(ch.published[0].Body))
	require.Equal(t, "text/plain", ch.published[0].ContentType)
	require.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
	require.Equal(t, 1, d.calls)

	require.NoError(t, n.Close())
	require.True(t, ch.IsClosed())
}

func TestRabbitNotifier_DialError(t *testing.T) {
	d := &dialer{}
	_, err := NewRabbitNotifier(d.dial, "orders-cancel.ex", "cancellation")
	require.ErrorContains(t, err, "connection refused")
}

func TestRabbitNotifier_RedialsAfterChannelClosed(t *testing.T) {
	dead := &fakeChannel{err: amqp.ErrClosed}
	fresh := &fakeChannel{}
	d := &dialer{channels: []*fakeChannel{dead, fresh}}
	n, err := NewRabbitNotifier(d.dial, "orders-cancel.ex", "cancellation")
	require.NoError(t, err)

	err = n.NotifyCancellation(context.Background(), "o-1")
	require.ErrorIs(t, err, amqp.ErrClosed)
	require.True(t, dead.IsClosed())

	require.NoError(t, n.NotifyCancellation(context.Background(), "o-2"))
	require.Equal(t, 2, d.calls)
	require.Equal(t, "o-2", string(fresh.published[0].Body))
}

func TestRabbitNotifier_RedialsWhenBrokerClosedChannel(t *testing.T) {
	first := &fakeChannel{}
	second := &fakeChannel{}
	d := &dialer{channels: []*fakeChannel{first, second}}
	n, err := NewRabbitNotifier(d.dial, "orders-cancel.ex", "cancellation")
	require.NoError(t, err)

	first.Close()
	require.NoError(t, n.NotifyCancellation(context.Background(), "o-1"))
	require.Empty(t, first.published)
	require.Len(t, second.published, 1)
}

func TestRabbitNotifier_RedialFailureIsRetriedNextTime(t *testing.T) {
	first := &fakeChannel{}
	d := &dialer{channels: []*fakeChannel{first}}
	n, err := NewRabbitNotifier(d.dial, "orders-cancel.ex", "cancellation")
	require.NoError(t, err)

	first.Close()
	require.ErrorContains(t, n.NotifyCancellation(context.Background(), "o-1"), "connection refused")
	require.ErrorContains(t, n.NotifyCancellation(context.Background(), "o-2"), "connection refused")
	require.Equal(t, 3, d.calls)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaNotifier(t *testing.T) {
	w := &fakeWriter{}
	n := NewKafkaNotifier(w)

	require.NoError(t, n.NotifyCancellation(context.Background(), "o-1"))
	require.Len(t, w.msgs, 1)
	require.Equal(t, "o-1", string(w.msgs[0].Key))
	require.Equal(t, "o-1", string(w.msgs[0].Value))

	w.err = errors.New("leader not available")
	require.ErrorContains(t, n.NotifyCancellation(context.Background(), "o-2"), "leader not available")
}
