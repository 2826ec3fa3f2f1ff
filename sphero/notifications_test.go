package sphero

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-sphero/protocol"
)

func receive(t *testing.T, ch <-chan Notification) Notification {
	t.Helper()
	select {
	case n, ok := <-ch:
		require.True(t, ok, "channel closed")
		return n
	case <-time.After(time.Second):
		t.Fatal("no notification received")
		return Notification{}
	}
}

func TestSubscribe(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")
	client, dev := newTestClient(t, WithMetrics(metrics))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := client.Subscribe(ctx)

	require.NoError(t, dev.Notify(0x07, []byte{0xDE, 0xAD}))

	n := receive(t, stream)
	assert.Equal(t, byte(0x07), n.IDCode)
	assert.Equal(t, []byte{0xDE, 0xAD}, n.Data)
	assert.False(t, n.ReceivedAt.IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.notifications.WithLabelValues(client.ID(), "0x07")))

	// Notifications never complete pending commands
	assert.Zero(t, client.Pending())
	require.NoError(t, client.Ping(ctx))
}

func TestSubscribeFiltersByID(t *testing.T) {
	client, dev := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := client.Subscribe(ctx, 0x03)

	require.NoError(t, dev.Notify(0x01, nil))
	require.NoError(t, dev.Notify(0x03, []byte{1}))

	n := receive(t, stream)
	assert.Equal(t, byte(0x03), n.IDCode)
}

func TestSubscribeInterleavedWithResponses(t *testing.T) {
	client, dev := newTestClient(t)
	dev.Hold()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := client.Subscribe(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- client.Ping(ctx) }()
	require.True(t, dev.WaitCommands(1, time.Second))

	require.NoError(t, dev.Notify(0x0A, []byte{1, 2, 3}))
	require.NoError(t, dev.Release(false))

	require.NoError(t, <-errCh)
	assert.Equal(t, byte(0x0A), receive(t, stream).IDCode)
}

func TestSubscribeClosesOnCancel(t *testing.T) {
	client, _ := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	stream := client.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-stream:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream not closed after cancel")
	}
}

func TestSubscribeClosesOnClientClose(t *testing.T) {
	client, _ := newTestClient(t)

	stream := client.Subscribe(context.Background())
	require.NoError(t, client.Close())

	select {
	case _, ok := <-stream:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream not closed after client close")
	}
}

func TestOnNotification(t *testing.T) {
	client, dev := newTestClient(t)

	got := make(chan Notification, 1)
	stop := client.OnNotification(func(n Notification) { got <- n }, 0x05)
	defer stop()

	require.NoError(t, dev.Notify(0x05, []byte{9}))
	n := receive(t, got)
	assert.Equal(t, []byte{9}, n.Data)
}

func TestNotificationTopic(t *testing.T) {
	assert.Equal(t, "async:0a", notificationTopic(0x0A))
	assert.Equal(t, protocol.KindAsync.String(), "async")
}
