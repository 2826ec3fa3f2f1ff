package sphero

import (
	"context"
	"fmt"
	"time"

	"github.com/olebedev/emitter"

	"github.com/moffa90/go-sphero/protocol"
)

const notificationTopics = "async:*"

func notificationTopic(id byte) string {
	return fmt.Sprintf("async:%02x", id)
}

// Notification is an asynchronous frame pushed by the device.
// The payload is passed through untouched.
type Notification struct {
	IDCode     byte
	Data       []byte
	ReceivedAt time.Time
}

// NotificationHandler is called for every matching notification.
// Handlers run on their own goroutine and may block without stalling the
// receive loop; a handler that falls NotificationBuffer events behind
// misses notifications.
type NotificationHandler func(Notification)

// notify publishes an async frame. Subscribers that are full skip it, so the
// emission always finishes.
func (c *Client) notify(f *protocol.Frame) {
	c.config.Metrics.notified(c.id, f.IDCode)
	if c.log != nil {
		c.log.Debug().
			Str("client", c.id).
			Uint8("id", f.IDCode).
			Int("length", len(f.Data)).
			Msg("async notification")
	}

	<-c.events.Emit(notificationTopic(f.IDCode), Notification{
		IDCode:     f.IDCode,
		Data:       f.Data,
		ReceivedAt: time.Now(),
	})
}

// Subscribe streams asynchronous notifications until ctx is done or the
// client is closed, at which point the channel is closed. With no ids every
// notification is delivered; otherwise only the listed ID codes are.
//
// Example:
//
//	for n := range client.Subscribe(ctx) {
//	    fmt.Printf("async 0x%02X: % X\n", n.IDCode, n.Data)
//	}
func (c *Client) Subscribe(ctx context.Context, ids ...byte) <-chan Notification {
	out := make(chan Notification, c.config.NotificationBuffer)
	events := c.events.On(notificationTopics, emitter.Skip)

	want := make(map[byte]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	go func() {
		defer close(out)
		defer c.events.Off(notificationTopics, events)

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.closed:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				n, ok := ev.Args[0].(Notification)
				if !ok || (len(want) > 0 && !want[n.IDCode]) {
					continue
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				case <-c.closed:
					return
				}
			}
		}
	}()

	return out
}

// OnNotification registers handler for asynchronous notifications and
// returns a function that unregisters it.
//
// Example:
//
//	cancel := client.OnNotification(func(n sphero.Notification) {
//	    log.Printf("async 0x%02X", n.IDCode)
//	})
//	defer cancel()
func (c *Client) OnNotification(handler NotificationHandler, ids ...byte) (cancel func()) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	stream := c.Subscribe(ctx, ids...)

	go func() {
		for n := range stream {
			handler(n)
		}
	}()

	return cancelCtx
}
