package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_NewHub(t *testing.T) {
	hub := NewHub(nil)

	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.subscriptions)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
}

func TestHub_PublishReachesCompanySubscribers(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	subscriber := NewClient(hub, nil, nil)
	other := NewClient(hub, nil, nil)
	hub.Register(subscriber)
	hub.Register(other)
	hub.Subscribe(subscriber, 7)
	hub.Subscribe(other, 8)
	require.Eventually(t, func() bool { return hub.Subscribers(7) == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(7, EventTicketCreated, &TicketPayload{
		TicketID:     3,
		TicketNumber: "AAR-0003",
		Subject:      "Cannot log in",
		Status:       "open",
	})

	select {
	case raw := <-subscriber.send:
		var msg struct {
			Type      MessageType   `json:"type"`
			CompanyID uint          `json:"company_id"`
			Data      TicketPayload `json:"data"`
			SentAt    string        `json:"sent_at"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, EventTicketCreated, msg.Type)
		assert.Equal(t, uint(7), msg.CompanyID)
		assert.Equal(t, "AAR-0003", msg.Data.TicketNumber)
		assert.NotEmpty(t, msg.SentAt)
	case <-time.After(time.Second):
		t.Fatal("expected event for subscriber")
	}

	select {
	case <-other.send:
		t.Fatal("other company must not receive the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	// must not block or panic
	hub.Publish(1, EventMailboxSynced, &MailboxSyncedPayload{MailboxID: 1})
}

func TestHub_PublishDoesNotBlockWhenQueueFull(t *testing.T) {
	hub := NewHub(nil) // not running, nothing drains the queue

	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.Publish(1, EventTicketUpdated, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
}

func TestHub_UnregisterRemovesSubscriptions(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	client := NewClient(hub, nil, nil)
	hub.Register(client)
	hub.Subscribe(client, 5)
	require.Eventually(t, func() bool { return hub.Subscribers(5) == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.Subscribers(5) == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-client.send
	assert.False(t, open)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run()
		close(stopped)
	}()

	client := NewClient(hub, nil, nil)
	hub.Register(client)
	hub.Stop()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}

	_, open := <-client.send
	assert.False(t, open)

	// calls after Stop return immediately
	hub.Register(NewClient(hub, nil, nil))
	hub.Stop()
}
