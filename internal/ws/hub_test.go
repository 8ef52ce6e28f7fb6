package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go-productguard/internal/scope"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("closed")
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) types(t *testing.T) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		var msg Message
		require.NoError(t, json.Unmarshal(f, &msg))
		out = append(out, msg.Type)
	}
	return out
}

func TestPublishWrapsEvent(t *testing.T) {
	hub := NewHub(nil)
	company := uuid.New()
	hub.Publish("bulk_request_submitted", company, map[string]string{"id": "42"})

	select {
	case ev := <-hub.Broadcast:
		assert.Equal(t, company, ev.companyID)
		var msg struct {
			Type    string            `json:"type"`
			Payload map[string]string `json:"payload"`
			SentAt  time.Time         `json:"sent_at"`
		}
		require.NoError(t, json.Unmarshal(ev.data, &msg))
		assert.Equal(t, "bulk_request_submitted", msg.Type)
		assert.Equal(t, "42", msg.Payload["id"])
		assert.False(t, msg.SentAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event was not queued")
	}
}

func TestPublishDropsUnencodablePayload(t *testing.T) {
	hub := NewHub(nil)
	hub.Publish("broken", uuid.New(), make(chan int))

	select {
	case <-hub.Broadcast:
		t.Fatal("unexpected broadcast")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Zero(t, hub.ClientCount())
}

func TestEventsFollowSubscriberScope(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	acme, globex := uuid.New(), uuid.New()
	admin, acmePartner, globexPartner := newFakeConn(), newFakeConn(), newFakeConn()
	go hub.Serve(admin, scope.Admin{Actor: "admin"})
	go hub.Serve(acmePartner, scope.Partner{Actor: "acme", Company: acme})
	go hub.Serve(globexPartner, scope.Partner{Actor: "globex", Company: globex})
	require.Eventually(t, func() bool { return hub.ClientCount() == 3 }, time.Second, 5*time.Millisecond)

	hub.Publish("bulk_request_submitted", acme, map[string]string{"filename": "acme.csv"})

	require.Eventually(t, func() bool { return len(admin.types(t)) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(acmePartner.types(t)) == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish("qr_code_status_changed", globex, map[string]string{"code": "G-1"})
	require.Eventually(t, func() bool { return len(globexPartner.types(t)) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(admin.types(t)) == 2 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"bulk_request_submitted"}, acmePartner.types(t))
	assert.Equal(t, []string{"qr_code_status_changed"}, globexPartner.types(t))
	assert.Equal(t, []string{"bulk_request_submitted", "qr_code_status_changed"}, admin.types(t))

	acmePartner.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)
}
