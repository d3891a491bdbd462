package notify

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/liliang-cn/docuchat/internal/domain"
)

type recorder struct {
	events []domain.Event
}

func (r *recorder) Notify(event domain.Event) {
	r.events = append(r.events, event)
}

type fakeStore struct {
	created []*domain.Event
	err     error
}

func (f *fakeStore) Create(event *domain.Event) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, event)
	return nil
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, nil, b}

	m.Notify(domain.Event{SessionID: "s", Title: "Success"})

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, "Success", b.events[0].Title)
}

func TestLogNotifierLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := NewLogNotifier(zap.New(core))

	n.Notify(domain.Event{SessionID: "s", Level: domain.EventSuccess, Title: "Success"})
	n.Notify(domain.Event{SessionID: "s", Level: domain.EventError, Title: "Error", Description: "boom"})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["description"])
}

func TestStoreNotifierPersists(t *testing.T) {
	store := &fakeStore{}
	n := NewStoreNotifier(store, zaptest.NewLogger(t))

	n.Notify(domain.Event{SessionID: "s", Level: domain.EventError, Title: "Error"})

	require.Len(t, store.created, 1)
	assert.Equal(t, "Error", store.created[0].Title)
}

func TestStoreNotifierSwallowsErrors(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	n := NewStoreNotifier(&fakeStore{err: errors.New("disk full")}, zap.New(core))

	assert.NotPanics(t, func() {
		n.Notify(domain.Event{SessionID: "s"})
	})
	assert.Equal(t, 1, logs.Len())
}

func dialHub(t *testing.T, hub *Hub, sessionID string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, sessionID)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubDeliversSessionEvents(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t), []string{"*"})
	conn := dialHub(t, hub, "s1")

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	hub.Notify(domain.Event{SessionID: "other", Title: "ignored"})
	hub.Notify(domain.Event{SessionID: "s1", Level: domain.EventSuccess, Title: "Suggestions Generated"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got domain.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, "Suggestions Generated", got.Title)
}

func TestHubWildcardSubscriber(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t), []string{"*"})
	conn := dialHub(t, hub, "")

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	hub.Notify(domain.Event{SessionID: "a", Title: "first"})
	hub.Notify(domain.Event{SessionID: "b", Title: "second"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first, second domain.Event
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "first", first.Title)
	assert.Equal(t, "second", second.Title)
}

func TestHubUnregistersOnClose(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t), []string{"*"})
	conn := dialHub(t, hub, "s1")

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	conn.Close()
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubRejectsDisallowedOrigin(t *testing.T) {
	hub := NewHub(zap.NewNop(), []string{"https://app.example"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, "s1")
	}))
	t.Cleanup(server.Close)
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.Subscribers())

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://app.example"}})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	assert.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
}
