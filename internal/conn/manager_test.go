package conn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/api"
	"github.com/cristianoliveira/chat-intray/internal/session"
	"github.com/cristianoliveira/chat-intray/internal/store"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// wsServer is a WebSocket echo harness for manager tests. Every accepted
// connection is announced on conns; every JSON frame the client writes is
// delivered on frames.
type wsServer struct {
	srv    *httptest.Server
	conns  chan *websocket.Conn
	frames chan map[string]any

	mu   sync.Mutex
	open []*websocket.Conn
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	ws := &wsServer{
		conns:  make(chan *websocket.Conn, 8),
		frames: make(chan map[string]any, 32),
	}
	upgrader := websocket.Upgrader{}
	ws.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws.mu.Lock()
		ws.open = append(ws.open, c)
		ws.mu.Unlock()
		ws.conns <- c
		for {
			var frame map[string]any
			if err := c.ReadJSON(&frame); err != nil {
				return
			}
			ws.frames <- frame
		}
	}))
	t.Cleanup(func() {
		ws.mu.Lock()
		for _, c := range ws.open {
			_ = c.Close()
		}
		ws.mu.Unlock()
		ws.srv.Close()
	})
	return ws
}

func (ws *wsServer) url() string {
	return "ws" + strings.TrimPrefix(ws.srv.URL, "http")
}

func (ws *wsServer) waitConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-ws.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection")
		return nil
	}
}

func (ws *wsServer) waitFrame(t *testing.T) map[string]any {
	t.Helper()
	select {
	case f := <-ws.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func (ws *wsServer) expectNoConn(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case <-ws.conns:
		t.Fatal("unexpected new connection")
	case <-time.After(d):
	}
}

func loggedInStore(t *testing.T) store.Store {
	t.Helper()
	s := store.NewMemoryStore()
	require.NoError(t, session.Save(s, session.Credentials{
		ContractNumber: "12345",
		Login:          "alice",
		AccountAPIKey:  "api-key",
	}))
	return s
}

func newTestManager(t *testing.T, ws *wsServer, opts Options) *Manager {
	t.Helper()
	opts.URL = ws.url()
	if opts.SubscriptionDelay == 0 {
		opts.SubscriptionDelay = 20 * time.Millisecond
	}
	if opts.Store == nil {
		opts.Store = loggedInStore(t)
	}
	m := NewManager(opts)
	t.Cleanup(m.Cleanup)
	return m
}

func subscribedChannels(t *testing.T, frame map[string]any) []any {
	t.Helper()
	require.Equal(t, "client", frame["sender"])
	subs, ok := frame["subscriptions"].([]any)
	require.True(t, ok)
	require.Len(t, subs, 1)
	spec := subs[0].(map[string]any)
	filters := spec["filters"].(map[string]any)
	values := filters["values"].(map[string]any)
	channels, ok := values["channel"].([]any)
	require.True(t, ok)
	return channels
}

func TestConnectSendsNormalizedSubscription(t *testing.T) {
	ws := newWSServer(t)
	m := newTestManager(t, ws, Options{})

	require.NoError(t, m.SetChannels(context.Background(), []string{"channel_42", "7"}))
	ws.waitConn(t)

	frame := ws.waitFrame(t)
	require.Equal(t, []any{"42", "7"}, subscribedChannels(t, frame))
	require.Equal(t, StatusOpen, m.Status())
	require.Equal(t, "42", m.ActiveChannel())
}

func TestSubscriptionSentEarlyOnAck(t *testing.T) {
	ws := newWSServer(t)
	// Long fallback delay: only the ack can explain a prompt subscription.
	m := newTestManager(t, ws, Options{SubscriptionDelay: 10 * time.Second})

	require.NoError(t, m.SetChannels(context.Background(), []string{"42"}))
	c := ws.waitConn(t)
	require.NoError(t, c.WriteJSON(map[string]string{"type": "subscribed"}))

	frame := ws.waitFrame(t)
	require.Equal(t, []any{"42"}, subscribedChannels(t, frame))
}

func TestSetChannelsUnchangedKeepsConnection(t *testing.T) {
	ws := newWSServer(t)
	m := newTestManager(t, ws, Options{})

	require.NoError(t, m.SetChannels(context.Background(), []string{"channel_42"}))
	ws.waitConn(t)
	ws.waitFrame(t)

	// Same channel in a different shape: no teardown, no second connect.
	require.NoError(t, m.SetChannels(context.Background(), []string{"42"}))
	ws.expectNoConn(t, 100*time.Millisecond)
	require.Equal(t, StatusOpen, m.Status())
}

func TestSetChannelsChangeTearsDownAndReconnects(t *testing.T) {
	ws := newWSServer(t)
	m := newTestManager(t, ws, Options{})

	require.NoError(t, m.SetChannels(context.Background(), []string{"42"}))
	ws.waitConn(t)
	ws.waitFrame(t)

	require.NoError(t, m.SetChannels(context.Background(), []string{"channel_43"}))
	ws.waitConn(t)

	frame := ws.waitFrame(t)
	require.Equal(t, []any{"43"}, subscribedChannels(t, frame))
	require.Equal(t, "43", m.ActiveChannel())
}

func TestSetChannelsEmptyDisconnects(t *testing.T) {
	ws := newWSServer(t)
	m := newTestManager(t, ws, Options{})

	require.NoError(t, m.SetChannels(context.Background(), []string{"42"}))
	ws.waitConn(t)

	require.NoError(t, m.SetChannels(context.Background(), nil))
	require.Equal(t, StatusIdle, m.Status())
	require.Equal(t, "", m.ActiveChannel())
	ws.expectNoConn(t, 100*time.Millisecond)
}

func TestConnectSingleFlight(t *testing.T) {
	ws := newWSServer(t)
	m := newTestManager(t, ws, Options{})

	dials := 0
	innerDial := m.dial
	m.dial = func(ctx context.Context, url string) (*websocket.Conn, error) {
		dials++
		return innerDial(ctx, url)
	}

	require.NoError(t, m.SetChannels(context.Background(), []string{"42"}))
	require.NoError(t, m.Connect(context.Background()))
	require.NoError(t, m.Connect(context.Background()))
	require.Equal(t, 1, dials)
}

func TestSendMessageFrame(t *testing.T) {
	ws := newWSServer(t)
	m := newTestManager(t, ws, Options{})

	require.NoError(t, m.SetChannels(context.Background(), []string{"channel_42"}))
	ws.waitConn(t)
	ws.waitFrame(t) // subscription

	require.NoError(t, m.SendMessage("Hello", "How are you?"))

	frame := ws.waitFrame(t)
	require.Equal(t, "livechat", frame["package"])
	require.Equal(t, "message", frame["page"])

	cmds := frame["cmd"].([]any)
	require.Len(t, cmds, 1)
	body := cmds[0].(map[string]any)["livechat"].(map[string]any)
	add := body["message"].(map[string]any)["add"].(map[string]any)
	require.Equal(t, float64(42), add["channelid"])
	require.Equal(t, "Hello", add["title"])
	require.Equal(t, "How are you?", add["details"])
	require.Equal(t, float64(0), add["enddatets"])
	require.Equal(t, "api-key", add["sentby"])
}

func TestSendMessageRequiresOpenTransport(t *testing.T) {
	ws := newWSServer(t)
	var reported []ErrorEvent
	m := newTestManager(t, ws, Options{
		OnError: func(ev ErrorEvent) { reported = append(reported, ev) },
	})

	require.Error(t, m.SendMessage("t", "d"))
	require.NotEmpty(t, reported)
}

func TestSendMessageRequiresLogin(t *testing.T) {
	ws := newWSServer(t)
	m := newTestManager(t, ws, Options{Store: store.NewMemoryStore()})

	require.NoError(t, m.SetChannels(context.Background(), []string{"42"}))
	ws.waitConn(t)

	err := m.SendMessage("t", "d")
	require.ErrorIs(t, err, session.ErrNotLoggedIn)
}

func TestInboundMessageRouted(t *testing.T) {
	ws := newWSServer(t)
	events := make(chan InboundEvent, 8)
	m := newTestManager(t, ws, Options{
		OnMessage: func(ev InboundEvent) { events <- ev },
	})

	require.NoError(t, m.SetChannels(context.Background(), []string{"42"}))
	c := ws.waitConn(t)

	require.NoError(t, c.WriteJSON(map[string]any{
		"type": "message", "username": "bob", "details": "hi", "channelid": "42",
	}))

	select {
	case ev := <-events:
		require.Equal(t, "message", ev.Kind)
		require.Contains(t, string(ev.Raw), `"bob"`)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound event")
	}
}

func TestMalformedFrameReportedAndDropped(t *testing.T) {
	ws := newWSServer(t)
	events := make(chan InboundEvent, 8)
	errs := make(chan ErrorEvent, 8)
	m := newTestManager(t, ws, Options{
		OnMessage: func(ev InboundEvent) { events <- ev },
		OnError:   func(ev ErrorEvent) { errs <- ev },
	})

	require.NoError(t, m.SetChannels(context.Background(), []string{"42"}))
	c := ws.waitConn(t)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("{not json")))

	select {
	case ev := <-errs:
		require.Equal(t, "malformed frame", ev.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error event")
	}

	// The connection survives and routes the next valid frame.
	require.NoError(t, c.WriteJSON(map[string]any{"type": "message", "details": "still here"}))
	select {
	case ev := <-events:
		require.Equal(t, "message", ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound event")
	}
}

func TestServerCloseInvokesOnCloseWithoutReconnect(t *testing.T) {
	ws := newWSServer(t)
	closed := make(chan struct{}, 1)
	m := newTestManager(t, ws, Options{
		OnClose: func() { closed <- struct{}{} },
	})

	require.NoError(t, m.SetChannels(context.Background(), []string{"42"}))
	c := ws.waitConn(t)

	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
	_ = c.Close()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for close hook")
	}
	require.Equal(t, StatusIdle, m.Status())
	ws.expectNoConn(t, 150*time.Millisecond)
}

func TestCleanupDuringConcurrentSends(t *testing.T) {
	ws := newWSServer(t)
	m := newTestManager(t, ws, Options{})

	require.NoError(t, m.SetChannels(context.Background(), []string{"42"}))
	ws.waitConn(t)

	// Drain server-side frames so large writes never stall on the harness.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-ws.frames:
			case <-stop:
				return
			}
		}
	}()

	payload := strings.Repeat("x", 1<<20)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := m.SendMessage("", payload); err != nil {
					return
				}
			}
		}()
	}

	// Tearing down mid-send must close cleanly, never crash on a
	// concurrent writer.
	time.Sleep(10 * time.Millisecond)
	m.Cleanup()
	wg.Wait()
	require.Equal(t, StatusIdle, m.Status())
}

func TestRefreshContentReemitsMessageBatch(t *testing.T) {
	ws := newWSServer(t)

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/channels/42/messages", r.URL.Path)
		_, _ = w.Write([]byte(`{"messages":[{"id":1,"channelid":"42","details":"hi","username":"bob","timestamp":1700}]}`))
	}))
	defer apiSrv.Close()

	events := make(chan InboundEvent, 8)
	m := newTestManager(t, ws, Options{
		API:       api.NewClientWithBase(apiSrv.URL),
		OnMessage: func(ev InboundEvent) { events <- ev },
	})

	require.NoError(t, m.SetChannels(context.Background(), []string{"channel_42"}))
	c := ws.waitConn(t)

	require.NoError(t, c.WriteJSON(map[string]string{"type": "refreshcontent"}))

	select {
	case ev := <-events:
		require.Equal(t, "messages", ev.Kind)
		require.Len(t, ev.Messages, 1)
		require.Equal(t, "hi", ev.Messages[0].Details)
		require.Equal(t, "bob", ev.Messages[0].Username)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message batch")
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	ws := newWSServer(t)
	m := newTestManager(t, ws, Options{})

	require.NoError(t, m.SetChannels(context.Background(), []string{"42"}))
	ws.waitConn(t)

	m.Cleanup()
	m.Cleanup()
	require.Equal(t, StatusIdle, m.Status())
}

func TestBuildSubscriptionFrameNormalizes(t *testing.T) {
	frame := buildSubscriptionFrame("livechat", "channelmessages", []string{"channel_1", "", "2"})
	require.Equal(t, "client", frame.Sender)
	require.Equal(t, []string{"1", "2"}, frame.Subscriptions[0].Filters.Values.Channel)
	require.Equal(t, "livechat", frame.Subscriptions[0].Package)
	require.Equal(t, "channelmessages", frame.Subscriptions[0].Page)
}

func TestBuildMessageFrameNamespace(t *testing.T) {
	frame := buildMessageFrame("livechat", "livechat", "channel_9", "t", "d", "key")
	require.Equal(t, "message", frame.Page)
	add := frame.Cmd[0]["livechat"].Message.Add
	require.Equal(t, 9, add.ChannelID)
	require.Equal(t, int64(0), add.EndDateTS)
	require.Equal(t, "key", add.SentBy)
}
