package realtime

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, h.Count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishReachesEveryClient(t *testing.T) {
	h := NewHub(zerolog.Nop())
	srv := httptest.NewServer(NewRouter(h))
	defer srv.Close()
	defer h.Close()

	a, b := dial(t, srv), dial(t, srv)
	waitClients(t, h, 2)

	h.Publish("UpdateCartCount", map[string]int{"count": 3})

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg struct {
			Event   string         `json:"event"`
			Payload map[string]int `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "UpdateCartCount", msg.Event)
		assert.Equal(t, 3, msg.Payload["count"])
	}
}

func TestClientsConnectingLaterSeeNoBacklog(t *testing.T) {
	h := NewHub(zerolog.Nop())
	srv := httptest.NewServer(NewRouter(h))
	defer srv.Close()
	defer h.Close()

	h.Publish("ReceiveAnnouncement", "before anyone listened")

	conn := dial(t, srv)
	waitClients(t, h, 1)
	h.Publish("ReceiveAnnouncement", "after")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"after"`)
}

func TestDisconnectUnregisters(t *testing.T) {
	h := NewHub(zerolog.Nop())
	srv := httptest.NewServer(NewRouter(h))
	defer srv.Close()
	defer h.Close()

	conn := dial(t, srv)
	waitClients(t, h, 1)
	require.NoError(t, conn.Close())
	waitClients(t, h, 0)
}

func TestHealthz(t *testing.T) {
	h := NewHub(zerolog.Nop())
	srv := httptest.NewServer(NewRouter(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true,"clients":0}`, string(body))
}
