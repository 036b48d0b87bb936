package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RailScan/internal/domain/models"
)

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	e := echo.New()
	e.GET("/ws/scans", h.Handle)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/scans"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestHubFiltersBySubscription(t *testing.T) {
	h := NewHub(nil, time.Minute)
	conn := dialHub(t, h)

	require.NoError(t, conn.WriteJSON(subscribeMsg{Type: "subscribe", Symbols: []string{"aapl"}}))
	assert.Equal(t, "subscribed", readFrame(t, conn).Type)
	assert.Equal(t, 1, h.Clients())

	err := h.PublishResults(context.Background(), []models.ScanResult{
		{Symbol: "MSFT", Side: models.SideShort},
		{Symbol: "AAPL", Side: models.SideLong, Score: 80},
	})
	require.NoError(t, err)

	f := readFrame(t, conn)
	assert.Equal(t, "result", f.Type)
	require.NotNil(t, f.Result)
	assert.Equal(t, "AAPL", f.Result.Symbol)
	assert.Equal(t, 80.0, f.Result.Score)
}

func TestHubRejectsUnknownMessages(t *testing.T) {
	h := NewHub(nil, time.Minute)
	conn := dialHub(t, h)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.Contains(t, f.Error, "subscribe")
}

func TestHubDropsClosedClients(t *testing.T) {
	h := NewHub(nil, time.Minute)
	conn := dialHub(t, h)
	require.NoError(t, conn.WriteJSON(subscribeMsg{Type: "subscribe"}))
	readFrame(t, conn)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, h.PublishResults(context.Background(), []models.ScanResult{{Symbol: "SPY"}}))
}
