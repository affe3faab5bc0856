package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ancillary-AGI/titan-sub001/internal/infrastructure/monitoring"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/coordinator"
)

func setup(t *testing.T, query string) (*websocket.Conn, *coordinator.Coordinator, *monitoring.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics := monitoring.NewMetrics()
	security := coordinator.New(coordinator.DefaultConfig(), coordinator.WithMetrics(metrics))
	t.Cleanup(func() { security.Close() })

	r := gin.New()
	r.GET("/stream", NewHandler(security, metrics, nil).HandleConnection)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	welcome := read(t, conn)
	require.Equal(t, "system", welcome["type"])
	return conn, security, metrics
}

func read(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestPingPong(t *testing.T) {
	conn, _, metrics := setup(t, "")

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))
	assert.Equal(t, "pong", read(t, conn)["type"])

	require.NoError(t, conn.WriteJSON(Message{Type: "dance"}))
	reply := read(t, conn)
	assert.Equal(t, "error", reply["type"])

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSMessages.WithLabelValues("in", "unknown")))
}

func TestStreamsEvents(t *testing.T) {
	conn, security, _ := setup(t, "")

	security.InterceptNavigation(context.Background(), "tab", "https://malware-distribution.com/")

	msg := read(t, conn)
	require.Equal(t, "event", msg["type"])
	event := msg["event"].(map[string]any)
	assert.Equal(t, "tab", event["tabId"])
	assert.Equal(t, "suspiciousDownload", event["type"])
	assert.Equal(t, true, event["blocked"])
}

func TestSubscribeFiltersByTab(t *testing.T) {
	conn, security, _ := setup(t, "")

	require.NoError(t, conn.WriteJSON(Message{Type: "subscribe", TabID: "a"}))
	ack := read(t, conn)
	require.Equal(t, "subscribed", ack["type"])
	assert.Equal(t, "a", ack["tabId"])

	ctx := context.Background()
	security.InterceptNavigation(ctx, "b", "https://malware-distribution.com/")
	security.InterceptNavigation(ctx, "a", "https://paypa1-secure.com/login")

	msg := read(t, conn)
	require.Equal(t, "event", msg["type"])
	assert.Equal(t, "a", msg["event"].(map[string]any)["tabId"])

	require.NoError(t, conn.WriteJSON(Message{Type: "score", TabID: "a"}))
	score := read(t, conn)
	assert.Equal(t, "score", score["type"])
	assert.EqualValues(t, 80, score["score"])
}

func TestQueryFilter(t *testing.T) {
	conn, security, _ := setup(t, "?tab=only")

	ctx := context.Background()
	security.InterceptNavigation(ctx, "other", "https://malware-distribution.com/")
	security.InterceptNavigation(ctx, "only", "https://malware-distribution.com/")

	msg := read(t, conn)
	assert.Equal(t, "only", msg["event"].(map[string]any)["tabId"])
}

func TestClosesWhenLogCloses(t *testing.T) {
	conn, security, _ := setup(t, "")

	require.NoError(t, security.Close())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
}
