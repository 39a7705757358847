package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "github.com/gokatarajesh/trivia-api/pkg/http/ws"
)

func dialFeed(t *testing.T, srv *httptest.Server, env *testEnv) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/questions"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return env.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ws.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestQuestionFeedBroadcastsCreate(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()
	conn := dialFeed(t, srv, env)

	body := `{"question":"Which element has the symbol Fe?","answer":"Iron","difficulty":2,"category":1}`
	resp, err := http.Post(srv.URL+"/questions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	msg := readMessage(t, conn)
	assert.Equal(t, ws.TypeQuestionCreated, msg.Type)
	var payload ws.QuestionCreatedPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "Iron", payload.Answer)
	assert.Equal(t, 20, payload.TotalQuestions)
}

func TestQuestionFeedBroadcastsDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()
	conn := dialFeed(t, srv, env)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/questions/9", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	msg := readMessage(t, conn)
	assert.Equal(t, ws.TypeQuestionDeleted, msg.Type)
	var payload ws.QuestionDeletedPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, int32(9), payload.ID)
	assert.Equal(t, 18, payload.TotalQuestions)
}

func TestQuestionFeedAnswersPing(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()
	conn := dialFeed(t, srv, env)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypePing, RequestID: "r1"}))

	msg := readMessage(t, conn)
	assert.Equal(t, ws.TypePong, msg.Type)
	assert.Equal(t, "r1", msg.RequestID)
}

func TestQuestionFeedRejectsUnsupportedMessages(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()
	conn := dialFeed(t, srv, env)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypeQuestionCreated, RequestID: "r2"}))

	msg := readMessage(t, conn)
	assert.Equal(t, ws.TypeError, msg.Type)
	assert.Equal(t, "r2", msg.RequestID)
	var payload ws.ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "unsupported_type", payload.Code)
}

func TestQuestionFeedUnregistersOnClose(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()
	conn := dialFeed(t, srv, env)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return env.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestQuestionFeedRejectsForeignOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"http://trivia.local"}
	upgrader := NewUpgrader(cfg.CORS)

	req := httptest.NewRequest(http.MethodGet, "/ws/questions", nil)
	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "http://trivia.local")
	assert.True(t, upgrader.CheckOrigin(req))
}
