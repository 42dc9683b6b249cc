package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/code-explorer/backend/internal/models"
	"github.com/code-explorer/backend/internal/upload"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWorkspace(t *testing.T, env *testEnv, wsID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(env.e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/workspaces/" + wsID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendMessage(t *testing.T, conn *websocket.Conn, msgType, id string, payload interface{}) {
	t.Helper()
	msg := WSMessage{Type: msgType, ID: id}
	if payload != nil {
		msg.Payload = mustJSON(payload)
	}
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil reads messages until one of type want arrives, returning it and
// everything skipped on the way.
func readUntil(t *testing.T, conn *websocket.Conn, want string) (WSMessage, []WSMessage) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var skipped []WSMessage
	for {
		var msg WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == want {
			return msg, skipped
		}
		skipped = append(skipped, msg)
	}
}

func TestWebSocket_Connected(t *testing.T) {
	env := newTestEnv(t)
	ws := env.mgr.Create()
	seed(t, ws, [2]string{"a.go", "package a"})

	conn := dialWorkspace(t, env, ws.ID)
	msg, skipped := readUntil(t, conn, MsgTypeConnected)
	assert.Empty(t, skipped)
	assert.Equal(t, ws.ID, msg.ID)

	var state models.WorkspaceState
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	assert.Equal(t, ws.ID, state.ID)
	require.Len(t, state.Registry.Files, 1)
	assert.Equal(t, "a.go", state.Registry.Files[0].Name)
}

// readTypes reads until every wanted type has arrived once. Order is not
// checked; registry events and replies are sent from different goroutines.
func readTypes(t *testing.T, conn *websocket.Conn, want ...string) map[string]WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	got := make(map[string]WSMessage, len(want))
	for len(got) < len(want) {
		var msg WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
		for _, w := range want {
			if msg.Type == w {
				got[w] = msg
			}
		}
	}
	return got
}

func TestWebSocket_UploadSelectRemove(t *testing.T) {
	env := newTestEnv(t)
	ws := env.mgr.Create()
	conn := dialWorkspace(t, env, ws.ID)
	readUntil(t, conn, MsgTypeConnected)

	sendMessage(t, conn, MsgTypeUploadFile, "u1", FileUploadPayload{
		Name: "hello.py",
		Data: base64.StdEncoding.EncodeToString([]byte("print('hi')\n")),
	})
	got := readTypes(t, conn, MsgTypeComplete, MsgTypeRegistry)

	assert.Equal(t, "u1", got[MsgTypeComplete].ID)
	var summary models.FileSummary
	require.NoError(t, json.Unmarshal(got[MsgTypeComplete].Payload, &summary))
	assert.Equal(t, "hello.py", summary.Name)
	assert.Equal(t, "python", summary.Language)
	assert.True(t, summary.Selected)

	var snapshot models.RegistrySnapshot
	require.NoError(t, json.Unmarshal(got[MsgTypeRegistry].Payload, &snapshot))
	require.Len(t, snapshot.Files, 1)
	assert.Equal(t, summary.ID, snapshot.SelectedID)

	// unknown id: ack only, nothing published
	sendMessage(t, conn, MsgTypeSelect, "s1", FileIDPayload{ID: "missing"})
	ack, skipped := readUntil(t, conn, MsgTypeAck)
	assert.Empty(t, skipped)
	var resp WSAckResponse
	require.NoError(t, json.Unmarshal(ack.Payload, &resp))
	assert.Equal(t, WSAckResponse{Action: MsgTypeSelect, FileID: "missing", Changed: false}, resp)

	sendMessage(t, conn, MsgTypeRemove, "r1", FileIDPayload{ID: summary.ID})
	got = readTypes(t, conn, MsgTypeAck, MsgTypeRegistry)
	require.NoError(t, json.Unmarshal(got[MsgTypeAck].Payload, &resp))
	assert.True(t, resp.Changed)
	require.NoError(t, json.Unmarshal(got[MsgTypeRegistry].Payload, &snapshot))
	assert.Empty(t, snapshot.Files)
	assert.Empty(t, ws.Snapshot().Files)
}

func TestWebSocket_UploadReadFailure(t *testing.T) {
	env := newTestEnv(t)
	ws := env.mgr.Create()
	conn := dialWorkspace(t, env, ws.ID)
	readUntil(t, conn, MsgTypeConnected)

	sendMessage(t, conn, MsgTypeUploadFile, "u1", FileUploadPayload{
		Name: "blob.bin",
		Data: base64.StdEncoding.EncodeToString([]byte{0x7f, 'E', 'L', 'F', 0, 0}),
	})
	msg, skipped := readUntil(t, conn, MsgTypeError)
	assert.Empty(t, skipped)

	var resp WSErrorResponse
	require.NoError(t, json.Unmarshal(msg.Payload, &resp))
	assert.Equal(t, "READ_ERROR", resp.Code)
	assert.Equal(t, upload.ReadFailureMessage, resp.Message)
	assert.Empty(t, ws.Snapshot().Files)
}

func TestWebSocket_PingAndErrors(t *testing.T) {
	env := newTestEnv(t)
	ws := env.mgr.Create()
	conn := dialWorkspace(t, env, ws.ID)
	readUntil(t, conn, MsgTypeConnected)

	sendMessage(t, conn, MsgTypePing, "p1", nil)
	msg, _ := readUntil(t, conn, MsgTypePong)
	assert.Equal(t, "p1", msg.ID)

	tests := []struct {
		name     string
		msgType  string
		payload  interface{}
		wantCode string
	}{
		{"unknown type", "frobnicate", nil, "INVALID_TYPE"},
		{"select without id", MsgTypeSelect, FileIDPayload{}, "INVALID_PAYLOAD"},
		{"upload without name", MsgTypeUploadFile, FileUploadPayload{Data: ""}, "INVALID_PAYLOAD"},
		{"upload bad base64", MsgTypeUploadFile, FileUploadPayload{Name: "a.go", Data: "%%%"}, "INVALID_DATA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sendMessage(t, conn, tt.msgType, "", tt.payload)
			msg, _ := readUntil(t, conn, MsgTypeError)
			var resp WSErrorResponse
			require.NoError(t, json.Unmarshal(msg.Payload, &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestWebSocket_UnknownWorkspace(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/workspaces/nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
