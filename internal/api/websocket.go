package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/code-explorer/backend/internal/upload"
	"github.com/code-explorer/backend/internal/workspace"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// WebSocket message types for the workspace protocol
const (
	// Client -> Server messages
	MsgTypeUploadFile = "upload:file"
	MsgTypeSelect     = "select"
	MsgTypeRemove     = "remove"
	MsgTypePing       = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeRegistry  = "registry"
	MsgTypeAck       = "ack"
	MsgTypeComplete  = "complete"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Single-message file upload payload
type FileUploadPayload struct {
	Name string `json:"name"`
	Data string `json:"data"` // Base64 encoded file
}

// Select/remove payload
type FileIDPayload struct {
	ID string `json:"id"`
}

// WebSocket acknowledgment for select/remove
type WSAckResponse struct {
	Action  string `json:"action"`
	FileID  string `json:"fileId"`
	Changed bool   `json:"changed"`
}

// WebSocket error response
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler streams workspace events and accepts workspace commands
type WebSocketHandler struct {
	workspaces WorkspaceStore
	upgrader   websocket.Upgrader
	readLimit  int64
	log        zerolog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler. maxMessageKB bounds
// incoming messages; non-positive values mean 16MB.
func NewWebSocketHandler(workspaces WorkspaceStore, maxMessageKB int, log zerolog.Logger) *WebSocketHandler {
	limit := int64(maxMessageKB) * 1024
	if limit <= 0 {
		limit = 16 << 20
	}
	return &WebSocketHandler{
		workspaces: workspaces,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  64 * 1024, // 64KB read buffer
			WriteBufferSize: 64 * 1024, // 64KB write buffer
		},
		readLimit: limit,
		log:       log.With().Str("component", "websocket").Logger(),
	}
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
	log  zerolog.Logger
}

func (w *wsConn) send(msg WSMessage) {
	msg.Timestamp = time.Now().UnixMilli()

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteJSON(msg); err != nil {
		w.log.Debug().Err(err).Str("type", msg.Type).Msg("failed to send message")
	}
}

func (w *wsConn) sendError(message, code string) {
	w.send(WSMessage{
		Type: MsgTypeError,
		Payload: mustJSON(WSErrorResponse{
			Type:    MsgTypeError,
			Message: message,
			Code:    code,
		}),
	})
}

// HandleWebSocket upgrades the connection and runs the workspace protocol
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := lookupWorkspace(wsh.workspaces, c)
	if err != nil {
		return err
	}

	conn, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetReadLimit(wsh.readLimit)

	log := wsh.log.With().Str("workspace", ws.ID).Logger()
	out := &wsConn{conn: conn, log: log}
	log.Debug().Msg("client connected")

	events, unsubscribe := ws.Subscribe()
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for snapshot := range events {
			out.send(WSMessage{Type: MsgTypeRegistry, Payload: mustJSON(snapshot)})
		}
	}()
	defer func() {
		unsubscribe()
		<-forwarded
	}()

	out.send(WSMessage{Type: MsgTypeConnected, ID: ws.ID, Payload: mustJSON(ws.State())})

	// Main message loop
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("connection error")
			}
			break
		}
		wsh.workspaces.Touch(ws.ID)

		switch msg.Type {
		case MsgTypePing:
			out.send(WSMessage{Type: MsgTypePong, ID: msg.ID})
		case MsgTypeUploadFile:
			wsh.handleUploadFile(out, ws, msg)
		case MsgTypeSelect:
			wsh.handleFileCommand(out, msg, ws.Select)
		case MsgTypeRemove:
			wsh.handleFileCommand(out, msg, ws.Remove)
		default:
			out.sendError("Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}

	log.Debug().Msg("client disconnected")
	return nil
}

// handleUploadFile handles a single-message file upload
func (wsh *WebSocketHandler) handleUploadFile(out *wsConn, ws *workspace.Workspace, msg WSMessage) {
	var payload FileUploadPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		out.sendError("Invalid upload payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}
	if payload.Name == "" {
		out.sendError("File name is required", "INVALID_PAYLOAD")
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		out.sendError("Invalid base64 data: "+err.Error(), "INVALID_DATA")
		return
	}

	record, err := ws.Upload([]upload.Source{upload.BytesSource{FileName: payload.Name, Data: decoded}})
	if err != nil {
		var readErr *upload.ReadError
		switch {
		case errors.As(err, &readErr):
			out.sendError(upload.ReadFailureMessage, "READ_ERROR")
		case errors.Is(err, upload.ErrBusy):
			out.sendError("An upload is already in progress", "BUSY")
		default:
			out.sendError(err.Error(), "UPLOAD_ERROR")
		}
		return
	}

	out.send(WSMessage{
		Type:    MsgTypeComplete,
		ID:      msg.ID,
		Payload: mustJSON(record.Summary(true)),
	})
}

// handleFileCommand runs select or remove; unknown ids are acknowledged
// with changed=false and publish nothing.
func (wsh *WebSocketHandler) handleFileCommand(out *wsConn, msg WSMessage, apply func(id string) bool) {
	var payload FileIDPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.ID == "" {
		out.sendError("Invalid "+msg.Type+" payload", "INVALID_PAYLOAD")
		return
	}

	changed := apply(payload.ID)
	out.send(WSMessage{
		Type: MsgTypeAck,
		ID:   msg.ID,
		Payload: mustJSON(WSAckResponse{
			Action:  msg.Type,
			FileID:  payload.ID,
			Changed: changed,
		}),
	})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}

