package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/polyglot/internal/live"
	"github.com/MeKo-Tech/polyglot/internal/pipeline"
	"github.com/MeKo-Tech/polyglot/internal/resolve"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		// In production, you should check against allowed origins
		return true
	},
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketTextRequest is a client message. Type "text" submits the
// current contents of the input box.
type WebSocketTextRequest struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
}

// WebSocketResponse is a server message.
type WebSocketResponse struct {
	Type       string              `json:"type"`   // "ack", "translation" or "error"
	Status     string              `json:"status"` // "pending", "completed", "error"
	Generation uint64              `json:"generation,omitempty"`
	Result     *pipeline.Result    `json:"result,omitempty"`
	Detection  *resolve.Resolution `json:"detection,omitempty"`
	Error      string              `json:"error,omitempty"`
	ErrorType  string              `json:"error_type,omitempty"`
	RequestID  string              `json:"request_id,omitempty"`
}

// syncWriter serialises writes from the read loop and the session's timers.
type syncWriter struct {
	mu   sync.Mutex
	conn WebSocketConnWriter
}

func (w *syncWriter) WriteMessage(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(messageType, data)
}

// liveWebSocketHandler handles WebSocket connections for live translation.
func (s *Server) liveWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	s.handleWebSocketConnection(r.Context(), conn, getClientIP(r))
}

// handleWebSocketConnection processes messages from a WebSocket connection.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn, clientID string) {
	// Set read deadline to prevent hanging connections
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	out := &syncWriter{conn: conn}
	session := s.newLiveSession(ctx, out, clientID)
	defer func() {
		session.Close()
		liveStaleResults.Add(float64(session.Stale()))
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			break
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(out, session, data)
		}
	}
}

// newLiveSession creates the debounced session whose updates are written to out.
func (s *Server) newLiveSession(ctx context.Context, out WebSocketConnWriter, clientID string) *live.Session {
	var tr live.Translator = s.pipeline
	if s.rateLimiter != nil {
		tr = limitedTranslator{next: tr, limiter: s.rateLimiter, clientID: clientID}
	}
	return live.NewSession(ctx, tr, s.debounce, func(u live.Update) {
		s.deliverLiveUpdate(out, u)
	})
}

// limitedTranslator counts a live request against the client's limits when
// the debounced translation runs. Keystrokes superseded during the quiet
// period are not counted.
type limitedTranslator struct {
	next     live.Translator
	limiter  *RateLimiter
	clientID string
}

func (t limitedTranslator) Translate(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	if err := t.limiter.CheckRateLimit(t.clientID, int64(utf8.RuneCountInString(req.Text))); err != nil {
		recordRateLimitHit(err)
		return nil, err
	}
	return t.next.Translate(ctx, req)
}

// handleWebSocketMessage processes one client message.
func (s *Server) handleWebSocketMessage(out WebSocketConnWriter, session *live.Session, data []byte) {
	var req WebSocketTextRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(out, errorTypeInvalid, fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	if req.Type != "text" {
		s.sendWebSocketError(out, errorTypeInvalid, "Unsupported request type: "+req.Type)
		return
	}

	if s.maxTextKB > 0 && int64(len(req.Text)) > s.maxTextKB*1024 {
		s.sendWebSocketError(out, errorTypeInvalid, "Text too large")
		return
	}
	gen := session.Submit(pipeline.Request{Text: req.Text, Source: req.Source, Target: req.Target})
	s.sendWebSocketResponse(out, WebSocketResponse{Type: "ack", Status: "pending", Generation: gen})
}

// deliverLiveUpdate sends a finished live translation.
func (s *Server) deliverLiveUpdate(out WebSocketConnWriter, u live.Update) {
	requestID := uuid.NewString()
	if u.Result != nil {
		textLength.WithLabelValues("websocket").Observe(float64(utf8.RuneCountInString(u.Result.Text)))
	}

	if u.Err != nil {
		translationsTotal.WithLabelValues("websocket", "error").Inc()
		_, errType := classifyError(u.Err)
		resp := WebSocketResponse{
			Type:       "translation",
			Status:     "error",
			Generation: u.Generation,
			Error:      u.Err.Error(),
			ErrorType:  errType,
			RequestID:  requestID,
		}
		if errType == errorTypeAmbiguous {
			resp.Detection = resolutionOf(u.Result)
		}
		s.sendWebSocketResponse(out, resp)
		return
	}

	translationsTotal.WithLabelValues("websocket", "success").Inc()
	if u.Result != nil {
		translationDuration.WithLabelValues("websocket").Observe(u.Result.Duration.Seconds())
	}
	s.sendWebSocketResponse(out, WebSocketResponse{
		Type:       "translation",
		Status:     "completed",
		Generation: u.Generation,
		Result:     u.Result,
		RequestID:  requestID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
	})
}
