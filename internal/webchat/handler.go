package webchat

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/healthcareplus/clinic-assistant/pkg/logging"
)

// Handler serves the embeddable chat widget: a WebSocket endpoint for
// real-time messaging plus HTTP fallbacks for restricted networks.
type Handler struct {
	responder *Responder
	logger    *logging.Logger
	widgetJS  []byte

	mu       sync.RWMutex
	sessions map[string]*websocket.Conn // sessionID -> active connection
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type                 string           `json:"type"` // "message", "typing", "history", "session", "pong", "error"
	Text                 string           `json:"text,omitempty"`
	Role                 string           `json:"role,omitempty"` // "assistant" or "user"
	SessionID            string           `json:"session_id,omitempty"`
	Timestamp            string           `json:"timestamp,omitempty"`
	RequiresConfirmation bool             `json:"requires_confirmation,omitempty"`
	Messages             []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// NewHandler creates a web chat handler.
func NewHandler(responder *Responder, widgetJS []byte, logger *logging.Logger) *Handler {
	if responder == nil {
		panic("webchat: responder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		responder: responder,
		logger:    logger.Named("webchat_api"),
		widgetJS:  widgetJS,
		sessions:  make(map[string]*websocket.Conn),
	}
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "session",
		SessionID: sessionID,
	})

	if msgs, err := h.responder.Transcript(r.Context(), sessionID, 50); err == nil && len(msgs) > 0 {
		history := make([]HistoryMessage, 0, len(msgs))
		for _, m := range msgs {
			history = append(history, HistoryMessage{Role: m.Role, Text: m.Content})
		}
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
	}

	h.mu.Lock()
	h.sessions[sessionID] = conn
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[sessionID] == conn {
			delete(h.sessions, sessionID)
		}
		h.mu.Unlock()
	}()

	h.logger.Info("connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}

		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		h.SendToSession(sessionID, OutboundMessage{Type: "typing"})

		reply, err := h.responder.Respond(r.Context(), sessionID, msg.Text)
		if err != nil {
			h.logger.Error("respond failed", "session_id", sessionID, "error", err)
			h.SendToSession(sessionID, OutboundMessage{
				Type: "error",
				Text: "Sorry, something went wrong. Please try again.",
			})
			continue
		}

		h.SendToSession(sessionID, OutboundMessage{
			Type:                 "message",
			Role:                 "assistant",
			Text:                 reply.Response,
			Timestamp:            time.Now().UTC().Format(time.RFC3339),
			RequiresConfirmation: reply.RequiresConfirmation,
		})
	}
}

// SendToSession sends a message to an active WebSocket session.
func (h *Handler) SendToSession(sessionID string, msg OutboundMessage) {
	h.mu.RLock()
	conn, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	_ = websocket.JSON.Send(conn, msg)
}

// HandleMessage is the HTTP fallback for sending messages.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	reply, err := h.responder.Respond(r.Context(), req.SessionID, req.Text)
	if err != nil {
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"response":              reply.Response,
		"intent":                reply.Intent,
		"requires_confirmation": reply.RequiresConfirmation,
		"session_id":            req.SessionID,
	})
}

// HandleHistory returns chat history for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	msgs, err := h.responder.Transcript(r.Context(), sessionID, 100)
	if err != nil {
		h.logger.Error("failed to load history", "session_id", sessionID, "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, HistoryMessage{Role: m.Role, Text: m.Content})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": history})
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(h.widgetJS)
}
