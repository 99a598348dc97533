package conversation

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/healthcareplus/clinic-assistant/pkg/logging"
)

// ChatRequest is the POST /api/chat body. History can come from the client
// directly or be resumed server-side via SessionID.
type ChatRequest struct {
	Message             string        `json:"message"`
	SessionID           string        `json:"session_id,omitempty"`
	ConversationHistory []ChatMessage `json:"conversation_history,omitempty"`
}

// ChatResponse is the POST /api/chat reply.
type ChatResponse struct {
	Response             string `json:"response"`
	Intent               Intent `json:"intent"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
	SessionID            string `json:"session_id,omitempty"`
}

// Handler exposes the chat endpoint.
type Handler struct {
	agent   *Agent
	history *HistoryStore
	logger  *logging.Logger
}

// NewHandler creates the chat handler. history may be nil when Redis is not
// configured; sessions then rely on client-supplied history.
func NewHandler(agent *Agent, history *HistoryStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{agent: agent, history: history, logger: logger.Named("chat_api")}
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	history := req.ConversationHistory
	sessionID := req.SessionID

	if h.history != nil {
		if sessionID == "" {
			sessionID = uuid.NewString()
		} else if len(history) == 0 {
			stored, err := h.history.Load(ctx, sessionID)
			if err != nil {
				h.logger.Warn("history load failed", "session_id", sessionID, "error", err)
			} else {
				history = stored
			}
		}
	}

	reply := h.agent.ProcessMessage(ctx, req.Message, history)

	if h.history != nil {
		err := h.history.Save(ctx, sessionID, append(history,
			ChatMessage{Role: ChatRoleUser, Content: req.Message},
			ChatMessage{Role: ChatRoleAssistant, Content: reply.Response},
		))
		if err != nil {
			h.logger.Warn("history save failed", "session_id", sessionID, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ChatResponse{
		Response:             reply.Response,
		Intent:               reply.Intent,
		RequiresConfirmation: reply.RequiresConfirmation,
		SessionID:            sessionID,
	})
}
