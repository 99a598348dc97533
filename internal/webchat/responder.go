package webchat

import (
	"context"

	"github.com/healthcareplus/clinic-assistant/internal/conversation"
	"github.com/healthcareplus/clinic-assistant/pkg/logging"
)

// Responder runs one chat turn for a webchat session: it resumes the stored
// transcript, asks the agent, and persists both sides of the exchange. The
// WebSocket and HTTP paths share it.
type Responder struct {
	agent   *conversation.Agent
	history *conversation.HistoryStore
	logger  *logging.Logger
}

// NewResponder creates a responder. history may be nil; sessions are then
// stateless between messages.
func NewResponder(agent *conversation.Agent, history *conversation.HistoryStore, logger *logging.Logger) *Responder {
	if agent == nil {
		panic("webchat: agent cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Responder{agent: agent, history: history, logger: logger.Named("webchat")}
}

// Respond produces the assistant reply for one visitor message.
func (r *Responder) Respond(ctx context.Context, sessionID, text string) (conversation.Reply, error) {
	var history []conversation.ChatMessage
	if r.history != nil {
		stored, err := r.history.Load(ctx, sessionID)
		if err != nil {
			r.logger.Warn("history load failed", "session_id", sessionID, "error", err)
		} else {
			history = stored
		}
	}

	reply := r.agent.ProcessMessage(ctx, text, history)

	if r.history != nil {
		err := r.history.Save(ctx, sessionID, append(history,
			conversation.ChatMessage{Role: conversation.ChatRoleUser, Content: text},
			conversation.ChatMessage{Role: conversation.ChatRoleAssistant, Content: reply.Response},
		))
		if err != nil {
			r.logger.Warn("history save failed", "session_id", sessionID, "error", err)
		}
	}
	return reply, nil
}

// Transcript returns the stored messages for a session, oldest first.
func (r *Responder) Transcript(ctx context.Context, sessionID string, limit int) ([]conversation.ChatMessage, error) {
	if r.history == nil {
		return nil, nil
	}
	msgs, err := r.history.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}
