package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/healthcareplus/clinic-assistant/internal/observability/metrics"
	"github.com/healthcareplus/clinic-assistant/internal/scheduling"
	"github.com/healthcareplus/clinic-assistant/pkg/logging"
)

// Scheduler is the slice of the calendar service the agent drives.
type Scheduler interface {
	GetAvailability(ctx context.Context, q scheduling.AvailabilityQuery) ([]scheduling.Slot, error)
	Book(ctx context.Context, req scheduling.BookingRequest) (*scheduling.Appointment, error)
}

// Reply is the agent's answer to one user message.
type Reply struct {
	Response             string `json:"response"`
	Intent               Intent `json:"intent"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
}

// AgentConfig carries the clinic-specific knobs.
type AgentConfig struct {
	DefaultDoctor string
	ClinicPhone   string
	RAGTopK       int
	MaxSlots      int
	Timezone      *time.Location
	LLMTimeout    time.Duration
}

// Agent is the conversational front end: it classifies each message, answers
// FAQ questions over the knowledge base and drives the scheduling workflow
// through the calendar service. Every LLM call has a deterministic rule-based
// fallback so the assistant keeps working when providers are down.
type Agent struct {
	llm       LLMClient
	retriever Retriever
	scheduler Scheduler
	logger    *logging.Logger
	metrics   *metrics.ConversationMetrics

	defaultDoctor string
	clinicPhone   string
	topK          int
	maxSlots      int
	loc           *time.Location
	llmTimeout    time.Duration
	now           func() time.Time
}

// NewAgent wires an agent. llm may be nil; the agent then answers with its
// rule-based fallbacks only.
func NewAgent(llm LLMClient, retriever Retriever, scheduler Scheduler, cfg AgentConfig, logger *logging.Logger, m *metrics.ConversationMetrics) *Agent {
	if retriever == nil {
		panic("conversation: retriever cannot be nil")
	}
	if scheduler == nil {
		panic("conversation: scheduler cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.DefaultDoctor == "" {
		cfg.DefaultDoctor = "Dr. Sarah Johnson"
	}
	if cfg.RAGTopK <= 0 {
		cfg.RAGTopK = 3
	}
	if cfg.MaxSlots <= 0 {
		cfg.MaxSlots = 5
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.Local
	}
	return &Agent{
		llm:           llm,
		retriever:     retriever,
		scheduler:     scheduler,
		logger:        logger.Named("agent"),
		metrics:       m,
		defaultDoctor: cfg.DefaultDoctor,
		clinicPhone:   cfg.ClinicPhone,
		topK:          cfg.RAGTopK,
		maxSlots:      cfg.MaxSlots,
		loc:           cfg.Timezone,
		llmTimeout:    cfg.LLMTimeout,
		now:           time.Now,
	}
}

// SetClock overrides the agent's clock. Tests only.
func (a *Agent) SetClock(now func() time.Time) {
	a.now = now
}

// ProcessMessage routes one user message and produces the assistant reply.
func (a *Agent) ProcessMessage(ctx context.Context, message string, history []ChatMessage) Reply {
	intent := DetectIntent(message, history)
	a.metrics.ObserveMessage(string(intent))

	if intent == IntentFAQ {
		return Reply{
			Response: a.answerFAQ(ctx, message, history),
			Intent:   IntentFAQ,
		}
	}
	return a.handleScheduling(ctx, message, history)
}

// answerFAQ retrieves clinic context and asks the LLM for a grounded answer,
// degrading to raw context extraction when the LLM is unavailable.
func (a *Agent) answerFAQ(ctx context.Context, message string, history []ChatMessage) string {
	docs, err := a.retriever.Query(ctx, message, a.topK)
	if err != nil {
		a.logger.Warn("faq retrieval failed", "error", err)
	}
	context := strings.Join(docs, "\n\n")

	recent := history
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	prompt := formatUserPrompt(message, recent, "", context)

	text, err := a.complete(ctx, faqSystemPrompt, prompt)
	if err == nil {
		return text
	}
	a.logger.Warn("faq llm failed, degrading to context extraction", "error", err)

	if context != "" {
		if idx := strings.Index(context, "Answer:"); idx >= 0 {
			answer := strings.TrimSpace(context[idx+len("Answer:"):])
			if line := strings.SplitN(answer, "\n", 2)[0]; line != "" {
				return line + " For more information, please call us at " + a.clinicPhone + "."
			}
		}
	}
	return "I apologize, but I'm currently experiencing technical difficulties. For immediate assistance, please call us at " + a.clinicPhone + ". Our staff will be happy to help you."
}

var confirmationKeywords = []string{"yes", "confirm", "book it", "that works", "sounds good"}

var rescheduleKeywords = []string{"reschedule", "change appointment", "move appointment"}

// summaryMarker ties the two-stage confirmation flow together: the booking
// only fires when the patient confirms a reply that carried this phrase.
const summaryMarker = "let me summarize the details"

func (a *Agent) handleScheduling(ctx context.Context, message string, history []ChatMessage) Reply {
	info := ExtractBookingInfo(message, history)
	lower := strings.ToLower(message)

	isConfirmation := containsAny(lower, confirmationKeywords)
	if isConfirmation && info.Date != "" && info.Time != "" {
		return a.handleConfirmation(ctx, info, history)
	}

	if containsAny(lower, rescheduleKeywords) {
		return Reply{
			Response: "I can help you reschedule your appointment. Please provide your appointment ID and your preferred new date and time.",
			Intent:   IntentScheduling,
		}
	}
	if strings.Contains(lower, "cancel") {
		return Reply{
			Response: "I can help you cancel your appointment. Please provide your appointment ID and your email address for verification.",
			Intent:   IntentScheduling,
		}
	}

	date := normalizeDate(info.Date)
	if date == "" {
		if containsAny(lower, slotRequestKeywords) {
			date = a.dateFromHistory(history)
			if date == "" {
				date = a.now().In(a.loc).AddDate(0, 0, 1).Format("2006-01-02")
			}
		}
	}
	if date == "" {
		text, err := a.complete(ctx, systemPrompt, formatUserPrompt(message, history, "", ""))
		if err != nil {
			text = "I'd be happy to help you find available appointments! Please let me know what date you prefer (e.g., '2026-03-02' or 'tomorrow'), and I'll show you the available time slots."
		}
		return Reply{Response: text, Intent: IntentScheduling}
	}

	slots, err := a.scheduler.GetAvailability(ctx, scheduling.AvailabilityQuery{
		Date:            date,
		Doctor:          info.Doctor,
		AppointmentType: info.AppointmentType,
	})
	if err != nil {
		a.logger.Warn("availability lookup failed", "date", date, "error", err)
		return Reply{
			Response: fmt.Sprintf("I couldn't look up availability for %s: %s. Could you double-check the date?", date, userFacingError(err)),
			Intent:   IntentScheduling,
		}
	}

	if len(slots) == 0 {
		return Reply{
			Response: fmt.Sprintf("I couldn't find any available slots for %s. Would you like to try a different date? Or I can add you to our waitlist for this date and we'll notify you if a slot becomes available.", date),
			Intent:   IntentScheduling,
		}
	}

	slotsText := formatSlotsForDisplay(slots, info.AppointmentType)
	text, err := a.complete(ctx, systemPrompt, formatUserPrompt(message, history, slotsText, ""))
	if err != nil {
		text = a.fallbackSchedulingReply(lower, slotsText)
	}

	requiresConfirmation := containsAny(strings.ToLower(text), []string{"confirm", "book", "proceed"})
	return Reply{Response: text, Intent: IntentScheduling, RequiresConfirmation: requiresConfirmation}
}

// handleConfirmation runs the two-stage booking close: first a full summary
// that asks the patient to verify, then the actual booking once they do.
func (a *Agent) handleConfirmation(ctx context.Context, info BookingInfo, history []ChatMessage) Reply {
	var missing []string
	if info.PatientName == "" {
		missing = append(missing, "your full name")
	}
	if info.PatientEmail == "" {
		missing = append(missing, "your email address")
	}
	if info.PatientPhone == "" {
		missing = append(missing, "your phone number")
	}
	if len(missing) > 0 {
		return Reply{
			Response: "Before I can finalize your booking, I need to collect some information. Please provide " + strings.Join(missing, ", ") + ".",
			Intent:   IntentScheduling,
		}
	}

	if !summaryAlreadyShown(history) {
		apptType := info.AppointmentType
		if apptType == "" {
			apptType = scheduling.TypeGeneralConsultation
		}
		response := fmt.Sprintf(
			"Perfect! Before I confirm your booking, %s:\n\n"+
				"- Date: %s\n- Time: %s\n- Type: %s\n- Name: %s\n- Email: %s\n- Phone: %s\n\n"+
				"Please confirm if all details are correct, and I'll proceed with the booking.",
			summaryMarker, info.Date, info.Time, displayType(apptType),
			info.PatientName, info.PatientEmail, info.PatientPhone,
		)
		return Reply{Response: response, Intent: IntentScheduling, RequiresConfirmation: true}
	}

	doctor := info.Doctor
	if doctor == "" {
		doctor = a.defaultDoctor
	}
	appt, err := a.scheduler.Book(ctx, scheduling.BookingRequest{
		PatientName:  info.PatientName,
		PatientEmail: info.PatientEmail,
		PatientPhone: info.PatientPhone,
		Date:         normalizeDate(info.Date),
		StartTime:    NormalizeClock(info.Time),
		Doctor:       doctor,
		Type:         info.AppointmentType,
		Reason:       info.Reason,
	})
	if err != nil {
		a.logger.Warn("booking via chat failed", "error", err)
		return Reply{
			Response: userFacingError(err) + " Would you like to try a different time?",
			Intent:   IntentScheduling,
		}
	}

	return Reply{
		Response: fmt.Sprintf(
			"Appointment successfully booked! Your appointment ID is %s. You're seeing %s on %s at %s. A confirmation has been sent to %s.",
			appt.ID, appt.Doctor, appt.Date, appt.Start, appt.PatientEmail,
		),
		Intent: IntentScheduling,
	}
}

func (a *Agent) complete(ctx context.Context, system, prompt string) (string, error) {
	if a.llm == nil {
		return "", fmt.Errorf("conversation: no llm configured")
	}
	if a.llmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.llmTimeout)
		defer cancel()
	}
	started := time.Now()
	resp, err := a.llm.Complete(ctx, LLMRequest{
		System:      []string{system},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   500,
		Temperature: 0.7,
	})
	a.metrics.ObserveLLMLatency("agent", time.Since(started).Seconds())
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("conversation: llm returned empty text")
	}
	return resp.Text, nil
}

// fallbackSchedulingReply is the rule-based reply used when no LLM is
// reachable; slot data still comes from the live calendar.
func (a *Agent) fallbackSchedulingReply(lowerMessage, slotsText string) string {
	if slotsText != "" {
		return "I'd be happy to help you book an appointment! Here are the available slots:\n" + slotsText +
			"\n\nPlease let me know which date and time works for you, and I'll need your name, phone number, and email to complete the booking."
	}
	if containsAny(lowerMessage, []string{"hours", "open", "closed", "when"}) {
		return "Our clinic hours are Monday through Friday from 9:00 AM to 5:00 PM, and Saturday from 10:00 AM to 2:00 PM. We are closed on Sundays. For more details, please call us at " + a.clinicPhone + "."
	}
	return "I'm here to help you with appointment scheduling or answer questions about our clinic. How can I assist you today? You can also call us directly at " + a.clinicPhone + "."
}

// dateFromHistory resolves relative dates mentioned in recent turns.
func (a *Agent) dateFromHistory(history []ChatMessage) string {
	recent := history
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	for i := len(recent) - 1; i >= 0; i-- {
		content := strings.ToLower(recent[i].Content)
		for _, p := range datePatterns {
			if m := p.FindString(recent[i].Content); m != "" {
				return normalizeDate(m)
			}
		}
		if strings.Contains(content, "tomorrow") {
			return a.now().In(a.loc).AddDate(0, 0, 1).Format("2006-01-02")
		}
		if strings.Contains(content, "today") {
			return a.now().In(a.loc).Format("2006-01-02")
		}
	}
	return ""
}

func summaryAlreadyShown(history []ChatMessage) bool {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != ChatRoleAssistant {
			continue
		}
		return strings.Contains(strings.ToLower(history[i].Content), summaryMarker)
	}
	return false
}

// normalizeDate converts MM/DD/YYYY and MM-DD-YYYY spellings to YYYY-MM-DD.
func normalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range []string{"2006-01-02", "01/02/2006", "01-02-2006"} {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return s
}

// formatSlotsForDisplay renders slots as a numbered list for prompts and
// fallback replies.
func formatSlotsForDisplay(slots []scheduling.Slot, apptType scheduling.AppointmentType) string {
	if len(slots) == 0 {
		return ""
	}
	var b strings.Builder
	if apptType != "" {
		fmt.Fprintf(&b, "Showing %s slots:\n", displayType(apptType))
	}
	for i, slot := range slots {
		fmt.Fprintf(&b, "%d. %s on %s from %s to %s\n", i+1, slot.Doctor, slot.Date, slot.Start, slot.End)
	}
	return strings.TrimRight(b.String(), "\n")
}

func displayType(t scheduling.AppointmentType) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// userFacingError strips the machine-readable kind prefix off a scheduling
// error for chat display.
func userFacingError(err error) string {
	if kind := scheduling.KindOf(err); kind != "" {
		msg := err.Error()
		if idx := strings.Index(msg, ": "); idx >= 0 {
			msg = msg[idx+2:]
		}
		if msg != "" {
			return strings.ToUpper(msg[:1]) + msg[1:] + "."
		}
	}
	return "Something went wrong."
}
