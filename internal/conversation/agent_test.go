package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthcareplus/clinic-assistant/internal/scheduling"
)

// scriptedLLM returns a fixed completion and records the prompts it saw.
type scriptedLLM struct {
	text    string
	err     error
	prompts []string
}

func (s *scriptedLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	for _, m := range req.Messages {
		s.prompts = append(s.prompts, m.Content)
	}
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	return LLMResponse{Text: s.text}, nil
}

// stubRetriever returns canned context documents.
type stubRetriever struct {
	docs []string
	err  error
}

func (s *stubRetriever) Query(ctx context.Context, query string, topK int) ([]string, error) {
	return s.docs, s.err
}

func newTestAgent(t *testing.T, llm LLMClient, retriever Retriever) (*Agent, *scheduling.Service) {
	t.Helper()

	registry := scheduling.NewRegistry(15)
	require.NoError(t, registry.AddDay("Dr. Sarah Johnson", "2026-03-02", 9*60, 17*60))
	svc := scheduling.NewService(registry, scheduling.DefaultPolicy(), time.UTC, 5, nil, nil)
	clock := func() time.Time { return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC) }
	svc.SetClock(clock)

	if retriever == nil {
		retriever = &stubRetriever{}
	}
	agent := NewAgent(llm, retriever, svc, AgentConfig{
		ClinicPhone: "+91 9897761393",
		Timezone:    time.UTC,
	}, nil, nil)
	agent.SetClock(clock)
	return agent, svc
}

func TestAgentAnswersFAQWithLLM(t *testing.T) {
	llm := &scriptedLLM{text: "We are open Monday through Friday from 9 AM to 5 PM."}
	retriever := &stubRetriever{docs: []string{"Question: What are your operating hours?\nAnswer: We are open Monday through Friday from 9 AM to 5 PM."}}
	agent, _ := newTestAgent(t, llm, retriever)

	reply := agent.ProcessMessage(context.Background(), "What are your hours?", nil)

	assert.Equal(t, IntentFAQ, reply.Intent)
	assert.Equal(t, llm.text, reply.Response)
	require.NotEmpty(t, llm.prompts)
	assert.Contains(t, llm.prompts[0], "operating hours")
}

func TestAgentFAQDegradesToContextExtraction(t *testing.T) {
	retriever := &stubRetriever{docs: []string{"Question: What are your operating hours?\nAnswer: We are open Monday through Friday from 9 AM to 5 PM."}}
	agent, _ := newTestAgent(t, nil, retriever)

	reply := agent.ProcessMessage(context.Background(), "What are your hours?", nil)

	assert.Equal(t, IntentFAQ, reply.Intent)
	assert.Contains(t, reply.Response, "9 AM to 5 PM")
	assert.Contains(t, reply.Response, "+91 9897761393")
}

func TestAgentFAQApologyWithoutContext(t *testing.T) {
	agent, _ := newTestAgent(t, nil, &stubRetriever{})

	reply := agent.ProcessMessage(context.Background(), "What are your hours?", nil)

	assert.Contains(t, reply.Response, "technical difficulties")
	assert.Contains(t, reply.Response, "+91 9897761393")
}

func TestAgentAsksForDate(t *testing.T) {
	agent, _ := newTestAgent(t, nil, nil)

	reply := agent.ProcessMessage(context.Background(), "I want to book an appointment", nil)

	assert.Equal(t, IntentScheduling, reply.Intent)
	assert.Contains(t, reply.Response, "what date you prefer")
}

func TestAgentListsSlotsWithoutLLM(t *testing.T) {
	agent, _ := newTestAgent(t, nil, nil)

	reply := agent.ProcessMessage(context.Background(), "What slots are available on 2026-03-02?", nil)

	assert.Equal(t, IntentScheduling, reply.Intent)
	assert.Contains(t, reply.Response, "1. Dr. Sarah Johnson on 2026-03-02 from 09:00 to 09:30")
	assert.True(t, reply.RequiresConfirmation)
}

func TestAgentSchedulingUsesLLMReply(t *testing.T) {
	llm := &scriptedLLM{text: "Here are the open times. Shall I book one for you?"}
	agent, _ := newTestAgent(t, llm, nil)

	reply := agent.ProcessMessage(context.Background(), "What slots are available on 2026-03-02?", nil)

	assert.Equal(t, llm.text, reply.Response)
	assert.True(t, reply.RequiresConfirmation)
	require.NotEmpty(t, llm.prompts)
	assert.Contains(t, llm.prompts[0], "Dr. Sarah Johnson on 2026-03-02")
}

func TestAgentResolvesTomorrowFromSlotRequest(t *testing.T) {
	agent, _ := newTestAgent(t, nil, nil)

	history := []ChatMessage{
		{Role: ChatRoleUser, Content: "I want to book an appointment"},
		{Role: ChatRoleAssistant, Content: "What date works for you?"},
	}
	reply := agent.ProcessMessage(context.Background(), "show me the available times", history)

	assert.Equal(t, IntentScheduling, reply.Intent)
	// The clock reads 2026-03-01, so "tomorrow" resolves to the open day.
	assert.Contains(t, reply.Response, "2026-03-02")
	assert.Contains(t, reply.Response, "09:00")
}

func TestAgentOffersWaitlistWhenDayIsFull(t *testing.T) {
	agent, _ := newTestAgent(t, nil, nil)

	reply := agent.ProcessMessage(context.Background(), "do you have any slots on 2026-03-08?", nil)

	assert.Equal(t, IntentScheduling, reply.Intent)
	assert.Contains(t, reply.Response, "waitlist")
	assert.Contains(t, reply.Response, "2026-03-08")
}

func TestAgentReschedulePrompt(t *testing.T) {
	agent, _ := newTestAgent(t, nil, nil)

	reply := agent.ProcessMessage(context.Background(), "I need to reschedule my appointment", nil)

	assert.Equal(t, IntentScheduling, reply.Intent)
	assert.Contains(t, reply.Response, "appointment ID")
}

func TestAgentCancelPrompt(t *testing.T) {
	agent, _ := newTestAgent(t, nil, nil)

	reply := agent.ProcessMessage(context.Background(), "please cancel my appointment", nil)

	assert.Contains(t, reply.Response, "appointment ID")
	assert.Contains(t, reply.Response, "verification")
}

func TestAgentConfirmationAsksForMissingContact(t *testing.T) {
	agent, _ := newTestAgent(t, nil, nil)

	reply := agent.ProcessMessage(context.Background(), "yes, book it for 2026-03-02 at 10:00", nil)

	assert.Equal(t, IntentScheduling, reply.Intent)
	assert.Contains(t, reply.Response, "your full name")
	assert.Contains(t, reply.Response, "your email address")
	assert.Contains(t, reply.Response, "your phone number")
}

func bookingHistory() []ChatMessage {
	return []ChatMessage{
		{Role: ChatRoleUser, Content: "I want to book an appointment on 2026-03-02 at 10:00"},
		{Role: ChatRoleAssistant, Content: "Great, I found an opening at 10:00. May I have your contact details?"},
		{Role: ChatRoleUser, Content: "My name is Asha Verma, email asha.verma@example.com, phone +91 9812345678"},
	}
}

func TestAgentConfirmationShowsSummaryFirst(t *testing.T) {
	agent, _ := newTestAgent(t, nil, nil)

	reply := agent.ProcessMessage(context.Background(), "yes, that works", bookingHistory())

	assert.True(t, reply.RequiresConfirmation)
	assert.Contains(t, reply.Response, "let me summarize the details")
	assert.Contains(t, reply.Response, "Asha Verma")
	assert.Contains(t, reply.Response, "asha.verma@example.com")
	assert.Contains(t, reply.Response, "2026-03-02")
}

func TestAgentConfirmationBooksAfterSummary(t *testing.T) {
	agent, svc := newTestAgent(t, nil, nil)
	ctx := context.Background()

	history := bookingHistory()
	summary := agent.ProcessMessage(ctx, "yes, that works", history)
	history = append(history,
		ChatMessage{Role: ChatRoleUser, Content: "yes, that works"},
		ChatMessage{Role: ChatRoleAssistant, Content: summary.Response},
	)

	reply := agent.ProcessMessage(ctx, "yes, confirm", history)

	assert.Contains(t, reply.Response, "Appointment successfully booked!")
	assert.Contains(t, reply.Response, "Dr. Sarah Johnson on 2026-03-02 at 10:00")
	assert.False(t, reply.RequiresConfirmation)

	// The slot is actually held on the calendar now.
	slots, err := svc.GetAvailability(ctx, scheduling.AvailabilityQuery{Date: "2026-03-02"})
	require.NoError(t, err)
	for _, slot := range slots {
		assert.NotEqual(t, "10:00", slot.Start)
	}
}

func TestAgentConfirmationReportsBookingConflict(t *testing.T) {
	agent, svc := newTestAgent(t, nil, nil)
	ctx := context.Background()

	_, err := svc.Book(ctx, scheduling.BookingRequest{
		PatientName:  "Rohan Mehta",
		PatientEmail: "rohan.mehta@example.com",
		PatientPhone: "+91 9811112222",
		Date:         "2026-03-02",
		StartTime:    "10:00",
		Doctor:       "Dr. Sarah Johnson",
	})
	require.NoError(t, err)

	history := bookingHistory()
	summary := agent.ProcessMessage(ctx, "yes, that works", history)
	history = append(history,
		ChatMessage{Role: ChatRoleUser, Content: "yes, that works"},
		ChatMessage{Role: ChatRoleAssistant, Content: summary.Response},
	)

	reply := agent.ProcessMessage(ctx, "yes, confirm", history)

	assert.NotContains(t, reply.Response, "successfully booked")
	assert.Contains(t, reply.Response, "Would you like to try a different time?")
}

func TestAgentErrorWhenAvailabilityFails(t *testing.T) {
	agent, _ := newTestAgent(t, nil, nil)

	reply := agent.ProcessMessage(context.Background(), "What slots are available on 2026-13-45?", nil)

	assert.Equal(t, IntentScheduling, reply.Intent)
	assert.Contains(t, reply.Response, "double-check the date")
}

func TestAgentRetrieverErrorStillAnswers(t *testing.T) {
	agent, _ := newTestAgent(t, nil, &stubRetriever{err: errors.New("embedding provider down")})

	reply := agent.ProcessMessage(context.Background(), "What are your hours?", nil)

	assert.Equal(t, IntentFAQ, reply.Intent)
	assert.Contains(t, reply.Response, "+91 9897761393")
}

// deadlineLLM records whether the completion context carried a deadline.
type deadlineLLM struct {
	sawDeadline bool
}

func (d *deadlineLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	_, d.sawDeadline = ctx.Deadline()
	return LLMResponse{Text: "We are open Monday through Friday."}, nil
}

func TestAgentAppliesLLMTimeout(t *testing.T) {
	llm := &deadlineLLM{}
	retriever := &stubRetriever{docs: []string{"Question: What are your operating hours?\nAnswer: We are open Monday through Friday."}}

	registry := scheduling.NewRegistry(15)
	require.NoError(t, registry.AddDay("Dr. Sarah Johnson", "2026-03-02", 9*60, 17*60))
	svc := scheduling.NewService(registry, scheduling.DefaultPolicy(), time.UTC, 5, nil, nil)

	agent := NewAgent(llm, retriever, svc, AgentConfig{
		ClinicPhone: "+91 9897761393",
		Timezone:    time.UTC,
		LLMTimeout:  30 * time.Second,
	}, nil, nil)

	reply := agent.ProcessMessage(context.Background(), "What are your hours?", nil)

	assert.Equal(t, IntentFAQ, reply.Intent)
	assert.True(t, llm.sawDeadline, "LLM call should run under the configured timeout")
}
