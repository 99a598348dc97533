package conversation

import "strings"

// Intent labels the two conversation modes the agent routes between.
type Intent string

const (
	IntentScheduling Intent = "scheduling"
	IntentFAQ        Intent = "faq"
)

var schedulingKeywords = []string{
	"appointment", "schedule", "book", "available", "slot", "time",
	"doctor", "visit", "see", "meet", "consultation", "when can i",
	"i need", "i want to", "make an appointment", "show me", "options",
	"show options", "times available", "available times",
}

var faqKeywords = []string{
	"what are", "how do", "when are", "where is", "why", "hours", "open", "closed",
	"insurance", "accept", "parking", "cancel policy", "cost",
	"price", "fee", "service", "provide", "do you accept", "can i get",
	"what should i bring", "what to bring", "bring to", "required", "documents",
	"how do i cancel", "how to cancel", "how do i reschedule", "how to reschedule",
	"cancel or reschedule", "reschedule or cancel", "cancellation", "rescheduling",
	"what is the address", "address", "location", "directions",
	"what time", "what are your", "tell me about", "information about",
}

var slotRequestKeywords = []string{"show", "options", "available", "slots", "times"}

var schedulingContextKeywords = []string{"appointment", "book", "schedule", "date", "prefer"}

// DetectIntent classifies a message as scheduling or FAQ by keyword scoring,
// boosted by the recent conversation context. Ambiguity resolves toward
// scheduling since that is the assistant's main job.
func DetectIntent(message string, history []ChatMessage) Intent {
	lower := strings.ToLower(message)

	schedulingScore := countMatches(lower, schedulingKeywords)
	faqScore := countMatches(lower, faqKeywords)

	// Boost from what the user said recently, never from assistant replies:
	// phrasing like "I found an opening" must not count toward FAQ.
	if recent := strings.ToLower(joinRecentUserContent(history, 3)); recent != "" {
		if containsAny(recent, schedulingKeywords) {
			schedulingScore += 2
		}
		if containsAny(recent, faqKeywords) {
			faqScore += 2
		}
	}

	// "show options" style requests stay in the scheduling flow when the
	// recent turns were about booking.
	if containsAny(lower, slotRequestKeywords) && len(history) > 0 {
		recent := strings.ToLower(joinRecentContent(history, 2))
		if containsAny(recent, schedulingContextKeywords) {
			return IntentScheduling
		}
	}

	switch {
	case faqScore > schedulingScore+1:
		return IntentFAQ
	case strings.Contains(lower, "schedule") ||
		strings.Contains(lower, "appointment") ||
		strings.Contains(lower, "book"):
		return IntentScheduling
	case faqScore >= schedulingScore:
		return IntentFAQ
	default:
		return IntentScheduling
	}
}

func countMatches(haystack string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			n++
		}
	}
	return n
}

func containsAny(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

// joinRecentContent concatenates the content of the last n messages.
func joinRecentContent(history []ChatMessage, n int) string {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	parts := make([]string, 0, len(history))
	for _, msg := range history {
		parts = append(parts, msg.Content)
	}
	return strings.Join(parts, " ")
}

// joinRecentUserContent concatenates the content of the last n user turns.
func joinRecentUserContent(history []ChatMessage, n int) string {
	var parts []string
	for _, msg := range history {
		if msg.Role == ChatRoleUser {
			parts = append(parts, msg.Content)
		}
	}
	if len(parts) > n {
		parts = parts[len(parts)-n:]
	}
	return strings.Join(parts, " ")
}
