package conversation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/healthcareplus/clinic-assistant/internal/scheduling"
)

// BookingInfo is what the extractor could recover from the conversation so
// far. Empty fields were simply not mentioned yet.
type BookingInfo struct {
	Date            string
	Time            string
	Doctor          string
	PatientName     string
	PatientEmail    string
	PatientPhone    string
	AppointmentType scheduling.AppointmentType
	Reason          string
}

var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
		regexp.MustCompile(`\d{2}/\d{2}/\d{4}`),
		regexp.MustCompile(`\d{2}-\d{2}-\d{4}`),
	}
	timePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{1,2}:\d{2}`),
		regexp.MustCompile(`(?i)\d{1,2}\s*(am|pm)`),
	}
	doctorPattern = regexp.MustCompile(`(?i)Dr\.\s+[A-Za-z]+(?:\s+[A-Za-z]+)?`)
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+?91[-.\s]?\d{10}`),
		regexp.MustCompile(`\+?1?[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`),
		regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`),
		regexp.MustCompile(`\d{10}`),
	}
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:my name is|i'm|i am|name is|call me)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
		regexp.MustCompile(`(?i)name[:\s]+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
		regexp.MustCompile(`([A-Z][a-z]+\s+[A-Z][a-z]+)`),
	}
	hourPattern = regexp.MustCompile(`\d{1,2}`)
)

var changeIndicators = []string{"actually", "make it", "change to", "switch to", "instead"}

type typeKeywords struct {
	keywords []string
	apptType scheduling.AppointmentType
}

// Order matters: more specific phrasings first so "physical exam" does not
// fall through to the generic consultation bucket.
var typeMatchers = []typeKeywords{
	{[]string{"follow-up", "followup", "follow up"}, scheduling.TypeFollowUp},
	{[]string{"physical exam", "physical", "exam"}, scheduling.TypePhysicalExam},
	{[]string{"specialist consultation", "specialist"}, scheduling.TypeSpecialistConsultation},
	{[]string{"consultation", "checkup", "check-up", "routine", "general", "appointment"}, scheduling.TypeGeneralConsultation},
}

var reasonKeywords = []struct {
	keyword string
	reason  string
}{
	{"headache", "headache"},
	{"pain", "pain"},
	{"checkup", "routine checkup"},
	{"exam", "physical examination"},
	{"symptoms", "symptoms"},
	{"follow-up", "follow-up visit"},
	{"routine", "routine checkup"},
}

// Keyword hits must fall on word boundaries: "exam" inside
// "asha@example.com" is not a physical exam.
var wordPatterns = map[string]*regexp.Regexp{}

func init() {
	for _, tm := range typeMatchers {
		for _, kw := range tm.keywords {
			wordPatterns[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
		}
	}
	for _, rk := range reasonKeywords {
		if _, ok := wordPatterns[rk.keyword]; !ok {
			wordPatterns[rk.keyword] = regexp.MustCompile(`\b` + regexp.QuoteMeta(rk.keyword) + `\b`)
		}
	}
}

func containsWord(s, keyword string) bool {
	if p, ok := wordPatterns[keyword]; ok {
		return p.MatchString(s)
	}
	return strings.Contains(s, keyword)
}

// ExtractBookingInfo scans the current message together with the whole
// conversation history so details mentioned turns ago are still remembered.
func ExtractBookingInfo(message string, history []ChatMessage) BookingInfo {
	context := message
	if len(history) > 0 {
		parts := make([]string, 0, len(history)+1)
		for _, msg := range history {
			parts = append(parts, msg.Content)
		}
		parts = append(parts, message)
		context = strings.Join(parts, " ")
	}
	lower := strings.ToLower(context)

	var info BookingInfo
	for _, p := range datePatterns {
		if m := p.FindString(context); m != "" {
			info.Date = m
			break
		}
	}
	for _, p := range timePatterns {
		if m := p.FindString(context); m != "" {
			info.Time = m
			break
		}
	}
	if m := doctorPattern.FindString(context); m != "" {
		info.Doctor = strings.TrimSpace(m)
	}
	if m := emailPattern.FindString(context); m != "" {
		info.PatientEmail = m
	}
	for _, p := range phonePatterns {
		if m := p.FindString(context); m != "" {
			info.PatientPhone = strings.TrimSpace(m)
			break
		}
	}
	for _, p := range namePatterns {
		m := p.FindStringSubmatch(context)
		if m == nil {
			continue
		}
		candidate := m[len(m)-1]
		lowered := strings.ToLower(candidate)
		if strings.Contains(lowered, "dr.") || strings.Contains(lowered, "doctor") {
			continue
		}
		// "Sarah Johnson" out of "Dr. Sarah Johnson" is the doctor, not the
		// patient.
		if info.Doctor != "" && strings.Contains(info.Doctor, candidate) {
			continue
		}
		info.PatientName = candidate
		break
	}

	info.AppointmentType = extractType(lower)

	for _, rk := range reasonKeywords {
		if containsWord(lower, rk.keyword) {
			info.Reason = rk.reason
			break
		}
	}
	return info
}

// extractType handles mid-flow changes ("actually, make it a physical exam")
// by preferring the type mentioned after the latest change indicator.
func extractType(lower string) scheduling.AppointmentType {
	changeIdx := -1
	for _, indicator := range changeIndicators {
		if idx := strings.LastIndex(lower, indicator); idx > changeIdx {
			changeIdx = idx
		}
	}
	if changeIdx >= 0 {
		if t := matchType(lower[changeIdx:]); t != "" {
			return t
		}
	}
	return matchType(lower)
}

func matchType(s string) scheduling.AppointmentType {
	for _, tm := range typeMatchers {
		for _, kw := range tm.keywords {
			if containsWord(s, kw) {
				return tm.apptType
			}
		}
	}
	return ""
}

// NormalizeClock converts loose time spellings ("9am", "2 PM") to HH:MM.
// Inputs already in HH:MM pass through unchanged.
func NormalizeClock(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if strings.Contains(s, ":") {
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "pm"), "am"))
		// Pad "9:30" to "09:30".
		if len(s) == 4 {
			return "0" + s
		}
		return s
	}
	if strings.Contains(s, "am") || strings.Contains(s, "pm") {
		m := hourPattern.FindString(s)
		if m == "" {
			return "09:00"
		}
		hour, err := strconv.Atoi(m)
		if err != nil {
			return "09:00"
		}
		if strings.Contains(s, "pm") && hour < 12 {
			hour += 12
		}
		if strings.Contains(s, "am") && hour == 12 {
			hour = 0
		}
		return fmt.Sprintf("%02d:00", hour)
	}
	return "09:00"
}
