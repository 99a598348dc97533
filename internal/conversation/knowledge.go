package conversation

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// FAQ is one question/answer pair from the clinic knowledge file.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ClinicKnowledge is the static knowledge base loaded at startup from
// data/clinic_info.json. It feeds both the vector store and the keyword
// fallback search.
type ClinicKnowledge struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Phone     string   `json:"phone"`
	Hours     []string `json:"hours"`
	Services  []string `json:"services"`
	Insurance []string `json:"insurance"`
	FAQs      []FAQ    `json:"faqs"`
}

// LoadClinicKnowledge reads and validates the knowledge file.
func LoadClinicKnowledge(path string) (*ClinicKnowledge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("conversation: read knowledge %s: %w", path, err)
	}
	var k ClinicKnowledge
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("conversation: parse knowledge %s: %w", path, err)
	}
	if len(k.FAQs) == 0 {
		return nil, fmt.Errorf("conversation: knowledge %s has no faqs", path)
	}
	return &k, nil
}

// Documents renders the knowledge base as retrievable text chunks, one per
// FAQ plus one summary chunk for general clinic facts.
func (k *ClinicKnowledge) Documents() []string {
	docs := make([]string, 0, len(k.FAQs)+1)

	var summary strings.Builder
	fmt.Fprintf(&summary, "%s. Address: %s. Phone: %s.", k.Name, k.Address, k.Phone)
	if len(k.Hours) > 0 {
		fmt.Fprintf(&summary, " Hours: %s.", strings.Join(k.Hours, "; "))
	}
	if len(k.Services) > 0 {
		fmt.Fprintf(&summary, " Services: %s.", strings.Join(k.Services, ", "))
	}
	if len(k.Insurance) > 0 {
		fmt.Fprintf(&summary, " Accepted insurance: %s.", strings.Join(k.Insurance, ", "))
	}
	docs = append(docs, summary.String())

	for _, faq := range k.FAQs {
		docs = append(docs, fmt.Sprintf("Question: %s\nAnswer: %s", faq.Question, faq.Answer))
	}
	return docs
}

// KeywordSearch is the retrieval fallback when embeddings are unavailable:
// FAQs ranked by the number of query words appearing in the question.
func (k *ClinicKnowledge) KeywordSearch(query string, topK int) []string {
	if topK <= 0 {
		topK = 3
	}
	queryWords := strings.Fields(strings.ToLower(query))

	type scored struct {
		matches int
		text    string
	}
	var results []scored
	for _, faq := range k.FAQs {
		question := strings.ToLower(faq.Question)
		matches := 0
		for _, word := range queryWords {
			if strings.Contains(question, word) {
				matches++
			}
		}
		if matches > 0 {
			results = append(results, scored{
				matches: matches,
				text:    fmt.Sprintf("Question: %s\nAnswer: %s", faq.Question, faq.Answer),
			})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].matches > results[j].matches })

	if len(results) > topK {
		results = results[:topK]
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.text
	}
	return out
}
