package agents

import (
	"encoding/json"
	"strings"

	"github.com/campflow/campflow/pkg/api"
)

type verdictJSON struct {
	Approved  bool   `json:"approved"`
	Feedback  string `json:"feedback"`
	RiskNotes string `json:"risk_notes"`
}

// ParseVerdict extracts a ReviewDecision from raw reviewer output.
//
// Reviewers are instructed to answer with a JSON object, but model output is
// not guaranteed to be clean. Parsing order:
//  1. the whole text as JSON
//  2. the substring between the first '{' and the last '}'
//  3. a plain-text heuristic: "approve" without "not" counts as approval,
//     and the full text becomes the feedback.
func ParseVerdict(raw string) api.ReviewDecision {
	if v, ok := parseJSON(raw); ok {
		return api.ReviewDecision{Approved: v.Approved, Feedback: v.Feedback, RiskNotes: v.RiskNotes}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if v, ok := parseJSON(raw[start : end+1]); ok {
			return api.ReviewDecision{Approved: v.Approved, Feedback: v.Feedback, RiskNotes: v.RiskNotes}
		}
	}

	lower := strings.ToLower(raw)
	approved := strings.Contains(lower, "approve") && !strings.Contains(lower, "not")
	return api.ReviewDecision{Approved: approved, Feedback: raw}
}

func parseJSON(text string) (verdictJSON, bool) {
	var v verdictJSON
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return verdictJSON{}, false
	}
	return v, true
}
