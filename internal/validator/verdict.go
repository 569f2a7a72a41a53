package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gazette-app/valguard/internal/model"
)

const systemPrompt = `You validate content extracted from email newsletters.
Reply with a single JSON object and nothing else:
{"valid": bool, "score": number between 0 and 1, "issues": [{"severity": "error"|"warning", "message": string, "field": string}]}
Mark content invalid only when it has at least one error-severity issue.`

// verdict is the JSON object models are asked to return.
type verdict struct {
	Valid  bool          `json:"valid"`
	Score  float64       `json:"score"`
	Issues []model.Issue `json:"issues"`
}

func buildPrompt(req model.ValidationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Kind: %s\n", req.Kind)
	if req.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", req.Source)
	}
	b.WriteString("Content:\n<<<\n")
	b.WriteString(req.Content)
	b.WriteString("\n>>>")
	return b.String()
}

// parseVerdict extracts the verdict object from a model reply, tolerating
// markdown fences and surrounding prose.
func parseVerdict(text string) (verdict, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return verdict{}, ErrEmptyResponse
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return verdict{}, fmt.Errorf("%w: no JSON object in reply", ErrMalformedVerdict)
	}

	var v verdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
		return verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}

	for i := range v.Issues {
		switch v.Issues[i].Severity {
		case model.SeverityError, model.SeverityWarning:
		default:
			v.Issues[i].Severity = model.SeverityWarning
		}
	}
	return v, nil
}
