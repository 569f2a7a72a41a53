package validator

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/gazette-app/valguard/internal/model"
)

// RulesModel is reported as the model name of rule-based results.
const RulesModel = "rules-v1"

const (
	minNewsletterLength = 200
	minArticleLength    = 80
	maxTitleLength      = 200
)

var placeholderMarkers = []string{"lorem ipsum", "{{", "}}", "[insert", "todo:"}

// Rules is a deterministic validator with no external calls.
type Rules struct{}

// NewRules creates a rule-based validator.
func NewRules() *Rules {
	return &Rules{}
}

// Name implements Validator.
func (r *Rules) Name() string { return BackendRules }

// Validate implements Validator.
func (r *Rules) Validate(ctx context.Context, req model.ValidationRequest) (*model.ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var issues []model.Issue
	add := func(sev model.Severity, field, msg string) {
		issues = append(issues, model.Issue{Severity: sev, Field: field, Message: msg})
	}

	content := strings.TrimSpace(req.Content)
	switch {
	case content == "":
		add(model.SeverityError, "content", "content is empty")
	case !utf8.ValidString(content):
		add(model.SeverityError, "content", "content is not valid UTF-8")
	}

	lower := strings.ToLower(content)
	for _, m := range placeholderMarkers {
		if strings.Contains(lower, m) {
			add(model.SeverityWarning, "content", "content contains placeholder text "+m)
			break
		}
	}

	switch req.Kind {
	case model.KindNewsletter:
		if n := utf8.RuneCountInString(content); n > 0 && n < minNewsletterLength {
			add(model.SeverityError, "content", "newsletter is too short")
		}
		if !strings.Contains(lower, "unsubscribe") {
			add(model.SeverityWarning, "content", "newsletter has no unsubscribe notice")
		}
	case model.KindArticle:
		title, body, _ := strings.Cut(content, "\n")
		if utf8.RuneCountInString(title) > maxTitleLength {
			add(model.SeverityWarning, "title", "first line is too long to be a title")
		}
		if utf8.RuneCountInString(strings.TrimSpace(body)) < minArticleLength {
			add(model.SeverityError, "body", "article body is too short")
		}
	case model.KindExtraction:
		var obj map[string]any
		if err := json.Unmarshal([]byte(content), &obj); err != nil {
			add(model.SeverityError, "content", "extraction is not a JSON object")
		} else if len(obj) == 0 {
			add(model.SeverityError, "content", "extraction has no fields")
		}
	}

	v := verdict{Valid: true, Score: 1, Issues: issues}
	for _, is := range issues {
		if is.Severity == model.SeverityError {
			v.Valid = false
			v.Score -= 0.4
		} else {
			v.Score -= 0.1
		}
	}
	return newResult(req, v, RulesModel), nil
}
