package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taskhive/backend/internal/models"
	"gorm.io/datatypes"
)

// SubmissionContent is the typed answer of a submission, keyed by the project's task type.
type SubmissionContent struct {
	Kind      string `json:"kind"`
	Text      string `json:"text,omitempty"`
	Preferred string `json:"preferred,omitempty"` // COMPARISON only: "A" or "B"
	Reasoning string `json:"reasoning,omitempty"` // COMPARISON only
}

// ParseContent decodes the raw answer string for the given task type.
func ParseContent(taskType, raw string) (SubmissionContent, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SubmissionContent{}, &ValidationError{Field: "content", Reason: "must not be empty"}
	}

	switch taskType {
	case models.TaskTypeComparison:
		var c SubmissionContent
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return SubmissionContent{}, &ValidationError{Field: "content", Reason: "comparison answer must be JSON {preferred, reasoning}"}
		}
		c.Kind = models.TaskTypeComparison
		c.Text = ""
		c.Preferred = strings.ToUpper(strings.TrimSpace(c.Preferred))
		c.Reasoning = strings.TrimSpace(c.Reasoning)
		if c.Preferred != "A" && c.Preferred != "B" {
			return SubmissionContent{}, &ValidationError{Field: "content.preferred", Reason: `must be "A" or "B"`}
		}
		return c, nil
	case models.TaskTypeTextAnnotation, models.TaskTypeImageLabeling, models.TaskTypeClassification:
		return SubmissionContent{Kind: taskType, Text: raw}, nil
	default:
		return SubmissionContent{}, fmt.Errorf("unknown task type %q", taskType)
	}
}

// JSON returns the column value.
func (c SubmissionContent) JSON() datatypes.JSON {
	b, _ := json.Marshal(c)
	return datatypes.JSON(b)
}

// Hash fingerprints the answer for duplicate detection; whitespace and case are ignored.
func (c SubmissionContent) Hash() string {
	normalized := strings.Join([]string{
		c.Kind,
		strings.ToLower(strings.Join(strings.Fields(c.Text), " ")),
		c.Preferred,
		strings.ToLower(strings.Join(strings.Fields(c.Reasoning), " ")),
	}, "\x1f")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// PromptText renders the answer for the triage prompt.
func (c SubmissionContent) PromptText() string {
	if c.Kind == models.TaskTypeComparison {
		return fmt.Sprintf("Preferred response: %s\nReasoning: %s", c.Preferred, c.Reasoning)
	}
	return c.Text
}

// DecodeContent reads a stored content column back.
func DecodeContent(raw datatypes.JSON) (SubmissionContent, error) {
	var c SubmissionContent
	if len(raw) == 0 {
		return c, &ValidationError{Field: "content", Reason: "empty"}
	}
	err := json.Unmarshal(raw, &c)
	return c, err
}
