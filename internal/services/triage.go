package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/logger"
	"gorm.io/gorm"
)

const triageSystemPrompt = `You are a strict quality reviewer for a data-annotation marketplace.
Grade the freelancer's answer against the task. Respond with a single JSON object and nothing else:
{"score": <integer 0-100>, "feedback": "<one or two sentences for the reviewer>", "consistency_warning": <true if the answer looks copied, templated, off-task or contradicts itself>}`

var (
	jsonObjectRegex = regexp.MustCompile(`(?s)\{.*\}`)
	scorePatterns   = []*regexp.Regexp{
		regexp.MustCompile(`"?score"?\s*[:=]\s*(\d{1,3}(?:\.\d+)?)`),
		regexp.MustCompile(`[Ss]core[:：]?\s*(\d{1,3})\s*/\s*100`),
		regexp.MustCompile(`(\d{1,3})\s*/\s*100`),
	}
)

// TaskContext is what the scorer knows about the task being answered.
type TaskContext struct {
	ProjectTitle string
	Description  string
	TaskType     string
	Domain       string
	TaskContent  string
	TaskImageURL string
}

// Verdict is a scorer's judgement of one answer.
type Verdict struct {
	Score              float64 `json:"score"`
	Feedback           string  `json:"feedback"`
	ConsistencyWarning bool    `json:"consistency_warning"`
}

// Scorer grades one answer. Implementations must honour ctx cancellation.
type Scorer interface {
	Score(ctx context.Context, content SubmissionContent, task TaskContext) (*Verdict, error)
}

// LLMScorer grades answers through AIService.
type LLMScorer struct {
	ai *AIService
}

func NewLLMScorer(ai *AIService) *LLMScorer {
	return &LLMScorer{ai: ai}
}

func (s *LLMScorer) Score(ctx context.Context, content SubmissionContent, task TaskContext) (*Verdict, error) {
	completion, err := s.ai.Complete(ctx, buildTriagePrompt(content, task))
	if err != nil {
		return nil, err
	}
	verdict, err := parseVerdict(completion.Content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", completion.ModelName, err)
	}
	return verdict, nil
}

func buildTriagePrompt(content SubmissionContent, task TaskContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\nTask type: %s\nDomain: %s\n", task.ProjectTitle, task.TaskType, task.Domain)
	if task.Description != "" {
		fmt.Fprintf(&b, "Instructions:\n%s\n", task.Description)
	}
	if task.TaskContent != "" {
		fmt.Fprintf(&b, "\nTask:\n%s\n", task.TaskContent)
	}
	if task.TaskImageURL != "" {
		fmt.Fprintf(&b, "Task image: %s\n", task.TaskImageURL)
	}
	fmt.Fprintf(&b, "\nFreelancer answer:\n%s\n", content.PromptText())
	return b.String()
}

// parseVerdict accepts a JSON verdict, possibly wrapped in prose or code fences,
// and falls back to pulling a bare score out of free text.
func parseVerdict(raw string) (*Verdict, error) {
	if m := jsonObjectRegex.FindString(raw); m != "" {
		var v Verdict
		if err := json.Unmarshal([]byte(m), &v); err == nil {
			if v.Score < 0 || v.Score > 100 {
				return nil, fmt.Errorf("score %.1f out of range", v.Score)
			}
			return &v, nil
		}
	}

	for _, re := range scorePatterns {
		matches := re.FindStringSubmatch(raw)
		if len(matches) < 2 {
			continue
		}
		if score, err := strconv.ParseFloat(matches[1], 64); err == nil && score >= 0 && score <= 100 {
			return &Verdict{Score: score, Feedback: strings.TrimSpace(raw)}, nil
		}
	}

	return nil, fmt.Errorf("unparseable triage response")
}

// TriageResult is what gets written back onto the submission.
// AIScore is nil when the scorer failed.
type TriageResult struct {
	AIScore            *float64
	AIFeedback         *string
	ConsistencyWarning bool
}

type TriageService struct {
	db       *gorm.DB
	scorer   Scorer
	timeout  time.Duration
	settings *SystemConfigService
}

func NewTriageService(db *gorm.DB, scorer Scorer, timeout time.Duration) *TriageService {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &TriageService{db: db, scorer: scorer, timeout: timeout, settings: NewSystemConfigService(db)}
}

// Evaluate scores a stored submission. The returned result is always usable;
// a non-nil error means the scorer failed and AIScore is nil.
func (s *TriageService) Evaluate(ctx context.Context, sub *models.Submission, project *models.Project) (TriageResult, error) {
	result := TriageResult{ConsistencyWarning: s.isDuplicate(ctx, sub)}

	content, err := DecodeContent(sub.Content)
	if err != nil {
		return result, fmt.Errorf("decode content: %w", err)
	}

	if !s.settings.GetBool("triage_enabled", true) {
		return result, ErrTriageDisabled
	}
	if s.scorer == nil {
		return result, fmt.Errorf("no scorer configured")
	}

	task := TaskContext{
		ProjectTitle: project.Title,
		Description:  project.Description,
		TaskType:     project.TaskType,
		Domain:       project.ProjectDomain,
		TaskContent:  project.TaskContent,
		TaskImageURL: project.TaskImageURL,
	}
	if sub.TaskIndex != nil {
		var entry models.TaskPoolEntry
		if err := s.db.WithContext(ctx).Where("project_id = ? AND position = ?", project.ID, *sub.TaskIndex).First(&entry).Error; err == nil {
			task.TaskContent = entry.Content
			task.TaskImageURL = entry.ImageURL
		}
	}

	scoreCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	verdict, err := s.scorer.Score(scoreCtx, content, task)
	if err != nil {
		logger.Warn().Err(err).Uint("submission_id", sub.ID).Dur("elapsed", time.Since(start)).Msg("[Triage] scorer failed")
		return result, err
	}

	score := verdict.Score
	feedback := verdict.Feedback
	result.AIScore = &score
	result.AIFeedback = &feedback
	result.ConsistencyWarning = result.ConsistencyWarning || verdict.ConsistencyWarning

	logger.Info().Uint("submission_id", sub.ID).Float64("score", score).
		Bool("consistency_warning", result.ConsistencyWarning).Dur("elapsed", time.Since(start)).
		Msg("[Triage] scored")
	return result, nil
}

// isDuplicate reports whether the same user already sent an identical answer in this project.
func (s *TriageService) isDuplicate(ctx context.Context, sub *models.Submission) bool {
	if sub.ContentHash == "" {
		return false
	}
	var count int64
	s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("project_id = ? AND user_id = ? AND content_hash = ? AND id <> ?", sub.ProjectID, sub.UserID, sub.ContentHash, sub.ID).
		Count(&count)
	return count > 0
}
