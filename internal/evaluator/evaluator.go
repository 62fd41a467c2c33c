package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ieltsprep/ielts-backend/internal/model"
)

// Evaluation is the AI examiner's assessment of one essay.
type Evaluation struct {
	BandScore         string `json:"band_score"`
	TaskResponse      string `json:"task_response"`
	CoherenceCohesion string `json:"coherence_cohesion"`
	LexicalResource   string `json:"lexical_resource"`
	GrammaticalRange  string `json:"grammatical_range"`
	Feedback          string `json:"feedback"`
}

// Client wraps an OpenAI-compatible API for writing evaluation.
type Client struct {
	api   *openai.Client
	model string
}

// New creates an evaluator client. An empty baseURL keeps the default
// OpenAI endpoint.
func New(baseURL, apiKey, modelName string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: modelName,
	}
}

// Evaluate scores an essay against its task prompt and returns the band
// score with per-criterion feedback.
func (c *Client) Evaluate(ctx context.Context, questionText, essay string) (*Evaluation, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: evaluationSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildEvaluationPrompt(questionText, essay)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluation API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("evaluator returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	var eval Evaluation
	if err := json.Unmarshal([]byte(raw), &eval); err != nil {
		return nil, fmt.Errorf("parse evaluator response: %w (raw: %s)", err, raw)
	}
	return &eval, nil
}

// SampleEssay generates a model answer for the given task at the given
// band, shown next to the candidate's evaluated essay.
func (c *Client) SampleEssay(ctx context.Context, questionText, band string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sampleEssaySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildSamplePrompt(questionText, band)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("sample essay API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("evaluator returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// WordCount counts whitespace-separated words in an essay.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Task 2 prompts carry argumentative framing; Task 1 prompts describe
// charts and processes the evaluator cannot see.
var (
	task2Keywords = []string{
		"discuss both views",
		"to what extent",
		"agree or disagree",
		"advantages and disadvantages",
		"causes and solutions",
		"problems and solutions",
		"opinion",
		"view",
		"argument",
		"essay",
		"give reasons",
		"do you think",
	}
	task1Keywords = []string{
		"chart",
		"graph",
		"table",
		"diagram",
		"map",
		"process",
		"bar chart",
		"line graph",
		"pie chart",
		"flow chart",
	}
)

// IsEvaluatable reports whether a question is suitable for AI evaluation.
// Only Task 2 essays qualify: Task 1 prompts reference visuals the
// evaluator has no access to.
func IsEvaluatable(q *model.Question, sectionNumber int) bool {
	if sectionNumber != 2 {
		return false
	}
	text := strings.ToLower(q.Content.Prompt)
	if text == "" {
		return false
	}
	hasTask2 := false
	for _, kw := range task2Keywords {
		if strings.Contains(text, kw) {
			hasTask2 = true
			break
		}
	}
	if !hasTask2 {
		return false
	}
	for _, kw := range task1Keywords {
		if strings.Contains(text, kw) {
			return false
		}
	}
	return true
}

// WritingTips derives length guidance for an essay draft. Task 2 expects
// at least 250 words, Task 1 at least 150.
func WritingTips(wordCount int, isTask2 bool) []string {
	minWords, optimalWords := 150, 200
	if isTask2 {
		minWords, optimalWords = 250, 320
	}

	var tips []string
	switch {
	case wordCount < minWords:
		tips = append(tips, fmt.Sprintf("Your essay is too short. You need at least %d words (currently %d).", minWords, wordCount))
	case wordCount < optimalWords:
		tips = append(tips, fmt.Sprintf("Good length. Aim for around %d words for a fuller response.", optimalWords))
	default:
		tips = append(tips, "Good essay length.")
	}
	return tips
}
