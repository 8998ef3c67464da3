package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"github.com/attunelabs/attune/internal/analysis"
	"github.com/attunelabs/attune/internal/platform/timeouts"
)

// SourceRemote marks narratives produced by the language model.
const SourceRemote = "remote"

var (
	// ErrEmptyResponse indicates the model returned no usable text.
	ErrEmptyResponse = errors.New("model response contained no text")
	// ErrMissingField indicates the model response omitted a required section.
	ErrMissingField = errors.New("model response is missing a required field")
)

const (
	// remoteMaxAttempts bounds one synthesis call to the initial request plus
	// three retries.
	remoteMaxAttempts = 4
	remoteBaseDelay   = time.Second
	defaultMaxTokens  = 1500
	defaultTemp       = 0.7
)

// RemoteConfig configures the language model connector.
type RemoteConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// Remote synthesizes narratives by prompting an external language model.
// Responses in both the OpenAI choices shape and the direct "response" text
// shape are accepted.
type Remote struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
	timeout     time.Duration
}

// NewRemote builds the language model strategy.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemp
	}
	return &Remote{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeouts.SynthesisCall,
	}, nil
}

// Synthesize prompts the model and parses its structured response. Transient
// failures (timeouts, 429, 5xx) are retried with exponential backoff; a
// response that parses but fails validation is a hard error with no retry.
func (r *Remote) Synthesize(ctx context.Context, result *analysis.GroupAnalysisResult) (analysis.Narrative, error) {
	if r == nil {
		return analysis.Narrative{}, fmt.Errorf("remote synthesizer is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	prompt := buildPrompt(result)
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = remoteBaseDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0

	narrative, err := backoff.Retry(ctx, func() (analysis.Narrative, error) {
		completion, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(r.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			MaxTokens:   openai.Int(r.maxTokens),
			Temperature: openai.Float(r.temperature),
		})
		if err != nil {
			if isRetryable(err) {
				return analysis.Narrative{}, err
			}
			return analysis.Narrative{}, backoff.Permanent(err)
		}
		parsed, err := parseNarrative(completion.RawJSON())
		if err != nil {
			// A malformed response is a model contract violation, not a
			// transient fault.
			return analysis.Narrative{}, backoff.Permanent(err)
		}
		return parsed, nil
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(remoteMaxAttempts))
	if err != nil {
		return analysis.Narrative{}, fmt.Errorf("remote synthesis: %w", err)
	}
	narrative.Source = SourceRemote
	return narrative, nil
}

// parseNarrative extracts the narrative JSON from either response shape and
// validates that every required section is present.
func parseNarrative(raw string) (analysis.Narrative, error) {
	text := gjson.Get(raw, "response").String()
	if text == "" {
		text = gjson.Get(raw, "choices.0.message.content").String()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return analysis.Narrative{}, ErrEmptyResponse
	}
	text = stripCodeFence(text)

	var narrative analysis.Narrative
	if err := json.Unmarshal([]byte(text), &narrative); err != nil {
		return analysis.Narrative{}, fmt.Errorf("parse narrative: %w", err)
	}
	required := map[string]string{
		"overview":      narrative.Overview,
		"compatibility": narrative.Compatibility,
		"strengths":     narrative.Strengths,
		"challenges":    narrative.Challenges,
		"opportunities": narrative.Opportunities,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return analysis.Narrative{}, fmt.Errorf("%w: %s", ErrMissingField, field)
		}
	}
	return narrative, nil
}

// stripCodeFence unwraps a narrative the model wrapped in a markdown fence.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

var _ analysis.Synthesizer = (*Remote)(nil)

// isRetryable classifies transient failures. API errors carry a status code;
// errors without one are raw transport failures classified by message.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests ||
			apiErr.StatusCode >= http.StatusInternalServerError
	}
	message := strings.ToLower(err.Error())
	for _, marker := range []string{
		"timeout", "timed out", "connection refused", "connection reset",
	} {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}
