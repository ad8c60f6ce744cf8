package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/clickguard/pkg/observability"
)

// ErrEmptyCompletion is returned when a completion holds no text block
var ErrEmptyCompletion = errors.New("no text content in completion")

// Anthropic implements Assistant on the Anthropic Messages API
type Anthropic struct {
	log       logrus.FieldLogger
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	now       func() time.Time
}

var _ Assistant = (*Anthropic)(nil)

// NewAnthropic creates the Anthropic-backed collaborators
func NewAnthropic(log logrus.FieldLogger, cfg *Config) *Anthropic {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Anthropic{
		log:       log.WithField("component", "assistant"),
		client:    anthropic.NewClient(opts...),
		model:     anthropic.Model(cfg.Model),
		maxTokens: cfg.MaxTokens,
		now:       time.Now,
	}
}

// Resolve reads the transcript and decides the user's intent
func (a *Anthropic) Resolve(ctx context.Context, transcript []string) (*Intent, error) {
	raw, err := a.complete(ctx, "intent", intentTemplate, strings.Join(transcript, "\n"))
	if err != nil {
		return nil, err
	}

	intent, err := ParseIntent(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse intent: %w", err)
	}

	return intent, nil
}

// Validate checks a final question for its required components
func (a *Anthropic) Validate(ctx context.Context, question string) (*Validation, error) {
	raw, err := a.complete(ctx, "validation", validationTemplate, "final_question: "+question)
	if err != nil {
		return nil, err
	}

	v, err := ParseValidation(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse validation: %w", err)
	}

	return v, nil
}

// Generate converts a final question into SQL
func (a *Anthropic) Generate(ctx context.Context, question string) (*Generation, error) {
	raw, err := a.complete(ctx, "generation", generationTemplate, question)
	if err != nil {
		return nil, err
	}

	gen, err := ParseGeneration(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse generation: %w", err)
	}

	return gen, nil
}

func (a *Anthropic) complete(ctx context.Context, stage string, tmpl *template.Template, userPrompt string) (string, error) {
	systemPrompt, err := renderPrompt(tmpl, a.now())
	if err != nil {
		return "", err
	}

	start := time.Now()

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})

	duration := time.Since(start)
	if err != nil {
		observability.RecordCompletion(stage, "error", duration)
		a.log.WithError(err).WithField("stage", stage).Error("Completion failed")

		return "", fmt.Errorf("anthropic %s completion failed: %w", stage, err)
	}

	observability.RecordCompletion(stage, "success", duration)
	a.log.WithFields(logrus.Fields{
		"stage":       stage,
		"duration":    duration,
		"stop_reason": msg.StopReason,
	}).Debug("Completion finished")

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrEmptyCompletion, stage)
}
