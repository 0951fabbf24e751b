package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ccccccarachen/content-collection-skill/internal/domain"
	"github.com/ccccccarachen/content-collection-skill/internal/retry"
)

const DefaultModel = "claude-sonnet-4-20250514"

const (
	defaultMaxContentChars = 2000
	defaultCallAttempts    = 3
	defaultCallTimeout     = 30 * time.Second
	retryInitialDelay      = 500 * time.Millisecond
)

// Request asks for a category (and optionally a title) for one piece of
// content, constrained to the live category vocabulary.
type Request struct {
	Content     string   // canonical body: first URL or the raw text
	PageContext string   // fetched page description, empty when unavailable
	Caption     string   // user-supplied title, authoritative when non-empty
	Categories  []string // allowed labels in menu order
	NeedTitle   bool
	Corrections []domain.CategoryCorrection // recent refiles, newest first
}

type Result struct {
	Title    string
	Category string
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Classifier produces a title/category pair for submitted content via the
// Anthropic Messages API.
type Classifier struct {
	model       string
	maxChars    int
	attempts    int
	callTimeout time.Duration

	// swapped in tests
	call func(ctx context.Context, model, systemPrompt, userPrompt string) (string, Usage, error)
}

type Options struct {
	Model           string
	MaxContentChars int
	CallAttempts    int
	CallTimeout     time.Duration
}

func NewClassifier(apiKey string, opts Options) *Classifier {
	c := &Classifier{
		model:       opts.Model,
		maxChars:    opts.MaxContentChars,
		attempts:    opts.CallAttempts,
		callTimeout: opts.CallTimeout,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.maxChars <= 0 {
		c.maxChars = defaultMaxContentChars
	}
	if c.attempts < 1 {
		c.attempts = defaultCallAttempts
	}
	if c.callTimeout <= 0 {
		c.callTimeout = defaultCallTimeout
	}
	c.call = func(ctx context.Context, model, systemPrompt, userPrompt string) (string, Usage, error) {
		return callAnthropic(ctx, apiKey, model, systemPrompt, userPrompt)
	}
	return c
}

// Classify prompts the model and validates its answer against req.Categories.
// Transport failures and unparseable responses are retried with backoff; a
// parseable answer outside the allowed set is a *domain.InvalidCategoryError
// and never retried. Exhausted retries surface as
// *domain.ClassifierUnavailableError.
func (c *Classifier) Classify(ctx context.Context, req Request) (Result, error) {
	systemPrompt, userPrompt := buildPrompts(req, c.maxChars)
	log.Printf("llm classify model=%s categories=%d need_title=%v corrections=%d", c.model, len(req.Categories), req.NeedTitle, len(req.Corrections))

	var res Result
	err := retry.Do(ctx, "llm classify", c.attempts, retryInitialDelay, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()

		responseText, _, err := c.call(callCtx, c.model, systemPrompt, userPrompt)
		if err != nil {
			return err
		}
		parsed, err := parseClassifyResponse(responseText)
		if err != nil {
			// The model sometimes wraps or mangles the JSON; a re-ask
			// usually comes back clean.
			return err
		}
		category, ok := coerceCategory(parsed.Category, req.Categories)
		if !ok {
			return retry.Permanent(&domain.InvalidCategoryError{Category: parsed.Category, Allowed: req.Categories})
		}
		title := strings.TrimSpace(parsed.Title)
		if req.NeedTitle && title == "" {
			title = "Untitled"
		}
		res = Result{Title: title, Category: category}
		return nil
	})
	if err != nil {
		var invalid *domain.InvalidCategoryError
		if errors.As(err, &invalid) {
			return Result{}, invalid
		}
		return Result{}, &domain.ClassifierUnavailableError{Err: err}
	}
	return res, nil
}

func callAnthropic(ctx context.Context, apiKey, model, systemPrompt, userPrompt string) (string, Usage, error) {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 200,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", Usage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := Usage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d", len(block.Text), usage.InputTokens, usage.OutputTokens)
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}
